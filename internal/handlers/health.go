package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/tarifario/price-tracker/internal/database"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	CacheDir  string `json:"cache_dir"`
	Database  string `json:"database"`
	Instances int    `json:"instances"`
}

// Health handles the health check endpoint
func (s *Service) Health(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Instances: len(s.coords),
	}

	if _, err := os.Stat(s.cacheDir); err != nil {
		response.CacheDir = "unavailable"
		response.Status = "degraded"
	} else {
		response.CacheDir = "ok"
	}

	// Check database connection
	if database.Pool() != nil {
		if err := database.Status(c.Request.Context()); err != nil {
			response.Database = "disconnected"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		response.Database = "connected"
	} else {
		response.Database = "not configured"
	}

	c.JSON(http.StatusOK, response)
}
