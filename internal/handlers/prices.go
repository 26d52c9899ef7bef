package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tarifario/price-tracker/internal/pricing"
)

// GetPrices returns the full state of one instance: today, tomorrow,
// aggregates, last update and last error.
// GET /internal/prices/:provider/:tariff
func (s *Service) GetPrices(c *gin.Context) {
	provider := c.Param("provider")
	tariff := c.Param("tariff")

	key := pricing.InstanceKey(provider, tariff)
	coord, ok := s.coords[key]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown instance", "key": key})
		return
	}

	c.JSON(http.StatusOK, coord.Snapshot())
}
