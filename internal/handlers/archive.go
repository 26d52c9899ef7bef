package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GetArchive returns archived days for an instance. With a `date` query
// parameter it returns that single day; otherwise a paginated listing
// without record bodies.
// GET /internal/archive/:provider/:tariff?date=YYYY-MM-DD&limit=30&offset=0
func (s *Service) GetArchive(c *gin.Context) {
	if s.archive == nil || !s.archive.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "price archive not configured"})
		return
	}

	provider := c.Param("provider")
	tariff := c.Param("tariff")
	ctx := c.Request.Context()

	if dateStr := c.Query("date"); dateStr != "" {
		day, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}

		pd, err := s.archive.GetPriceDay(ctx, provider, tariff, day)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read archive"})
			return
		}
		if pd == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no archived data for date"})
			return
		}

		c.JSON(http.StatusOK, pd)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 365 {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	days, err := s.archive.ListPriceDays(ctx, provider, tariff, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list archive"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": days, "limit": limit, "offset": offset})
}
