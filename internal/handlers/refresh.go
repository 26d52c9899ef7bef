package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tarifario/price-tracker/internal/coordinator"
)

// RefreshRequest optionally narrows a manual refresh to one instance
// or one date (YYYY-MM-DD). Manual refreshes always bypass the cache.
type RefreshRequest struct {
	Key  string `json:"key"`
	Date string `json:"date"`
}

// RefreshResult is the outcome for one instance.
type RefreshResult struct {
	Key     string `json:"key"`
	Day     string `json:"day"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

// PostRefresh forces a cache-bypassing refresh.
// POST /internal/refresh
func (s *Service) PostRefresh(c *gin.Context) {
	var req RefreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var date *time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		date = &parsed
	}

	if req.Key != "" {
		coord, ok := s.coords[req.Key]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown instance", "key": req.Key})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": []RefreshResult{s.refreshOne(c, coord, date)}})
		return
	}

	results := make([]RefreshResult, 0, len(s.coords))
	for _, coord := range s.coords {
		results = append(results, s.refreshOne(c, coord, date))
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Service) refreshOne(c *gin.Context, coord *coordinator.Coordinator, date *time.Time) RefreshResult {
	result := RefreshResult{Key: coord.Key()}

	set, err := coord.ForceUpdate(c.Request.Context(), date)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Day = set.Day.Format("2006-01-02")
	result.Records = set.Len()
	return result
}
