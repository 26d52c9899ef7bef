package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tarifario/price-tracker/internal/pricing"
)

// ActiveResponse is the router view for the current selection. With an
// unknown selection every aggregate is null; that is not an error.
type ActiveResponse struct {
	Selection  string             `json:"selection"`
	Known      bool               `json:"known"`
	State      string             `json:"state,omitempty"`
	Aggregates pricing.Aggregates `json:"aggregates"`
}

// SelectionResponse carries the selection and its option set.
type SelectionResponse struct {
	Selection string   `json:"selection"`
	Options   []string `json:"options"`
}

// PutSelectionRequest is the body for changing the active selection.
type PutSelectionRequest struct {
	Selection string `json:"selection" binding:"required"`
}

// GetActive returns the aggregates for the active selection.
// GET /internal/active
func (s *Service) GetActive(c *gin.Context) {
	snap, known := s.router.Resolve()

	c.JSON(http.StatusOK, ActiveResponse{
		Selection:  s.router.Selection().Get(),
		Known:      known,
		State:      snap.State,
		Aggregates: snap.Aggregates,
	})
}

// GetSelection returns the active selection and the configured options.
// GET /internal/active/selection
func (s *Service) GetSelection(c *gin.Context) {
	c.JSON(http.StatusOK, SelectionResponse{
		Selection: s.router.Selection().Get(),
		Options:   s.router.Keys(),
	})
}

// PutSelection changes the active selection. Only configured instance
// keys are accepted.
// PUT /internal/active/selection
func (s *Service) PutSelection(c *gin.Context) {
	var req PutSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !s.router.Known(req.Selection) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "unknown selection",
			"options": s.router.Keys(),
		})
		return
	}

	s.router.Selection().Set(req.Selection)

	c.JSON(http.StatusOK, SelectionResponse{
		Selection: req.Selection,
		Options:   s.router.Keys(),
	})
}
