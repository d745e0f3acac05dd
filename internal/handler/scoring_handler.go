package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/service"
	"github.com/jengzang/pulse-backend-go/pkg/response"
)

// ScoringHandler handles HTTP requests for venue scores
type ScoringHandler struct {
	service *service.ScoringService
}

// NewScoringHandler creates a new scoring handler
func NewScoringHandler(service *service.ScoringService) *ScoringHandler {
	return &ScoringHandler{service: service}
}

// ListProfiles lists the factor profiles
// GET /api/v1/profiles
func (h *ScoringHandler) ListProfiles(c *gin.Context) {
	response.Success(c, h.service.Profiles())
}

// ScoreLatest scores the most recent stored reading of a venue
// GET /api/v1/venues/:venueId/score
func (h *ScoringHandler) ScoreLatest(c *gin.Context) {
	result, err := h.service.ScoreLatest(c.Param("venueId"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}

// ScoreReading scores a reading supplied in the body
// POST /api/v1/venues/:venueId/score
func (h *ScoringHandler) ScoreReading(c *gin.Context) {
	var reading models.SensorReading
	if err := c.ShouldBindJSON(&reading); err != nil {
		response.BadRequest(c, "Invalid reading: "+err.Error())
		return
	}

	result, err := h.service.ScoreReading(c.Param("venueId"), reading)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, result)
}

// Classify returns the time slot of an instant for a venue
// GET /api/v1/venues/:venueId/timeslot?at=2024-03-08T22:00:00Z
func (h *ScoringHandler) Classify(c *gin.Context) {
	var at time.Time
	if raw := c.Query("at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Invalid at, expected RFC3339")
			return
		}
		at = t
	}
	response.Success(c, h.service.Classify(c.Param("venueId"), at))
}

// LearnedModel returns the cached or freshly learned model of a venue
// GET /api/v1/venues/:venueId/learned
func (h *ScoringHandler) LearnedModel(c *gin.Context) {
	m, err := h.service.LearnedModel(c.Param("venueId"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, m)
}
