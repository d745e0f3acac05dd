package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/pulse-backend-go/internal/ingest"
	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/service"
	"github.com/jengzang/pulse-backend-go/pkg/response"
)

const maxPayloadBytes = 64 << 10

// ReadingHandler handles HTTP requests for sensor readings
type ReadingHandler struct {
	service *service.ReadingService
}

// NewReadingHandler creates a new reading handler
func NewReadingHandler(service *service.ReadingService) *ReadingHandler {
	return &ReadingHandler{service: service}
}

// CreateReading stores one reading in the device payload format
// POST /api/v1/venues/:venueId/readings
func (h *ReadingHandler) CreateReading(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes+1))
	if err != nil {
		response.BadRequest(c, "Failed to read body")
		return
	}
	if len(body) > maxPayloadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}

	reading, err := ingest.DecodeReading(body)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	venueID := c.Param("venueId")
	if reading.VenueID != "" && reading.VenueID != venueID {
		response.BadRequest(c, "Payload venueId does not match path")
		return
	}
	reading.VenueID = venueID

	if err := h.service.Ingest(reading); err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, reading)
}

// ListReadings returns a venue's readings, newest first
// GET /api/v1/venues/:venueId/readings?startTime=&endTime=&limit=
func (h *ReadingHandler) ListReadings(c *gin.Context) {
	var filter models.ReadingFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}
	filter.VenueID = c.Param("venueId")

	readings, err := h.service.ListReadings(filter)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"readings": readings,
		"count":    len(readings),
	})
}

// OutcomeRequest is the body of an outcome attachment.
type OutcomeRequest struct {
	DwellMinutes *float64 `json:"dwellMinutes"`
	Revenue      *float64 `json:"revenue"`
}

// AttachOutcome records an outcome proxy for a stored reading of the venue
// POST /api/v1/venues/:venueId/readings/:id/outcome
func (h *ReadingHandler) AttachOutcome(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid reading ID")
		return
	}

	var req OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	outcome := &models.Outcome{
		ReadingID:    id,
		DwellMinutes: req.DwellMinutes,
		Revenue:      req.Revenue,
	}
	if err := h.service.AttachOutcome(c.Param("venueId"), outcome); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, outcome)
}
