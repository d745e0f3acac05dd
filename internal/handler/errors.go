package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jengzang/pulse-backend-go/internal/repository"
	"github.com/jengzang/pulse-backend-go/internal/service"
	"github.com/jengzang/pulse-backend-go/pkg/response"
)

// writeError maps service errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrVenueRequired),
		errors.Is(err, service.ErrInvalidOutcome),
		errors.Is(err, service.ErrUnknownSkill),
		errors.Is(err, service.ErrInvalidTaskType),
		errors.Is(err, service.ErrTaskNotActive):
		response.BadRequest(c, err.Error())
	case errors.Is(err, repository.ErrNoReadings),
		errors.Is(err, repository.ErrReadingNotFound),
		errors.Is(err, repository.ErrTaskNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrTaskActive):
		response.Conflict(c, err.Error())
	case errors.Is(err, service.ErrStoreUnavailable):
		_ = c.Error(err)
		response.Unavailable(c, "History store unavailable")
	default:
		_ = c.Error(err)
		log.WithError(err).Error("Unhandled error")
		response.Error(c, http.StatusInternalServerError, "Internal server error")
	}
}
