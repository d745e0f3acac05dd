package service

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jengzang/pulse-backend-go/internal/config"
	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/repository"
	"github.com/jengzang/pulse-backend-go/internal/stats"
)

// ErrInvalidOutcome is returned for outcomes carrying no usable value.
var ErrInvalidOutcome = errors.New("outcome needs a finite dwell time or revenue")

// ReadingService handles sensor reading business logic
type ReadingService struct {
	repo   *repository.ReadingRepository
	venues *config.Venues
	now    func() time.Time
}

// NewReadingService creates a new reading service
func NewReadingService(repo *repository.ReadingRepository, venues *config.Venues) *ReadingService {
	if venues == nil {
		venues = config.DefaultVenues()
	}
	return &ReadingService{repo: repo, venues: venues, now: time.Now}
}

// Ingest stores a reading. Missing timestamps are set to the receive time
// and a missing capacity is taken from the venue configuration.
func (s *ReadingService) Ingest(reading *models.SensorReading) error {
	if strings.TrimSpace(reading.VenueID) == "" {
		return ErrVenueRequired
	}
	venue := s.venues.Venue(reading.VenueID)
	now := s.now()

	if reading.Time.IsZero() {
		reading.Time = now
	}
	reading.Time = reading.Time.UTC()
	if reading.OccupancyCapacity == nil && venue.Capacity > 0 {
		reading.OccupancyCapacity = models.Int(venue.Capacity)
	}

	if err := s.repo.Create(reading); err != nil {
		return storeError(err)
	}

	log.WithFields(log.Fields{
		"venue_id":   reading.VenueID,
		"reading_id": reading.ID,
		"device_id":  reading.DeviceID,
	}).Debug("Reading stored")
	return nil
}

// GetReading retrieves a reading by ID
func (s *ReadingService) GetReading(id int64) (*models.SensorReading, error) {
	return s.repo.GetByID(id)
}

// ListReadings returns a venue's readings, newest first.
func (s *ReadingService) ListReadings(filter models.ReadingFilter) ([]models.SensorReading, error) {
	if strings.TrimSpace(filter.VenueID) == "" {
		return nil, ErrVenueRequired
	}
	readings, err := s.repo.List(filter)
	if err != nil {
		return nil, storeError(err)
	}
	return readings, nil
}

// AttachOutcome records an outcome proxy against a stored reading of
// venueID. Readings of other venues are reported as not found.
func (s *ReadingService) AttachOutcome(venueID string, outcome *models.Outcome) error {
	if strings.TrimSpace(venueID) == "" {
		return ErrVenueRequired
	}
	if !finitePtr(outcome.DwellMinutes) && !finitePtr(outcome.Revenue) {
		return ErrInvalidOutcome
	}
	if outcome.RecordedAt.IsZero() {
		outcome.RecordedAt = s.now().UTC()
	}

	err := s.repo.Transaction(func(tx *repository.ReadingRepository) error {
		reading, err := tx.GetByID(outcome.ReadingID)
		if err != nil {
			return err
		}
		if reading.VenueID != venueID {
			return errors.Wrapf(repository.ErrReadingNotFound, "id %d in venue %s", outcome.ReadingID, venueID)
		}
		return tx.UpsertOutcome(outcome)
	})
	if errors.Is(err, repository.ErrReadingNotFound) {
		return err
	}
	if err != nil {
		return storeError(err)
	}
	return nil
}

func finitePtr(v *float64) bool {
	return v != nil && stats.IsFinite(*v)
}
