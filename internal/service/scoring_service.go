package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jengzang/pulse-backend-go/internal/config"
	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/repository"
	"github.com/jengzang/pulse-backend-go/internal/scoring"
)

// ScoringOptions tunes how much history the learned model sees and how long
// a cached model is trusted.
type ScoringOptions struct {
	HistoryWindow time.Duration // 0 reads the whole history
	MaxStaleness  time.Duration
}

// ScoringService scores readings against the venue's configuration and its
// cached or freshly learned model.
type ScoringService struct {
	readings *repository.ReadingRepository
	learned  *repository.LearnedModelRepository
	venues   *config.Venues
	engine   *scoring.Engine
	opts     ScoringOptions
	now      func() time.Time
}

// NewScoringService creates a new scoring service
func NewScoringService(
	readings *repository.ReadingRepository,
	learned *repository.LearnedModelRepository,
	venues *config.Venues,
	engine *scoring.Engine,
	opts ScoringOptions,
) *ScoringService {
	if venues == nil {
		venues = config.DefaultVenues()
	}
	if engine == nil {
		engine = scoring.NewEngine(scoring.WithClassifier(venues.Schedule()))
	}
	if opts.MaxStaleness <= 0 {
		opts.MaxStaleness = time.Hour
	}
	return &ScoringService{
		readings: readings,
		learned:  learned,
		venues:   venues,
		engine:   engine,
		opts:     opts,
		now:      time.Now,
	}
}

// Engine returns the scoring engine.
func (s *ScoringService) Engine() *scoring.Engine {
	return s.engine
}

// ScoreLatest scores the most recent stored reading of a venue.
func (s *ScoringService) ScoreLatest(venueID string) (*models.ScoringResult, error) {
	if strings.TrimSpace(venueID) == "" {
		return nil, ErrVenueRequired
	}
	reading, err := s.readings.Latest(venueID)
	if errors.Is(err, repository.ErrNoReadings) {
		return nil, err
	}
	if err != nil {
		return nil, storeError(err)
	}
	return s.ScoreReading(venueID, *reading)
}

// ScoreReading scores a reading for venueID. The reading does not need to be
// stored.
func (s *ScoringService) ScoreReading(venueID string, reading models.SensorReading) (*models.ScoringResult, error) {
	if strings.TrimSpace(venueID) == "" {
		return nil, ErrVenueRequired
	}
	venue := s.venues.Venue(venueID)
	now := s.now()

	reading.VenueID = venueID
	normalizeReading(&reading, venue, now)

	state, _, err := s.learnedState(venue, now)
	if err != nil {
		return nil, err
	}

	result := s.engine.Score(scoring.ScoreRequest{
		VenueID: venueID,
		Reading: reading,
		Profile: venue.Profile,
		Learned: state,
		Now:     now,
	})

	log.WithFields(log.Fields{
		"venue_id":    venueID,
		"time_slot":   result.TimeSlot,
		"final_score": result.FinalScore,
		"confidence":  result.Confidence,
	}).Debug("Scored reading")

	return &result, nil
}

// LearnedModel returns the venue's learned model, recomputing it when the
// cached copy is missing or stale.
func (s *ScoringService) LearnedModel(venueID string) (*models.LearnedModel, error) {
	if strings.TrimSpace(venueID) == "" {
		return nil, ErrVenueRequired
	}
	_, m, err := s.learnedState(s.venues.Venue(venueID), s.now())
	return m, err
}

// Recompute rebuilds and caches the venue's learned model regardless of the
// cached copy. Unlike scoring, a failed cache write is an error here.
func (s *ScoringService) Recompute(ctx context.Context, venueID string) (*models.LearnedModel, error) {
	if strings.TrimSpace(venueID) == "" {
		return nil, ErrVenueRequired
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, m, err := s.learn(s.venues.Venue(venueID), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.learned.Upsert(m); err != nil {
		return nil, storeError(err)
	}
	return m, nil
}

// Stale reports whether the venue's cached model needs a recompute.
func (s *ScoringService) Stale(venueID string) (bool, error) {
	cached, err := s.cachedModel(venueID)
	if err != nil {
		return false, err
	}
	return s.stale(cached, s.venues.Venue(venueID), s.now()), nil
}

// VenueIDs returns every venue that is configured or has readings.
func (s *ScoringService) VenueIDs() ([]string, error) {
	stored, err := s.readings.VenueIDs()
	if err != nil {
		return nil, storeError(err)
	}
	seen := make(map[string]bool)
	var ids []string
	for _, id := range append(stored, s.venues.IDs()...) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// TimeSlotInfo is the classification of one instant for a venue.
type TimeSlotInfo struct {
	VenueID      string               `json:"venueId"`
	At           time.Time            `json:"at"`
	TimeSlot     scoring.TimeSlot     `json:"timeSlot"`
	Expectations scoring.Expectations `json:"expectations"`
}

// Classify returns the slot of at in the venue's local time. A zero at
// classifies the current time.
func (s *ScoringService) Classify(venueID string, at time.Time) TimeSlotInfo {
	venue := s.venues.Venue(venueID)
	if at.IsZero() {
		at = s.now()
	}
	local := at.In(venue.Location)
	slot := s.engine.Classifier().Classify(local)
	return TimeSlotInfo{
		VenueID:      venueID,
		At:           local,
		TimeSlot:     slot,
		Expectations: slot.Expectations(),
	}
}

// Profiles lists every known profile sorted by name.
func (s *ScoringService) Profiles() []scoring.Profile {
	all := s.venues.Profiles()
	out := make([]scoring.Profile, 0, len(all))
	for _, name := range scoring.ProfileNames(all) {
		out = append(out, all[name])
	}
	return out
}

// learnedState returns the cached model when fresh, else learns and caches a
// new one. Cache write failures are logged and otherwise ignored.
func (s *ScoringService) learnedState(venue config.Venue, now time.Time) (*scoring.LearnedState, *models.LearnedModel, error) {
	cached, err := s.cachedModel(venue.ID)
	if err != nil {
		return nil, nil, err
	}
	if !s.stale(cached, venue, now) {
		return stateFromModel(cached), cached, nil
	}

	state, m, err := s.learn(venue, now)
	if err != nil {
		return nil, nil, err
	}
	if err := s.learned.Upsert(m); err != nil {
		log.WithError(err).WithField("venue_id", venue.ID).Warn("Failed to cache learned model")
	}
	return state, m, nil
}

// cachedModel reads the venue's cached model. A corrupt row is dropped and
// reported as a miss so the caller learns a replacement.
func (s *ScoringService) cachedModel(venueID string) (*models.LearnedModel, error) {
	cached, err := s.learned.Get(venueID)
	if errors.Is(err, repository.ErrCorruptModel) {
		log.WithError(err).WithField("venue_id", venueID).Warn("Dropping corrupt learned model")
		if err := s.learned.Delete(venueID); err != nil {
			log.WithError(err).WithField("venue_id", venueID).Warn("Failed to drop corrupt learned model")
		}
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err)
	}
	return cached, nil
}

func (s *ScoringService) learn(venue config.Venue, now time.Time) (*scoring.LearnedState, *models.LearnedModel, error) {
	var from time.Time
	if s.opts.HistoryWindow > 0 {
		from = now.Add(-s.opts.HistoryWindow)
	}
	history, err := s.readings.History(venue.ID, from, now)
	if err != nil {
		return nil, nil, storeError(err)
	}
	for i := range history {
		normalizeReading(&history[i].SensorReading, venue, now)
	}

	obs := scoring.BuildObservations(history, venue.Profile.Outcome)
	state := s.engine.Learn(venue.ID, obs, now)

	m := &models.LearnedModel{
		VenueID:      venue.ID,
		Ranges:       state.Ranges,
		Confidence:   state.Confidence,
		SampleCount:  state.Report.Samples,
		SlotCoverage: state.Report.SlotsCovered,
		Profile:      venue.Profile.Name,
		HistoryFrom:  from.UTC(),
		HistoryTo:    now.UTC(),
		ComputedAt:   now.UTC(),
	}

	log.WithFields(log.Fields{
		"venue_id":   venue.ID,
		"history":    len(history),
		"samples":    state.Report.Samples,
		"factors":    len(state.Ranges),
		"confidence": state.Confidence,
	}).Info("Learned model computed")

	return &state, m, nil
}

// stale reports whether cached cannot be used for venue at now. A model
// learned under another profile is always stale.
func (s *ScoringService) stale(cached *models.LearnedModel, venue config.Venue, now time.Time) bool {
	if cached.Stale(now, s.opts.MaxStaleness) {
		return true
	}
	return cached.Profile != venue.Profile.Name
}

func stateFromModel(m *models.LearnedModel) *scoring.LearnedState {
	return &scoring.LearnedState{
		Ranges:     m.Ranges,
		Confidence: m.Confidence,
		Report: scoring.ConfidenceReport{
			Confidence:   m.Confidence,
			Samples:      m.SampleCount,
			SlotsCovered: m.SlotCoverage,
		},
	}
}

// normalizeReading fills the capacity from the venue, stamps readings
// without a time and moves the time into the venue's zone.
func normalizeReading(r *models.SensorReading, venue config.Venue, now time.Time) {
	if r.OccupancyCapacity == nil && venue.Capacity > 0 {
		r.OccupancyCapacity = models.Int(venue.Capacity)
	}
	if r.Time.IsZero() {
		r.Time = now
	}
	if venue.Location != nil {
		r.Time = r.Time.In(venue.Location)
	}
}
