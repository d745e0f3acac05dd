package models

import (
	"fmt"
	"math"
	"time"

	"github.com/pkg/errors"
)

// Factor names an environmental dimension the engine can score.
type Factor string

// Factor constants
const (
	FactorSound       Factor = "sound"
	FactorLight       Factor = "light"
	FactorTemperature Factor = "temperature"
	FactorHumidity    Factor = "humidity"
	FactorOccupancy   Factor = "occupancy" // percent of capacity
)

// AllFactors lists every factor in a fixed order.
var AllFactors = []Factor{FactorSound, FactorLight, FactorTemperature, FactorHumidity, FactorOccupancy}

// ErrInvalidRange is returned when a range has min > max or a non-finite bound.
var ErrInvalidRange = errors.New("invalid optimal range")

// OptimalRange is the closed interval in which a factor scores 100.
type OptimalRange struct {
	Min float64 `json:"min" msgpack:"min"`
	Max float64 `json:"max" msgpack:"max"`
}

// NewOptimalRange builds a range, rejecting inverted bounds.
func NewOptimalRange(min, max float64) (OptimalRange, error) {
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return OptimalRange{}, errors.Wrap(ErrInvalidRange, "non-finite bound")
	}
	if min > max {
		return OptimalRange{}, errors.Wrapf(ErrInvalidRange, "min %.2f > max %.2f", min, max)
	}
	return OptimalRange{Min: min, Max: max}, nil
}

// Contains reports whether v lies inside the range.
func (r OptimalRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r OptimalRange) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// Status bands
const (
	StatusOptimal = "optimal"
	StatusGood    = "good"
	StatusPoor    = "poor"
)

// ScoringResult is the single output of the engine. It is produced fresh for
// every request and never mutated afterwards.
type ScoringResult struct {
	VenueID       string           `json:"venueId,omitempty"`
	TimeSlot      string           `json:"timeSlot,omitempty"`
	Profile       string           `json:"profile,omitempty"`
	FinalScore    int              `json:"finalScore"`
	Confidence    float64          `json:"confidence"`
	Status        string           `json:"status"`
	StatusMessage string           `json:"statusMessage"`
	ReadingTime   *time.Time       `json:"readingTime,omitempty"`
	ComputedAt    time.Time        `json:"computedAt"`
	Breakdown     ScoringBreakdown `json:"breakdown"`
}

// ScoringBreakdown explains how the final score was assembled.
type ScoringBreakdown struct {
	GenericScore      float64         `json:"genericScore"`
	LearnedScore      *float64        `json:"learnedScore"`
	Weights           BlendWeights    `json:"weights"`
	OptimalRangesUsed RangesUsed      `json:"optimalRangesUsed"`
	PerFactorScores   PerFactorScores `json:"perFactorScores"`
}

// BlendWeights holds the interpolation weights of the two models.
type BlendWeights struct {
	GenericWeight float64 `json:"genericWeight"`
	LearnedWeight float64 `json:"learnedWeight"`
}

// RangesUsed lists the ranges each model scored against.
type RangesUsed struct {
	Generic map[Factor]OptimalRange `json:"generic"`
	Learned map[Factor]OptimalRange `json:"learned,omitempty"`
}

// PerFactorScores lists individual factor scores per model.
type PerFactorScores struct {
	Generic map[Factor]float64 `json:"generic"`
	Learned map[Factor]float64 `json:"learned,omitempty"`
}

// LearnedModel is the cached output of the learned-range estimator and the
// confidence estimator for one venue. It can always be recomputed from
// history.
type LearnedModel struct {
	VenueID      string                  `json:"venueId" db:"venue_id"`
	Ranges       map[Factor]OptimalRange `json:"ranges" db:"ranges_blob"` // nil when no factor qualified
	Confidence   float64                 `json:"confidence" db:"confidence"`
	SampleCount  int                     `json:"sampleCount" db:"sample_count"`
	SlotCoverage int                     `json:"slotCoverage" db:"slot_coverage"`
	Profile      string                  `json:"profile" db:"profile"`
	HistoryFrom  time.Time               `json:"historyFrom" db:"history_from"`
	HistoryTo    time.Time               `json:"historyTo" db:"history_to"`
	ComputedAt   time.Time               `json:"computedAt" db:"computed_at"`
}

// Stale reports whether the model is older than maxAge at now.
func (m *LearnedModel) Stale(now time.Time, maxAge time.Duration) bool {
	if m == nil || m.ComputedAt.IsZero() {
		return true
	}
	return now.Sub(m.ComputedAt) > maxAge
}
