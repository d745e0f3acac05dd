package scoring

import (
	"time"

	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/stats"
)

// LearnedState is the learned model of one venue: ranges plus the trust in
// them. Ranges is nil while history is insufficient.
type LearnedState struct {
	Ranges     map[models.Factor]models.OptimalRange
	Confidence float64
	Report     ConfidenceReport
}

// ScoreRequest is the input of a single scoring call.
type ScoreRequest struct {
	VenueID string
	Reading models.SensorReading
	// Profile selects factors and weights. The zero value uses the default
	// profile.
	Profile Profile
	// History is consulted only when Learned is nil.
	History []Observation
	// Learned is a previously computed (cached) learned model.
	Learned *LearnedState
	Now     time.Time
}

// Engine wires the classifier, both models, the confidence estimator and
// the blend. It holds no mutable state and is safe for concurrent use.
type Engine struct {
	specs      map[models.Factor]FactorSpec
	classifier *Classifier
	estimator  *Estimator
	confidence *ConfidenceEstimator
	bands      Bands
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	schedule   *Schedule
	estimator  EstimatorConfig
	confidence ConfidenceConfig
	bands      Bands
	specs      map[models.Factor]FactorSpec
}

// WithClassifier uses schedule s for slot classification. An invalid
// schedule is ignored in favour of the default.
func WithClassifier(s Schedule) Option {
	return func(o *engineOptions) { o.schedule = &s }
}

// WithEstimatorConfig overrides the learned-range estimator settings.
func WithEstimatorConfig(cfg EstimatorConfig) Option {
	return func(o *engineOptions) { o.estimator = cfg }
}

// WithConfidenceConfig overrides the confidence estimator settings.
func WithConfidenceConfig(cfg ConfidenceConfig) Option {
	return func(o *engineOptions) { o.confidence = cfg }
}

// WithBands overrides the status thresholds.
func WithBands(b Bands) Option {
	return func(o *engineOptions) { o.bands = b }
}

// WithFactorSpecs overrides the per-factor parameters.
func WithFactorSpecs(specs map[models.Factor]FactorSpec) Option {
	return func(o *engineOptions) { o.specs = specs }
}

// NewEngine builds an engine with defaults for everything not overridden.
func NewEngine(opts ...Option) *Engine {
	o := engineOptions{
		estimator:  DefaultEstimatorConfig,
		confidence: DefaultConfidenceConfig,
		bands:      DefaultBands,
		specs:      DefaultFactorSpecs(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	classifier := DefaultClassifier()
	if o.schedule != nil {
		if c, err := NewClassifier(*o.schedule); err == nil {
			classifier = c
		}
	}

	return &Engine{
		specs:      o.specs,
		classifier: classifier,
		estimator:  NewEstimator(o.estimator, o.specs),
		confidence: NewConfidenceEstimator(o.confidence, classifier),
		bands:      o.bands,
	}
}

// Classifier returns the engine's slot classifier.
func (e *Engine) Classifier() *Classifier {
	return e.classifier
}

// Estimator returns the engine's learned-range estimator.
func (e *Engine) Estimator() *Estimator {
	return e.estimator
}

// Learn derives the learned model of a venue from its history.
func (e *Engine) Learn(venueID string, history []Observation, now time.Time) LearnedState {
	report := e.confidence.Evaluate(venueID, history, now)
	return LearnedState{
		Ranges:     e.estimator.EstimateRanges(venueID, history),
		Confidence: report.Confidence,
		Report:     report,
	}
}

// Score produces the result for one reading. It always returns a result,
// falling back to the generic model as information disappears.
func (e *Engine) Score(req ScoreRequest) models.ScoringResult {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}
	profile := req.Profile
	if profile.Name == "" {
		profile = BuiltinProfiles()[DefaultProfileName]
	}

	at := req.Reading.Time
	if at.IsZero() {
		at = now
	}
	slot := e.classifier.Classify(at)

	generic := NewGenericScorer(e.specs, profile.Weights).ScoreGeneric(req.Reading, slot)

	learned := req.Learned
	if learned == nil {
		state := e.Learn(req.VenueID, req.History, now)
		learned = &state
	}

	var learnedScore *float64
	lb, ok := ScoreLearned(req.Reading, learned.Ranges, profile.Weights, e.specs)
	if ok {
		v := stats.SetPrecision(lb.Overall, 2)
		learnedScore = &v
	}

	result := e.bands.Blend(stats.SetPrecision(generic.Overall, 2), learnedScore, learned.Confidence)
	result.VenueID = req.VenueID
	result.TimeSlot = string(slot)
	result.Profile = profile.Name
	result.ComputedAt = now.UTC()
	if !req.Reading.Time.IsZero() {
		t := req.Reading.Time
		result.ReadingTime = &t
	}
	result.Breakdown.OptimalRangesUsed = models.RangesUsed{Generic: generic.Ranges}
	result.Breakdown.PerFactorScores = models.PerFactorScores{Generic: generic.PerFactor}
	if ok {
		result.Breakdown.OptimalRangesUsed.Learned = lb.Ranges
		result.Breakdown.PerFactorScores.Learned = lb.PerFactor
	}
	return result
}
