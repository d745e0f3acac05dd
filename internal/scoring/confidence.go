package scoring

import (
	"math"
	"time"

	"github.com/jengzang/pulse-backend-go/internal/stats"
)

// Decay weights an observation by its age. Weights lie in [0,1] and never
// increase with age.
type Decay interface {
	Weight(age time.Duration) float64
}

// NoDecay counts every observation fully regardless of age.
type NoDecay struct{}

// Weight implements Decay.
func (NoDecay) Weight(time.Duration) float64 { return 1 }

// HalfLife halves an observation's weight every period.
type HalfLife time.Duration

// Weight implements Decay. Observations from the future count fully.
func (h HalfLife) Weight(age time.Duration) float64 {
	if h <= 0 || age <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(h))
}

// ConfidenceConfig tunes the confidence estimator.
type ConfidenceConfig struct {
	// MinVolume is the observation count below which confidence is 0.
	MinVolume int `toml:"min_volume" json:"minVolume"`
	// FullVolume is the freshness-weighted volume at which the volume term
	// saturates.
	FullVolume float64 `toml:"full_volume" json:"fullVolume"`
	// MinSlotSamples is how many observations a slot needs to count as covered.
	MinSlotSamples int `toml:"min_slot_samples" json:"minSlotSamples"`
	// BreadthFloor is the share of the volume term kept with no breadth at all.
	BreadthFloor float64 `toml:"breadth_floor" json:"breadthFloor"`
	Decay        Decay   `toml:"-" json:"-"`
}

// DefaultConfidenceConfig disables age decay.
var DefaultConfidenceConfig = ConfidenceConfig{
	MinVolume:      100,
	FullVolume:     2000,
	MinSlotSamples: 10,
	BreadthFloor:   0.25,
	Decay:          NoDecay{},
}

// ConfidenceReport explains a confidence value.
type ConfidenceReport struct {
	Confidence   float64          `json:"confidence"`
	Samples      int              `json:"samples"`
	Volume       float64          `json:"volume"`
	Coverage     float64          `json:"coverage"`
	Fill         float64          `json:"fill"`
	Entropy      float64          `json:"entropy"`
	Breadth      float64          `json:"breadth"`
	SlotsCovered int              `json:"slotsCovered"`
	SlotCounts   map[TimeSlot]int `json:"slotCounts"`
}

// ConfidenceEstimator rates how far a venue's learned model can be trusted.
type ConfidenceEstimator struct {
	cfg        ConfidenceConfig
	classifier *Classifier
}

// NewConfidenceEstimator builds an estimator. Zero config fields take their
// defaults; a nil classifier uses the default schedule.
func NewConfidenceEstimator(cfg ConfidenceConfig, classifier *Classifier) *ConfidenceEstimator {
	if cfg.MinVolume <= 0 {
		cfg.MinVolume = DefaultConfidenceConfig.MinVolume
	}
	if cfg.FullVolume <= 0 {
		cfg.FullVolume = DefaultConfidenceConfig.FullVolume
	}
	if cfg.MinSlotSamples <= 0 {
		cfg.MinSlotSamples = DefaultConfidenceConfig.MinSlotSamples
	}
	if cfg.BreadthFloor < 0 || cfg.BreadthFloor > 1 {
		cfg.BreadthFloor = DefaultConfidenceConfig.BreadthFloor
	}
	if cfg.Decay == nil {
		cfg.Decay = NoDecay{}
	}
	if classifier == nil {
		classifier = DefaultClassifier()
	}
	return &ConfidenceEstimator{cfg: cfg, classifier: classifier}
}

// Confidence returns the trust level in [0,1] for the venue's history.
func (c *ConfidenceEstimator) Confidence(venueID string, obs []Observation, now time.Time) float64 {
	return c.Evaluate(venueID, obs, now).Confidence
}

// Evaluate computes confidence from volume, time-slot breadth and freshness.
// It reads obs without modifying it.
//
// Breadth mixes slot coverage with fill, the share of FullVolume reached when
// each slot contributes at most its even share. Volume, coverage and fill
// never decrease when an observation is added, so neither does confidence.
// Entropy is reported for diagnostics only.
func (c *ConfidenceEstimator) Evaluate(venueID string, obs []Observation, now time.Time) ConfidenceReport {
	report := ConfidenceReport{SlotCounts: make(map[TimeSlot]int)}

	var weighted float64
	for _, o := range obs {
		if o.Reading.VenueID != "" && venueID != "" && o.Reading.VenueID != venueID {
			continue
		}
		report.Samples++
		report.SlotCounts[c.classifier.Classify(o.Reading.Time)]++
		weighted += stats.Clamp(c.cfg.Decay.Weight(now.Sub(o.Reading.Time)), 0, 1)
	}
	if report.Samples < c.cfg.MinVolume {
		return report
	}

	slotCap := c.cfg.FullVolume / float64(len(AllTimeSlots))
	counts := make([]float64, len(AllTimeSlots))
	var filled float64
	for i, slot := range AllTimeSlots {
		n := report.SlotCounts[slot]
		counts[i] = float64(n)
		filled += math.Min(float64(n), slotCap)
		if n >= c.cfg.MinSlotSamples {
			report.SlotsCovered++
		}
	}

	report.Volume = stats.Clamp(weighted/c.cfg.FullVolume, 0, 1)
	report.Coverage = float64(report.SlotsCovered) / float64(len(AllTimeSlots))
	report.Fill = stats.Clamp(filled/c.cfg.FullVolume, 0, 1)
	report.Entropy = stats.NormalizedEntropy(counts)
	report.Breadth = 0.5*report.Coverage + 0.5*report.Fill

	floor := c.cfg.BreadthFloor
	raw := report.Volume * (floor + (1-floor)*report.Breadth)
	report.Confidence = stats.SetPrecision(stats.Clamp(raw, 0, 1), 3)
	return report
}
