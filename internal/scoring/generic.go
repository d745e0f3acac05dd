package scoring

import (
	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/stats"
)

// FactorBreakdown is the per-model scoring detail.
type FactorBreakdown struct {
	Overall   float64
	PerFactor map[models.Factor]float64
	Ranges    map[models.Factor]models.OptimalRange
}

// Scored reports whether at least one factor contributed.
func (b FactorBreakdown) Scored() bool {
	return len(b.PerFactor) > 0
}

// GenericScorer scores readings against the fixed baseline ranges.
type GenericScorer struct {
	specs   map[models.Factor]FactorSpec
	weights FactorWeights
}

// NewGenericScorer builds a baseline scorer for the given weights. Empty
// weights score every factor with an unweighted mean.
func NewGenericScorer(specs map[models.Factor]FactorSpec, weights FactorWeights) *GenericScorer {
	if specs == nil {
		specs = DefaultFactorSpecs()
	}
	return &GenericScorer{specs: specs, weights: weights}
}

// BaselineRange returns the range the generic model uses for f in slot.
func (g *GenericScorer) BaselineRange(slot TimeSlot, f models.Factor) models.OptimalRange {
	if r, ok := slot.Range(f); ok {
		return r
	}
	return g.specs[f].Fallback
}

// ScoreGeneric scores every active factor of the reading against the slot's
// baseline. Factors without a value are skipped and the remaining weights
// renormalized. A reading with nothing to score gets an overall of 0.
func (g *GenericScorer) ScoreGeneric(reading models.SensorReading, slot TimeSlot) FactorBreakdown {
	out := FactorBreakdown{
		PerFactor: make(map[models.Factor]float64),
		Ranges:    make(map[models.Factor]models.OptimalRange),
	}

	for _, f := range g.weights.Active() {
		spec, ok := g.specs[f]
		if !ok {
			continue
		}
		value, ok := FactorValue(reading, f)
		if !ok {
			continue
		}
		r := g.BaselineRange(slot, f)
		out.Ranges[f] = r
		out.PerFactor[f] = spec.Score(value, r)
	}

	out.Overall = combine(out.PerFactor, g.weights)
	return out
}

// combine folds per-factor scores into one number. Missing factors are
// absent from scores, so their weight is dropped and the rest renormalized.
func combine(scores map[models.Factor]float64, weights FactorWeights) float64 {
	if len(scores) == 0 {
		return 0
	}

	values := make([]float64, 0, len(scores))
	w := make([]float64, 0, len(scores))
	for _, f := range models.AllFactors {
		s, ok := scores[f]
		if !ok {
			continue
		}
		values = append(values, s)
		if len(weights) == 0 {
			w = append(w, 1)
		} else {
			w = append(w, weights[f])
		}
	}

	return stats.Clamp(stats.WeightedMean(values, w), 0, MaxScore)
}
