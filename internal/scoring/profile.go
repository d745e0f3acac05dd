package scoring

import (
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/jengzang/pulse-backend-go/internal/models"
)

var (
	// ErrUnknownFactor is returned when a profile references a factor the
	// engine cannot score.
	ErrUnknownFactor = errors.New("unknown factor")
	// ErrInvalidWeights is returned when weights fall outside [0,1] or do not
	// sum to 1.
	ErrInvalidWeights = errors.New("invalid factor weights")
	// ErrUnknownProfile is returned when a venue selects a profile that does
	// not exist.
	ErrUnknownProfile = errors.New("unknown scoring profile")
)

const weightSumTolerance = 1e-6

// OutcomeMetric selects which outcome proxy the learned model optimises.
type OutcomeMetric string

// OutcomeMetric constants
const (
	OutcomeOccupancyGrowth OutcomeMetric = "occupancy_growth"
	OutcomeDwellTime       OutcomeMetric = "dwell_time"
	OutcomeRevenue         OutcomeMetric = "revenue"
)

// Valid reports whether m is a known metric.
func (m OutcomeMetric) Valid() bool {
	switch m {
	case OutcomeOccupancyGrowth, OutcomeDwellTime, OutcomeRevenue:
		return true
	}
	return false
}

// FactorWeights maps each active factor to its share of the overall score.
type FactorWeights map[models.Factor]float64

// Validate checks that every factor is known, every weight lies in [0,1]
// and the weights sum to 1. An empty table is valid and means "unweighted".
func (w FactorWeights) Validate() error {
	if len(w) == 0 {
		return nil
	}
	known := DefaultFactorSpecs()
	var sum float64
	for f, weight := range w {
		if _, ok := known[f]; !ok {
			return errors.Wrapf(ErrUnknownFactor, "%q", f)
		}
		if math.IsNaN(weight) || weight < 0 || weight > 1 {
			return errors.Wrapf(ErrInvalidWeights, "%s weight %.3f outside [0,1]", f, weight)
		}
		sum += weight
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return errors.Wrapf(ErrInvalidWeights, "weights sum to %.4f", sum)
	}
	return nil
}

// Active returns the factors with a positive weight in AllFactors order.
// An empty table activates every factor.
func (w FactorWeights) Active() []models.Factor {
	out := make([]models.Factor, 0, len(models.AllFactors))
	for _, f := range models.AllFactors {
		if len(w) == 0 || w[f] > 0 {
			out = append(out, f)
		}
	}
	return out
}

// Profile is a named, versioned factor configuration. Venues select one.
type Profile struct {
	Name    string        `json:"name"`
	Weights FactorWeights `json:"weights"`
	Outcome OutcomeMetric `json:"outcome"`
}

// Validate checks the profile's weights and outcome metric.
func (p Profile) Validate() error {
	if p.Name == "" {
		return errors.New("profile name is required")
	}
	if !p.Outcome.Valid() {
		return errors.Errorf("profile %s: unknown outcome metric %q", p.Name, p.Outcome)
	}
	return errors.Wrapf(p.Weights.Validate(), "profile %s", p.Name)
}

// DefaultProfileName is the profile used by venues that select none.
const DefaultProfileName = "environment_v2"

// BuiltinProfiles returns the factor sets observed across deployments.
func BuiltinProfiles() map[string]Profile {
	return map[string]Profile{
		"climate_v1": {
			Name: "climate_v1",
			Weights: FactorWeights{
				models.FactorSound:       0.40,
				models.FactorLight:       0.30,
				models.FactorTemperature: 0.30,
			},
			Outcome: OutcomeOccupancyGrowth,
		},
		DefaultProfileName: {
			Name: DefaultProfileName,
			Weights: FactorWeights{
				models.FactorSound:       0.35,
				models.FactorLight:       0.25,
				models.FactorTemperature: 0.20,
				models.FactorHumidity:    0.20,
			},
			Outcome: OutcomeOccupancyGrowth,
		},
		"crowd_v3": {
			Name: "crowd_v3",
			Weights: FactorWeights{
				models.FactorSound:     0.40,
				models.FactorLight:     0.20,
				models.FactorOccupancy: 0.40,
			},
			Outcome: OutcomeOccupancyGrowth,
		},
	}
}

// ProfileNames returns the sorted names of profiles.
func ProfileNames(profiles map[string]Profile) []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
