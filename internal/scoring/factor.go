// Package scoring implements the environmental fit-score engine: per-factor
// proximity scoring, time-slot classification, the generic and learned
// models, the confidence estimate and the blend into a single result.
//
// Everything in this package is pure. Callers own I/O and caching.
package scoring

import (
	"math"

	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/stats"
)

// MaxScore is the score of a value inside its optimal range.
const MaxScore = 100.0

// Falloff is the distance past a range boundary at which the score reaches
// zero. Below applies under the floor, Above over the ceiling. A width <= 0
// gives no tolerance in that direction; Unbounded never penalises it.
type Falloff struct {
	Below float64
	Above float64
}

// Unbounded is a falloff width that never reaches zero.
var Unbounded = math.Inf(1)

// Symmetric returns a falloff with the same width in both directions.
func Symmetric(width float64) Falloff {
	return Falloff{Below: width, Above: width}
}

// Domain bounds the physically meaningful values of a sensor.
type Domain struct {
	Min float64
	Max float64
}

// Contains reports whether v is a plausible sensor value.
func (d Domain) Contains(v float64) bool {
	return stats.IsFinite(v) && v >= d.Min && v <= d.Max
}

// FactorSpec holds the per-factor parameters of the engine.
type FactorSpec struct {
	Factor      models.Factor
	Domain      Domain
	Falloff     Falloff
	Fallback    models.OptimalRange // used when the time slot defines no range
	BucketWidth float64             // value bucket width for the learned estimator
}

// DefaultFactorSpecs returns the built-in factor parameters. Sound drops off
// twice as fast above the ceiling as below the floor. Light is only
// penalised when the room is darker than the range.
func DefaultFactorSpecs() map[models.Factor]FactorSpec {
	return map[models.Factor]FactorSpec{
		models.FactorSound: {
			Factor:      models.FactorSound,
			Domain:      Domain{Min: 0, Max: 140},
			Falloff:     Falloff{Below: 20, Above: 10},
			Fallback:    models.OptimalRange{Min: 65, Max: 80},
			BucketWidth: 2,
		},
		models.FactorLight: {
			Factor:      models.FactorLight,
			Domain:      Domain{Min: 0, Max: 200000},
			Falloff:     Falloff{Below: 50, Above: Unbounded},
			Fallback:    models.OptimalRange{Min: 50, Max: 300},
			BucketWidth: 25,
		},
		models.FactorTemperature: {
			Factor:      models.FactorTemperature,
			Domain:      Domain{Min: -40, Max: 140},
			Falloff:     Symmetric(8),
			Fallback:    models.OptimalRange{Min: 68, Max: 74},
			BucketWidth: 1,
		},
		models.FactorHumidity: {
			Factor:      models.FactorHumidity,
			Domain:      Domain{Min: 0, Max: 100},
			Falloff:     Symmetric(15),
			Fallback:    models.OptimalRange{Min: 30, Max: 50},
			BucketWidth: 5,
		},
		models.FactorOccupancy: {
			Factor:      models.FactorOccupancy,
			Domain:      Domain{Min: 0, Max: 500},
			Falloff:     Symmetric(25),
			Fallback:    models.OptimalRange{Min: 40, Max: 80},
			BucketWidth: 5,
		},
	}
}

// Score rates value against r on a 0-100 scale. Inside the range the score is
// 100; outside it decays linearly to 0 at the falloff width past the nearest
// boundary. Non-finite values score 0.
func Score(value float64, r models.OptimalRange, f Falloff) float64 {
	if !stats.IsFinite(value) {
		return 0
	}
	if r.Contains(value) {
		return MaxScore
	}

	distance, width := r.Min-value, f.Below
	if value > r.Max {
		distance, width = value-r.Max, f.Above
	}
	if math.IsInf(width, 1) {
		return MaxScore
	}
	if width <= 0 || distance >= width {
		return 0
	}

	return stats.Clamp(MaxScore*(1-distance/width), 0, MaxScore)
}

// Score rates value against r using the factor's falloff. Values outside the
// factor's domain are treated as maximally distant.
func (s FactorSpec) Score(value float64, r models.OptimalRange) float64 {
	if !s.Domain.Contains(value) {
		return 0
	}
	return Score(value, r, s.Falloff)
}

// FactorValue extracts the value of f from a reading. The second result is
// false when the sensor did not report or the value cannot be derived.
func FactorValue(r models.SensorReading, f models.Factor) (float64, bool) {
	switch f {
	case models.FactorSound:
		return deref(r.SoundLevelDB)
	case models.FactorLight:
		return deref(r.LightLevelLux)
	case models.FactorTemperature:
		return deref(r.IndoorTempF)
	case models.FactorHumidity:
		return deref(r.HumidityPct)
	case models.FactorOccupancy:
		return occupancyPercent(r)
	}
	return 0, false
}

// OccupancyCurrent returns the current head count, falling back to
// entries minus exits when the device did not report it.
func OccupancyCurrent(r models.SensorReading) (int, bool) {
	if r.OccupancyCurrent != nil {
		return *r.OccupancyCurrent, true
	}
	if r.OccupancyEntries != nil && r.OccupancyExits != nil {
		return *r.OccupancyEntries - *r.OccupancyExits, true
	}
	return 0, false
}

func occupancyPercent(r models.SensorReading) (float64, bool) {
	current, ok := OccupancyCurrent(r)
	if !ok || r.OccupancyCapacity == nil || *r.OccupancyCapacity <= 0 {
		return 0, false
	}
	return float64(current) / float64(*r.OccupancyCapacity) * 100, true
}

func deref(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
