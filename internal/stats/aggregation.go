package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// WeightedMean calculates the weighted mean.
// Missing weights default to 1; a zero weight total falls back to the plain mean.
func WeightedMean(values, weights []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	w := make([]float64, len(values))
	for i := range values {
		w[i] = 1.0
		if i < len(weights) {
			w[i] = weights[i]
		}
	}

	if floats.Sum(w) == 0 {
		return Mean(values)
	}

	return stat.Mean(values, w)
}

// Sum returns the sum of all values
func Sum(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return floats.Sum(values)
}

// Clamp limits v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// SetPrecision rounds value half-up to the given number of decimal places
func SetPrecision(value float64, places int) float64 {
	power := math.Pow(10, float64(places))
	digits := power * value
	whole, remainder := math.Modf(digits)
	if remainder >= 0.5 {
		whole++
	} else if remainder <= -0.5 {
		whole--
	}
	return whole / power
}
