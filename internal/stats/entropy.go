package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// ShannonEntropy calculates the Shannon entropy of a frequency distribution
// Returns entropy in nats
func ShannonEntropy(values []float64) float64 {
	sum := Sum(values)
	if sum <= 0 {
		return 0
	}

	p := make([]float64, 0, len(values))
	for _, v := range values {
		if v > 0 {
			p = append(p, v/sum)
		}
	}

	return stat.Entropy(p)
}

// NormalizedEntropy calculates the normalized Shannon entropy (0 to 1)
// Divides by log(n) where n is the number of categories, including empty ones
func NormalizedEntropy(values []float64) float64 {
	if len(values) <= 1 {
		return 0
	}

	maxEntropy := math.Log(float64(len(values)))
	return Clamp(ShannonEntropy(values)/maxEntropy, 0, 1)
}
