package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Quantile calculates the q-th quantile (0 <= q <= 1)
// Uses linear interpolation of the empirical distribution
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	q = Clamp(q, 0, 1)

	// Create a copy to avoid modifying the original slice
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return stat.Quantile(q, stat.LinInterp, sorted, nil)
}
