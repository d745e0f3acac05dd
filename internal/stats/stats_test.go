package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanAndWeightedMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-9)

	assert.InDelta(t, 2.5, WeightedMean([]float64{1, 3}, []float64{1, 3}), 1e-9)
	// missing weights default to 1
	assert.InDelta(t, 2.0, WeightedMean([]float64{1, 3}, nil), 1e-9)
	// all-zero weights fall back to the plain mean
	assert.InDelta(t, 2.0, WeightedMean([]float64{1, 3}, []float64{0, 0}), 1e-9)
}

func TestQuantileBounds(t *testing.T) {
	values := []float64{5, 1, 3, 2, 4}
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
	assert.Equal(t, 5.0, Quantile(values, 1))
	assert.Equal(t, 5.0, Quantile(values, 7)) // clamped
	assert.LessOrEqual(t, Quantile(values, 0.25), Quantile(values, 0.75))
	// input must not be reordered
	assert.Equal(t, []float64{5, 1, 3, 2, 4}, values)
}

func TestNormalizedEntropy(t *testing.T) {
	assert.Equal(t, 0.0, NormalizedEntropy([]float64{10, 0, 0, 0}))
	assert.InDelta(t, 1.0, NormalizedEntropy([]float64{5, 5, 5, 5}), 1e-9)
	assert.Equal(t, 0.0, NormalizedEntropy([]float64{0, 0}))

	skewed := NormalizedEntropy([]float64{9, 1, 0, 0})
	even := NormalizedEntropy([]float64{5, 5, 0, 0})
	assert.Less(t, skewed, even)
}

func TestSetPrecision(t *testing.T) {
	assert.Equal(t, 0.123, SetPrecision(0.12345, 3))
	assert.Equal(t, 0.124, SetPrecision(0.12351, 3))
	assert.Equal(t, 1.0, SetPrecision(0.9996, 3))
	assert.Equal(t, -0.5, SetPrecision(-0.5, 1))
}

func TestClampAndFinite(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-1, 0, 1))
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.False(t, IsFinite(math.NaN()))
	assert.False(t, IsFinite(math.Inf(-1)))
	assert.True(t, IsFinite(42))
}
