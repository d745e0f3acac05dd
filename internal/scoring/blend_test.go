package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/pulse-backend-go/internal/models"
)

func ptr(v float64) *float64 { return &v }

func TestBlendZeroConfidenceKeepsGeneric(t *testing.T) {
	for _, learned := range []*float64{nil, ptr(0), ptr(37.5), ptr(100)} {
		got := Blend(72, learned, 0)
		assert.Equal(t, 72, got.FinalScore)
		assert.Equal(t, 1.0, got.Breakdown.Weights.GenericWeight)
		assert.Equal(t, 0.0, got.Breakdown.Weights.LearnedWeight)
	}
}

func TestBlendFullConfidenceUsesLearned(t *testing.T) {
	got := Blend(40, ptr(91.6), 1)
	assert.Equal(t, 92, got.FinalScore)
	assert.Equal(t, 1.0, got.Breakdown.Weights.LearnedWeight)
	assert.Equal(t, 0.0, got.Breakdown.Weights.GenericWeight)
}

func TestBlendInterpolates(t *testing.T) {
	got := Blend(60, ptr(80), 0.25)
	assert.Equal(t, 65, got.FinalScore)
	assert.Equal(t, 0.25, got.Confidence)
	assert.Equal(t, models.BlendWeights{GenericWeight: 0.75, LearnedWeight: 0.25}, got.Breakdown.Weights)
	require.NotNil(t, got.Breakdown.LearnedScore)
	assert.Equal(t, 80.0, *got.Breakdown.LearnedScore)
}

func TestBlendNoLearnedScore(t *testing.T) {
	got := Blend(58.4, nil, 0.9)
	assert.Equal(t, 58, got.FinalScore)
	assert.Nil(t, got.Breakdown.LearnedScore)
	assert.Equal(t, 0.0, got.Confidence)
	assert.Equal(t, models.StatusPoor, got.Status)
}

func TestBlendDegradesOnBadInput(t *testing.T) {
	got := Blend(math.NaN(), ptr(math.Inf(1)), math.NaN())
	assert.Equal(t, 0, got.FinalScore)
	assert.Nil(t, got.Breakdown.LearnedScore)

	got = Blend(140, ptr(-20), 2)
	assert.Equal(t, 0, got.FinalScore)
	assert.Equal(t, 1.0, got.Breakdown.Weights.LearnedWeight)
}

func TestBandsStatus(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, models.StatusOptimal},
		{ExcellentThreshold, models.StatusOptimal},
		{ExcellentThreshold - 1, models.StatusGood},
		{GoodThreshold, models.StatusGood},
		{GoodThreshold - 1, models.StatusPoor},
		{0, models.StatusPoor},
	}
	for _, tt := range tests {
		status, msg := DefaultBands.Status(tt.score)
		assert.Equal(t, tt.want, status, "score %d", tt.score)
		assert.NotEmpty(t, msg)
	}

	strict := Bands{Excellent: 95, Good: 75}
	status, _ := strict.Status(90)
	assert.Equal(t, models.StatusGood, status)
}
