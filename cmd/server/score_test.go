package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/jengzang/pulse-backend-go/internal/models"
)

func TestPrintScore(t *testing.T) {
	color.NoColor = true

	learned := 90.0
	r := &models.ScoringResult{
		VenueID:       "blue",
		TimeSlot:      "friday_peak",
		Profile:       "crowd_v3",
		FinalScore:    84,
		Confidence:    0.6,
		Status:        models.StatusGood,
		StatusMessage: "Conditions are good, minor adjustments could help",
		Breakdown: models.ScoringBreakdown{
			GenericScore: 75,
			LearnedScore: &learned,
			Weights:      models.BlendWeights{GenericWeight: 0.4, LearnedWeight: 0.6},
			OptimalRangesUsed: models.RangesUsed{
				Generic: map[models.Factor]models.OptimalRange{models.FactorSound: {Min: 75, Max: 85}},
				Learned: map[models.Factor]models.OptimalRange{models.FactorSound: {Min: 72, Max: 78}},
			},
			PerFactorScores: models.PerFactorScores{
				Generic: map[models.Factor]float64{models.FactorSound: 75},
				Learned: map[models.Factor]float64{models.FactorSound: 90},
			},
		},
	}

	var buf bytes.Buffer
	printScore(&buf, r)
	out := buf.String()

	assert.Contains(t, out, "blue 84 good")
	assert.Contains(t, out, "slot friday_peak, profile crowd_v3, confidence 0.60")
	assert.Contains(t, out, "generic 75.0 (w 0.40), learned 90.0 (w 0.60)")
	assert.Contains(t, out, "[75, 85]")
	assert.Contains(t, out, "learned   90.0  [72, 78]")
}

func TestStatusStyle(t *testing.T) {
	assert.Equal(t, okStyle, statusStyle(models.StatusOptimal))
	assert.Equal(t, warnStyle, statusStyle(models.StatusGood))
	assert.Equal(t, badStyle, statusStyle(models.StatusPoor))
}
