package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/pulse-backend-go/internal/models"
)

func TestScoreGenericFridayPeak(t *testing.T) {
	g := NewGenericScorer(nil, FactorWeights{models.FactorSound: 0.5, models.FactorLight: 0.5})
	reading := models.SensorReading{
		SoundLevelDB:  models.Float64(74),
		LightLevelLux: models.Float64(200),
	}

	got := g.ScoreGeneric(reading, SlotFridayPeak)

	assert.Less(t, got.PerFactor[models.FactorSound], MaxScore)
	assert.Greater(t, got.PerFactor[models.FactorSound], 0.0)
	assert.Equal(t, MaxScore, got.PerFactor[models.FactorLight])
	assert.Equal(t, models.OptimalRange{Min: 75, Max: 85}, got.Ranges[models.FactorSound])
	assert.Equal(t, models.OptimalRange{Min: 30, Max: 150}, got.Ranges[models.FactorLight])
}

func TestScoreGenericRenormalizesMissingFactor(t *testing.T) {
	weights := FactorWeights{models.FactorSound: 0.6, models.FactorLight: 0.4}
	g := NewGenericScorer(nil, weights)
	reading := models.SensorReading{
		SoundLevelDB:  models.Float64(80), // inside [75,85]
		LightLevelLux: models.Float64(5),  // halfway down the 50 lux falloff
		HumidityPct:   nil,
	}

	got := g.ScoreGeneric(reading, SlotFridayPeak)

	require.Len(t, got.PerFactor, 2)
	_, scored := got.PerFactor[models.FactorHumidity]
	assert.False(t, scored)
	// sound 100, light 50: 0.6*100 + 0.4*50
	assert.InDelta(t, 80.0, got.Overall, 1e-9)

	// Dropping light leaves sound alone at full weight.
	reading.LightLevelLux = nil
	got = g.ScoreGeneric(reading, SlotFridayPeak)
	assert.InDelta(t, 100.0, got.Overall, 1e-9)
}

func TestScoreGenericHumidityNullIsIgnored(t *testing.T) {
	weights := FactorWeights{models.FactorSound: 0.6, models.FactorLight: 0.4, models.FactorHumidity: 0}
	g := NewGenericScorer(nil, weights)
	reading := models.SensorReading{
		SoundLevelDB:  models.Float64(80),
		LightLevelLux: models.Float64(100),
	}

	got := g.ScoreGeneric(reading, SlotFridayPeak)
	assert.InDelta(t, 100.0, got.Overall, 1e-9)
	assert.NotContains(t, got.PerFactor, models.FactorHumidity)
}

func TestScoreGenericUnweightedMean(t *testing.T) {
	g := NewGenericScorer(nil, nil)
	reading := models.SensorReading{
		SoundLevelDB: models.Float64(80),
		IndoorTempF:  models.Float64(64), // 4 below 68 over an 8 band
	}

	got := g.ScoreGeneric(reading, SlotFridayPeak)
	assert.Len(t, got.PerFactor, 2)
	assert.InDelta(t, 75.0, got.Overall, 1e-9)
	assert.Equal(t, models.OptimalRange{Min: 68, Max: 74}, got.Ranges[models.FactorTemperature])
}

func TestScoreGenericEmptyReading(t *testing.T) {
	g := NewGenericScorer(nil, BuiltinProfiles()[DefaultProfileName].Weights)
	got := g.ScoreGeneric(models.SensorReading{}, SlotDaytime)
	assert.False(t, got.Scored())
	assert.Equal(t, 0.0, got.Overall)
}

func TestScoreGenericOccupancyUsesSlotBand(t *testing.T) {
	g := NewGenericScorer(nil, BuiltinProfiles()["crowd_v3"].Weights)
	reading := models.SensorReading{
		OccupancyCurrent:  models.Int(160),
		OccupancyCapacity: models.Int(200),
	}

	got := g.ScoreGeneric(reading, SlotFridayPeak)
	assert.Equal(t, MaxScore, got.PerFactor[models.FactorOccupancy])
	assert.Equal(t, models.OptimalRange{Min: 70, Max: 95}, got.Ranges[models.FactorOccupancy])
}

func TestFactorWeightsValidate(t *testing.T) {
	for name, p := range BuiltinProfiles() {
		assert.NoError(t, p.Validate(), name)
	}

	err := FactorWeights{models.FactorSound: 0.5, models.FactorLight: 0.4}.Validate()
	assert.ErrorIs(t, err, ErrInvalidWeights)

	err = FactorWeights{models.FactorSound: 1.2, models.FactorLight: -0.2}.Validate()
	assert.ErrorIs(t, err, ErrInvalidWeights)

	err = FactorWeights{models.FactorSound: 0.5, models.Factor("music"): 0.5}.Validate()
	assert.ErrorIs(t, err, ErrUnknownFactor)

	assert.NoError(t, FactorWeights(nil).Validate())
}

func TestProfileValidate(t *testing.T) {
	p := Profile{Name: "custom", Weights: FactorWeights{models.FactorSound: 1}, Outcome: OutcomeRevenue}
	assert.NoError(t, p.Validate())

	p.Outcome = "happiness"
	assert.Error(t, p.Validate())

	p = Profile{Weights: FactorWeights{models.FactorSound: 1}, Outcome: OutcomeRevenue}
	assert.Error(t, p.Validate())
}

func TestProfileNamesSorted(t *testing.T) {
	assert.Equal(t, []string{"climate_v1", "crowd_v3", "environment_v2"}, ProfileNames(BuiltinProfiles()))
}
