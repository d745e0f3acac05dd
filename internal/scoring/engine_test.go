package scoring

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/pulse-backend-go/internal/models"
)

var fridayPeak = time.Date(2024, 3, 8, 22, 0, 0, 0, time.UTC)

func TestEngineSoundBelowFloorFridayPeak(t *testing.T) {
	e := NewEngine()
	result := e.Score(ScoreRequest{
		VenueID: "v1",
		Reading: models.SensorReading{
			Time:          fridayPeak,
			SoundLevelDB:  models.Float64(74),
			LightLevelLux: models.Float64(200),
		},
		Profile: Profile{Name: "sound_light", Weights: FactorWeights{models.FactorSound: 0.6, models.FactorLight: 0.4}, Outcome: OutcomeOccupancyGrowth},
		Now:     fridayPeak,
	})

	assert.Equal(t, string(SlotFridayPeak), result.TimeSlot)
	generic := result.Breakdown.PerFactorScores.Generic
	assert.Less(t, generic[models.FactorSound], MaxScore)
	assert.Equal(t, MaxScore, generic[models.FactorLight])
}

func TestEngineVenueWithoutHistoryUsesGenericScore(t *testing.T) {
	e := NewEngine()
	result := e.Score(ScoreRequest{
		VenueID: "fresh",
		Reading: models.SensorReading{
			Time:          fridayPeak,
			SoundLevelDB:  models.Float64(80),
			LightLevelLux: models.Float64(100),
			IndoorTempF:   models.Float64(70),
			HumidityPct:   models.Float64(40),
		},
		Now: fridayPeak,
	})

	assert.Equal(t, 0.0, result.Confidence)
	assert.Nil(t, result.Breakdown.LearnedScore)
	assert.Equal(t, int(math.Round(result.Breakdown.GenericScore)), result.FinalScore)
	assert.Equal(t, 100, result.FinalScore)
	assert.Equal(t, models.StatusOptimal, result.Status)
	assert.Equal(t, DefaultProfileName, result.Profile)
	assert.Nil(t, result.Breakdown.OptimalRangesUsed.Learned)
	require.NotNil(t, result.ReadingTime)
	assert.True(t, result.ReadingTime.Equal(fridayPeak))
}

func TestEngineZeroWeightFactorIsExcluded(t *testing.T) {
	e := NewEngine()
	result := e.Score(ScoreRequest{
		Reading: models.SensorReading{
			Time:          fridayPeak,
			SoundLevelDB:  models.Float64(80),
			LightLevelLux: models.Float64(100),
		},
		Profile: Profile{
			Name:    "no_humidity",
			Weights: FactorWeights{models.FactorSound: 0.6, models.FactorLight: 0.4, models.FactorHumidity: 0},
			Outcome: OutcomeOccupancyGrowth,
		},
		Now: fridayPeak,
	})

	assert.Equal(t, 100, result.FinalScore)
	assert.NotContains(t, result.Breakdown.PerFactorScores.Generic, models.FactorHumidity)
}

func TestEngineUsesCachedLearnedState(t *testing.T) {
	e := NewEngine()
	learned := &LearnedState{
		Ranges:     map[models.Factor]models.OptimalRange{models.FactorSound: {Min: 60, Max: 64}},
		Confidence: 0.5,
	}
	result := e.Score(ScoreRequest{
		VenueID: "v1",
		Reading: models.SensorReading{Time: fridayPeak, SoundLevelDB: models.Float64(80)},
		Profile: Profile{Name: "sound", Weights: FactorWeights{models.FactorSound: 1}, Outcome: OutcomeOccupancyGrowth},
		Learned: learned,
		Now:     fridayPeak,
	})

	// generic 100 (inside 75-85), learned 0 (16 dB over a 10 dB falloff)
	require.NotNil(t, result.Breakdown.LearnedScore)
	assert.Equal(t, 0.0, *result.Breakdown.LearnedScore)
	assert.Equal(t, 50, result.FinalScore)
	assert.Equal(t, 0.5, result.Confidence)
	assert.Equal(t, models.OptimalRange{Min: 60, Max: 64}, result.Breakdown.OptimalRangesUsed.Learned[models.FactorSound])
}

func TestEngineLearnsFromHistory(t *testing.T) {
	e := NewEngine()
	history := soundHistory(t, "v1", 200)

	state := e.Learn("v1", history, fridayPeak)
	require.NotNil(t, state.Ranges)
	assert.Greater(t, state.Confidence, 0.0)
	assert.Equal(t, len(history), state.Report.Samples)

	result := e.Score(ScoreRequest{
		VenueID: "v1",
		Reading: models.SensorReading{Time: fridayPeak, SoundLevelDB: models.Float64(74)},
		Profile: Profile{Name: "sound", Weights: FactorWeights{models.FactorSound: 1}, Outcome: OutcomeOccupancyGrowth},
		History: history,
		Now:     fridayPeak,
	})
	require.NotNil(t, result.Breakdown.LearnedScore)
	assert.Equal(t, 100.0, *result.Breakdown.LearnedScore)
	assert.Equal(t, state.Confidence, result.Confidence)
	assert.Equal(t, 1-state.Confidence, result.Breakdown.Weights.GenericWeight)
}

func TestEngineEmptyReadingStillScores(t *testing.T) {
	e := NewEngine()
	result := e.Score(ScoreRequest{Now: fridayPeak})
	assert.Equal(t, 0, result.FinalScore)
	assert.Equal(t, models.StatusPoor, result.Status)
	assert.Equal(t, string(SlotFridayPeak), result.TimeSlot)
	assert.Nil(t, result.ReadingTime)
}

func TestEngineOptions(t *testing.T) {
	e := NewEngine(
		WithClassifier(Schedule{HappyHourStart: 17, NightStart: 20, WeekendEarlyStart: 18, WeekendPeakStart: 23, CloseHour: 3}),
		WithBands(Bands{Excellent: 99, Good: 98}),
	)
	assert.Equal(t, SlotFridayEarly, e.Classifier().Classify(fridayPeak))

	result := e.Score(ScoreRequest{
		Reading: models.SensorReading{Time: fridayPeak, SoundLevelDB: models.Float64(65)},
		Profile: Profile{Name: "sound", Weights: FactorWeights{models.FactorSound: 1}, Outcome: OutcomeOccupancyGrowth},
		Now:     fridayPeak,
	})
	assert.Equal(t, models.StatusPoor, result.Status)

	// An invalid schedule falls back to the default one.
	e = NewEngine(WithClassifier(Schedule{HappyHourStart: 20, NightStart: 10}))
	assert.Equal(t, DefaultSchedule, e.Classifier().Schedule())
}
