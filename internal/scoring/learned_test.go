package scoring

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/pulse-backend-go/internal/models"
)

// soundHistory builds perBucket observations for every even dB value in
// [60,80] with an outcome peaking at 74 dB.
func soundHistory(t *testing.T, venueID string, perBucket int) []Observation {
	t.Helper()
	start := time.Date(2024, 3, 4, 17, 0, 0, 0, time.UTC)
	var obs []Observation
	for v := 60.0; v <= 80; v += 2 {
		for i := 0; i < perBucket; i++ {
			d := v - 74
			obs = append(obs, Observation{
				Reading: models.SensorReading{
					VenueID:      venueID,
					Time:         start.Add(time.Duration(len(obs)) * time.Minute),
					SoundLevelDB: models.Float64(v + 0.5),
				},
				Outcome: -d * d,
			})
		}
	}
	return obs
}

func TestEstimateRangesPicksTopBand(t *testing.T) {
	e := NewEstimator(EstimatorConfig{}, nil)
	ranges := e.EstimateRanges("v1", soundHistory(t, "v1", 25))

	require.NotNil(t, ranges)
	assert.Equal(t, map[models.Factor]models.OptimalRange{
		models.FactorSound: {Min: 72, Max: 78},
	}, ranges)
}

func TestEstimateRangesInsufficientHistory(t *testing.T) {
	e := NewEstimator(EstimatorConfig{}, nil)

	assert.Nil(t, e.EstimateRanges("v1", nil))
	// one short of the bucket population threshold everywhere
	assert.Nil(t, e.EstimateRanges("v1", soundHistory(t, "v1", 19)))

	// Enough samples but only two buckets.
	obs := soundHistory(t, "v1", 25)
	var narrow []Observation
	for _, o := range obs {
		if *o.Reading.SoundLevelDB < 64 {
			narrow = append(narrow, o)
		}
	}
	assert.Nil(t, e.EstimateRanges("v1", narrow))
}

func TestEstimateRangesIdempotentAndOrderIndependent(t *testing.T) {
	e := NewEstimator(DefaultEstimatorConfig, nil)
	obs := soundHistory(t, "v1", 30)

	first := e.EstimateRanges("v1", obs)
	second := e.EstimateRanges("v1", obs)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("EstimateRanges() not idempotent (-first +second):\n%s", diff)
	}

	reversed := make([]Observation, len(obs))
	for i, o := range obs {
		reversed[len(obs)-1-i] = o
	}
	if diff := cmp.Diff(first, e.EstimateRanges("v1", reversed)); diff != "" {
		t.Fatalf("EstimateRanges() depends on order (-forward +reversed):\n%s", diff)
	}
}

func TestEstimateRangesIgnoresOtherVenues(t *testing.T) {
	e := NewEstimator(DefaultEstimatorConfig, nil)
	obs := soundHistory(t, "other", 25)
	assert.Nil(t, e.EstimateRanges("v1", obs))
	assert.NotNil(t, e.EstimateRanges("other", obs))
}

func TestEstimateRangesTiesGoToLowestBucket(t *testing.T) {
	e := NewEstimator(DefaultEstimatorConfig, nil)
	var obs []Observation
	// Buckets 60, 64 and 68 share the best outcome but are not adjacent.
	for _, v := range []float64{60, 62, 64, 66, 68} {
		outcome := 0.0
		if v == 62 || v == 66 {
			outcome = -10
		}
		for i := 0; i < 20; i++ {
			obs = append(obs, Observation{
				Reading: models.SensorReading{SoundLevelDB: models.Float64(v)},
				Outcome: outcome,
			})
		}
	}

	ranges := e.EstimateRanges("", obs)
	assert.Equal(t, models.OptimalRange{Min: 60, Max: 62}, ranges[models.FactorSound])
}

func TestNewEstimatorDefaults(t *testing.T) {
	e := NewEstimator(EstimatorConfig{TopQuantile: 3}, nil)
	assert.Equal(t, DefaultEstimatorConfig, e.Config())
}

func TestScoreLearned(t *testing.T) {
	ranges := map[models.Factor]models.OptimalRange{
		models.FactorSound:    {Min: 72, Max: 78},
		models.FactorHumidity: {Min: 40, Max: 45},
	}
	weights := FactorWeights{models.FactorSound: 0.5, models.FactorLight: 0.5}

	reading := models.SensorReading{
		SoundLevelDB:  models.Float64(75),
		LightLevelLux: models.Float64(100),
		HumidityPct:   models.Float64(90),
	}
	got, ok := ScoreLearned(reading, ranges, weights, nil)
	require.True(t, ok)
	// Light has no learned range and humidity is not in the profile.
	assert.Equal(t, map[models.Factor]float64{models.FactorSound: 100}, got.PerFactor)
	assert.Equal(t, 100.0, got.Overall)

	_, ok = ScoreLearned(reading, nil, weights, nil)
	assert.False(t, ok)

	_, ok = ScoreLearned(models.SensorReading{LightLevelLux: models.Float64(1)}, ranges, weights, nil)
	assert.False(t, ok)
}
