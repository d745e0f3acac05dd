package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/scoring"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "KAFKA_BROKERS", "HISTORY_DAYS", "LEARN_MAX_STALENESS", "JWT_SECRET"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.Port)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "pulse.sensors", cfg.KafkaTopic)
	assert.Equal(t, time.Hour, cfg.LearnMaxStaleness)
	assert.Equal(t, 90*24*time.Hour, cfg.HistoryWindow())
	assert.Empty(t, cfg.JWTSecret)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,,")
	t.Setenv("HISTORY_DAYS", "14")
	t.Setenv("LEARN_MAX_STALENESS", "15m")
	t.Setenv("RECOMPUTE_WORKERS", "not-a-number")

	cfg := Load()
	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 14*24*time.Hour, cfg.HistoryWindow())
	assert.Equal(t, 15*time.Minute, cfg.LearnMaxStaleness)
	assert.Equal(t, 4, cfg.RecomputeWorkers)
}

const venuesDoc = `
[schedule]
weekend_peak_start = 22

[profiles.late_night]
outcome = "dwell_time"
weights = { sound = 0.5, light = 0.5 }

[venues.blue-bar]
profile  = "late_night"
capacity = 400
timezone = "America/New_York"

[venues.corner]
capacity = 200
`

func TestParseVenues(t *testing.T) {
	v, err := ParseVenues(venuesDoc)
	require.NoError(t, err)

	assert.Equal(t, []string{"blue-bar", "corner"}, v.IDs())
	assert.Equal(t, 22, v.Schedule().WeekendPeakStart)
	assert.Equal(t, scoring.DefaultSchedule.HappyHourStart, v.Schedule().HappyHourStart)

	blue := v.Venue("blue-bar")
	assert.Equal(t, "late_night", blue.Profile.Name)
	assert.Equal(t, scoring.OutcomeDwellTime, blue.Profile.Outcome)
	assert.Equal(t, 0.5, blue.Profile.Weights[models.FactorSound])
	assert.Equal(t, 400, blue.Capacity)
	assert.Equal(t, "America/New_York", blue.Location.String())

	corner := v.Venue("corner")
	assert.Equal(t, scoring.DefaultProfileName, corner.Profile.Name)
	assert.Equal(t, time.UTC, corner.Location)

	unknown := v.Venue("nowhere")
	assert.Equal(t, scoring.DefaultProfileName, unknown.Profile.Name)
	assert.Zero(t, unknown.Capacity)

	assert.Contains(t, v.Profiles(), "late_night")
	assert.Contains(t, v.Profiles(), "crowd_v3")
}

func TestParseVenuesRejectsBadConfig(t *testing.T) {
	tests := map[string]string{
		"weights":  "[profiles.bad]\nweights = { sound = 0.7, light = 0.7 }\n",
		"factor":   "[profiles.bad]\nweights = { sound = 0.5, music = 0.5 }\n",
		"profile":  "[venues.x]\nprofile = \"missing\"\n",
		"timezone": "[venues.x]\ntimezone = \"Mars/Olympus\"\n",
		"schedule": "[schedule]\nclose_hour = 20\n",
		"syntax":   "[venues.x\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseVenues(doc)
			assert.Error(t, err)
		})
	}

	_, err := ParseVenues(tests["factor"])
	assert.ErrorIs(t, err, scoring.ErrUnknownFactor)
	_, err = ParseVenues(tests["profile"])
	assert.ErrorIs(t, err, scoring.ErrUnknownProfile)
}

func TestLoadVenuesFile(t *testing.T) {
	v, err := LoadVenues("")
	require.NoError(t, err)
	assert.Empty(t, v.IDs())

	path := filepath.Join(t.TempDir(), "venues.toml")
	require.NoError(t, os.WriteFile(path, []byte(venuesDoc), 0o644))
	v, err = LoadVenues(path)
	require.NoError(t, err)
	assert.Len(t, v.IDs(), 2)

	require.NoError(t, os.WriteFile(path, []byte("[venues.x]\ncolour = \"red\"\n"), 0o644))
	_, err = LoadVenues(path)
	assert.Error(t, err)

	_, err = LoadVenues(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestSetupLoggingLevels(t *testing.T) {
	prev := log.GetLevel()
	t.Cleanup(func() { log.SetLevel(prev) })

	cases := map[string]log.Level{
		"debug":   log.DebugLevel,
		"WARNING": log.WarnLevel,
		"error":   log.ErrorLevel,
		"verbose": log.InfoLevel,
		"":        log.InfoLevel,
	}
	for raw, want := range cases {
		SetupLogging(&Config{LogLevel: raw})
		assert.Equal(t, want, log.GetLevel(), "level %q", raw)
	}
}
