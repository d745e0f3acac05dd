package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config 应用配置
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string // empty disables venue auth

	LogLevel  string
	LogFormat string // text or json

	KafkaBrokers []string // empty disables the consumer
	KafkaTopic   string
	KafkaGroup   string

	VenuesFile string

	HistoryDays       int           // history window fed to the learned model
	LearnMaxStaleness time.Duration // cached learned models older than this are recomputed
	RecomputeInterval time.Duration // 0 disables the periodic recompute
	RecomputeWorkers  int
	RateLimit         int // requests per minute per client, 0 disables
}

// Load 加载配置
func Load() *Config {
	return &Config{
		Port:              getEnv("PORT", ":8080"),
		DBPath:            getEnv("DB_PATH", "./data/pulse/pulse.db"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "text"),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "pulse.sensors"),
		KafkaGroup:        getEnv("KAFKA_GROUP", "pulse-scoring"),
		VenuesFile:        os.Getenv("VENUES_FILE"),
		HistoryDays:       getEnvInt("HISTORY_DAYS", 90),
		LearnMaxStaleness: getEnvDuration("LEARN_MAX_STALENESS", time.Hour),
		RecomputeInterval: getEnvDuration("RECOMPUTE_INTERVAL", 6*time.Hour),
		RecomputeWorkers:  getEnvInt("RECOMPUTE_WORKERS", 4),
		RateLimit:         getEnvInt("RATE_LIMIT", 600),
	}
}

// HistoryWindow returns the span of history the learned model looks at.
func (c *Config) HistoryWindow() time.Duration {
	if c.HistoryDays <= 0 {
		return 0
	}
	return time.Duration(c.HistoryDays) * 24 * time.Hour
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": raw}).Warn("invalid integer, using default")
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.WithFields(log.Fields{"key": key, "value": raw}).Warn("invalid duration, using default")
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
