package config

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupLogging applies the configured level and format to the standard
// logrus logger.
func SetupLogging(c *Config) {
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	}

	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("invalid log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
