package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// LoadEnv loads a local .env file unless the process runs on a managed platform
// that injects its own environment.
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") != "" {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// SetUpLogger configures the standard logrus logger for the given environment.
// An explicit level overrides the environment default.
func SetUpLogger(environment, level string) {
	log.SetFormatter(&log.JSONFormatter{})
	switch environment {
	case "development":
		log.SetLevel(log.DebugLevel)
	case "production":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	if level == "" {
		return
	}
	parsed, err := log.ParseLevel(level)
	if err != nil {
		log.WithField("log_level", level).Warn("Unknown log level, keeping environment default")
		return
	}
	log.SetLevel(parsed)
}

// GetEnvWithDefault returns the value of key, or defaultValue when it is unset or empty.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default", key)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the type of defaultValue.
// Unparseable values fall back to the default.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			log.WithField("key", key).Warn("Invalid integer in environment, using default")
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			log.WithField("key", key).Warn("Invalid boolean in environment, using default")
			return defaultValue
		}
		return any(boolValue).(T)
	case time.Duration:
		duration, err := time.ParseDuration(value)
		if err != nil {
			log.WithField("key", key).Warn("Invalid duration in environment, using default")
			return defaultValue
		}
		return any(duration).(T)
	default:
		return defaultValue
	}
}
