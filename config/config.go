package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Config holds everything the server and the sweep need, read from the environment.
type Config struct {
	Environment string
	Host        string
	Port        int
	BaseURL     string
	LogLevel    string

	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string

	SlackClientID     string
	SlackClientSecret string
	SlackAPIURL       string
	SlackAuthorizeURL string

	EncryptionKey string
	RedisURL      string

	CronSchedule      string
	CronSecret        string
	SweepItemTimeout  time.Duration
	SweepWriteTimeout time.Duration
	SweepClaimLease   time.Duration
	MaxSendAttempts   int

	NgrokEnabled bool
}

// LoadConfig reads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("LoadConfig: invalid APP_PORT: %w", err)
	}

	cfg := &Config{
		Environment: GetEnvWithDefault("APP_ENV", "development"),
		Host:        GetEnvWithDefault("APP_HOST", "0.0.0.0"),
		Port:        port,
		BaseURL:     strings.TrimRight(GetEnvWithDefault("BASE_URL", fmt.Sprintf("http://localhost:%d", port)), "/"),
		LogLevel:    GetEnvWithDefault("LOG_LEVEL", ""),

		DatabaseDriver: strings.ToLower(GetEnvWithDefault("DATABASE_DRIVER", "postgres")),
		DatabaseURL:    GetEnvWithDefault("DATABASE_URL", ""),
		SQLitePath:     GetEnvWithDefault("SQLITE_PATH", "slackscheduler.sqlite"),

		SlackClientID:     GetEnvWithDefault("SLACK_CLIENT_ID", ""),
		SlackClientSecret: GetEnvWithDefault("SLACK_CLIENT_SECRET", ""),
		SlackAPIURL:       strings.TrimRight(GetEnvWithDefault("SLACK_API_URL", "https://slack.com/api"), "/"),
		SlackAuthorizeURL: GetEnvWithDefault("SLACK_AUTHORIZE_URL", "https://slack.com/oauth/v2/authorize"),

		EncryptionKey: GetEnvWithDefault("ENCRYPTION_KEY", ""),
		RedisURL:      GetEnvWithDefault("REDIS_URL", ""),

		CronSchedule:      GetEnvWithDefault("CRON_SCHEDULE", ""),
		CronSecret:        GetEnvWithDefault("CRON_SECRET", ""),
		SweepItemTimeout:  GetEnvAsType("SWEEP_ITEM_TIMEOUT", 15*time.Second),
		SweepWriteTimeout: GetEnvAsType("SWEEP_WRITE_TIMEOUT", 5*time.Second),
		SweepClaimLease:   GetEnvAsType("SWEEP_CLAIM_LEASE", 2*time.Minute),
		MaxSendAttempts:   GetEnvAsType("MAX_SEND_ATTEMPTS", 10),

		NgrokEnabled: GetEnvAsType("NGROK_ENABLED", false),
	}

	log.Infof("Configuration loaded: %s", cfg.String())
	return cfg, nil
}

// Validate reports settings the server cannot run without.
func (c *Config) Validate() error {
	var problems []string
	if c.SlackClientID == "" || c.SlackClientSecret == "" {
		problems = append(problems, "SLACK_CLIENT_ID and SLACK_CLIENT_SECRET are required")
	}
	if len(c.EncryptionKey) != 32 {
		problems = append(problems, "ENCRYPTION_KEY must be 32 characters long for AES-256 encryption")
	}
	switch c.DatabaseDriver {
	case "postgres", "postgresql":
		if c.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required for the postgres driver")
		}
	case "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	if c.MaxSendAttempts < 0 {
		problems = append(problems, "MAX_SEND_ATTEMPTS must not be negative")
	}
	if c.SweepItemTimeout <= 0 || c.SweepWriteTimeout <= 0 {
		problems = append(problems, "SWEEP_ITEM_TIMEOUT and SWEEP_WRITE_TIMEOUT must be positive")
	}
	// A lease that lapses mid-delivery lets a second sweep claim and resend.
	if c.SweepClaimLease <= c.SweepItemTimeout+c.SweepWriteTimeout {
		problems = append(problems, "SWEEP_CLAIM_LEASE must be longer than SWEEP_ITEM_TIMEOUT plus SWEEP_WRITE_TIMEOUT")
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// String returns a representation of Config with sensitive data masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Host: %s, Port: %d, BaseURL: %s, DatabaseDriver: %s, DatabaseURL: %s, "+
		"SlackClientID: %s, SlackClientSecret: [REDACTED], EncryptionKey: [REDACTED], RedisURL: %s, "+
		"CronSchedule: %q, MaxSendAttempts: %d}",
		c.Environment, c.Host, c.Port, c.BaseURL, c.DatabaseDriver, maskURL(c.DatabaseURL),
		c.SlackClientID, maskURL(c.RedisURL), c.CronSchedule, c.MaxSendAttempts)
}

func maskURL(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "[REDACTED_INVALID_URL]"
	}
	if parsed.User != nil {
		if _, hasPassword := parsed.User.Password(); hasPassword {
			parsed.User = url.UserPassword(parsed.User.Username(), "REDACTED")
		}
	}
	return parsed.String()
}
