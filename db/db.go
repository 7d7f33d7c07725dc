package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrAlreadySent = errors.New("scheduled message already sent")
)

// Options selects the driver and connection target.
type Options struct {
	Driver     string // postgres or sqlite
	DSN        string
	MaxRetries int
}

// Open connects to the database, retrying with exponential backoff, and verifies
// the connection with a ping. The caller owns the handle and must Close it.
func Open(opts Options) (*gorm.DB, error) {
	driver := strings.ToLower(opts.Driver)
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	var dialector gorm.Dialector
	switch driver {
	case "postgres", "postgresql":
		dialector = postgres.Open(opts.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("Open: unsupported database driver: %s (supported: postgres, sqlite)", opts.Driver)
	}

	b := &backoff.Backoff{Min: time.Second, Max: 16 * time.Second, Factor: 2}
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		conn, err := gorm.Open(dialector, &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err == nil {
			err = ping(conn, driver)
		}
		if err == nil {
			log.WithFields(log.Fields{"db_driver": driver, "attempt": attempt}).Info("Connected to database")
			return conn, nil
		}

		lastErr = err
		log.WithFields(log.Fields{"db_driver": driver, "attempt": attempt, "max_retries": maxRetries}).
			WithError(err).Warn("Database connection attempt failed")
		if attempt < maxRetries {
			time.Sleep(b.Duration())
		}
	}

	return nil, fmt.Errorf("Open: failed to connect to database after %d attempts: %w", maxRetries, lastErr)
}

func ping(conn *gorm.DB, driver string) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Ping(); err != nil {
		return err
	}
	if driver == "sqlite" || driver == "" {
		// SQLite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
		return nil
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return nil
}

// Migrate creates or updates the tables for every model.
func Migrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&User{}, &Credential{}, &ScheduledMessage{}); err != nil {
		return fmt.Errorf("Migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
