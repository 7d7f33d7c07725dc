package main

import (
	"context"
	"fmt"
	"time"

	"SlackScheduler/config"
	"SlackScheduler/db"
	"SlackScheduler/internal/credential"
	"SlackScheduler/internal/slack"
	"SlackScheduler/scheduler"
	"SlackScheduler/utils"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const oauthStateTTL = 10 * time.Minute

// app holds the long-lived dependencies. It is built once at startup and
// released by close on shutdown.
type app struct {
	cfg         *config.Config
	conn        *gorm.DB
	redis       *redis.Client
	slack       *slack.Client
	users       *db.UserStore
	credentials *db.CredentialStore
	messages    *db.MessageStore
	resolver    *credential.Resolver
	sweeper     *scheduler.Sweeper
}

func loadConfig(validate bool) (*config.Config, error) {
	config.LoadEnv()
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	config.SetUpLogger(cfg.Environment, cfg.LogLevel)
	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := cfg.DatabaseURL
	if cfg.DatabaseDriver == "sqlite" {
		dsn = cfg.SQLitePath
	}
	return db.Open(db.Options{Driver: cfg.DatabaseDriver, DSN: dsn})
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	cipher, err := utils.NewCipher(cfg.EncryptionKey)
	if err != nil {
		return nil, err
	}

	conn, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn); err != nil {
		db.Close(conn)
		return nil, err
	}

	a := &app{cfg: cfg, conn: conn}
	if cfg.RedisURL != "" {
		client, err := utils.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			db.Close(conn)
			return nil, err
		}
		a.redis = client
	}

	a.slack = slack.NewClient(cfg.SlackAPIURL, cfg.SlackClientID, cfg.SlackClientSecret, nil)
	a.users = db.NewUserStore(conn)
	a.credentials = db.NewCredentialStore(conn, cipher)
	a.messages = db.NewMessageStore(conn)
	a.resolver = credential.NewResolver(a.credentials, a.slack)
	a.sweeper = scheduler.NewSweeper(a.messages, a.resolver, a.slack, scheduler.Options{
		ItemTimeout:  cfg.SweepItemTimeout,
		WriteTimeout: cfg.SweepWriteTimeout,
		ClaimLease:   cfg.SweepClaimLease,
		MaxAttempts:  cfg.MaxSendAttempts,
	})
	return a, nil
}

func (a *app) close() error {
	var err error
	if a.redis != nil {
		err = multierr.Append(err, a.redis.Close())
	}
	err = multierr.Append(err, db.Close(a.conn))
	if err != nil {
		log.WithError(err).Error("Failed to release resources")
	}
	return err
}
