package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SlackScheduler/db"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

const (
	DefaultItemTimeout  = 15 * time.Second
	DefaultClaimLease   = 2 * time.Minute
	DefaultMaxAttempts  = 10
	DefaultWriteTimeout = 5 * time.Second
)

type MessageStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]db.ScheduledMessage, error)
	Claim(ctx context.Context, id uint, now time.Time, lease time.Duration) (bool, error)
	MarkSent(ctx context.Context, id uint, now time.Time) error
	Release(ctx context.Context, id uint, now time.Time, reason string, countAttempt bool, maxAttempts int) (bool, error)
}

type TokenResolver interface {
	Resolve(ctx context.Context, teamID, userID string) (string, error)
}

type Sender interface {
	PostMessage(ctx context.Context, token, channel, text string) (string, error)
}

type Options struct {
	// ItemTimeout bounds credential resolution plus the send for one message.
	ItemTimeout time.Duration
	// WriteTimeout bounds each status write after the send.
	WriteTimeout time.Duration
	// ClaimLease is how long a claimed message is hidden from other sweeps.
	// It has to outlast ItemTimeout plus WriteTimeout.
	ClaimLease time.Duration
	// MaxAttempts dead-letters a message after that many failed sends. Zero retries forever.
	MaxAttempts int
	// BatchSize caps how many due messages one sweep picks up. Zero means all.
	BatchSize int
}

// Report summarizes one sweep.
type Report struct {
	Due          int   `json:"due"`
	Sent         int   `json:"sent"`
	Failed       int   `json:"failed"`
	Skipped      int   `json:"skipped"`
	DeadLettered int   `json:"deadLettered"`
	Errors       error `json:"-"`
}

// Sweeper delivers scheduled messages whose time has come.
type Sweeper struct {
	store    MessageStore
	resolver TokenResolver
	sender   Sender
	opts     Options
	now      func() time.Time
}

func NewSweeper(store MessageStore, resolver TokenResolver, sender Sender, opts Options) *Sweeper {
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = DefaultItemTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	if opts.ClaimLease <= 0 {
		opts.ClaimLease = DefaultClaimLease
	}
	if opts.MaxAttempts < 0 {
		opts.MaxAttempts = 0
	}
	return &Sweeper{
		store:    store,
		resolver: resolver,
		sender:   sender,
		opts:     opts,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Run takes a snapshot of due messages and tries each one once. Item failures
// end up in the report; the returned error is only set when the snapshot
// cannot be read or ctx is cancelled part way through.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	var report Report

	due, err := s.store.ListDue(ctx, s.now(), s.opts.BatchSize)
	if err != nil {
		return report, fmt.Errorf("Sweep: %w", err)
	}
	report.Due = len(due)
	if len(due) == 0 {
		return report, nil
	}

	log.WithField("due", len(due)).Info("Sweep started")
	for i := range due {
		if err := ctx.Err(); err != nil {
			report.Errors = multierr.Append(report.Errors, err)
			log.WithError(err).Warn("Sweep interrupted")
			return report, err
		}
		s.deliver(ctx, &due[i], &report)
	}

	log.WithFields(log.Fields{
		"due":           report.Due,
		"sent":          report.Sent,
		"failed":        report.Failed,
		"skipped":       report.Skipped,
		"dead_lettered": report.DeadLettered,
	}).Info("Sweep finished")
	return report, nil
}

func (s *Sweeper) deliver(ctx context.Context, msg *db.ScheduledMessage, report *Report) {
	logger := log.WithFields(log.Fields{
		"message_id": msg.ID,
		"team_id":    msg.TeamID,
		"user_id":    msg.UserID,
		"channel_id": msg.ChannelID,
	})

	claimed, err := s.store.Claim(ctx, msg.ID, s.now(), s.opts.ClaimLease)
	if err != nil {
		report.Failed++
		report.Errors = multierr.Append(report.Errors, err)
		logger.WithError(err).Error("Failed to claim message")
		return
	}
	if !claimed {
		report.Skipped++
		logger.Debug("Message no longer due or claimed elsewhere")
		return
	}

	itemCtx, cancel := context.WithTimeout(ctx, s.opts.ItemTimeout)
	defer cancel()

	token, err := s.resolver.Resolve(itemCtx, msg.TeamID, msg.UserID)
	if err != nil {
		s.fail(ctx, msg, report, fmt.Errorf("resolve credential: %w", err), false, logger)
		return
	}

	if _, err := s.sender.PostMessage(itemCtx, token, msg.ChannelID, msg.Message); err != nil {
		s.fail(ctx, msg, report, fmt.Errorf("send: %w", err), true, logger)
		return
	}

	writeCtx, cancelWrite := context.WithTimeout(context.WithoutCancel(ctx), s.opts.WriteTimeout)
	defer cancelWrite()

	err = s.store.MarkSent(writeCtx, msg.ID, s.now())
	switch {
	case errors.Is(err, db.ErrAlreadySent):
		report.Sent++
		logger.Warn("Message was already marked sent by another sweep")
	case err != nil:
		// Delivered but not recorded; the lease expiring makes it due again.
		report.Failed++
		report.Errors = multierr.Append(report.Errors, fmt.Errorf("message %d: %w", msg.ID, err))
		logger.WithError(err).Error("Message sent but could not be marked as sent")
	default:
		report.Sent++
		logger.Info("Scheduled message sent")
	}
}

func (s *Sweeper) fail(ctx context.Context, msg *db.ScheduledMessage, report *Report, cause error, countAttempt bool, logger *log.Entry) {
	report.Failed++
	report.Errors = multierr.Append(report.Errors, fmt.Errorf("message %d: %w", msg.ID, cause))
	logger.WithError(cause).Warn("Delivery failed, will retry on next sweep")

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.WriteTimeout)
	defer cancel()

	deadLettered, err := s.store.Release(writeCtx, msg.ID, s.now(), cause.Error(), countAttempt, s.opts.MaxAttempts)
	if err != nil {
		report.Errors = multierr.Append(report.Errors, fmt.Errorf("message %d: %w", msg.ID, err))
		logger.WithError(err).Error("Failed to release message claim")
		return
	}
	if deadLettered {
		report.DeadLettered++
		logger.WithField("max_attempts", s.opts.MaxAttempts).Error("Message dead-lettered after repeated send failures")
	}
}
