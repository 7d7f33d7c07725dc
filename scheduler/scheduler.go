package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler runs the sweep on a cron schedule inside the server process.
// Overlapping runs are skipped rather than queued.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(schedule string, sweeper *Sweeper) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(log.StandardLogger())),
			cron.SkipIfStillRunning(cron.PrintfLogger(log.StandardLogger())),
		)),
		sweeper: sweeper,
		ctx:     ctx,
		cancel:  cancel,
	}

	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	log.Info("Scheduler started...")
	s.cron.Start()
}

// Stop cancels the running sweep, if any, and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	log.Info("Scheduler stopped")
}

func (s *Scheduler) tick() {
	report, err := s.sweeper.Run(s.ctx)
	if err != nil {
		log.WithError(err).Error("Scheduled sweep aborted")
		return
	}
	if report.Errors != nil {
		log.WithError(report.Errors).WithField("failed", report.Failed).Warn("Scheduled sweep finished with failures")
	}
}
