package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var ErrInvalidInterval = errors.New("sweep interval must be positive")

// Sweeper removes datasets created before a cutoff.
type Sweeper interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Scheduler periodically expires session datasets
type Scheduler struct {
	cron      *cron.Cron
	store     Sweeper
	ttl       time.Duration
	interval  time.Duration
	logger    *logrus.Logger
	now       func() time.Time
	jobMutex  sync.Mutex // Ensures sequential sweeps
	isRunning bool
}

// NewScheduler creates a new scheduler
func NewScheduler(store Sweeper, ttl, interval time.Duration, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		cron:     cron.New(),
		store:    store,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the sweep and starts the cron runner
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return ErrInvalidInterval
	}

	spec := fmt.Sprintf("@every %s", s.interval)
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			s.logger.WithError(err).Error("Dataset sweep failed")
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithFields(logrus.Fields{
		"ttl":      s.ttl.String(),
		"interval": s.interval.String(),
	}).Info("Scheduler started")
	return nil
}

// RunOnce deletes every dataset older than the TTL.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		s.logger.WithFields(logrus.Fields{
			"removed": removed,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Expired datasets")
	}
	return removed, nil
}

// Stop gracefully stops the scheduler, waiting for a running sweep
func (s *Scheduler) Stop() {
	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}
