// Package scheduler runs periodic model refits on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/bet-advisor/internal/models"
)

// Fitter refits the probability models on history before the cutoff
type Fitter interface {
	FitModels(ctx context.Context, cutoff time.Time) (*models.ModelFitReport, error)
}

// Scheduler manages scheduled refit jobs
type Scheduler struct {
	cron       *cron.Cron
	fitter     Fitter
	logger     *logrus.Entry
	mu         sync.RWMutex
	isRunning  bool
	jobIDs     []cron.EntryID
	fitTimeout time.Duration
	now        func() time.Time
	lastReport *models.ModelFitReport
	lastErr    error
}

// NewScheduler creates a new scheduler
func NewScheduler(fitter Fitter, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		fitter:     fitter,
		logger:     logger.WithField("component", "scheduler"),
		jobIDs:     make([]cron.EntryID, 0),
		fitTimeout: 30 * time.Minute,
		now:        time.Now,
	}
}

// ScheduleRefit fits the models on every completed match before the tick time
func (s *Scheduler) ScheduleRefit(cronExpression string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}

	entryID, err := s.cron.AddFunc(cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.fitTimeout)
		defer cancel()
		s.RunRefit(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled model refit")
	return nil
}

// RunRefit performs one refit now. Lack of history is logged and the previous artifact kept.
func (s *Scheduler) RunRefit(ctx context.Context) (*models.ModelFitReport, error) {
	cutoff := s.now().UTC()
	s.logger.WithField("cutoff", cutoff).Info("Starting scheduled refit")

	report, err := s.fitter.FitModels(ctx, cutoff)

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.lastReport = report
	}
	s.mu.Unlock()

	switch {
	case errors.Is(err, models.ErrInsufficientHistory):
		s.logger.WithError(err).Warn("Scheduled refit skipped, keeping previous model")
	case err != nil:
		s.logger.WithError(err).Error("Scheduled refit failed")
	default:
		s.logger.WithFields(logrus.Fields{
			"training_samples": report.TrainingSamples,
			"log_loss":         report.Ensemble.LogLoss,
		}).Info("Scheduled refit completed")
	}
	return report, err
}

// LastRefit returns the last successful report and the last error
func (s *Scheduler) LastRefit() (*models.ModelFitReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport, s.lastErr
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop waits for running jobs and stops the scheduler
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || len(s.jobIDs) == 0 {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() {
			if nextRun.IsZero() || entry.Next.Before(nextRun) {
				nextRun = entry.Next
			}
		}
	}
	return nextRun
}
