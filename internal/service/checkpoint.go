package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"fishbot-economy-api/internal/logging"
	"fishbot-economy-api/internal/metrics"
)

// Checkpointer writes a full snapshot. *economy.Engine implements it.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// CheckpointConfig holds configuration for the checkpoint scheduler.
type CheckpointConfig struct {
	// Interval is how often a full checkpoint runs.
	// Default: 5 minutes
	Interval time.Duration

	// Timeout bounds one checkpoint run.
	// Default: 1 minute
	Timeout time.Duration
}

// DefaultCheckpointConfig returns default checkpoint configuration.
func DefaultCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		Interval: 5 * time.Minute,
		Timeout:  1 * time.Minute,
	}
}

// CheckpointStats reports scheduler activity.
type CheckpointStats struct {
	Runs      int64     `json:"runs"`
	Failures  int64     `json:"failures"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// CheckpointScheduler periodically writes every resource so that a failed
// per-operation flush is repaired without waiting for the next mutation.
type CheckpointScheduler struct {
	target Checkpointer
	config CheckpointConfig
	log    *logrus.Entry

	mu        sync.Mutex
	scheduler gocron.Scheduler
	stats     CheckpointStats
}

// NewCheckpointScheduler creates a new checkpoint scheduler.
func NewCheckpointScheduler(target Checkpointer, config CheckpointConfig) *CheckpointScheduler {
	defaults := DefaultCheckpointConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &CheckpointScheduler{
		target: target,
		config: config,
		log:    logging.Component("checkpoint-scheduler"),
	}
}

// Start begins the checkpoint job. Calling Start twice is a no-op.
func (s *CheckpointScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler != nil {
		return nil
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(s.config.Interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.config.Timeout)
			defer cancel()
			_ = s.RunNow(ctx)
		}),
		gocron.WithName("economy-checkpoint"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return err
	}

	sched.Start()
	s.scheduler = sched

	s.log.WithField("interval", s.config.Interval).Info("started")
	return nil
}

// Stop shuts the scheduler down and waits for a running checkpoint.
func (s *CheckpointScheduler) Stop() error {
	s.mu.Lock()
	sched := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()

	if sched == nil {
		return nil
	}
	if err := sched.Shutdown(); err != nil {
		return err
	}
	s.log.Info("stopped")
	return nil
}

// RunNow performs one checkpoint immediately.
func (s *CheckpointScheduler) RunNow(ctx context.Context) error {
	if s.target == nil {
		return errors.New("checkpoint target is nil")
	}

	start := time.Now()
	err := s.target.Checkpoint(ctx)
	metrics.RecordCheckpoint(err == nil)

	s.mu.Lock()
	s.stats.Runs++
	s.stats.LastRun = start
	if err != nil {
		s.stats.Failures++
		s.stats.LastError = err.Error()
	} else {
		s.stats.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.log.WithError(err).Error("checkpoint failed")
		return err
	}
	s.log.WithField("took", time.Since(start)).Debug("checkpoint written")
	return nil
}

// Stats returns a copy of the scheduler counters.
func (s *CheckpointScheduler) Stats() CheckpointStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
