// Package scheduler runs background maintenance for pending checkouts.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PendingExpirer expires records still pending that were created before cutoff.
type PendingExpirer interface {
	ExpirePendingBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ExpirySchedulerConfig holds configuration for the expiry scheduler
type ExpirySchedulerConfig struct {
	// Enabled determines if the scheduler is active
	Enabled bool

	// Interval between two sweeps
	Interval time.Duration

	// MaxAge is how long a checkout may stay pending before it is expired
	MaxAge time.Duration

	// RunTimeout bounds a single sweep
	RunTimeout time.Duration
}

// DefaultExpirySchedulerConfig returns default configuration
func DefaultExpirySchedulerConfig() ExpirySchedulerConfig {
	return ExpirySchedulerConfig{
		Enabled:    true,
		Interval:   15 * time.Minute,
		MaxAge:     24 * time.Hour,
		RunTimeout: time.Minute,
	}
}

// Validate checks the configuration
func (c ExpirySchedulerConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Interval <= 0 || c.MaxAge <= 0 || c.RunTimeout <= 0 {
		return fmt.Errorf("%w: interval, max age and run timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// SweepResult counts the records expired by one sweep, keyed by target name.
type SweepResult map[string]int64

// ExpiryScheduler periodically expires card payments and donation intents
// whose donor never finished paying.
type ExpiryScheduler struct {
	targets   map[string]PendingExpirer
	logger    *zap.Logger
	config    ExpirySchedulerConfig
	now       func() time.Time
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewExpiryScheduler creates a new expiry scheduler. targets maps a name used
// in logs (e.g. "card_payments") to the repository that expires it.
func NewExpiryScheduler(targets map[string]PendingExpirer, logger *zap.Logger, config ExpirySchedulerConfig) *ExpiryScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryScheduler{
		targets: targets,
		logger:  logger,
		config:  config,
		now:     time.Now,
	}
}

// Start starts the sweep loop
func (s *ExpiryScheduler) Start(ctx context.Context) error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Expiry scheduler is disabled")
		return nil
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx)

	s.logger.Info("Expiry scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("max_age", s.config.MaxAge),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *ExpiryScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Expiry scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Expiry scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *ExpiryScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Expiry loop stopping")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep expires every target once. Failures are logged per target and do
// not stop the others.
func (s *ExpiryScheduler) Sweep(ctx context.Context) SweepResult {
	sweepCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	cutoff := s.now().Add(-s.config.MaxAge)
	result := make(SweepResult, len(s.targets))
	start := time.Now()

	for name, target := range s.targets {
		n, err := target.ExpirePendingBefore(sweepCtx, cutoff)
		if err != nil {
			s.logger.Error("Expiry sweep failed",
				zap.String("target", name),
				zap.Error(err),
			)
			continue
		}
		result[name] = n
		if n > 0 {
			s.logger.Info("Expired stale pending records",
				zap.String("target", name),
				zap.Int64("count", n),
				zap.Time("cutoff", cutoff),
			)
		}
	}

	s.logger.Debug("Expiry sweep completed", zap.Duration("duration", time.Since(start)))
	return result
}

// TriggerImmediate runs a sweep in the background without waiting for the next tick.
func (s *ExpiryScheduler) TriggerImmediate(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.Sweep(ctx)
	}()
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *ExpiryScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}
