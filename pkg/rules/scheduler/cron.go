package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"taskdown-hq/loom/pkg/rules/engine"
)

// CronScheduler fires daily_schedule triggers on operator-supplied cron
// expressions, in addition to the fixed daily scheduler. Use it for vaults
// that want extra digest or review moments ("0 17 * * 5" for a Friday
// afternoon wrap-up) without changing the engine's trigger vocabulary.
type CronScheduler struct {
	schedules []string
	dispatch  DispatchFunc
	cron      *cron.Cron
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewCronScheduler creates a cron scheduler over standard 5-field cron
// expressions. Every expression is validated up front so a typo fails at
// startup, not silently at runtime.
func NewCronScheduler(schedules []string, dispatch DispatchFunc, logger *slog.Logger) (*CronScheduler, error) {
	if dispatch == nil {
		return nil, fmt.Errorf("dispatch function cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	for _, expr := range schedules {
		if _, err := cron.ParseStandard(expr); err != nil {
			return nil, fmt.Errorf("invalid cron schedule %q: %w", expr, err)
		}
	}

	return &CronScheduler{
		schedules: schedules,
		dispatch:  dispatch,
		cron:      cron.New(),
		logger:    logger.With("component", "rules.cron"),
	}, nil
}

// Start registers all schedules and starts the cron runner. With no
// schedules configured it does nothing.
func (s *CronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.schedules) == 0 {
		s.logger.Debug("no cron schedules configured")
		return nil
	}
	if s.running {
		return fmt.Errorf("cron scheduler already running")
	}

	for _, expr := range s.schedules {
		expr := expr
		if _, err := s.cron.AddFunc(expr, func() {
			now := time.Now()
			s.logger.Info("cron schedule fired", "schedule", expr)
			s.dispatch(ctx, engine.TriggerDailySchedule, engine.Context{
				"date":     engine.String(now.Format("2006-01-02")),
				"time":     engine.String(now.Format("15:04")),
				"weekday":  engine.String(now.Weekday().String()),
				"schedule": engine.String(expr),
			})
		}); err != nil {
			return fmt.Errorf("failed to register cron schedule %q: %w", expr, err)
		}
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("cron scheduler started", "schedules", len(s.schedules))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the cron runner and waits for running jobs to finish.
func (s *CronScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.running = false
	s.logger.Info("cron scheduler stopped")
}
