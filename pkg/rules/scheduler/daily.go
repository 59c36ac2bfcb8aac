package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"taskdown-hq/loom/pkg/rules/engine"
)

// DispatchFunc is the engine entry point the scheduler fires into.
type DispatchFunc func(ctx context.Context, trigger engine.TriggerType, ectx engine.Context)

// Phase is the scheduler's lifecycle state.
type Phase int32

const (
	// PhaseIdle means Start has not been called.
	PhaseIdle Phase = iota

	// PhaseAligning means the scheduler is waiting for the first
	// occurrence of the target wall-clock time.
	PhaseAligning

	// PhaseRecurring means the first aligned fire happened and the
	// scheduler re-arms on a fixed 24-hour period.
	PhaseRecurring
)

// DailyConfig configures the daily scheduler.
type DailyConfig struct {
	// Hour and Minute define the local wall-clock target time.
	// Default: 09:00.
	Hour   int
	Minute int

	// Location is the timezone of the target time. Default: time.Local.
	Location *time.Location

	// Clock supplies time. Default: SystemClock.
	Clock Clock
}

// DefaultDailyConfig returns the default daily scheduler configuration
// (09:00 local time).
func DefaultDailyConfig() *DailyConfig {
	return &DailyConfig{Hour: 9}
}

// Validate checks the target time.
func (c *DailyConfig) Validate() error {
	if c.Hour < 0 || c.Hour > 23 {
		return fmt.Errorf("scheduler hour must be in [0,23], got %d", c.Hour)
	}
	if c.Minute < 0 || c.Minute > 59 {
		return fmt.Errorf("scheduler minute must be in [0,59], got %d", c.Minute)
	}
	return nil
}

// Daily injects a daily_schedule trigger once every 24 hours, aligned to a
// fixed local wall-clock time. It is a two-phase arm/fire state machine:
// first it arms for the next occurrence of the target time strictly after
// startup (if the process starts past today's target, that is tomorrow's),
// fires, and then re-arms on a fixed 24-hour period from that instant.
//
// Known limitation: the fixed 24-hour re-arm does not re-align to the
// target hour, so the fire time drifts by one hour across daylight-saving
// transitions until the process restarts.
type Daily struct {
	config   *DailyConfig
	clock    Clock
	location *time.Location
	dispatch DispatchFunc
	logger   *slog.Logger

	mu      sync.Mutex
	phase   Phase
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewDaily creates a daily scheduler firing into the given dispatch
// function.
func NewDaily(config *DailyConfig, dispatch DispatchFunc, logger *slog.Logger) (*Daily, error) {
	if config == nil {
		config = DefaultDailyConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if dispatch == nil {
		return nil, fmt.Errorf("dispatch function cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	clock := config.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	location := config.Location
	if location == nil {
		location = time.Local
	}

	return &Daily{
		config:   config,
		clock:    clock,
		location: location,
		dispatch: dispatch,
		logger:   logger.With("component", "rules.scheduler"),
	}, nil
}

// Start launches the scheduler's background loop. It returns an error if
// the scheduler is already running.
func (d *Daily) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("scheduler already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.running = true
	d.cancel = cancel
	d.done = make(chan struct{})
	d.setPhase(PhaseAligning)

	go d.run(runCtx)
	return nil
}

// Stop cancels the background loop and waits for it to exit.
func (d *Daily) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	done := d.done
	d.mu.Unlock()

	cancel()
	<-done

	d.mu.Lock()
	d.running = false
	d.phase = PhaseIdle
	d.mu.Unlock()
}

// Phase returns the current lifecycle phase.
func (d *Daily) Phase() Phase {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.phase
}

func (d *Daily) setPhase(p Phase) {
	d.phase = p
}

func (d *Daily) run(ctx context.Context) {
	defer close(d.done)

	now := d.clock.Now().In(d.location)
	next := d.nextFire(now)
	wait := next.Sub(now)

	d.logger.Info("daily scheduler armed",
		"target", fmt.Sprintf("%02d:%02d", d.config.Hour, d.config.Minute),
		"first_fire", next.Format(time.RFC3339),
	)

	select {
	case <-ctx.Done():
		return
	case <-d.clock.After(wait):
		d.fire(ctx)
	}

	d.mu.Lock()
	d.setPhase(PhaseRecurring)
	d.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.clock.After(24 * time.Hour):
			d.fire(ctx)
		}
	}
}

// nextFire computes the next occurrence of the target wall-clock time
// strictly after now.
func (d *Daily) nextFire(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(),
		d.config.Hour, d.config.Minute, 0, 0, d.location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// fire injects one daily_schedule trigger carrying the current date.
func (d *Daily) fire(ctx context.Context) {
	now := d.clock.Now().In(d.location)

	d.logger.Info("daily schedule fired", "date", now.Format("2006-01-02"))

	d.dispatch(ctx, engine.TriggerDailySchedule, engine.Context{
		"date":    engine.String(now.Format("2006-01-02")),
		"time":    engine.String(now.Format("15:04")),
		"weekday": engine.String(now.Weekday().String()),
	})
}
