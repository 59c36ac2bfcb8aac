package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"taskdown-hq/loom/pkg/rules/engine"
)

// fakeClock is a manually advanced clock. After registers a waiter that
// fires when advance moves the clock past its deadline.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	c.waiters = append(c.waiters, fakeWaiter{deadline: c.now.Add(d), ch: ch})
	return ch
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var remaining []fakeWaiter
	var due []fakeWaiter
	for _, w := range c.waiters {
		if !w.deadline.After(c.now) {
			due = append(due, w)
		} else {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
	now := c.now
	c.mu.Unlock()

	for _, w := range due {
		w.ch <- now
	}
}

func (c *fakeClock) waiterCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// waitForWaiter polls until the scheduler goroutine has armed its next
// timer, so advancing the clock cannot race the arm.
func waitForWaiter(t *testing.T, c *fakeClock) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.waiterCount() > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("scheduler never armed a timer")
}

// dispatchRecorder captures scheduler fires.
type dispatchRecorder struct {
	mu    sync.Mutex
	fires []engine.Context
	ch    chan struct{}
}

func newDispatchRecorder() *dispatchRecorder {
	return &dispatchRecorder{ch: make(chan struct{}, 16)}
}

func (r *dispatchRecorder) dispatch(_ context.Context, trigger engine.TriggerType, ectx engine.Context) {
	if trigger != engine.TriggerDailySchedule {
		return
	}
	r.mu.Lock()
	r.fires = append(r.fires, ectx)
	r.mu.Unlock()
	r.ch <- struct{}{}
}

func (r *dispatchRecorder) waitFire(t *testing.T) engine.Context {
	t.Helper()
	select {
	case <-r.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never fired")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fires[len(r.fires)-1]
}

func (r *dispatchRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fires)
}

func startTestDaily(t *testing.T, start time.Time) (*Daily, *fakeClock, *dispatchRecorder) {
	t.Helper()

	clock := newFakeClock(start)
	recorder := newDispatchRecorder()

	daily, err := NewDaily(&DailyConfig{
		Hour:     9,
		Location: time.UTC,
		Clock:    clock,
	}, recorder.dispatch, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := daily.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(daily.Stop)

	return daily, clock, recorder
}

func TestDailyFirstFireAlignsToNextTargetHour(t *testing.T) {
	// Started at 14:00 with a 09:00 target: first fire is 09:00 tomorrow.
	start := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	daily, clock, recorder := startTestDaily(t, start)

	waitForWaiter(t, clock)
	if daily.Phase() != PhaseAligning {
		t.Errorf("phase = %v before first fire, want PhaseAligning", daily.Phase())
	}

	// One minute short of 09:00 next day: nothing may fire.
	clock.advance(18*time.Hour + 59*time.Minute)
	select {
	case <-recorder.ch:
		t.Fatal("scheduler fired before the target hour")
	case <-time.After(50 * time.Millisecond):
	}

	clock.advance(time.Minute)
	ectx := recorder.waitFire(t)

	if got := ectx.Lookup("date"); !got.Equal(engine.String("2026-09-01")) {
		t.Errorf("fire date = %v, want 2026-09-01", got)
	}
	if got := ectx.Lookup("time"); !got.Equal(engine.String("09:00")) {
		t.Errorf("fire time = %v, want 09:00", got)
	}
}

func TestDailyReArmsOnFixed24HourPeriod(t *testing.T) {
	start := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	daily, clock, recorder := startTestDaily(t, start)

	waitForWaiter(t, clock)
	clock.advance(19 * time.Hour)
	recorder.waitFire(t)

	// After the first aligned fire the scheduler re-arms for exactly 24h.
	waitForWaiter(t, clock)
	if daily.Phase() != PhaseRecurring {
		t.Errorf("phase = %v after first fire, want PhaseRecurring", daily.Phase())
	}

	clock.advance(24 * time.Hour)
	ectx := recorder.waitFire(t)
	if got := ectx.Lookup("date"); !got.Equal(engine.String("2026-09-02")) {
		t.Errorf("second fire date = %v, want 2026-09-02", got)
	}

	waitForWaiter(t, clock)
	clock.advance(24 * time.Hour)
	recorder.waitFire(t)

	if recorder.count() != 3 {
		t.Errorf("fire count = %d, want 3", recorder.count())
	}
}

func TestDailyStartedBeforeTargetFiresSameDay(t *testing.T) {
	start := time.Date(2026, 8, 31, 8, 30, 0, 0, time.UTC)
	_, clock, recorder := startTestDaily(t, start)

	waitForWaiter(t, clock)
	clock.advance(30 * time.Minute)

	ectx := recorder.waitFire(t)
	if got := ectx.Lookup("date"); !got.Equal(engine.String("2026-08-31")) {
		t.Errorf("fire date = %v, want same day 2026-08-31", got)
	}
}

func TestDailyStartedExactlyAtTargetWaitsForTomorrow(t *testing.T) {
	// "Strictly after now": starting at 09:00 sharp arms for tomorrow.
	start := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	_, clock, recorder := startTestDaily(t, start)

	waitForWaiter(t, clock)
	clock.advance(23 * time.Hour)
	select {
	case <-recorder.ch:
		t.Fatal("scheduler fired before tomorrow's target")
	case <-time.After(50 * time.Millisecond):
	}

	clock.advance(time.Hour)
	ectx := recorder.waitFire(t)
	if got := ectx.Lookup("date"); !got.Equal(engine.String("2026-09-01")) {
		t.Errorf("fire date = %v, want 2026-09-01", got)
	}
}

func TestDailyStartRejectsDoubleStart(t *testing.T) {
	daily, _, _ := startTestDaily(t, time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC))
	if err := daily.Start(context.Background()); err == nil {
		t.Error("second Start should fail while running")
	}
}

func TestDailyConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  DailyConfig
		wantErr bool
	}{
		{name: "default target", config: DailyConfig{Hour: 9}},
		{name: "midnight", config: DailyConfig{Hour: 0}},
		{name: "hour too large", config: DailyConfig{Hour: 24}, wantErr: true},
		{name: "negative hour", config: DailyConfig{Hour: -1}, wantErr: true},
		{name: "minute too large", config: DailyConfig{Hour: 9, Minute: 60}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCronSchedulerRejectsInvalidExpression(t *testing.T) {
	recorder := newDispatchRecorder()
	if _, err := NewCronScheduler([]string{"not a cron line"}, recorder.dispatch, nil); err == nil {
		t.Error("expected error for invalid cron expression")
	}
	if _, err := NewCronScheduler([]string{"0 17 * * 5"}, recorder.dispatch, nil); err != nil {
		t.Errorf("valid expression rejected: %v", err)
	}
}
