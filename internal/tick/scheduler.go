// Package tick drives the periodic pipeline: read settings, look up the
// time table, fire due reminders and refresh the indicator.
package tick

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "vakit/internal/log"
)

// State is the scheduler lifecycle state.
type State int

const (
	// Idle: no periodic driver registered.
	Idle State = iota
	// Armed: the driver fires every interval.
	Armed
	// Running: a tick is in flight.
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TickFunc is one tick's work.
type TickFunc func(ctx context.Context) error

// Scheduler runs a TickFunc on a fixed interval plus on demand. Ticks
// never overlap: a timer tick that finds one in flight is skipped and an
// out-of-band tick waits for it.
type Scheduler struct {
	interval time.Duration
	fn       TickFunc

	// run serialises ticks.
	run sync.Mutex

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	running bool
}

func NewScheduler(interval time.Duration, fn TickFunc) *Scheduler {
	return &Scheduler{interval: interval, fn: fn}
}

// Interval is the fixed tick period.
func (s *Scheduler) Interval() time.Duration { return s.interval }

// State reports the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.running:
		return Running
	case s.cron != nil:
		return Armed
	default:
		return Idle
	}
}

// Start registers the periodic driver and enqueues the startup tick.
// Calling Start on an armed scheduler does nothing. Ticks run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval < time.Second {
		return fmt.Errorf("tick interval must be at least 1s, got %s", s.interval)
	}

	s.mu.Lock()
	if s.cron != nil {
		s.mu.Unlock()
		appLog.Debug("scheduler already armed")
		return nil
	}

	logger := cronLogger{}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(logger)), cron.WithLogger(logger))
	if _, err := c.AddFunc("@every "+s.interval.String(), func() { s.runTick("timer") }); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("register tick: %w", err)
	}
	s.cron = c
	s.ctx = ctx
	c.Start()
	s.mu.Unlock()

	appLog.Info("scheduler armed", "interval", s.interval.String())
	s.Trigger("startup")
	return nil
}

// Stop de-registers the driver and waits for an in-flight timer tick.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
	appLog.Info("scheduler stopped")
}

// Trigger runs an out-of-band tick without touching the timer. The
// returned channel is closed when that tick has finished.
func (s *Scheduler) Trigger(reason string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.runTick(reason)
	}()
	return done
}

// RunOnce runs a single tick synchronously, armed or not.
func (s *Scheduler) RunOnce(reason string) {
	s.runTick(reason)
}

func (s *Scheduler) runTick(reason string) {
	s.run.Lock()
	defer s.run.Unlock()

	s.mu.Lock()
	ctx := s.ctx
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := s.safeTick(ctx)
	switch {
	case err == nil:
		appLog.Debug("tick done", "reason", reason, "took", time.Since(start).String())
	case errors.Is(err, ErrNoLocation):
		appLog.Info("tick skipped; no location configured", "reason", reason)
	default:
		appLog.Error("tick failed", err, "reason", reason)
	}
}

func (s *Scheduler) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tick panic: %v", r)
		}
	}()
	return s.fn(ctx)
}

// cronLogger routes cron's own messages to the process log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
