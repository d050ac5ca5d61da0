package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultPollInterval is how often the scheduler checks whether a pass is due.
const DefaultPollInterval = time.Second

// ErrBusy is returned by RunNow while another pass is in progress.
var ErrBusy = errors.New("delivery: a pass is already running")

// Scheduler fires delivery passes on a cron schedule. Passes never overlap:
// the poll loop runs each due pass to completion before polling again, and
// manual runs share the same guard.
type Scheduler struct {
	deliverer *Deliverer
	trigger   *Trigger
	poll      time.Duration
	clock     Clock
	logger    *zap.Logger

	running sync.Mutex
	tmu     sync.Mutex // guards trigger
}

// SchedulerOpts holds parameters for creating a Scheduler.
type SchedulerOpts struct {
	Deliverer    *Deliverer
	Schedule     string        // cron expression; defaults to DefaultSchedule
	PollInterval time.Duration // defaults to DefaultPollInterval
	Clock        Clock         // defaults to the system clock
	Logger       *zap.Logger   // defaults to zap.NewNop()
}

// NewScheduler creates a Scheduler whose first fire time is computed from
// the clock's current time.
func NewScheduler(opts SchedulerOpts) (*Scheduler, error) {
	if opts.Deliverer == nil {
		return nil, fmt.Errorf("delivery: deliverer is required")
	}
	s := &Scheduler{
		deliverer: opts.Deliverer,
		poll:      opts.PollInterval,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
	if s.poll <= 0 {
		s.poll = DefaultPollInterval
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	expr := opts.Schedule
	if expr == "" {
		expr = DefaultSchedule
	}
	trigger, err := NewTrigger(expr, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.trigger = trigger
	return s, nil
}

// Next returns the next scheduled fire time.
func (s *Scheduler) Next() time.Time {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	return s.trigger.Next()
}

// Run polls until ctx is cancelled. It returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("delivery scheduler started",
		zap.String("schedule", s.trigger.String()), zap.Time("next", s.Next()))

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("delivery scheduler stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs a pass if one is due and reports whether it did. A due pass
// waits for a manual pass in progress rather than overlapping it.
func (s *Scheduler) Tick(ctx context.Context) bool {
	now := s.clock.Now()
	s.tmu.Lock()
	if !s.trigger.Due(now) {
		s.tmu.Unlock()
		return false
	}
	s.trigger.Advance(now)
	next := s.trigger.Next()
	s.tmu.Unlock()

	s.running.Lock()
	defer s.running.Unlock()
	// Errors are already logged by the pass; the next fire retries.
	s.deliverer.RunPass(ctx, TriggerSchedule)
	s.logger.Info("next delivery scheduled", zap.Time("next", next))
	return true
}

// RunNow runs a pass immediately unless one is already in progress, in
// which case it returns ErrBusy.
func (s *Scheduler) RunNow(ctx context.Context, trigger string) (*Result, error) {
	if !s.running.TryLock() {
		return nil, ErrBusy
	}
	defer s.running.Unlock()
	return s.deliverer.RunPass(ctx, trigger)
}
