package robot

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/fieldnav/logging"
	"go.viam.com/fieldnav/services/navigation"
)

// Scheduler ticks every scheduled behavior once per period, in the order they were scheduled, and
// drops them once they are done.
type Scheduler struct {
	clock  clock.Clock
	period time.Duration
	logger logging.Logger

	mu     sync.Mutex
	active []navigation.Behavior

	running                 atomic.Bool
	cancel                  context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// NewScheduler returns a stopped scheduler.
func NewScheduler(clk clock.Clock, period time.Duration, logger logging.Logger) (*Scheduler, error) {
	if period <= 0 {
		return nil, errors.Errorf("scheduler period must be positive, got %s", period)
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{clock: clk, period: period, logger: logger}, nil
}

// Schedule starts b and ticks it from the next cycle on. Scheduling a behavior that is already
// scheduled starts it again, which replans a running path follower.
func (s *Scheduler) Schedule(ctx context.Context, b navigation.Behavior) error {
	if err := b.Start(ctx); err != nil {
		return errors.Wrapf(err, "cannot schedule %s", b.Name())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !lo.Contains(s.active, b) {
		s.active = append(s.active, b)
		s.logger.Debugw("behavior scheduled", "behavior", b.Name())
	}
	return nil
}

// Cancel interrupts b if it is scheduled.
func (s *Scheduler) Cancel(ctx context.Context, b navigation.Behavior) error {
	s.mu.Lock()
	found := lo.Contains(s.active, b)
	s.active = lo.Without(s.active, b)
	s.mu.Unlock()
	if !found {
		return nil
	}
	return b.Cancel(ctx)
}

// CancelAll interrupts every scheduled behavior.
func (s *Scheduler) CancelAll(ctx context.Context) error {
	s.mu.Lock()
	active := s.active
	s.active = nil
	s.mu.Unlock()

	var err error
	for _, b := range active {
		err = multierr.Combine(err, b.Cancel(ctx))
	}
	return err
}

// Active returns the names of the scheduled behaviors.
func (s *Scheduler) Active() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Map(s.active, func(b navigation.Behavior, _ int) string { return b.Name() })
}

// RunOnce ticks every scheduled behavior once. A failing tick is reported but does not stop the
// other behaviors.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	active := append([]navigation.Behavior(nil), s.active...)
	s.mu.Unlock()

	var err error
	for _, b := range active {
		if tickErr := b.Tick(ctx); tickErr != nil {
			err = multierr.Combine(err, errors.Wrapf(tickErr, "%s", b.Name()))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = lo.Filter(s.active, func(b navigation.Behavior, _ int) bool {
		if b.IsDone() {
			s.logger.Debugw("behavior done", "behavior", b.Name())
			return false
		}
		return true
	})
	return err
}

// Start runs the scheduler in the background until Stop is called.
func (s *Scheduler) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("scheduler already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	ticker := s.clock.Ticker(s.period)
	s.logger.Infof("running scheduler every %s", s.period)

	s.activeBackgroundWorkers.Add(1)
	utils.ManagedGo(func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Warnw("control tick failed", "error", err)
			}
		}
	}, s.activeBackgroundWorkers.Done)
	return nil
}

// Stop stops the background loop and waits for it to exit.
func (s *Scheduler) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	s.activeBackgroundWorkers.Wait()
}

// Running returns whether the background loop is running.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}
