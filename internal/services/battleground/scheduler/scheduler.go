// Package scheduler runs the periodic battleground jobs: starting
// battlegrounds whose start time passed and draining the event outbox.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// DefaultInterval is used when no interval is configured.
const DefaultInterval = 15 * time.Second

// Starter moves due battlegrounds to ongoing.
type Starter interface {
	StartDue(ctx context.Context, now time.Time) ([]uint64, error)
}

// Drainer publishes pending outbox events.
type Drainer interface {
	Drain(ctx context.Context) (int, error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the time source passed to StartDue.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Scheduler owns a gocron scheduler with one job per periodic task.
type Scheduler struct {
	starter  Starter
	drainer  Drainer
	interval time.Duration
	clock    func() time.Time
	logger   *zap.Logger
}

// New builds a Scheduler. drainer may be nil when no outbox relay runs.
func New(starter Starter, drainer Drainer, interval time.Duration, opts ...Option) (*Scheduler, error) {
	if starter == nil {
		return nil, errors.New("starter is required")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Scheduler{
		starter:  starter,
		drainer:  drainer,
		interval: interval,
		clock:    time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run schedules the jobs, runs them immediately and then every interval,
// and shuts the scheduler down when ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("new scheduler: %w", err)
	}

	if err := s.addJob(sched, "start-due-battlegrounds", func() { s.StartDue(ctx) }); err != nil {
		return err
	}
	if s.drainer != nil {
		if err := s.addJob(sched, "drain-outbox", func() { s.Drain(ctx) }); err != nil {
			return err
		}
	}

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	sched.Start()
	<-ctx.Done()
	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	s.logger.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) addJob(sched gocron.Scheduler, name string, task func()) error {
	_, err := sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// StartDue runs one pass of the start job and returns the started ids.
func (s *Scheduler) StartDue(ctx context.Context) []uint64 {
	if ctx.Err() != nil {
		return nil
	}
	started, err := s.starter.StartDue(ctx, s.clock().UTC())
	if err != nil {
		s.logger.Warn("start due battlegrounds failed", zap.Error(err))
		return nil
	}
	if len(started) > 0 {
		s.logger.Info("battlegrounds started", zap.Uint64s("battleground_ids", started))
	}
	return started
}

// Drain runs one pass of the outbox job and returns how many events were
// published.
func (s *Scheduler) Drain(ctx context.Context) int {
	if s.drainer == nil || ctx.Err() != nil {
		return 0
	}
	n, err := s.drainer.Drain(ctx)
	if err != nil {
		s.logger.Warn("outbox drain failed", zap.Int("published", n), zap.Error(err))
	}
	return n
}
