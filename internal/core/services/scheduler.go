package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.Scheduler = (*Scheduler)(nil)

const (
	defaultTaskInterval = time.Minute
	defaultLockTTL      = 30 * time.Minute
)

// ScheduledTask is a periodic job run by the Scheduler
type ScheduledTask struct {
	Name string

	// Interval is evaluated before every cycle, so config changes apply to the next wait
	Interval func(ctx context.Context) time.Duration

	// Enabled gates each cycle; nil means always enabled
	Enabled func(ctx context.Context) bool

	// RunOnStart runs the task once as soon as the scheduler starts
	RunOnStart bool

	Run func(ctx context.Context) error
}

// Scheduler runs periodic tasks, each on its own re-armed timer.
//
// For multi-instance deployments, configure a DistributedLock so a task
// runs on at most one instance per cycle.
type Scheduler struct {
	tasks  []ScheduledTask
	lock   driven.DistributedLock
	logger *slog.Logger

	// Internal state
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// Lock configuration
	lockTTL      time.Duration
	lockRequired bool
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Tasks        []ScheduledTask
	Lock         driven.DistributedLock // Optional: distributed lock for multi-instance coordination
	Logger       *slog.Logger
	LockTTL      time.Duration // TTL for task locks (default: 30m)
	LockRequired bool          // If true, skip the cycle when the lock backend errors
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = defaultLockTTL
	}

	return &Scheduler{
		tasks:        cfg.Tasks,
		lock:         cfg.Lock,
		logger:       logger,
		lockTTL:      lockTTL,
		lockRequired: cfg.LockRequired,
	}
}

// Start launches one loop per task.
// Loops run until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, task, s.stopCh)
	}

	s.logger.Info("scheduler started", "tasks", len(s.tasks))
	return nil
}

// Stop signals every loop and waits for in-flight runs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	close(s.stopCh)
	s.running = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether the scheduler loops are active
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, task ScheduledTask, stopCh <-chan struct{}) {
	defer s.wg.Done()

	if task.RunOnStart {
		s.execute(ctx, task)
	}

	for {
		timer := time.NewTimer(s.intervalFor(ctx, task))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-stopCh:
			timer.Stop()
			return
		case <-timer.C:
			s.execute(ctx, task)
		}
	}
}

func (s *Scheduler) intervalFor(ctx context.Context, task ScheduledTask) time.Duration {
	if task.Interval == nil {
		return defaultTaskInterval
	}
	if d := task.Interval(ctx); d > 0 {
		return d
	}
	return defaultTaskInterval
}

// execute runs one cycle of a task. If a distributed lock is configured it is
// acquired first, so the same task does not run on two instances at once.
func (s *Scheduler) execute(ctx context.Context, task ScheduledTask) {
	if task.Enabled != nil && !task.Enabled(ctx) {
		s.logger.Debug("scheduled task disabled, skipping cycle", "task", task.Name)
		return
	}

	if s.lock != nil {
		lockName := "scheduler:" + task.Name
		acquired, err := s.lock.Acquire(ctx, lockName, s.lockTTL)
		if err != nil {
			s.logger.Warn("failed to acquire scheduler lock", "task", task.Name, "error", err)
			if s.lockRequired {
				return
			}
		} else if !acquired {
			s.logger.Debug("task lock held by another instance, skipping cycle", "task", task.Name)
			return
		} else {
			stopRenew := s.keepAlive(ctx, task.Name, lockName)
			defer func() {
				stopRenew()
				if err := s.lock.Release(context.WithoutCancel(ctx), lockName); err != nil {
					s.logger.Warn("failed to release scheduler lock", "task", task.Name, "error", err)
				}
			}()
		}
	}

	start := time.Now()
	if err := task.Run(ctx); err != nil {
		s.logger.Error("scheduled task failed", "task", task.Name, "error", err)
		return
	}
	s.logger.Debug("scheduled task completed", "task", task.Name, "duration", time.Since(start))
}

// keepAlive extends a held task lock every half TTL until the returned stop func is called.
// Delta runs over large catalogs can outlive a single TTL.
func (s *Scheduler) keepAlive(ctx context.Context, taskName, lockName string) (stop func()) {
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		ticker := time.NewTicker(max(s.lockTTL/2, time.Millisecond))
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := s.lock.Extend(ctx, lockName, s.lockTTL)
				if errors.Is(err, driven.ErrLockNotHeld) {
					s.logger.Warn("scheduler lock lost, run continues unprotected", "task", taskName)
					return
				}
				if err != nil {
					s.logger.Warn("failed to extend scheduler lock", "task", taskName, "error", err)
				}
			}
		}
	}()

	return func() {
		close(done)
		<-finished
	}
}
