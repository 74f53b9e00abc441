package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ScheduleConfig describes when runs happen. A non-empty Cron expression
// takes precedence over Interval.
type ScheduleConfig struct {
	Interval time.Duration
	Cron     string
}

// Validate checks if the config is valid
func (c ScheduleConfig) Validate() error {
	if c.Cron != "" {
		if _, err := ParseCron(c.Cron); err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		return nil
	}
	if c.Interval < time.Second {
		return fmt.Errorf("interval must be at least 1s, got %v", c.Interval)
	}
	return nil
}

// Schedule returns the cron schedule for this config
func (c ScheduleConfig) Schedule() (cron.Schedule, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Cron != "" {
		return ParseCron(c.Cron)
	}
	return cron.Every(c.Interval), nil
}

// String describes the schedule for humans
func (c ScheduleConfig) String() string {
	if c.Cron != "" {
		return fmt.Sprintf("cron %q", c.Cron)
	}
	return fmt.Sprintf("every %v", c.Interval)
}

// ParseCron parses a cron expression
func ParseCron(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(expr)
}

// Job is one batch run. It must return before the next run can start.
type Job func(ctx context.Context)

// Scheduler runs a job repeatedly without overlap. The next run time is
// computed from the moment the previous run returned.
type Scheduler struct {
	schedule cron.Schedule
	now      func() time.Time

	next    time.Time
	lastRun time.Time
	running bool
	mu      sync.RWMutex

	trigger  chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a new batch scheduler
func NewScheduler(cfg ScheduleConfig) (*Scheduler, error) {
	sched, err := cfg.Schedule()
	if err != nil {
		return nil, err
	}
	return NewSchedulerWithSchedule(sched), nil
}

// NewSchedulerWithSchedule creates a scheduler from an arbitrary schedule
func NewSchedulerWithSchedule(sched cron.Schedule) *Scheduler {
	return &Scheduler{
		schedule: sched,
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
}

// NextRun returns the time of the next scheduled run. It is zero before the
// first run and while a run is in progress.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.running {
		return time.Time{}
	}
	return s.next
}

// LastRun returns when the previous run finished
func (s *Scheduler) LastRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// Running reports whether a job is executing
func (s *Scheduler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Trigger requests a run as soon as the current one (if any) completes.
// Requests made while one is pending collapse into a single run.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Stop ends the loop after the in-flight run returns
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Scheduler) stopped() bool {
	select {
	case <-s.stopChan:
		return true
	default:
		return false
	}
}

// Run executes job immediately and then on every scheduled tick until ctx is
// cancelled or Stop is called. The job's context is ctx itself, so
// cancellation reaches an in-flight run while Stop does not.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	for {
		if s.stopped() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		s.mu.Lock()
		s.running = true
		s.mu.Unlock()

		job(ctx)

		finished := s.now()
		s.mu.Lock()
		s.running = false
		s.lastRun = finished
		s.next = s.schedule.Next(finished)
		next := s.next
		s.mu.Unlock()

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.stopChan:
			timer.Stop()
			return nil
		case <-s.trigger:
			timer.Stop()
		case <-timer.C:
		}
	}
}
