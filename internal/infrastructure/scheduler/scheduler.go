package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrSchedulerAlreadyRunning is returned by Start on a running scheduler.
	ErrSchedulerAlreadyRunning = errors.New("scheduler already running")

	// ErrSchedulerNotRunning is returned by RunNow on a stopped scheduler.
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrSchedulerNoJob is returned by Start when no job is set.
	ErrSchedulerNoJob = errors.New("scheduler has no job")
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB
// ══════════════════════════════════════════════════════════════════════════════

// Job is the unit of scheduled work.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Run executes the job. The context is cancelled on shutdown.
	Run(ctx context.Context) error
}

// ══════════════════════════════════════════════════════════════════════════════
// CRON SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// CronScheduler drives a single job off one cron schedule. The schedule and
// its timezone can be swapped at runtime via Reschedule without a restart.
// Scheduled and on-demand runs are not mutually exclusive: a RunNow issued
// while a tick is in flight runs concurrently, which matches how manual
// sync has always behaved. The in-flight counter makes the overlap visible
// in logs.
type CronScheduler struct {
	mu       sync.Mutex
	expr     *CronExpression
	location *time.Location
	job      Job
	logger   *slog.Logger

	running  bool
	stopCh   chan struct{}
	rearmCh  chan struct{}
	wg       sync.WaitGroup
	inFlight atomic.Int32

	lastRun  atomic.Value // time.Time
	runCount atomic.Int64
}

// Option configures the CronScheduler.
type Option func(*CronScheduler)

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cs *CronScheduler) {
		cs.logger = logger
	}
}

// NewCronScheduler creates a scheduler for the given job.
func NewCronScheduler(expr *CronExpression, location *time.Location, job Job, opts ...Option) *CronScheduler {
	cs := &CronScheduler{
		expr:     expr,
		location: location,
		job:      job,
		logger:   slog.Default(),
		rearmCh:  make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(cs)
	}

	return cs
}

// SetJob replaces the job. Lets a job hold a reference back to the
// scheduler for rescheduling. Must be called before Start.
func (cs *CronScheduler) SetJob(job Job) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.job = job
}

// Start begins the scheduler loop.
func (cs *CronScheduler) Start(ctx context.Context) error {
	cs.mu.Lock()
	if cs.running {
		cs.mu.Unlock()
		return ErrSchedulerAlreadyRunning
	}
	if cs.job == nil {
		cs.mu.Unlock()
		return ErrSchedulerNoJob
	}
	cs.running = true
	cs.stopCh = make(chan struct{})
	cs.mu.Unlock()

	cs.logger.Info("scheduler started",
		"job", cs.job.Name(),
		"schedule", cs.expr.String(),
		"timezone", cs.location.String(),
	)

	cs.wg.Add(1)
	go cs.run(ctx)

	return nil
}

// Stop halts the scheduler and waits for any in-flight run to finish.
// Safe to call more than once.
func (cs *CronScheduler) Stop() {
	cs.mu.Lock()
	if !cs.running {
		cs.mu.Unlock()
		return
	}
	cs.running = false
	close(cs.stopCh)
	cs.mu.Unlock()

	cs.wg.Wait()
	cs.logger.Info("scheduler stopped", "job", cs.job.Name())
}

// Reschedule swaps the schedule and timezone. Takes effect immediately:
// the loop recomputes its next firing from the new values.
func (cs *CronScheduler) Reschedule(expr *CronExpression, location *time.Location) {
	cs.mu.Lock()
	changed := cs.expr.String() != expr.String() || cs.location.String() != location.String()
	cs.expr = expr
	cs.location = location
	cs.mu.Unlock()

	if !changed {
		return
	}

	cs.logger.Info("scheduler rescheduled",
		"job", cs.job.Name(),
		"schedule", expr.String(),
		"timezone", location.String(),
	)

	select {
	case cs.rearmCh <- struct{}{}:
	default:
	}
}

// Schedule returns the current expression and timezone.
func (cs *CronScheduler) Schedule() (string, string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.expr.String(), cs.location.String()
}

// RunNow triggers the job immediately, independent of the schedule.
func (cs *CronScheduler) RunNow(ctx context.Context) error {
	cs.mu.Lock()
	running := cs.running
	cs.mu.Unlock()
	if !running {
		return ErrSchedulerNotRunning
	}

	cs.execute(ctx, "manual")
	return nil
}

// NextRun returns the next scheduled firing time.
func (cs *CronScheduler) NextRun() time.Time {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.expr.Next(time.Now().In(cs.location))
}

// run is the main scheduler loop: one timer armed at the next firing.
func (cs *CronScheduler) run(ctx context.Context) {
	defer cs.wg.Done()

	timer := time.NewTimer(cs.untilNextRun())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			cs.logger.Info("scheduler context cancelled", "job", cs.job.Name())
			return

		case <-cs.stopCh:
			return

		case <-cs.rearmCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(cs.untilNextRun())

		case <-timer.C:
			cs.execute(ctx, "scheduled")
			timer.Reset(cs.untilNextRun())
		}
	}
}

// untilNextRun computes the wait until the next firing in the current zone.
func (cs *CronScheduler) untilNextRun() time.Duration {
	cs.mu.Lock()
	next := cs.expr.Next(time.Now().In(cs.location))
	cs.mu.Unlock()

	wait := time.Until(next)
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}

// execute runs the job once with panic recovery.
func (cs *CronScheduler) execute(ctx context.Context, trigger string) {
	overlap := cs.inFlight.Add(1) > 1
	defer cs.inFlight.Add(-1)

	count := cs.runCount.Add(1)
	cs.lastRun.Store(time.Now())

	log := cs.logger.With("job", cs.job.Name(), "trigger", trigger, "run", count)
	if overlap {
		log.Warn("run starting while another run is in flight")
	}
	log.Info("run starting")

	start := time.Now()
	err := cs.safeRun(ctx)
	duration := time.Since(start)

	if err != nil {
		log.Error("run failed", "duration", duration, "error", err)
		return
	}
	log.Info("run completed", "duration", duration)
}

// safeRun isolates job panics from the scheduler loop.
func (cs *CronScheduler) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v\n%s", r, debug.Stack())
		}
	}()
	return cs.job.Run(ctx)
}
