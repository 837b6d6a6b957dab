package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hweber/secondbrain/internal/platform/logger"
	"github.com/hweber/secondbrain/modules/scheduler/model"
	"github.com/hweber/secondbrain/modules/scheduler/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const tickInterval = 30 * time.Second

// Handler is one runnable job
type Handler func(ctx context.Context) error

// Runner drives DB-configured jobs. Each tick it loads the runnable jobs,
// fires the due ones, and persists run tracking. At most one execution per
// job name is in flight at any time; overlapping ticks and manual runs
// join the running call instead of starting a second one.
type Runner struct {
	jobs ports.JobRepository
	log  *logger.Logger

	registry map[string]Handler
	flight   singleflight.Group

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running map[string]bool
}

// NewRunner creates a scheduler runner
func NewRunner(jobs ports.JobRepository, log *logger.Logger) *Runner {
	return &Runner{
		jobs:     jobs,
		log:      log,
		registry: make(map[string]Handler),
		running:  make(map[string]bool),
	}
}

// Register binds a handler to a job name
func (r *Runner) Register(jobName string, handler Handler) {
	r.registry[jobName] = handler
}

// Start launches the scheduler loop
func (r *Runner) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)

	r.mu.Lock()
	r.cancel = cancel
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.loop(ctx)
	r.log.Info("scheduler started")
}

// Stop cancels pending triggers and waits up to grace for running handlers.
// Jobs still running after the grace period are recorded as aborted.
func (r *Runner) Stop(grace time.Duration) {
	r.mu.Lock()
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	deadline := time.Now().Add(grace)
	select {
	case <-done:
	case <-time.After(grace):
	}

	// handlers run in their own goroutines; poll them until the deadline
	for {
		r.mu.Lock()
		stuck := make([]string, 0, len(r.running))
		for name, active := range r.running {
			if active {
				stuck = append(stuck, name)
			}
		}
		r.mu.Unlock()

		if len(stuck) > 0 && time.Now().Before(deadline) {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		for _, name := range stuck {
			ctx, cancelMark := context.WithTimeout(context.Background(), 5*time.Second)
			if err := r.jobs.RecordFailure(ctx, name, "aborted"); err != nil {
				r.log.Warn("failed to mark aborted job", zap.String("job_name", name), zap.Error(err))
			}
			cancelMark()
		}
		break
	}
	r.log.Info("scheduler stopped")
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	jobs, err := r.jobs.ListRunnable(ctx)
	if err != nil {
		r.log.Error("failed to load scheduled jobs", zap.Error(err))
		return
	}

	now := time.Now()
	for _, job := range jobs {
		if job.Schedule == nil {
			continue
		}
		if _, known := r.registry[job.JobName]; !known {
			r.log.Warn("no handler for job", zap.String("job_name", job.JobName))
			continue
		}

		due := job.NextRun == nil || !job.NextRun.After(now)
		if !due {
			continue
		}

		r.fire(ctx, job)
	}
}

// fire runs a job through the single-flight group without waiting for it
func (r *Runner) fire(ctx context.Context, job *model.ScheduledJob) {
	name := job.JobName
	schedule := job.Schedule

	go func() {
		_, _, _ = r.flight.Do(name, func() (interface{}, error) {
			r.setRunning(name, true)
			defer r.setRunning(name, false)
			defer r.flight.Forget(name)

			r.execute(ctx, name, schedule)
			return nil, nil
		})
	}()
}

func (r *Runner) execute(ctx context.Context, jobName string, schedule *model.Schedule) {
	log := r.log.WithJob(jobName)
	log.Info("job starting")

	handler := r.registry[jobName]
	start := time.Now()
	err := handler(ctx)

	// tracking writes use a fresh context so shutdown does not lose them
	trackCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err != nil {
		log.Error("job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		if trackErr := r.jobs.RecordFailure(trackCtx, jobName, err.Error()); trackErr != nil {
			log.Warn("failed to record job failure", zap.Error(trackErr))
		}
		return
	}

	completed := time.Now()
	next, nextErr := NextRun(schedule, completed)
	if nextErr != nil {
		log.Warn("next run computation failed", zap.Error(nextErr))
		next = completed.Add(tickInterval)
	}

	if trackErr := r.jobs.RecordSuccess(trackCtx, jobName, completed, next); trackErr != nil {
		log.Warn("failed to record job success", zap.Error(trackErr))
	}
	log.Info("job completed",
		zap.Duration("duration", completed.Sub(start)),
		zap.Time("next_run", next),
	)
}

// RunNow submits a manual one-shot execution. It follows the same
// single-flight rule as scheduled ticks.
func (r *Runner) RunNow(ctx context.Context, jobName string) (*model.RunSubmission, error) {
	if _, known := r.registry[jobName]; !known {
		return nil, fmt.Errorf("%w: %s", model.ErrJobNotFound, jobName)
	}

	submission := &model.RunSubmission{
		ExecutionID: uuid.New().String(),
		Status:      model.RunStatusQueued,
	}
	if r.isRunning(jobName) {
		submission.Status = model.RunStatusRunning
		return submission, nil
	}

	jobs, err := r.jobs.ListRunnable(ctx)
	if err != nil {
		return nil, err
	}
	var schedule *model.Schedule
	for _, job := range jobs {
		if job.JobName == jobName {
			schedule = job.Schedule
			break
		}
	}
	if schedule == nil {
		// manual runs are allowed for disabled jobs; fall back to an interval
		// schedule at the tick cadence rounded up to one whole minute
		minutes := int(tickInterval / time.Minute)
		if minutes < 1 {
			minutes = 1
		}
		schedule = &model.Schedule{Type: model.TypeInterval, IntervalMinutes: &minutes}
	}

	r.fire(context.WithoutCancel(ctx), &model.ScheduledJob{JobName: jobName, Schedule: schedule})
	return submission, nil
}

// IsRunning reports whether a handler for the job is currently in flight
func (r *Runner) IsRunning(jobName string) bool {
	return r.isRunning(jobName)
}

func (r *Runner) isRunning(jobName string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running[jobName]
}

func (r *Runner) setRunning(jobName string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running[jobName] = active
}
