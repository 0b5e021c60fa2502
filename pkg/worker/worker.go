// Package worker schedules the background jobs of the delivery pipeline:
// the periodic outbox dispatcher and the long-running event bus consumer.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blastkit/blast/internal/logger"
	"github.com/blastkit/blast/pkg/metrics"
)

// JobAll selects every registered job.
const JobAll = "all"

// Job is one schedulable unit of work. A zero Interval marks a
// long-running job whose Run blocks until the context is canceled;
// otherwise Run is one tick and the runner repeats it.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner executes a set of jobs until its context is canceled. Tick errors
// of periodic jobs are logged and retried on the next tick; a long-running
// job's error stops the run.
type Runner struct {
	jobs    []Job
	metrics *metrics.Metrics
}

// NewRunner returns an empty runner. metrics may be nil.
func NewRunner(m *metrics.Metrics) *Runner {
	return &Runner{metrics: m}
}

// Add registers a job. Duplicate names panic; that is a wiring bug.
func (r *Runner) Add(job Job) {
	if job.Name == "" || job.Run == nil {
		panic("worker: job needs a name and a run function")
	}
	for _, existing := range r.jobs {
		if existing.Name == job.Name {
			panic(fmt.Sprintf("worker: duplicate job %q", job.Name))
		}
	}
	r.jobs = append(r.jobs, job)
}

// Names lists the registered job names in registration order.
func (r *Runner) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name)
	}
	return names
}

// selectJobs resolves the requested names. "all", an empty selection or a
// nil one selects everything.
func (r *Runner) selectJobs(names []string) ([]Job, error) {
	if len(names) == 0 {
		return r.jobs, nil
	}
	var selected []Job
	for _, name := range names {
		if name == JobAll {
			return r.jobs, nil
		}
		found := false
		for _, job := range r.jobs {
			if job.Name == name {
				selected = append(selected, job)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown job %q (have %v)", name, r.Names())
		}
	}
	return selected, nil
}

// RunOnce executes a single tick of each selected periodic job.
// Long-running jobs are skipped; once mode is for drains and debugging.
func (r *Runner) RunOnce(ctx context.Context, names ...string) error {
	selected, err := r.selectJobs(names)
	if err != nil {
		return err
	}

	for _, job := range selected {
		if job.Interval <= 0 {
			logger.WarnCtx(ctx, "skipping long-running job in once mode", logger.KeyJob, job.Name)
			continue
		}
		if err := r.tick(ctx, job); err != nil {
			return fmt.Errorf("job %s: %w", job.Name, err)
		}
	}
	return nil
}

// Run executes the selected jobs until ctx is canceled. Periodic jobs tick
// immediately and then on their interval.
func (r *Runner) Run(ctx context.Context, names ...string) error {
	selected, err := r.selectJobs(names)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return errors.New("no jobs to run")
	}

	logger.InfoCtx(ctx, "worker starting", logger.KeyCount, len(selected))

	// A failed long-running job takes the whole worker down so the process
	// restarts clean instead of limping along without its consumer.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, len(selected))

	for _, job := range selected {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()

			if job.Interval <= 0 {
				if err := job.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					errCh <- fmt.Errorf("job %s: %w", job.Name, err)
					cancel()
				}
				return
			}

			ticker := time.NewTicker(job.Interval)
			defer ticker.Stop()

			r.tickLogged(ctx, job)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					r.tickLogged(ctx, job)
				}
			}
		}(job)
	}

	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// tick runs one iteration and records its duration.
func (r *Runner) tick(ctx context.Context, job Job) error {
	start := time.Now()
	err := job.Run(ctx)
	r.metrics.ObserveTick(job.Name, time.Since(start))
	return err
}

// tickLogged is tick for the periodic loop: failures are logged, the next
// tick retries.
func (r *Runner) tickLogged(ctx context.Context, job Job) {
	if err := r.tick(ctx, job); err != nil && ctx.Err() == nil {
		logger.ErrorCtx(ctx, "worker job tick failed",
			logger.KeyJob, job.Name,
			logger.Err(err))
	}
}
