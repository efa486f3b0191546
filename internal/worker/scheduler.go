// Package worker runs the periodic background jobs: outbox delivery, overdue
// sweeps, monthly bill generation and housekeeping.
package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"rwpay/pkg/logger"
)

// Job is one periodic task. Run returns how many items it handled.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context, now time.Time) (int, error)
}

// Recorder receives the outcome of every run.
type Recorder interface {
	JobFinished(job string, items int, err error)
}

type Scheduler struct {
	jobs     []Job
	recorder Recorder
	log      *logger.Logger
	now      func() time.Time
}

func NewScheduler(log *logger.Logger, recorder Recorder, jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:     jobs,
		recorder: recorder,
		log:      log.WithComponent("worker"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run starts every job immediately and then on its interval, until ctx is
// cancelled. A failing run is logged and retried on the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		g.Go(func() error {
			s.loop(ctx, job)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	s.log.Infow("job started", "job", job.Name, "interval", job.Interval)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	s.RunOnce(ctx, job)
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("job stopped", "job", job.Name)
			return
		case <-ticker.C:
			s.RunOnce(ctx, job)
		}
	}
}

// RunOnce executes a single run and records its outcome.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) (items int, err error) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, r)
		}
		if s.recorder != nil {
			s.recorder.JobFinished(job.Name, items, err)
		}

		elapsed := time.Since(started).Milliseconds()
		switch {
		case err != nil:
			s.log.Errorw("job failed", "job", job.Name, "error", err, "latency_ms", elapsed)
		case items > 0:
			s.log.Infow("job finished", "job", job.Name, "items", items, "latency_ms", elapsed)
		default:
			s.log.Debugw("job idle", "job", job.Name, "latency_ms", elapsed)
		}
	}()

	return job.Run(ctx, s.now())
}
