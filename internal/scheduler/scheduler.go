package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const minInterval = time.Second

type job struct {
	interval time.Duration
	fn       func(ctx context.Context)
}

// Scheduler runs ready hooks once, then each periodic job immediately and
// on its interval. Runs of the same job never overlap.
type Scheduler struct {
	Logger *zap.Logger

	mu      sync.Mutex
	ready   []func(ctx context.Context) error
	jobs    []job
	onError []func(error)
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{Logger: logger}
}

// OnReady registers a hook run before the first job. A hook error aborts Run.
func (s *Scheduler) OnReady(fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = append(s.ready, fn)
}

// Every registers fn to run now and then interval after each run returns.
// Intervals under a second are rounded up.
func (s *Scheduler) Every(interval time.Duration, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job{interval: interval, fn: fn})
}

// OnError registers a handler for panics recovered from jobs and for
// anything passed to Report.
func (s *Scheduler) OnError(fn func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onError = append(s.onError, fn)
}

// Report passes err to the OnError handlers. Components outside the job
// loop, such as the chat session, use it for their background failures.
func (s *Scheduler) Report(err error) {
	s.mu.Lock()
	handlers := append([]func(error){}, s.onError...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(err)
	}
}

func (s *Scheduler) recoverer() cron.JobWrapper {
	return func(j cron.Job) cron.Job {
		return cron.FuncJob(func() {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = fmt.Errorf("%v", r)
					}
					s.Logger.Error("job_panic", zap.Error(err), zap.Stack("stack"))
					s.Report(fmt.Errorf("job panic: %w", err))
				}
			}()
			j.Run()
		})
	}
}

// Run blocks until ctx is cancelled. Each job runs in its own loop: once
// now, then interval after the previous run returned, so a slow run
// stretches the gap instead of queueing ticks. Jobs get a context that
// outlives the cancellation so a run in flight can finish; Run waits for
// it and starts nothing after cancel.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	ready := append([]func(context.Context) error{}, s.ready...)
	jobs := append([]job{}, s.jobs...)
	s.mu.Unlock()

	for _, hook := range ready {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("ready hook: %w", err)
		}
	}

	chain := cron.NewChain(s.recoverer())
	jobCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, j := range jobs {
		fn := j.fn
		run := chain.Then(cron.FuncJob(func() { fn(jobCtx) }))
		wg.Add(1)
		go func(interval time.Duration) {
			defer wg.Done()
			s.loop(ctx, interval, run)
		}(j.interval)
	}
	s.Logger.Info("scheduler_started", zap.Int("jobs", len(jobs)))

	<-ctx.Done()
	wg.Wait()
	s.Logger.Info("scheduler_stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, run cron.Job) {
	if interval < minInterval {
		interval = minInterval
	}
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		// a timer and cancel can be ready together; cancel wins
		if ctx.Err() != nil {
			return
		}
		run.Run()
		timer.Reset(interval)
	}
}
