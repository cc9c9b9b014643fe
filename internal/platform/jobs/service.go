// Package jobs runs background work on a small in-process worker pool.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type job struct {
	Type string
	Run  func(context.Context) error
}

type Service struct {
	mu     sync.Mutex
	queue  chan job
	closed bool
	wg     sync.WaitGroup

	// OnRun, when set before Start, observes every finished job.
	OnRun func(jobType string, err error)
}

func New(size int) *Service {
	if size <= 0 {
		size = 128
	}
	return &Service{queue: make(chan job, size)}
}

// Start launches workers that drain the queue until Stop is called.
func (s *Service) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
}

// Enqueue schedules run without blocking. It reports false when the queue is
// full or stopped and the job was dropped.
func (s *Service) Enqueue(jobType string, run func(context.Context) error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		slog.Warn("job queue stopped", "jobType", jobType)
		return false
	}
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType)
		return false
	}
}

// Stop refuses new jobs and waits for queued ones to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for j := range s.queue {
		if err := s.runJob(ctx, j); err != nil {
			slog.Warn("job run failed", "jobType", j.Type, "err", err)
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) error {
	start := time.Now()
	err := j.Run(ctx)
	slog.Debug("job finished", "jobType", j.Type, "durationMs", time.Since(start).Milliseconds(), "failed", err != nil)
	if s.OnRun != nil {
		s.OnRun(j.Type, err)
	}
	return err
}
