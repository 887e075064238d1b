// Package worker provides the bounded pool used for per-image extraction.
package worker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// Stats is a point-in-time view of pool activity
type Stats struct {
	Workers       int   `json:"workers"`
	TotalJobs     int64 `json:"total_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	ActiveWorkers int64 `json:"active_workers"`
}

// Pool runs submitted jobs on a fixed number of goroutines
type Pool struct {
	workers  int
	jobQueue chan func()
	wg       sync.WaitGroup
	once     sync.Once

	mu     sync.RWMutex
	closed bool

	totalJobs     atomic.Int64
	completedJobs atomic.Int64
	activeWorkers atomic.Int64
}

// NewPool creates a pool; workers <= 0 means one per CPU
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		workers:  workers,
		jobQueue: make(chan func(), workers*2),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			go p.worker()
		}
	})
}

func (p *Pool) worker() {
	for job := range p.jobQueue {
		p.activeWorkers.Add(1)
		job()
		p.activeWorkers.Add(-1)
		p.completedJobs.Add(1)
		p.wg.Done()
	}
}

// Submit queues a job. It returns false once the pool is closed.
func (p *Pool) Submit(job func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.wg.Add(1)
	p.totalJobs.Add(1)
	p.jobQueue <- job
	return true
}

// Wait blocks until every submitted job has finished
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Close stops accepting jobs and lets the workers drain the queue
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.jobQueue)
}

// GetStats returns the current counters
func (p *Pool) GetStats() Stats {
	return Stats{
		Workers:       p.workers,
		TotalJobs:     p.totalJobs.Load(),
		CompletedJobs: p.completedJobs.Load(),
		ActiveWorkers: p.activeWorkers.Load(),
	}
}

// Map runs fn for indexes 0..n-1 on the pool and returns the results in index
// order, whatever order they complete in. Indexes not run because the context
// was cancelled or the pool was closed keep the zero value.
func Map[T any](ctx context.Context, p *Pool, n int, fn func(ctx context.Context, i int) T) []T {
	results := make([]T, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		idx := i
		wg.Add(1)
		if !p.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			results[idx] = fn(ctx, idx)
		}) {
			wg.Done()
			break
		}
	}
	wg.Wait()
	return results
}
