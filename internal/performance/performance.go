// Package performance provides the bounded concurrency primitives the
// analysis pipeline uses to parse export files in parallel.
package performance

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool runs submitted tasks on a fixed set of goroutines.
type WorkerPool struct {
	workers    int
	taskQueue  chan func()
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	running    atomic.Bool
	tasksTotal atomic.Uint64
	tasksDone  atomic.Uint64
}

// NewWorkerPool creates a pool with the given number of workers.
// Zero or negative selects runtime.NumCPU().
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*4),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the workers. Starting a running pool is a no-op.
func (p *WorkerPool) Start() {
	if p.running.Swap(true) {
		return
	}
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.taskQueue:
			if !ok {
				return
			}
			task()
			p.tasksDone.Add(1)
		}
	}
}

// Submit queues a task. It returns false when the pool is not running
// or the queue is full; the caller decides whether to run it inline.
func (p *WorkerPool) Submit(task func()) bool {
	if !p.running.Load() {
		return false
	}
	select {
	case p.taskQueue <- task:
		p.tasksTotal.Add(1)
		return true
	default:
		return false
	}
}

// Stop shuts the pool down and waits for in-flight tasks to finish.
func (p *WorkerPool) Stop() {
	if !p.running.Swap(false) {
		return
	}
	p.cancel()
	close(p.taskQueue)
	p.wg.Wait()
}

// Stats returns a snapshot of pool activity.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		Running:    p.running.Load(),
		TasksTotal: p.tasksTotal.Load(),
		TasksDone:  p.tasksDone.Load(),
		QueueLen:   len(p.taskQueue),
	}
}

// PoolStats is a point-in-time view of a WorkerPool.
type PoolStats struct {
	Workers    int
	Running    bool
	TasksTotal uint64
	TasksDone  uint64
	QueueLen   int
}

// Map runs fn for every index in [0, n) on the pool and returns the
// results in input order. Indices the pool cannot accept run inline on
// the calling goroutine, so Map always completes, pool or no pool.
func Map[T any](pool *WorkerPool, n int, fn func(int) T) []T {
	if n == 0 {
		return nil
	}
	out := make([]T, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		if !pool.Submit(func() {
			defer wg.Done()
			out[i] = fn(i)
		}) {
			out[i] = fn(i)
			wg.Done()
		}
	}
	wg.Wait()
	return out
}
