// Package threadpool provides the single global "light" thread pool used
// by the blended tile-writer strategy to parallelize finalization. Pool
// size is taken from the NUM_THREADS environment variable: 0 or unset
// means runtime.NumCPU(); non-numeric or negative values fall back to the
// same default; 1 forces strictly sequential execution.
package threadpool

import (
	"os"
	"runtime"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Pool runs independent tasks with bounded concurrency.
type Pool struct {
	limit int
}

var (
	global     *Pool
	globalOnce sync.Once
)

// Global returns the process-wide pool, lazily constructed from
// NUM_THREADS on first access.
func Global() *Pool {
	globalOnce.Do(func() {
		global = New(sizeFromEnv())
	})
	return global
}

// New constructs a pool with the given concurrency limit. limit <= 0
// means hardware concurrency.
func New(limit int) *Pool {
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	return &Pool{limit: limit}
}

func sizeFromEnv() int {
	v, ok := os.LookupEnv("NUM_THREADS")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// Run submits each task and blocks until all complete. Tasks never
// return an error in this model (the kernels they wrap do not fail), so
// Run itself never fails; it exists as a thin wrapper so callers don't
// need to depend on errgroup directly.
func (p *Pool) Run(tasks []func()) {
	if len(tasks) == 0 {
		return
	}
	if p.limit <= 1 {
		for _, t := range tasks {
			t()
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(p.limit)
	for _, t := range tasks {
		task := t
		g.Go(func() error {
			task()
			return nil
		})
	}
	_ = g.Wait()
}

// Batch collects tasks through Submit, whose method value fits
// pixel.FinalizeLinearToSrgb8's submit callback, and runs them with
// bounded concurrency when Wait is called.
type Batch struct {
	pool  *Pool
	tasks []func()
}

// NewBatch creates a batch bound to pool.
func (p *Pool) NewBatch() *Batch {
	return &Batch{pool: p}
}

// Submit queues a task.
func (b *Batch) Submit(task func()) {
	b.tasks = append(b.tasks, task)
}

// Wait runs all queued tasks with the pool's concurrency limit and blocks
// until they complete.
func (b *Batch) Wait() {
	b.pool.Run(b.tasks)
	b.tasks = nil
}
