// Package workerpool provides a persistent worker pool used to fan one task per
// index out over a fixed set of goroutines and join on all of them.
//
//	pool := workerpool.New(runtime.GOMAXPROCS(0))
//	defer pool.Close()
//
//	errs := pool.ForEach(len(batches), func(i int) error {
//	    return process(batches[i])
//	})
package workerpool

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Pool is a persistent worker pool. Workers are spawned once by New and live
// until Close.
type Pool struct {
	numWorkers int
	workC      chan workItem
	closeOnce  sync.Once
	// mu is held for reading while ForEach sends on workC and for writing
	// while Close closes it.
	mu         sync.RWMutex
	closed     atomic.Bool
	dispatched atomic.Int64
	workers    sync.WaitGroup
}

type workItem struct {
	fn      func()
	barrier *sync.WaitGroup
}

// New creates a pool with numWorkers workers. If numWorkers <= 0 GOMAXPROCS is used.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{
		numWorkers: numWorkers,
		workC:      make(chan workItem, numWorkers*2),
	}

	p.workers.Add(numWorkers)
	for range numWorkers {
		go p.worker()
	}

	return p
}

func (p *Pool) worker() {
	defer p.workers.Done()
	for item := range p.workC {
		item.fn()
		item.barrier.Done()
	}
}

// NumWorkers returns the number of workers in the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Dispatched returns how many tasks have been run through the pool since it was created.
func (p *Pool) Dispatched() int64 {
	return p.dispatched.Load()
}

// Close stops the workers once queued work has drained and waits for them to exit.
// Calling Close more than once is safe. A ForEach that is already queueing work
// finishes queueing before the channel is closed, and its tasks still run.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.workC)
	})
	p.mu.Unlock()
	p.workers.Wait()
}

// ForEach runs fn(i) for every i in [0, n), one task per index, and blocks
// until every task has returned. A panic inside fn is recovered and reported
// as that index's error.
//
// It returns nil when every task succeeded. Otherwise the returned slice has
// length n and holds the error of each failed index (nil for the others).
//
// On a closed pool the tasks run sequentially on the calling goroutine.
func (p *Pool) ForEach(n int, fn func(i int) error) []error {
	if n <= 0 {
		return nil
	}

	errs := make([]error, n)
	var failed atomic.Bool

	run := func(i int) {
		if err := safeCall(i, fn); err != nil {
			errs[i] = err
			failed.Store(true)
		}
	}

	p.dispatched.Add(int64(n))

	p.mu.RLock()
	if p.closed.Load() {
		p.mu.RUnlock()
		for i := range n {
			run(i)
		}
	} else {
		var wg sync.WaitGroup
		wg.Add(n)
		for i := range n {
			p.workC <- workItem{
				fn:      func() { run(i) },
				barrier: &wg,
			}
		}
		p.mu.RUnlock()
		wg.Wait()
	}

	if !failed.Load() {
		return nil
	}
	return errs
}

func safeCall(i int, fn func(i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(fmt.Errorf("%v", r), "task %d panicked", i)
		}
	}()
	return fn(i)
}
