// Package worker hosts the four handler loops (template-config,
// marking-config, marking-job, index-task) and the marking-job orchestrator's fan-out
// over per-sheet CV work and fan-in over index-recognition results.
package worker

import "sync"

// Pool bounds how many CV-heavy tasks run concurrently inside one handler,
// the per-sheet work the marking-job orchestrator fans out. A slow CV
// computation on one queue must not starve other queues; that's satisfied
// at the process level by one goroutine per consumer. Pool additionally
// caps in-process fan-out so a single huge batch doesn't spin up one
// goroutine per sheet unbounded, using the same semaphore-channel pattern
// as a bounded worker-wave executor.
type Pool struct {
	semaphore chan struct{}
}

// NewPool creates a Pool allowing at most size concurrent Run calls.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{semaphore: make(chan struct{}, size)}
}

// Run executes fns concurrently, bounded by the pool's size, and waits for
// all of them to finish before returning the first non-nil error (if any).
// Every fn still runs to completion even after an error is observed, so a
// failing sheet doesn't leave its goroutine orphaned.
func (p *Pool) Run(fns []func() error) error {
	var wg sync.WaitGroup
	errs := make([]error, len(fns))

	for i, fn := range fns {
		wg.Add(1)
		go func(idx int, f func() error) {
			defer wg.Done()
			p.semaphore <- struct{}{}
			defer func() { <-p.semaphore }()
			errs[idx] = f()
		}(i, fn)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
