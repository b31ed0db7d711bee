// Package pool provides a bounded concurrency semaphore for the load
// generator. The server itself never bounds its handlers.
package pool

import "context"

// MaxSize caps the number of slots a Pool can hold.
const MaxSize = 4096

// Pool limits how many client connections are open at once.
type Pool struct {
	sem chan struct{}
}

// New creates a pool with between 1 and MaxSize slots.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	if size > MaxSize {
		size = MaxSize
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Size returns the number of slots.
func (p *Pool) Size() int { return cap(p.sem) }

// Acquire reserves one slot, blocking until one is free or ctx is done.
// It returns ctx.Err() if acquisition is aborted.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (p *Pool) Release() {
	<-p.sem
}
