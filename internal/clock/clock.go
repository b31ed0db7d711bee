// Package clock supplies millisecond timestamps for arrival stamping
// and queue-delay measurement.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current wall-clock time in milliseconds.
type Clock interface {
	NowMillis() int64
}

// System reads the process wall clock.
type System struct{}

// NowMillis returns milliseconds since the Unix epoch.
func (System) NowMillis() int64 { return time.Now().UnixMilli() }

// Fake is a manually driven clock for tests.
type Fake struct {
	mu  sync.Mutex
	now int64
}

// NewFake returns a Fake clock set to ms.
func NewFake(ms int64) *Fake {
	return &Fake{now: ms}
}

func (f *Fake) NowMillis() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set moves the clock to ms.
func (f *Fake) Set(ms int64) {
	f.mu.Lock()
	f.now = ms
	f.mu.Unlock()
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += d.Milliseconds()
	f.mu.Unlock()
}
