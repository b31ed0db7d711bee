// Package tracker counts in-flight work: open connections in the
// acceptor, simulated reads in the processor.
package tracker

import "sync/atomic"

// Tracker is a goroutine-safe gauge. The zero value is ready to use.
type Tracker struct {
	running atomic.Int64
}

// Inc records one more unit in flight and returns the new count.
func (t *Tracker) Inc() int64 { return t.running.Add(1) }

// Dec records that one unit finished.
func (t *Tracker) Dec() { t.running.Add(-1) }

// Running returns the number of units currently in flight.
func (t *Tracker) Running() int64 { return t.running.Load() }
