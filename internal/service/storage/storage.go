// Package storage simulates a blocking storage read.
//
// No I/O is performed. A started read always runs for its full duration:
// there is no context and nothing can interrupt it.
package storage

import (
	"math"
	"time"
)

// Sleeper blocks the calling goroutine for a duration.
type Sleeper interface {
	Sleep(d time.Duration)
}

// Disk is the production Sleeper.
type Disk struct{}

// Sleep blocks for d. It returns immediately if d <= 0.
func (Disk) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	<-t.C
}

// maxDelayMS is the largest delay representable as a time.Duration.
const maxDelayMS = int64(math.MaxInt64 / time.Millisecond)

// Read simulates reading from storage for delayMS milliseconds. Delays
// too long for a time.Duration are capped at the longest one.
func Read(s Sleeper, delayMS int64) {
	if delayMS <= 0 {
		return
	}
	if delayMS > maxDelayMS {
		delayMS = maxDelayMS
	}
	s.Sleep(time.Duration(delayMS) * time.Millisecond)
}
