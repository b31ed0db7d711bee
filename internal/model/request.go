// Package model defines the per-connection request and response values.
// They are created by a connection handler and discarded when it closes.
package model

import (
	"math"
	"time"
)

// MaxDelayMS is the largest simulated delay that still fits in a
// time.Duration.
const MaxDelayMS = int64(math.MaxInt64 / time.Millisecond)

// Outcome is the terminal classification of a request.
type Outcome int

const (
	OK Outcome = iota
	QueueTimeout
	BadRequest
)

// Code returns the numeric wire code of the outcome.
func (o Outcome) Code() int { return int(o) }

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case QueueTimeout:
		return "queue_timeout"
	case BadRequest:
		return "bad_request"
	default:
		return "unknown"
	}
}

// Request is a decoded request envelope. The arrival time is not part
// of it; the acceptor passes it to the processor alongside the payload.
type Request struct {
	StatusHint   int    // echoed by the line protocol only
	DelayMS      int64  // simulated storage delay, 0..MaxDelayMS
	ResourcePath string // opaque, echoed back unchanged
}

// Response is the result of processing one request.
type Response struct {
	Outcome      Outcome
	TotalTimeMS  int64  // queue delay plus simulated delay
	QueueDelayMS int64  // measured when processing began
	ResourcePath string // empty unless decoding succeeded
	StatusHint   int    // copied from the request when decoding succeeded
}
