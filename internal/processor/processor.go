// Package processor holds the request lifecycle policy shared by every
// wire variant: queue-delay measurement, timeout classification, the
// simulated storage read and total time accounting.
package processor

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliamunaev/simulated-disk-io-server/internal/apperr"
	"github.com/iliamunaev/simulated-disk-io-server/internal/clock"
	"github.com/iliamunaev/simulated-disk-io-server/internal/model"
	"github.com/iliamunaev/simulated-disk-io-server/internal/service/storage"
	"github.com/iliamunaev/simulated-disk-io-server/internal/service/tracker"
)

// DefaultQueueTimeout is applied when Config.QueueTimeout is not positive.
const DefaultQueueTimeout = 4 * time.Second

// Decoder turns an isolated payload into a Request. Every codec.Codec
// is a Decoder.
type Decoder interface {
	Decode(payload string) (model.Request, error)
}

// Config holds the processor policy.
type Config struct {
	QueueTimeout time.Duration
}

// Service classifies and services requests. It keeps no per-request
// state and is safe for concurrent use.
type Service struct {
	timeoutMS int64
	clk       clock.Clock
	disk      storage.Sleeper
	tr        *tracker.Tracker
	log       logrus.FieldLogger
}

// New returns a Service.
//
// It panics if clk or disk is nil. A nil tracker or logger is replaced
// with a private tracker and the standard logger.
func New(cfg Config, clk clock.Clock, disk storage.Sleeper, tr *tracker.Tracker, log logrus.FieldLogger) *Service {
	if clk == nil {
		panic("processor.New: nil clock")
	}
	if disk == nil {
		panic("processor.New: nil sleeper")
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = DefaultQueueTimeout
	}
	if tr == nil {
		tr = &tracker.Tracker{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		timeoutMS: cfg.QueueTimeout.Milliseconds(),
		clk:       clk,
		disk:      disk,
		tr:        tr,
		log:       log,
	}
}

// QueueTimeout returns the effective queue timeout.
func (s *Service) QueueTimeout() time.Duration {
	return time.Duration(s.timeoutMS) * time.Millisecond
}

// Process runs one request through the lifecycle:
//
//	RECEIVED -> TIMED_OUT | PARSE_FAILED | SERVICED
//
// The queue check runs before decoding, so a request that waited too
// long times out whatever its payload. Only a serviced request performs
// the simulated read, and that read cannot be interrupted.
func (s *Service) Process(payload string, arrivalMS int64, dec Decoder) model.Response {
	queueMS := s.clk.NowMillis() - arrivalMS
	if queueMS < 0 {
		// wall clock stepped backwards
		queueMS = 0
	}

	resp := model.Response{
		QueueDelayMS: queueMS,
		TotalTimeMS:  queueMS,
	}

	if queueMS >= s.timeoutMS {
		s.log.WithField("queue_ms", queueMS).Info("timeout (queue)")
		resp.Outcome = model.QueueTimeout
		return resp
	}

	req, err := dec.Decode(payload)
	if err != nil {
		entry := s.log.WithFields(logrus.Fields{
			"kind":  apperr.Kind(err),
			"error": err,
		})
		if apperr.IsDecode(err) {
			entry.Debug("bad request")
		} else {
			entry.Warn("decoder failed")
		}
		resp.Outcome = apperr.Outcome(err)
		return resp
	}
	s.read(req.DelayMS)

	resp.Outcome = model.OK
	resp.TotalTimeMS = addSaturating(queueMS, req.DelayMS)
	resp.ResourcePath = req.ResourcePath
	resp.StatusHint = req.StatusHint
	return resp
}

func (s *Service) read(delayMS int64) {
	s.tr.Inc()
	defer s.tr.Dec()

	storage.Read(s.disk, delayMS)
}

// addSaturating returns a+b for non-negative operands, capped at
// math.MaxInt64.
func addSaturating(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}
