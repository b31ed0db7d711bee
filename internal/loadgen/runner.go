package loadgen

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliamunaev/simulated-disk-io-server/internal/model"
	"github.com/iliamunaev/simulated-disk-io-server/internal/service/pool"
)

// Summary aggregates the records of one run on the client side.
type Summary struct {
	Requests       int
	Outcomes       map[model.Outcome]int
	ClientTimeouts int
	Errors         int
	MaxElapsed     time.Duration
}

// Summarize folds records into a Summary. Failed records count only as
// errors.
func Summarize(recs []Record) Summary {
	s := Summary{Requests: len(recs), Outcomes: make(map[model.Outcome]int)}
	for _, r := range recs {
		if r.Elapsed > s.MaxElapsed {
			s.MaxElapsed = r.Elapsed
		}
		if r.ClientTimeout {
			s.ClientTimeouts++
		}
		if r.Err != nil {
			s.Errors++
			continue
		}
		s.Outcomes[r.Outcome]++
	}
	return s
}

// Runner replays a workload.
type Runner struct {
	w      Workload
	client *Client
	pool   *pool.Pool
	log    logrus.FieldLogger
}

// NewRunner prepares a run of w. A nil log uses the standard logger.
func NewRunner(w Workload, log logrus.FieldLogger) *Runner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Runner{
		w:      w,
		client: NewClient(w),
		pool:   pool.New(w.Concurrency),
		log:    log,
	}
}

// Run sends every request of the workload Iterations times with at most
// Concurrency connections open at once. Records are returned in
// submission order; a canceled run returns only the requests it sent.
// Per-request failures are recorded rather than aborting the run; only
// ctx cancellation stops it early.
func (r *Runner) Run(ctx context.Context) ([]Record, error) {
	total := r.w.Iterations * len(r.w.Requests)
	recs := make([]Record, total)

	g, gctx := errgroup.WithContext(ctx)
	sent := 0
	for i := 0; i < total; i++ {
		if err := r.pool.Acquire(gctx); err != nil {
			break
		}
		sent++
		i := i
		req := r.w.Requests[i%len(r.w.Requests)]
		g.Go(func() error {
			defer r.pool.Release()

			rec := r.client.Do(gctx, req)
			recs[i] = rec
			r.logRecord(i, rec)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return recs[:sent], err
	}
	return recs[:sent], ctx.Err()
}

func (r *Runner) logRecord(i int, rec Record) {
	fields := logrus.Fields{
		"seq":     i,
		"elapsed": rec.Elapsed,
	}
	if rec.Err != nil {
		r.log.WithFields(fields).WithError(rec.Err).Warn("request failed")
		return
	}
	fields["outcome"] = rec.Outcome.String()
	fields["code"] = rec.Code
	fields["total_ms"] = rec.TotalMS
	fields["path"] = rec.Path
	if rec.ClientTimeout {
		r.log.WithFields(fields).Warnf("client timeout after %v", rec.Elapsed)
		return
	}
	r.log.WithFields(fields).Debug("response")
}
