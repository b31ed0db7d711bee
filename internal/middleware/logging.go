// Package middleware wraps connection handlers with diagnostics.
package middleware

import (
	"net"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliamunaev/simulated-disk-io-server/internal/transport/tcp"
)

// countingConn records how many bytes the handler wrote.
type countingConn struct {
	net.Conn
	bytes int
}

func (c *countingConn) Write(b []byte) (int, error) {
	n, err := c.Conn.Write(b)
	c.bytes += n
	return n, err
}

var connID atomic.Uint64

// Logging assigns each connection an ID and logs one line per
// connection at debug level once the handler returns.
func Logging(log logrus.FieldLogger, protocol string, next tcp.HandlerFunc) tcp.HandlerFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(conn net.Conn, arrivalMS int64) tcp.Result {
		id := connID.Add(1)
		start := time.Now()
		rec := &countingConn{Conn: conn}

		res := next(rec, arrivalMS)

		entry := log.WithFields(logrus.Fields{
			"conn_id":  id,
			"remote":   conn.RemoteAddr().String(),
			"protocol": protocol,
			"outcome":  res.Response.Outcome.String(),
			"queue_ms": res.Response.QueueDelayMS,
			"total_ms": res.Response.TotalTimeMS,
			"path":     res.Response.ResourcePath,
			"bytes":    rec.bytes,
			"duration": time.Since(start),
		})
		if res.Err != nil {
			entry.WithError(res.Err).Debug("connection aborted")
		} else {
			entry.Debug("request served")
		}
		return res
	}
}
