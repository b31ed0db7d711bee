package tcp

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/iliamunaev/simulated-disk-io-server/internal/codec"
	"github.com/iliamunaev/simulated-disk-io-server/internal/model"
	"github.com/iliamunaev/simulated-disk-io-server/internal/processor"
)

// MaxRequestBytes bounds how much of a connection is read while
// isolating the payload.
const MaxRequestBytes = 64 << 10

type requestProcessor interface {
	Process(payload string, arrivalMS int64, dec processor.Decoder) model.Response
}

// Result reports how one connection was handled.
type Result struct {
	Response model.Response
	Written  bool  // a response was sent
	Err      error // connection-level fault, if any
}

// HandlerFunc serves one accepted connection. The Server closes conn
// after the handler returns.
type HandlerFunc func(conn net.Conn, arrivalMS int64) Result

// NewConnHandler returns a HandlerFunc that reads one payload with c,
// runs it through p and writes the encoded response.
//
// It panics if c or p is nil. A positive readTimeout bounds how long the
// client may take to send its request.
func NewConnHandler(c codec.Codec, p requestProcessor, readTimeout time.Duration) HandlerFunc {
	if c == nil {
		panic("tcp.NewConnHandler: nil codec")
	}
	if p == nil {
		panic("tcp.NewConnHandler: nil processor")
	}

	return func(conn net.Conn, arrivalMS int64) Result {
		if readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		}

		br := bufio.NewReader(io.LimitReader(conn, MaxRequestBytes))
		payload, err := c.ReadPayload(br)
		if err != nil {
			return Result{Err: fmt.Errorf("read request: %w", err)}
		}

		resp := p.Process(payload, arrivalMS, c)

		if err := c.Encode(conn, resp); err != nil {
			return Result{Response: resp, Err: fmt.Errorf("write response: %w", err)}
		}
		return Result{Response: resp, Written: true}
	}
}
