package loadgen

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/iliamunaev/simulated-disk-io-server/internal/codec"
	"github.com/iliamunaev/simulated-disk-io-server/internal/model"
)

// maxResponseBytes bounds how much of a reply the client will buffer.
const maxResponseBytes = 64 << 10

// Record is what one client observed for one request.
type Record struct {
	Request Request
	Outcome model.Outcome
	// Code is the raw response code: the line code or the HTTP status.
	Code          int
	TotalMS       int64
	Path          string
	Elapsed       time.Duration
	ClientTimeout bool
	Err           error
}

// EncodeRequest renders req for the given wire variant.
func EncodeRequest(protocol, host string, req Request) string {
	if req.Raw != "" {
		return req.Raw
	}
	envelope := fmt.Sprintf("%d,%d,%s", req.Status, req.DelayMS, req.Path)
	if protocol == codec.ProtocolHTTP {
		return fmt.Sprintf("GET /%s HTTP/1.1\r\nHost: %s\r\n\r\n", envelope, host)
	}
	return envelope + "\n"
}

// Client sends single requests, one connection each.
type Client struct {
	Protocol      string
	Address       string
	ClientTimeout time.Duration

	dialer net.Dialer
}

// NewClient returns a client for the workload's server.
func NewClient(w Workload) *Client {
	return &Client{
		Protocol:      w.Protocol,
		Address:       w.Address,
		ClientTimeout: w.ClientTimeout,
	}
}

// Do dials, writes req, reads until the server closes, and parses the
// reply. Transport and parse failures are reported in Record.Err.
func (c *Client) Do(ctx context.Context, req Request) (rec Record) {
	rec.Request = req
	start := time.Now()
	defer func() {
		rec.Elapsed = time.Since(start)
		rec.ClientTimeout = c.ClientTimeout > 0 && rec.Elapsed > c.ClientTimeout
	}()

	conn, err := c.dialer.DialContext(ctx, "tcp", c.Address)
	if err != nil {
		rec.Err = fmt.Errorf("dial: %w", err)
		return rec
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	host, _, _ := net.SplitHostPort(c.Address)
	if _, err := io.WriteString(conn, EncodeRequest(c.Protocol, host, req)); err != nil {
		rec.Err = fmt.Errorf("write request: %w", err)
		return rec
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}

	raw, err := io.ReadAll(io.LimitReader(conn, maxResponseBytes))
	if err != nil {
		rec.Err = fmt.Errorf("read response: %w", err)
		return rec
	}

	if c.Protocol == codec.ProtocolHTTP {
		err = parseHTTP(raw, &rec)
	} else {
		err = parseLine(raw, &rec)
	}
	if err != nil {
		rec.Err = fmt.Errorf("parse response: %w", err)
	}
	return rec
}

// parseLine reads "<code>,<total>,<path>\n". A serviced request echoes
// its status hint as the code, so a non-empty path is the reliable OK
// signal; failures always carry an empty path.
func parseLine(raw []byte, rec *Record) error {
	s := strings.TrimRight(string(raw), "\r\n")
	if s == "" {
		return errors.New("empty response")
	}
	parts := strings.SplitN(s, ",", 3)
	if len(parts) != 3 {
		return fmt.Errorf("malformed line %q", s)
	}
	code, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("code %q: %w", parts[0], err)
	}
	total, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("total %q: %w", parts[1], err)
	}

	rec.Code, rec.TotalMS, rec.Path = code, total, parts[2]
	switch {
	case rec.Path != "":
		rec.Outcome = model.OK
	case code == model.QueueTimeout.Code():
		rec.Outcome = model.QueueTimeout
	case code == model.BadRequest.Code():
		rec.Outcome = model.BadRequest
	default:
		rec.Outcome = model.OK
	}
	return nil
}

func parseHTTP(raw []byte, rec *Record) error {
	resp, err := http.ReadResponse(bufio.NewReader(strings.NewReader(string(raw))), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	rec.Code = resp.StatusCode
	switch resp.StatusCode {
	case http.StatusOK:
		rec.Outcome = model.OK
	case http.StatusRequestTimeout:
		rec.Outcome = model.QueueTimeout
	case http.StatusBadRequest:
		rec.Outcome = model.BadRequest
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	total, path, ok := strings.Cut(string(body), ",")
	if !ok {
		return fmt.Errorf("malformed body %q", body)
	}
	rec.TotalMS, err = strconv.ParseInt(total, 10, 64)
	if err != nil {
		return fmt.Errorf("total %q: %w", total, err)
	}
	rec.Path = path
	return nil
}
