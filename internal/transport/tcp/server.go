// Package tcp accepts connections, stamps their arrival time and serves
// each one on its own goroutine.
//
// There is no worker pool and no admission control: the only bound on
// concurrency is the listen backlog.
package tcp

import (
	"context"
	"errors"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliamunaev/simulated-disk-io-server/internal/clock"
	"github.com/iliamunaev/simulated-disk-io-server/internal/service/tracker"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// ErrServerClosed is returned by Serve after Shutdown.
var ErrServerClosed = errors.New("tcp: server closed")

// Server is the accept loop.
type Server struct {
	handler  HandlerFunc
	clk      clock.Clock
	inflight *tracker.Tracker
	log      logrus.FieldLogger

	mu        sync.Mutex
	listeners map[net.Listener]struct{}
	closing   bool
	wg        sync.WaitGroup
}

// NewServer returns a Server that dispatches accepted connections to h.
//
// It panics if h or clk is nil.
func NewServer(h HandlerFunc, clk clock.Clock, inflight *tracker.Tracker, log logrus.FieldLogger) *Server {
	if h == nil {
		panic("tcp.NewServer: nil handler")
	}
	if clk == nil {
		panic("tcp.NewServer: nil clock")
	}
	if inflight == nil {
		inflight = &tracker.Tracker{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		handler:   h,
		clk:       clk,
		inflight:  inflight,
		log:       log,
		listeners: make(map[net.Listener]struct{}),
	}
}

// Serve accepts connections on ln until Shutdown is called. Accept errors
// are logged and retried with backoff; they never stop the loop.
func (s *Server) Serve(ln net.Listener) error {
	if !s.track(ln) {
		_ = ln.Close()
		return ErrServerClosed
	}
	defer s.untrack(ln)

	s.log.WithField("addr", ln.Addr().String()).Info("listening")

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.shuttingDown() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			backoff = nextBackoff(backoff)
			s.log.WithError(err).Warnf("accept error; retrying in %v", backoff)
			time.Sleep(backoff)
			continue
		}
		arrivalMS := s.clk.NowMillis()
		backoff = 0

		if !s.startConn() {
			_ = conn.Close()
			return ErrServerClosed
		}
		go s.serveConn(conn, arrivalMS)
	}
}

// Shutdown closes all listeners and waits for in-flight connections.
// Simulated reads are not interrupted; if ctx ends first its error is
// returned and the remaining handlers keep running.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	for ln := range s.listeners {
		_ = ln.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InFlight returns the number of connections being served.
func (s *Server) InFlight() int64 { return s.inflight.Running() }

func (s *Server) serveConn(conn net.Conn, arrivalMS int64) {
	defer s.wg.Done()

	n := s.inflight.Inc()
	defer s.inflight.Dec()

	remote := conn.RemoteAddr().String()
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{
				"remote": remote,
				"panic":  r,
			}).Errorf("panic serving connection\n%s", debug.Stack())
		}
	}()
	defer conn.Close()

	res := s.handler(conn, arrivalMS)
	if res.Err != nil {
		s.log.WithFields(logrus.Fields{
			"remote":   remote,
			"inflight": n,
		}).WithError(res.Err).Warn("connection fault")
	}
}

func (s *Server) track(ln net.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.listeners[ln] = struct{}{}
	return true
}

func (s *Server) untrack(ln net.Listener) {
	s.mu.Lock()
	delete(s.listeners, ln)
	s.mu.Unlock()
}

// startConn registers a connection with the shutdown wait group unless
// shutdown has begun.
func (s *Server) startConn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Server) shuttingDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	d *= 2
	if d > maxAcceptBackoff {
		d = maxAcceptBackoff
	}
	return d
}
