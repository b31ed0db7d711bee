// Package app wires the configured codec, processor and acceptor into a
// runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliamunaev/simulated-disk-io-server/internal/clock"
	"github.com/iliamunaev/simulated-disk-io-server/internal/codec"
	"github.com/iliamunaev/simulated-disk-io-server/internal/config"
	"github.com/iliamunaev/simulated-disk-io-server/internal/middleware"
	"github.com/iliamunaev/simulated-disk-io-server/internal/processor"
	"github.com/iliamunaev/simulated-disk-io-server/internal/service/storage"
	"github.com/iliamunaev/simulated-disk-io-server/internal/service/tracker"
	"github.com/iliamunaev/simulated-disk-io-server/internal/transport/tcp"
)

// App is a configured, not yet listening server.
type App struct {
	cfg    config.Config
	log    logrus.FieldLogger
	reads  *tracker.Tracker
	Server *tcp.Server

	ready chan net.Addr
}

// New builds an App from cfg. The config is copied and never mutated.
func New(cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app.New: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("protocol", cfg.Protocol)

	c, err := codec.ByName(cfg.Protocol, cfg.ServerName)
	if err != nil {
		return nil, err
	}

	clk := clock.System{}
	reads := &tracker.Tracker{}
	proc := processor.New(processor.Config{QueueTimeout: cfg.QueueTimeout}, clk, storage.Disk{}, reads, log)

	h := middleware.Logging(log, c.Name(), tcp.NewConnHandler(c, proc, cfg.ReadTimeout))

	return &App{
		cfg:    *cfg,
		log:    log,
		reads:  reads,
		Server: tcp.NewServer(h, clk, nil, log),
		ready:  make(chan net.Addr, 1),
	}, nil
}

// Ready yields the bound listen address once Run has opened it.
func (a *App) Ready() <-chan net.Addr { return a.ready }

// Run binds the listener and serves until ctx is canceled, then shuts
// down, waiting up to the configured shutdown timeout for in-flight
// requests. A zero timeout waits for all of them. A bind failure is
// returned immediately.
func (a *App) Run(ctx context.Context) error {
	ln, err := tcp.Listen(ctx, a.cfg.Addr(), a.cfg.Backlog)
	if err != nil {
		return fmt.Errorf("unable to create server socket on %s: %w", a.cfg.Addr(), err)
	}
	a.ready <- ln.Addr()

	a.log.WithFields(logrus.Fields{
		"addr":          ln.Addr().String(),
		"queue_timeout": a.cfg.QueueTimeout,
		"backlog":       a.cfg.Backlog,
	}).Info("server starting")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, tcp.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx := context.Background()
		if a.cfg.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(shutdownCtx, a.cfg.ShutdownTimeout)
			defer cancel()
		}

		a.log.WithFields(logrus.Fields{
			"inflight": a.Server.InFlight(),
			"reads":    a.reads.Running(),
		}).Info("shutting down")

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			a.log.WithError(err).WithField("inflight", a.Server.InFlight()).Warn("shutdown incomplete")
			return err
		}
		return nil
	})

	return g.Wait()
}
