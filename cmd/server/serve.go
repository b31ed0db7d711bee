package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliamunaev/simulated-disk-io-server/internal/app"
	"github.com/iliamunaev/simulated-disk-io-server/internal/config"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept connections and answer simulated read requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.New(cmd.Flags())
			if err != nil {
				return err
			}
			if err := v.BindPFlag(config.KeyLogLevel, cmd.Flags().Lookup("log")); err != nil {
				return fmt.Errorf("cannot bind flag log: %w", err)
			}

			cfg, err := config.Load(v, configPath)
			if err != nil {
				return err
			}

			log, err := newLogger(cmd, cfg.LogLevel)
			if err != nil {
				return err
			}

			a, err := app.New(cfg, log)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.Run(ctx)
		},
	}

	d := config.Defaults()
	f := cmd.Flags()
	f.StringVar(&configPath, "config", "", "Optional config file (yaml, json, toml)")
	f.String("protocol", d.Protocol, "Wire variant: line or http")
	f.String("host", d.Host, "Listen host; empty listens on all interfaces")
	f.Int("port", d.Port, "Listen port")
	f.Duration("queue-timeout", d.QueueTimeout, "Reject requests that waited at least this long before service")
	f.Int("backlog", d.Backlog, "Listen backlog")
	f.String("server-name", d.ServerName, "Server header for the http variant")
	f.Duration("read-timeout", d.ReadTimeout, "Max time to receive a request; 0 disables")
	f.Duration("shutdown-timeout", d.ShutdownTimeout, "Max time to wait for in-flight requests on shutdown; 0 waits indefinitely")
	f.String("log", d.LogLevel, "Log level (trace, debug, info, warn, error, fatal, panic)")

	return cmd
}

// newLogger returns a text logger writing to the command's stderr.
func newLogger(cmd *cobra.Command, level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(lvl)
	return log, nil
}
