package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliamunaev/simulated-disk-io-server/internal/loadgen"
	"github.com/iliamunaev/simulated-disk-io-server/internal/model"
)

func newLoadCmd() *cobra.Command {
	var (
		workloadPath string
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Replay a workload file against a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if workloadPath == "" {
				return errors.New("--workload is required")
			}
			log, err := newLogger(cmd, logLevel)
			if err != nil {
				return err
			}

			w, err := loadgen.LoadWorkload(workloadPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.WithFields(logrus.Fields{
				"address":     w.Address,
				"protocol":    w.Protocol,
				"iterations":  w.Iterations,
				"concurrency": w.Concurrency,
			}).Info("load starting")

			recs, runErr := loadgen.NewRunner(w, log).Run(ctx)
			s := loadgen.Summarize(recs)
			printSummary(cmd, s)

			if runErr != nil {
				return runErr
			}
			if s.Errors > 0 {
				return fmt.Errorf("%d of %d requests failed", s.Errors, s.Requests)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&workloadPath, "workload", "", "Workload YAML file")
	cmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	return cmd
}

func printSummary(cmd *cobra.Command, s loadgen.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "requests: %d\n", s.Requests)
	for _, o := range []model.Outcome{model.OK, model.QueueTimeout, model.BadRequest} {
		fmt.Fprintf(out, "%s: %d\n", o, s.Outcomes[o])
	}
	fmt.Fprintf(out, "errors: %d\n", s.Errors)
	fmt.Fprintf(out, "client_timeouts: %d\n", s.ClientTimeouts)
	fmt.Fprintf(out, "max_elapsed: %v\n", s.MaxElapsed)
}
