package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliamunaev/simulated-disk-io-server/internal/app"
	"github.com/iliamunaev/simulated-disk-io-server/internal/config"
)

func execute(ctx context.Context, args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestServe_InvalidSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"protocol", []string{"serve", "--protocol", "smtp"}, "invalid config"},
		{"backlog", []string{"serve", "--backlog", "0"}, "backlog must be positive"},
		{"log level", []string{"serve", "--port", "0", "--log", "loud"}, "invalid log level"},
		{"config file", []string{"serve", "--config", "/nonexistent/latsim.yaml"}, "cannot read config"},
		{"args", []string{"serve", "extra"}, "unknown command"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(context.Background(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	out, err := execute(ctx, "serve", "--host", "127.0.0.1", "--port", "0", "--shutdown-timeout", "1s")
	require.NoError(t, err)
	assert.Contains(t, out, "server starting")
	assert.Contains(t, out, "shutting down")
}

func TestLoad_RequiresWorkload(t *testing.T) {
	t.Parallel()

	_, err := execute(context.Background(), "load")
	assert.ErrorContains(t, err, "--workload is required")
}

func TestLoad_PrintsSummary(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0

	log, _ := logtest.NewNullLogger()
	a, err := app.New(&cfg, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	var addr string
	select {
	case bound := <-a.Ready():
		addr = bound.String()
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start")
	}

	path := filepath.Join(t.TempDir(), "workload.yaml")
	doc := fmt.Sprintf(`address: %s
iterations: 2
concurrency: 2
requests:
  - {status: 0, delay_ms: 10, path: /a}
  - {raw: "oops\n"}
`, addr)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	out, err := execute(context.Background(), "load", "--workload", path)
	require.NoError(t, err)
	assert.Contains(t, out, "requests: 4\n")
	assert.Contains(t, out, "ok: 2\n")
	assert.Contains(t, out, "bad_request: 2\n")
	assert.Contains(t, out, "errors: 0\n")
}
