package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v, err := New(nil)
	require.NoError(t, err)

	cfg, err := Load(v, "")
	require.NoError(t, err)

	want := Defaults()
	assert.Equal(t, &want, cfg)
	assert.Equal(t, ":7000", cfg.Addr())
	assert.Equal(t, 4*time.Second, cfg.QueueTimeout)
	assert.Equal(t, 500, cfg.Backlog)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
protocol: http
host: 127.0.0.1
port: 7100
queue_timeout: 2
backlog: 64
server_name: sim
read_timeout: 1500ms
`), 0o600))

	v, err := New(nil)
	require.NoError(t, err)

	cfg, err := Load(v, path)
	require.NoError(t, err)

	assert.Equal(t, "http", cfg.Protocol)
	assert.Equal(t, "127.0.0.1:7100", cfg.Addr())
	assert.Equal(t, 2*time.Second, cfg.QueueTimeout, "bare numbers are seconds")
	assert.Equal(t, 64, cfg.Backlog)
	assert.Equal(t, "sim", cfg.ServerName)
	assert.Equal(t, 1500*time.Millisecond, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_MissingFile(t *testing.T) {
	v, err := New(nil)
	require.NoError(t, err)

	_, err = Load(v, filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("LATSIM_PORT", "7200")
	t.Setenv("LATSIM_QUEUE_TIMEOUT", "250ms")

	v, err := New(nil)
	require.NoError(t, err)

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 7200, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.QueueTimeout)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("LATSIM_PORT", "7200")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", 7000, "")
	fs.Duration("queue-timeout", 4*time.Second, "")
	fs.String("protocol", "line", "")
	require.NoError(t, fs.Parse([]string{"--port=7300", "--queue-timeout=3s", "--protocol=http"}))

	v, err := New(fs)
	require.NoError(t, err)

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, 7300, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.QueueTimeout)
	assert.Equal(t, "http", cfg.Protocol)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "protocol", mutate: func(c *Config) { c.Protocol = "udp" }},
		{name: "port", mutate: func(c *Config) { c.Port = 70000 }},
		{name: "queue_timeout", mutate: func(c *Config) { c.QueueTimeout = 0 }},
		{name: "backlog", mutate: func(c *Config) { c.Backlog = -1 }},
		{name: "read_timeout", mutate: func(c *Config) { c.ReadTimeout = -time.Second }},
		{name: "shutdown_timeout", mutate: func(c *Config) { c.ShutdownTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.name)
		})
	}

	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestToDuration(t *testing.T) {
	tests := []struct {
		in   interface{}
		want time.Duration
	}{
		{in: 4, want: 4 * time.Second},
		{in: 0.5, want: 500 * time.Millisecond},
		{in: "4", want: 4 * time.Second},
		{in: "4s", want: 4 * time.Second},
		{in: "150ms", want: 150 * time.Millisecond},
		{in: 2 * time.Second, want: 2 * time.Second},
	}

	for _, tt := range tests {
		got, err := toDuration(tt.in)
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}

	_, err := toDuration("soon")
	assert.Error(t, err)
}
