package app

import (
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliamunaev/simulated-disk-io-server/internal/config"
)

func testConfig(protocol string) *config.Config {
	cfg := config.Defaults()
	cfg.Protocol = protocol
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.ShutdownTimeout = 5 * time.Second
	return &cfg
}

func send(t *testing.T, addr net.Addr, req string) string {
	t.Helper()

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = io.WriteString(conn, req)
	require.NoError(t, err)

	out, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(out)
}

func runApp(t *testing.T, cfg *config.Config) (net.Addr, context.CancelFunc, <-chan error) {
	t.Helper()

	log, _ := logtest.NewNullLogger()
	a, err := New(cfg, log)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case addr := <-a.Ready():
		return addr, cancel, done
	case err := <-done:
		cancel()
		t.Fatalf("run exited early: %v", err)
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("server did not become ready")
	}
	return nil, cancel, done
}

func TestRun_LineProtocol(t *testing.T) {
	addr, cancel, done := runApp(t, testConfig("line"))

	resp := send(t, addr, "0,20,/foo\n")
	assert.True(t, strings.HasPrefix(resp, "0,"), resp)
	assert.True(t, strings.HasSuffix(resp, ",/foo\n"), resp)

	resp = send(t, addr, "0,abc,/foo\n")
	assert.True(t, strings.HasPrefix(resp, "2,"), resp)
	assert.True(t, strings.HasSuffix(resp, ",\n"), resp)

	cancel()
	assert.NoError(t, <-done)
}

func TestRun_HTTPProtocol(t *testing.T) {
	cfg := testConfig("http")
	cfg.ServerName = "app-test"
	addr, cancel, done := runApp(t, cfg)

	resp := send(t, addr, "GET /0,10,/bar HTTP/1.1\r\nHost: x\r\n\r\n")
	assert.True(t, strings.HasPrefix(resp, "HTTP/1.1 200 OK\r\n"), resp)
	assert.Contains(t, resp, "Server: app-test\r\n")
	assert.True(t, strings.HasSuffix(resp, ",/bar"), resp)

	cancel()
	assert.NoError(t, <-done)
}

func TestRun_BindFailure(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig("line")
	cfg.Port = busy.Addr().(*net.TCPAddr).Port

	a, err := New(cfg, nil)
	require.NoError(t, err)

	err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to create server socket")
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.Error(t, err)

	cfg := testConfig("carrier-pigeon")
	_, err = New(cfg, nil)
	assert.Error(t, err)
}
