package httpserver_test

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/restauth/pkg/httpserver"
)

func startServer(t *testing.T, ctx context.Context, srv *httpserver.Server, started <-chan string, h http.Handler) (string, <-chan error) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, h) }()

	select {
	case addr := <-started:
		return addr, done
	case err := <-done:
		require.FailNow(t, "run returned early", "%v", err)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "server did not start")
	}
	return "", done
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err, "run")
	case <-time.After(2 * time.Second):
		require.Fail(t, "run did not finish")
	}
}

func TestRunAndCancel(t *testing.T) {
	t.Parallel()

	started := make(chan string, 1)
	srv := httpserver.New(
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithShutdownTimeout(100*time.Millisecond),
		httpserver.WithoutSignals(),
		httpserver.WithStartHook(func(addr string) { started <- addr }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, done := startServer(t, ctx, srv, started, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	resp, err := http.Get("http://" + addr)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()
	waitDone(t, done)
	require.NoError(t, srv.Shutdown(context.Background()), "shutdown after run is a no-op")
}

func TestManualShutdownRunsStopHooks(t *testing.T) {
	t.Parallel()

	started := make(chan string, 1)
	var stopped atomic.Int32
	srv := httpserver.New(
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithoutSignals(),
		httpserver.WithStartHook(func(addr string) { started <- addr }),
		httpserver.WithStopHook(func() { stopped.Add(1) }),
	)

	_, done := startServer(t, context.Background(), srv, started, http.NewServeMux())

	require.NoError(t, srv.Shutdown(context.Background()))
	require.NoError(t, srv.Shutdown(context.Background()))
	waitDone(t, done)
	assert.Equal(t, int32(1), stopped.Load())
}

func TestStartError(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.WithAddr(":invalid"), httpserver.WithoutSignals())
	err := srv.Run(context.Background(), http.NewServeMux())
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestAlreadyRunning(t *testing.T) {
	t.Parallel()

	started := make(chan string, 1)
	srv := httpserver.New(
		httpserver.WithAddr("127.0.0.1:0"),
		httpserver.WithShutdownTimeout(50*time.Millisecond),
		httpserver.WithoutSignals(),
		httpserver.WithStartHook(func(addr string) { started <- addr }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	_, done := startServer(t, ctx, srv, started, http.NewServeMux())

	err := srv.Run(context.Background(), http.NewServeMux())
	assert.ErrorIs(t, err, httpserver.ErrStart)

	cancel()
	waitDone(t, done)
}

func TestShutdownBeforeRun(t *testing.T) {
	t.Parallel()
	assert.NoError(t, httpserver.New().Shutdown(context.Background()))
}

func TestOptionPanics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func()
	}{
		{"addr", func() { httpserver.WithAddr("") }},
		{"read", func() { httpserver.WithReadTimeout(-time.Second) }},
		{"read header", func() { httpserver.WithReadHeaderTimeout(0) }},
		{"write", func() { httpserver.WithWriteTimeout(-time.Second) }},
		{"idle", func() { httpserver.WithIdleTimeout(-time.Second) }},
		{"shutdown", func() { httpserver.WithShutdownTimeout(-time.Second) }},
		{"start hook", func() { httpserver.WithStartHook(nil) }},
		{"stop hook", func() { httpserver.WithStopHook(nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Panics(t, tt.fn)
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	started := make(chan string, 1)
	srv := httpserver.NewFromConfig(httpserver.Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second},
		httpserver.WithoutSignals(),
		httpserver.WithStartHook(func(addr string) { started <- addr }),
	)
	ctx, cancel := context.WithCancel(context.Background())
	addr, done := startServer(t, ctx, srv, started, http.NewServeMux())
	assert.NotEqual(t, "127.0.0.1:0", addr)

	cancel()
	waitDone(t, done)
}
