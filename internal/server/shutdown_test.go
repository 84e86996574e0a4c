package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGracefulServer_ShutdownRunsHooks(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(srv, logger, time.Second)

	var calls atomic.Int32
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	gs.RegisterShutdownHook(func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("watcher stuck")
	})

	err := gs.Shutdown(context.Background())
	if err == nil || !strings.Contains(err.Error(), "watcher stuck") {
		t.Fatalf("Shutdown() error = %v, want hook error", err)
	}
	if calls.Load() != 2 {
		t.Errorf("hooks called = %d, want 2", calls.Load())
	}
}

func TestGracefulServer_ListenAndServeStopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(srv, logger, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- gs.ListenAndServe(ctx) }()

	cancel()

	select {
	case err := <-result:
		if err != nil {
			t.Errorf("ListenAndServe() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}
