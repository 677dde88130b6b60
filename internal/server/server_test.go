package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func TestServer_ShutdownHooksRunInReverseOrder(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(http.NotFoundHandler(), 0, time.Second, time.Second, time.Second, logger)

	var order []string
	for _, name := range []string{"store", "redis", "model"} {
		srv.OnShutdown(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	if err := srv.gracefulShutdown(); err != nil {
		t.Fatalf("gracefulShutdown: %v", err)
	}

	want := []string{"model", "redis", "store"}
	if len(order) != len(want) {
		t.Fatalf("ran %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("ran %v, want %v", order, want)
		}
	}
}

func TestServer_ShutdownCollectsErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(http.NotFoundHandler(), 0, time.Second, time.Second, time.Second, logger)

	errStore := errors.New("store close failed")
	ran := false
	srv.OnShutdown("store", func(context.Context) error { return errStore })
	srv.OnShutdown("redis", func(context.Context) error {
		ran = true
		return nil
	})

	err := srv.gracefulShutdown()
	if !errors.Is(err, errStore) {
		t.Fatalf("expected store error, got %v", err)
	}
	if !ran {
		t.Error("a failing hook must not stop the others")
	}
}

func TestServer_Addr(t *testing.T) {
	srv := New(http.NotFoundHandler(), 9090, time.Second, time.Second, time.Second, slog.Default())
	if srv.Addr() != ":9090" {
		t.Errorf("Addr() = %q, want :9090", srv.Addr())
	}
}
