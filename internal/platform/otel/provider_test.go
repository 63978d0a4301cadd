package otel_test

import (
	"context"
	"testing"

	"github.com/louisbranch/lodestone/internal/platform/otel"
)

func setupNoop(t *testing.T, endpoint, enabled string) func(context.Context) error {
	t.Helper()
	t.Setenv("LODESTONE_OTEL_ENDPOINT", endpoint)
	t.Setenv("LODESTONE_OTEL_ENABLED", enabled)

	shutdown, err := otel.Setup(context.Background(), "miner-test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return shutdown
}

func TestSetupIsNoopWithoutEndpoint(t *testing.T) {
	shutdown := setupNoop(t, "", "")
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestSetupIsNoopWhenDisabled(t *testing.T) {
	shutdown := setupNoop(t, "http://localhost:4318", "false")
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown: %v", err)
	}
}

func TestSetupRegistersProviderWithEndpoint(t *testing.T) {
	// Non-routable address; spans are never flushed anywhere.
	shutdown := setupNoop(t, "http://192.0.2.1:4318", "")
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNoopShutdownIgnoresCanceledContext(t *testing.T) {
	shutdown := setupNoop(t, "", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := shutdown(ctx); err != nil {
		t.Fatalf("noop shutdown with canceled context: %v", err)
	}
}
