package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/driftwatch/server/internal/config"
	"github.com/driftwatch/server/internal/server"
)

func TestServer(t *testing.T) {
	// Skip integration tests unless explicitly enabled
	if os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("Integration tests disabled. Set INTEGRATION_TESTS=1 to run.")
	}

	cfg := config.Default()
	cfg.RootDir = t.TempDir()

	srv, err := server.NewServer(cfg)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Failed to start server: %v", err)
	}
	defer srv.Stop()

	// Give the transport a moment to come up before tearing down.
	time.Sleep(1 * time.Second)
}
