package main

import (
	"context"
	"strings"
	"testing"
)

// executeContext runs the command tree with args under ctx.
func executeContext(ctx context.Context, args ...string) error {
	root := newRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func TestMigrate_RejectsUnknownDirection(t *testing.T) {
	err := executeContext(context.Background(), "--config-dir", t.TempDir(), "migrate", "sideways")
	if err == nil || !strings.Contains(err.Error(), "sideways") {
		t.Fatalf("expected unknown direction error, got %v", err)
	}
}

func TestServe_MemoryStoreStopsOnCancel(t *testing.T) {
	t.Setenv("ANALYTICS_STORE_DRIVER", "memory")
	t.Setenv("ANALYTICS_STORE_FIXTURE", "../../configs/fixture.yaml")
	t.Setenv("ANALYTICS_HTTP_LISTEN", "127.0.0.1:0")
	t.Setenv("ANALYTICS_LOG_LEVEL", "error")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := executeContext(ctx, "--config-dir", t.TempDir(), "serve"); err != nil {
		t.Fatalf("serve returned error: %v", err)
	}
}

func TestServe_BadFixture(t *testing.T) {
	t.Setenv("ANALYTICS_STORE_DRIVER", "memory")
	t.Setenv("ANALYTICS_STORE_FIXTURE", "does-not-exist.yaml")
	t.Setenv("ANALYTICS_LOG_LEVEL", "error")

	err := executeContext(context.Background(), "--config-dir", t.TempDir(), "serve")
	if err == nil || !strings.Contains(err.Error(), "does-not-exist.yaml") {
		t.Fatalf("expected fixture error, got %v", err)
	}
}
