package tracing

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(false, nil)
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
}

func TestSetup_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(true, &buf)
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "store.query")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "store.query") {
		t.Fatalf("expected span in exporter output, got %q", buf.String())
	}
}
