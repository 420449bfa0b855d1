package telemetry

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestProviderExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	p, err := New(Config{Enabled: true, Output: &buf, ServiceVersion: "1.2.3"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, parent := p.Start(context.Background(), "render", attribute.String("pdf", "a.pdf"))
	_, child := p.Start(ctx, "page", attribute.Int("page", 1))
	End(child, errors.New("page failed"))
	End(parent, nil)

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"Name": "render"`, `"Name": "page"`, "page failed", "1.2.3"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in exported spans", want)
		}
	}
}

func TestNoopProvider(t *testing.T) {
	p, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, span := p.Start(context.Background(), "noop")
	if span.IsRecording() {
		t.Error("noop span should not record")
	}
	End(span, errors.New("ignored"))

	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}
