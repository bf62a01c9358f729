package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWithComponentSingleKey(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Component = ComponentWorker
	cfg.Handler = slog.NewTextHandler(&buf, nil)

	logger := New(cfg).WithComponent(ComponentAnalytics)
	logger.Info("cache rebuilt")

	line := buf.String()
	if got := strings.Count(line, FieldComponent+"="); got != 1 {
		t.Fatalf("component key appears %d times in %q, want 1", got, line)
	}
	if !strings.Contains(line, FieldComponent+"="+ComponentAnalytics) {
		t.Fatalf("line %q missing component %q", line, ComponentAnalytics)
	}
}

func TestWithComponentDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Handler = slog.NewTextHandler(&buf, nil)

	parent := New(cfg)
	_ = parent.WithComponent(ComponentHTTP)

	parent.Info("still the app")
	if !strings.Contains(buf.String(), FieldComponent+"="+ComponentApp) {
		t.Fatalf("parent logger component changed: %q", buf.String())
	}
}
