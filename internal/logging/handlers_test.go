package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeLoggerWritesToAll(t *testing.T) {
	var a, b bytes.Buffer
	infoLevel := new(slog.LevelVar)
	warnLevel := new(slog.LevelVar)
	warnLevel.Set(slog.LevelWarn)

	tee := TeeLogger(
		slog.New(newConsoleHandler(&a, infoLevel, false)),
		nil,
		slog.New(newConsoleHandler(&b, warnLevel, false)),
	)
	tee = tee.With(String("device", "/dev/sr0"))
	tee.Info("inserted")
	tee.Warn("removed")

	if got := strings.Count(a.String(), "\n"); got != 2 {
		t.Fatalf("first logger lines = %d, want 2: %q", got, a.String())
	}
	if strings.Contains(b.String(), "inserted") || !strings.Contains(b.String(), "removed") {
		t.Fatalf("second logger should only see warnings: %q", b.String())
	}
	if !strings.Contains(b.String(), "device=/dev/sr0") {
		t.Fatalf("With attrs should reach every handler: %q", b.String())
	}
}

func TestTeeLoggerDegenerateCases(t *testing.T) {
	if TeeLogger() != nil {
		t.Fatal("expected nil for no loggers")
	}
	if TeeLogger(nil, nil) != nil {
		t.Fatal("expected nil when every logger is nil")
	}
	single := NewNop()
	if got := TeeLogger(single); got.Handler() != single.Handler() {
		t.Fatal("single logger should be reused")
	}
}

func TestWithSession(t *testing.T) {
	var buf bytes.Buffer
	h := WithSession(newConsoleHandler(&buf, new(slog.LevelVar), false), "abc")
	slog.New(h).Info("started")
	if !strings.Contains(buf.String(), "session_id=abc") {
		t.Fatalf("expected session id, got %q", buf.String())
	}
	if WithSession(nil, "abc") != nil {
		t.Fatal("nil handler should pass through")
	}
}
