package logger

import (
	"bytes"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetOutputRedirectsRecords(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stderr) })

	Warn("summary fetch failed", "generation", 3)

	got := buf.String()
	if !strings.Contains(got, "summary fetch failed") {
		t.Errorf("expected message in output, got %q", got)
	}
	if !strings.Contains(got, "generation=3") {
		t.Errorf("expected attribute in output, got %q", got)
	}
}

func TestDebugHiddenUntilVerbose(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	prev := level.Level()
	t.Cleanup(func() {
		level.Set(prev)
		SetOutput(os.Stderr)
	})
	level.Set(slog.LevelInfo)

	Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record written at info level: %q", buf.String())
	}

	SetVerbose(true)
	Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("expected debug record after SetVerbose, got %q", buf.String())
	}
}
