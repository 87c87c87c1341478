package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerRendersAttrs(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	logger := slog.New(newConsoleHandler(&buf, level))
	logger = NewComponentLogger(logger, "enumerator")
	logger.Info("scan complete", Int("drives", 2), String("first", "E:"))

	line := buf.String()
	for _, want := range []string{"INFO", "scan complete", "component=enumerator", "drives=2", "first=E:"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected output to contain %q, got %q", want, line)
		}
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	logger := slog.New(newConsoleHandler(&buf, level))
	logger.Info("disc", String("label", "THE DARK KNIGHT"))

	if !strings.Contains(buf.String(), `label="THE DARK KNIGHT"`) {
		t.Fatalf("expected quoted label, got %q", buf.String())
	}
}

func TestNoopHandlerDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("expected no-op logger to be disabled at every level")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("nonsense"); got != slog.LevelInfo {
		t.Fatalf("expected info fallback, got %v", got)
	}
	if got := parseLevel("debug"); got != slog.LevelDebug {
		t.Fatalf("expected debug, got %v", got)
	}
}
