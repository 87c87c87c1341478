package main

import (
	"io"
	"testing"
	"time"
)

func TestHumanSize(t *testing.T) {
	cases := []struct {
		bytes int64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{25 * 1024 * 1024 * 1024, "25.0 GiB"},
	}
	for _, tc := range cases {
		if got := humanSize(tc.bytes); got != tc.want {
			t.Errorf("humanSize(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	start := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(95 * time.Second)
	if got := formatDuration(start, end); got != "1m35s" {
		t.Errorf("formatDuration = %q", got)
	}
	if got := formatDuration(time.Time{}, end); got != "-" {
		t.Errorf("formatDuration zero start = %q", got)
	}
}

func TestIsTerminalRejectsNonFiles(t *testing.T) {
	if isTerminal(io.Discard) {
		t.Fatal("expected io.Discard to be reported as non-terminal")
	}
}
