package deps

import (
	"os"
	"path/filepath"
	"testing"

	"platter/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatal("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatal("expected detail message for missing binary")
	}
}

func TestCheckBinariesUnconfigured(t *testing.T) {
	results := CheckBinaries([]Requirement{{Name: "Empty"}})
	if len(results) != 1 || results[0].Available {
		t.Fatalf("unexpected results: %#v", results)
	}
	if results[0].Detail != "command not configured" {
		t.Fatalf("unexpected detail: %s", results[0].Detail)
	}
}

func TestRequirementsFollowConfig(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(&cfg)
	if len(reqs) != 1 || reqs[0].Name != "MakeMKV" {
		t.Fatalf("unexpected requirements: %#v", reqs)
	}

	cfg.Identification.Enabled = true
	cfg.Identification.Command = "/usr/local/bin/identify --json"
	reqs = Requirements(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected identifier requirement, got %#v", reqs)
	}
	if reqs[1].Command != "/usr/local/bin/identify" {
		t.Fatalf("expected executable without arguments, got %q", reqs[1].Command)
	}
	if !reqs[1].Optional {
		t.Fatal("expected identifier requirement to be optional")
	}
}
