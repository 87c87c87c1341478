package fingerprint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func rooted(dir string) Option {
	return WithRoot(func(string) string { return dir })
}

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestCapturePrefersContentHashFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AACS/ContentHash000.hsh", "hash-table-0")
	writeFile(t, dir, "AACS/ContentHash001.hsh", "hash-table-1")
	writeFile(t, dir, "CERTIFICATE/id.bdmv", "BDID")

	fp := New(0, rooted(dir)).Capture(context.Background(), "E", "MOVIE")
	if fp.Type != TypeContentID {
		t.Fatalf("expected content-id, got %v", fp.Type)
	}
	if fp.ContentID == "" {
		t.Fatal("expected non-empty content hash")
	}
	if fp.CapturedAt.IsZero() {
		t.Fatal("expected capture timestamp")
	}

	again := New(0, rooted(dir)).Capture(context.Background(), "E", "MOVIE")
	if again.ContentID != fp.ContentID {
		t.Fatalf("content hash not deterministic: %q vs %q", again.ContentID, fp.ContentID)
	}
}

func TestCaptureParsesDiscIDLayout(t *testing.T) {
	dir := t.TempDir()
	raw := make([]byte, 64)
	copy(raw, "BDID")
	copy(raw[40:], []byte{0xDE, 0xAD, 0xBE, 0xEF})
	for i := 44; i < 64; i++ {
		raw[i] = byte(i)
	}
	writeFile(t, dir, "CERTIFICATE/id.bdmv", string(raw))

	fp := New(0, rooted(dir)).Capture(context.Background(), "E", "MOVIE")
	if fp.Type != TypeDiscID {
		t.Fatalf("expected disc-id, got %v", fp.Type)
	}
	if fp.OrganizationID != "deadbeef" {
		t.Fatalf("unexpected organization id: %q", fp.OrganizationID)
	}
	if len(fp.DiscID) != 40 {
		t.Fatalf("expected 20-byte disc id in hex, got %q", fp.DiscID)
	}
}

func TestCaptureReadsEmbeddedBluRayTitle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "BDMV/META/DL/bdmt_eng.xml",
		`<?xml version="1.0"?><disclib><di:discinfo><di:title><di:name> The Dark Knight </di:name></di:title></di:discinfo></disclib>`)

	fp := New(0, rooted(dir)).Capture(context.Background(), "E", "LOGICAL_VOLUME_ID")
	if fp.Type != TypeEmbeddedTitle {
		t.Fatalf("expected embedded-title, got %v", fp.Type)
	}
	if fp.EmbeddedTitle != "The Dark Knight" {
		t.Fatalf("unexpected title: %q", fp.EmbeddedTitle)
	}
}

func TestCaptureUsesVolumeLabelForDVD(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "VIDEO_TS/VTS_01_0.IFO", "ifo")

	fp := New(0, rooted(dir)).Capture(context.Background(), "E", "HOME_MOVIES")
	if fp.Type != TypeEmbeddedTitle || fp.EmbeddedTitle != "HOME_MOVIES" {
		t.Fatalf("unexpected fingerprint: %+v", fp)
	}
}

func TestCaptureFallsBackToManifest(t *testing.T) {
	build := func() string {
		dir := t.TempDir()
		writeFile(t, dir, "VIDEO_TS/VTS_01_0.IFO", "ifo contents")
		writeFile(t, dir, "VIDEO_TS/VTS_01_1.VOB", "vob contents")
		return dir
	}

	// "Unknown Disc" carries no identity, so the label strategy must not fire.
	first := New(0, rooted(build())).Capture(context.Background(), "E", "Unknown Disc")
	if first.Type != TypeCRC64 {
		t.Fatalf("expected crc64 fallback, got %v", first.Type)
	}
	if first.CRC64 == "" {
		t.Fatal("expected non-empty manifest hash")
	}

	second := New(0, rooted(build())).Capture(context.Background(), "E", "Unknown Disc")
	if second.CRC64 != first.CRC64 {
		t.Fatalf("manifest hash not deterministic: %q vs %q", second.CRC64, first.CRC64)
	}
}

func TestCaptureDegradesToUnknown(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")

	fp := New(time.Second, rooted(dir)).Capture(context.Background(), "E", "MOVIE")
	if fp.Type != TypeUnknown {
		t.Fatalf("expected unknown, got %v", fp.Type)
	}
	if fp.Error == "" {
		t.Fatal("expected degradation cause")
	}
	if fp.CapturedAt.IsZero() {
		t.Fatal("expected capture timestamp even when degraded")
	}
}

type staticLookup struct {
	match Match
	ok    bool
	err   error
	key   string
}

func (l *staticLookup) Lookup(_ context.Context, hash string) (Match, bool, error) {
	l.key = hash
	return l.match, l.ok, l.err
}

func TestCaptureQueriesMatchCacheOnContentHash(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AACS/ContentHash000.hsh", "hash-table")

	lookup := &staticLookup{match: Match{Title: "Inception", Year: 2010}, ok: true}
	fp := New(0, rooted(dir), WithLookup(lookup)).Capture(context.Background(), "E", "MOVIE")

	if fp.ARMMatch == nil || fp.ARMMatch.Title != "Inception" || fp.ARMMatch.Year != 2010 {
		t.Fatalf("expected cache match attached, got %+v", fp.ARMMatch)
	}
	if lookup.key != fp.ContentID {
		t.Fatalf("lookup keyed by %q, want %q", lookup.key, fp.ContentID)
	}
}

func TestCaptureSurvivesLookupFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "AACS/ContentHash000.hsh", "hash-table")

	lookup := &staticLookup{err: errors.New("cache unavailable")}
	fp := New(0, rooted(dir), WithLookup(lookup)).Capture(context.Background(), "E", "MOVIE")

	if fp.Type != TypeContentID {
		t.Fatalf("expected content-id despite lookup failure, got %v", fp.Type)
	}
	if fp.ARMMatch != nil {
		t.Fatalf("expected no match, got %+v", fp.ARMMatch)
	}
}
