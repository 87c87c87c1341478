package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"platter/internal/fingerprint"
)

func TestLoadMissingFileReturnsNil(t *testing.T) {
	record, err := Load(filepath.Join(t.TempDir(), "metadata.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if record != nil {
		t.Fatalf("expected nil record for missing file, got %+v", record)
	}
}

func TestSaveThenLoadFingerprint(t *testing.T) {
	path := SidecarPath(t.TempDir())

	record := NewRecord()
	fp := fingerprint.Fingerprint{
		Type:       fingerprint.TypeCRC64,
		CRC64:      "deadbeef",
		CapturedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := record.SetFingerprint(fp); err != nil {
		t.Fatalf("set fingerprint: %v", err)
	}
	if err := Save(path, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, ok := loaded.Fingerprint()
	if !ok {
		t.Fatal("expected fingerprint present")
	}
	if got.Type != fp.Type || got.CRC64 != fp.CRC64 || !got.CapturedAt.Equal(fp.CapturedAt) {
		t.Fatalf("fingerprint mismatch: %+v", got)
	}
}

func TestSavePreservesForeignFields(t *testing.T) {
	path := SidecarPath(t.TempDir())
	original := `{"title":"Inception","tmdb_id":27205,"tracks":[1,2,3]}`
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	record, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := record.SetFingerprint(fingerprint.Fingerprint{Type: fingerprint.TypeDiscID, DiscID: "ff"}); err != nil {
		t.Fatalf("set fingerprint: %v", err)
	}
	if err := Save(path, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, key := range []string{"title", "tmdb_id", "tracks", "fingerprint"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("expected field %q preserved, got %s", key, data)
		}
	}
}
