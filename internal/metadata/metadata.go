package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"platter/internal/fingerprint"
)

// SidecarName is the metadata file kept next to extracted disc content.
const SidecarName = "metadata.json"

// SidecarPath returns the metadata file path for a backup output directory.
func SidecarPath(backupDir string) string {
	return filepath.Join(backupDir, SidecarName)
}

// Record is a metadata sidecar. Other tools own most of its fields; this
// package reads and writes only the fingerprint and round-trips the rest
// untouched.
type Record struct {
	fields map[string]json.RawMessage
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{fields: make(map[string]json.RawMessage)}
}

// Fingerprint returns the stored fingerprint, if any.
func (r *Record) Fingerprint() (fingerprint.Fingerprint, bool) {
	raw, ok := r.fields["fingerprint"]
	if !ok {
		return fingerprint.Fingerprint{}, false
	}
	var fp fingerprint.Fingerprint
	if err := json.Unmarshal(raw, &fp); err != nil {
		return fingerprint.Fingerprint{}, false
	}
	return fp, true
}

// SetFingerprint replaces the stored fingerprint.
func (r *Record) SetFingerprint(fp fingerprint.Fingerprint) error {
	raw, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("marshal fingerprint: %w", err)
	}
	if r.fields == nil {
		r.fields = make(map[string]json.RawMessage)
	}
	r.fields["fingerprint"] = raw
	return nil
}

// Load reads the sidecar at path. A missing file returns (nil, nil).
func Load(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	record := NewRecord()
	if len(data) == 0 {
		return record, nil
	}
	if err := json.Unmarshal(data, &record.fields); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return record, nil
}

// Save writes the sidecar atomically, creating the parent directory when
// missing.
func Save(path string, record *Record) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}

	data, err := json.MarshalIndent(record.fields, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
