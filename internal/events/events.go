package events

import (
	"time"

	"platter/internal/fingerprint"
)

// Type names an outbound event.
type Type string

const (
	TypeBackupStarted    Type = "backup-started"
	TypeBackupProgress   Type = "backup-progress"
	TypeBackupLog        Type = "backup-log"
	TypeBackupComplete   Type = "backup-complete"
	TypeFingerprintMatch Type = "fingerprint-match"
	TypeMetadataUpdated  Type = "metadata-updated"
)

// Event is one notification to the UI boundary. Payload holds one of the
// typed payload structs below, matching Type.
type Event struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// BackupStarted reports that extraction launched for a drive.
type BackupStarted struct {
	DriveID     int                     `json:"drive_id"`
	DiscName    string                  `json:"disc_name"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	RunID       string                  `json:"run_id"`
}

// BackupProgress forwards one subprocess progress update verbatim. Percent
// is -1 when the update carries a stage message with no numeric progress.
type BackupProgress struct {
	DriveID int     `json:"drive_id"`
	Stage   string  `json:"stage,omitempty"`
	Percent float64 `json:"percent"`
	Message string  `json:"message,omitempty"`
}

// BackupLog forwards one free-text diagnostic line.
type BackupLog struct {
	DriveID int    `json:"drive_id"`
	Line    string `json:"line"`
}

// BackupComplete reports the terminal outcome of one backup.
type BackupComplete struct {
	DriveID     int                      `json:"drive_id"`
	Success     bool                     `json:"success"`
	Fingerprint *fingerprint.Fingerprint `json:"fingerprint,omitempty"`
	Error       string                   `json:"error,omitempty"`
	RunID       string                   `json:"run_id"`
}

// FingerprintMatch surfaces a cache hit immediately, independent of
// extraction progress.
type FingerprintMatch struct {
	DriveID int               `json:"drive_id"`
	Match   fingerprint.Match `json:"match"`
}

// MetadataUpdated reports that a metadata sidecar changed on disk.
type MetadataUpdated struct {
	Path string `json:"path"`
}
