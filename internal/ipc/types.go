package ipc

import (
	"platter/internal/backup"
	"platter/internal/daemon"
	"platter/internal/disc"
	"platter/internal/history"
)

// ScanRequest asks the daemon to enumerate drives with media present.
type ScanRequest struct{}

// ScanResponse carries the canonical drive list plus any non-fatal
// detection errors from the scan.
type ScanResponse struct {
	Drives []disc.Drive          `json:"drives"`
	Errors []disc.DetectionError `json:"errors,omitempty"`
}

// BackupStartRequest starts a backup for one drive from a prior scan.
type BackupStartRequest struct {
	Request backup.Request `json:"request"`
}

// BackupStartResponse is the orchestrator's immediate answer.
type BackupStartResponse struct {
	Result  backup.StartResult `json:"result"`
	Message string             `json:"message,omitempty"`
}

// BackupCancelRequest cancels the backup on one drive.
type BackupCancelRequest struct {
	DriveID int `json:"drive_id"`
}

// BackupCancelResponse reports whether a backup was cancelled.
type BackupCancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// BackupStatusRequest lists in-flight backups.
type BackupStatusRequest struct{}

// BackupStatusResponse carries the current registry contents.
type BackupStatusResponse struct {
	Backups []backup.Status `json:"backups"`
}

// HistoryRequest lists recent backup runs.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse carries recorded runs, newest first.
type HistoryResponse struct {
	Entries []history.Entry `json:"entries"`
}

// StatusRequest asks for daemon runtime information.
type StatusRequest struct{}

// StatusResponse mirrors daemon.Status.
type StatusResponse struct {
	Status daemon.Status `json:"status"`
}

// StopRequest asks the daemon to stop processing.
type StopRequest struct{}

// StopResponse acknowledges a stop.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// EventsRequest polls for orchestrator events after a sequence number.
// WaitMillis > 0 long-polls when no events are pending.
type EventsRequest struct {
	AfterSeq   int64 `json:"after_seq"`
	WaitMillis int   `json:"wait_millis"`
}

// EventsResponse carries buffered events and the sequence to resume from.
type EventsResponse struct {
	Events  []daemon.BufferedEvent `json:"events"`
	NextSeq int64                  `json:"next_seq"`
}

// TestNotificationRequest triggers a test push notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
