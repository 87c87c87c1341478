package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"platter/internal/armcache"
	"platter/internal/config"
	"platter/internal/disc"
	"platter/internal/events"
	"platter/internal/fingerprint"
	"platter/internal/history"
	"platter/internal/identify"
	"platter/internal/logging"
	"platter/internal/makemkv"
	"platter/internal/metadata"
	"platter/internal/notifications"
)

// ErrAlreadyRunning rejects a start request for a drive that is extracting.
var ErrAlreadyRunning = errors.New("Backup already running for this drive")

// Request describes one backup start request, built from a scan result.
type Request struct {
	DriveID       int    `json:"drive_id"`
	ToolDiscIndex int    `json:"tool_disc_index"`
	DiscName      string `json:"disc_name"`
	DiscType      string `json:"disc_type"`
	DiscSizeBytes int64  `json:"disc_size_bytes"`
	DriveLetter   string `json:"drive_letter"`
}

// StartResult is returned to the caller immediately; extraction continues in
// the background.
type StartResult struct {
	Success     bool                    `json:"success"`
	DriveID     int                     `json:"drive_id"`
	Started     bool                    `json:"started"`
	RunID       string                  `json:"run_id"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
}

// Status describes one in-flight backup.
type Status struct {
	DriveID     int       `json:"drive_id"`
	RunID       string    `json:"run_id"`
	DiscName    string    `json:"disc_name"`
	DriveLetter string    `json:"drive_letter"`
	StartedAt   time.Time `json:"started_at"`
}

// Recorder persists finished runs. The history store implements it.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// BackuperFactory builds a fresh subprocess driver scoped to one backup.
type BackuperFactory func() (makemkv.Backuper, error)

// Deps carries the orchestrator's collaborators. Capturer, Bus, and
// NewBackuper are required; the rest may be nil or noop implementations.
type Deps struct {
	Capturer    *fingerprint.Capturer
	Cache       *armcache.Cache
	Bus         *events.Bus
	Notifier    notifications.Service
	Identifier  identify.Identifier
	Ejector     disc.Ejector
	History     Recorder
	NewBackuper BackuperFactory
	Logger      *slog.Logger
}

type handle struct {
	driveID     int
	runID       string
	discName    string
	driveLetter string
	fingerprint fingerprint.Fingerprint
	startedAt   time.Time
	cancel      context.CancelFunc
}

// Orchestrator coordinates parallel per-drive backups. Each drive has at most
// one in-flight backup; each backup runs in its own goroutine driving its own
// subprocess, so extractions on different drives proceed truly in parallel.
type Orchestrator struct {
	cfg  *config.Config
	deps Deps

	logger *slog.Logger

	mu      sync.Mutex
	handles map[int]*handle

	wg sync.WaitGroup
}

// New constructs an orchestrator.
func New(cfg *config.Config, deps Deps) (*Orchestrator, error) {
	if cfg == nil {
		return nil, errors.New("config required")
	}
	if deps.Capturer == nil {
		return nil, errors.New("fingerprint capturer required")
	}
	if deps.Bus == nil {
		return nil, errors.New("event bus required")
	}
	if deps.NewBackuper == nil {
		return nil, errors.New("backuper factory required")
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if deps.Identifier == nil {
		deps.Identifier = identify.NewNop()
	}
	return &Orchestrator{
		cfg:     cfg,
		deps:    deps,
		logger:  logging.NewComponentLogger(deps.Logger, "backup"),
		handles: make(map[int]*handle),
	}, nil
}

// Start begins a backup for one drive. It captures a fingerprint, registers
// the backup, launches extraction asynchronously, and returns without waiting
// for extraction to finish. The only fatal start condition is a backup
// already running for the same drive.
func (o *Orchestrator) Start(ctx context.Context, req Request) (StartResult, error) {
	runID := uuid.NewString()

	runCtx, cancel := context.WithCancel(context.Background())
	h := &handle{
		driveID:     req.DriveID,
		runID:       runID,
		discName:    req.DiscName,
		driveLetter: req.DriveLetter,
		startedAt:   time.Now().UTC(),
		cancel:      cancel,
	}

	// Check-and-insert is one critical section; two concurrent starts for
	// the same drive cannot both pass.
	o.mu.Lock()
	if _, exists := o.handles[req.DriveID]; exists {
		o.mu.Unlock()
		cancel()
		return StartResult{DriveID: req.DriveID}, ErrAlreadyRunning
	}
	o.handles[req.DriveID] = h
	o.mu.Unlock()

	// Capture before extraction starts; extraction rewrites timestamps the
	// strategies depend on. A degraded fingerprint never blocks the backup.
	fp := o.deps.Capturer.Capture(ctx, req.DriveLetter, req.DiscName)
	h.fingerprint = fp

	o.deps.Bus.Publish(events.Event{
		Type: events.TypeBackupStarted,
		Payload: events.BackupStarted{
			DriveID:     req.DriveID,
			DiscName:    req.DiscName,
			Fingerprint: fp,
			RunID:       runID,
		},
	})
	if fp.ARMMatch != nil {
		o.deps.Bus.Publish(events.Event{
			Type:    events.TypeFingerprintMatch,
			Payload: events.FingerprintMatch{DriveID: req.DriveID, Match: *fp.ARMMatch},
		})
	}

	backuper, err := o.deps.NewBackuper()
	if err != nil {
		// A started event already went out; subscribers need the terminal
		// event even when extraction never launches.
		o.deps.Bus.Publish(events.Event{
			Type: events.TypeBackupComplete,
			Payload: events.BackupComplete{
				DriveID: req.DriveID,
				Success: false,
				Error:   fmt.Sprintf("build backup client: %v", err),
				RunID:   runID,
			},
		})
		o.release(req.DriveID, h)
		cancel()
		return StartResult{DriveID: req.DriveID}, fmt.Errorf("build backup client: %w", err)
	}

	if err := o.deps.Notifier.NotifyBackupStarted(ctx, req.DiscName, req.DiscType); err != nil {
		o.logger.Warn("start notification failed",
			logging.Int(logging.FieldDriveID, req.DriveID),
			logging.Error(err),
		)
	}

	o.logger.Info("backup started",
		logging.Int(logging.FieldDriveID, req.DriveID),
		logging.String(logging.FieldDiscName, req.DiscName),
		logging.String(logging.FieldRunID, runID),
		logging.String("drive_letter", req.DriveLetter),
		logging.Int("tool_disc_index", req.ToolDiscIndex),
	)

	o.wg.Add(1)
	go o.run(runCtx, h, req, backuper)

	return StartResult{
		Success:     true,
		DriveID:     req.DriveID,
		Started:     true,
		RunID:       runID,
		Fingerprint: fp,
	}, nil
}

// Cancel requests termination of the backup on driveID. It returns false if
// no backup is running; otherwise it cancels the subprocess, removes the
// registry entry, and returns true without waiting for process teardown.
func (o *Orchestrator) Cancel(driveID int) bool {
	o.mu.Lock()
	h, exists := o.handles[driveID]
	if exists {
		delete(o.handles, driveID)
	}
	o.mu.Unlock()

	if !exists {
		return false
	}

	h.cancel()
	o.logger.Info("backup cancelled",
		logging.Int(logging.FieldDriveID, driveID),
		logging.String(logging.FieldRunID, h.runID),
	)
	return true
}

// IsRunning reports whether a backup is registered for driveID.
func (o *Orchestrator) IsRunning(driveID int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, exists := o.handles[driveID]
	return exists
}

// Running lists all in-flight backups.
func (o *Orchestrator) Running() []Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	statuses := make([]Status, 0, len(o.handles))
	for _, h := range o.handles {
		statuses = append(statuses, Status{
			DriveID:     h.driveID,
			RunID:       h.runID,
			DiscName:    h.discName,
			DriveLetter: h.driveLetter,
			StartedAt:   h.startedAt,
		})
	}
	return statuses
}

// Close cancels every in-flight backup and waits for the run goroutines to
// finish their cleanup.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	handles := make([]*handle, 0, len(o.handles))
	for _, h := range o.handles {
		handles = append(handles, h)
	}
	o.handles = make(map[int]*handle)
	o.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
	o.wg.Wait()
}

// release removes the handle if it is still the registered one. A Cancel may
// already have removed it, or a later backup may have replaced it.
func (o *Orchestrator) release(driveID int, h *handle) {
	o.mu.Lock()
	if current, exists := o.handles[driveID]; exists && current == h {
		delete(o.handles, driveID)
	}
	o.mu.Unlock()
}

func (o *Orchestrator) run(ctx context.Context, h *handle, req Request, backuper makemkv.Backuper) {
	defer o.wg.Done()
	defer o.release(req.DriveID, h)

	destDir := o.destinationDir(req.DiscName, h.runID)

	onProgress := func(update makemkv.ProgressUpdate) {
		o.deps.Bus.Publish(events.Event{
			Type: events.TypeBackupProgress,
			Payload: events.BackupProgress{
				DriveID: req.DriveID,
				Stage:   update.Stage,
				Percent: update.Percent,
				Message: update.Message,
			},
		})
	}
	onLog := func(line string) {
		o.deps.Bus.Publish(events.Event{
			Type:    events.TypeBackupLog,
			Payload: events.BackupLog{DriveID: req.DriveID, Line: line},
		})
	}

	startedAt := h.startedAt
	result, err := backuper.Backup(ctx, req.ToolDiscIndex, destDir, onProgress, onLog)
	finishedAt := time.Now().UTC()
	cancelled := ctx.Err() != nil

	if result == nil {
		result = &makemkv.Result{}
	}

	// The subprocess exit status is the sole authority on overall success;
	// recoverable diagnostics recorded along the way do not override it. A
	// clean exit with nothing saved is still a failure.
	success := err == nil && !cancelled && result.SavedTitles >= 1
	var failure string
	switch {
	case cancelled:
		failure = "backup cancelled"
	case err != nil:
		failure = err.Error()
	case result.SavedTitles < 1:
		failure = "no titles saved"
	}

	o.logResult(req, h, result, success, failure)

	if success {
		o.finishSuccess(req, h, result, destDir)
	} else {
		o.finishFailure(req, h, failure)
	}

	if o.deps.History != nil {
		entry := history.Entry{
			RunID:           h.runID,
			DriveID:         req.DriveID,
			DriveLetter:     req.DriveLetter,
			DiscName:        req.DiscName,
			DiscType:        req.DiscType,
			FingerprintType: string(h.fingerprint.Type),
			OutputDir:       destDir,
			Success:         success,
			SavedTitles:     result.SavedTitles,
			FailedTitles:    result.FailedTitles,
			RecoveryPercent: result.RecoveryPercent,
			Error:           failure,
			StartedAt:       startedAt,
			FinishedAt:      finishedAt,
		}
		if recordErr := o.deps.History.Record(context.Background(), entry); recordErr != nil {
			o.logger.Warn("history record failed",
				logging.String(logging.FieldRunID, h.runID),
				logging.Error(recordErr),
			)
		}
	}
}

func (o *Orchestrator) finishSuccess(req Request, h *handle, result *makemkv.Result, destDir string) {
	ctx := context.Background()
	fp := h.fingerprint

	sidecar := metadata.SidecarPath(destDir)
	record, err := metadata.Load(sidecar)
	if err != nil {
		o.logger.Warn("metadata load failed",
			logging.String("path", sidecar),
			logging.Error(err),
		)
	}
	if record == nil {
		record = metadata.NewRecord()
	}
	if err := record.SetFingerprint(fp); err == nil {
		if err := metadata.Save(sidecar, record); err != nil {
			o.logger.Warn("metadata save failed",
				logging.String("path", sidecar),
				logging.Error(err),
			)
		} else {
			o.deps.Bus.Publish(events.Event{
				Type:    events.TypeMetadataUpdated,
				Payload: events.MetadataUpdated{Path: sidecar},
			})
		}
	}

	if fp.ARMMatch != nil && o.deps.Cache != nil {
		if err := o.deps.Cache.Add(ctx, fp.CacheKey(), *fp.ARMMatch); err != nil {
			o.logger.Warn("fingerprint cache add failed", logging.Error(err))
		}
	}

	o.deps.Bus.Publish(events.Event{
		Type: events.TypeBackupComplete,
		Payload: events.BackupComplete{
			DriveID:     req.DriveID,
			Success:     true,
			Fingerprint: &fp,
			RunID:       h.runID,
		},
	})

	// Fire and forget: identification only updates metadata and notifies
	// observers later, it never blocks or fails the backup.
	go o.identify(req, h, destDir)

	if err := o.deps.Notifier.NotifyBackupCompleted(ctx, req.DiscName, result.SavedTitles); err != nil {
		o.logger.Warn("completion notification failed", logging.Error(err))
	}

	if o.cfg.Drives.AutoEject && o.deps.Ejector != nil {
		if err := o.deps.Ejector.Eject(ctx, req.DriveLetter); err != nil {
			o.logger.Warn("eject failed",
				logging.Int(logging.FieldDriveID, req.DriveID),
				logging.String("drive_letter", req.DriveLetter),
				logging.Error(err),
			)
		}
	}
}

func (o *Orchestrator) finishFailure(req Request, h *handle, failure string) {
	o.deps.Bus.Publish(events.Event{
		Type: events.TypeBackupComplete,
		Payload: events.BackupComplete{
			DriveID: req.DriveID,
			Success: false,
			Error:   failure,
			RunID:   h.runID,
		},
	})

	if err := o.deps.Notifier.NotifyBackupFailed(context.Background(), req.DiscName, failure); err != nil {
		o.logger.Warn("failure notification failed", logging.Error(err))
	}
}

func (o *Orchestrator) identify(req Request, h *handle, destDir string) {
	ctx := context.Background()
	result, err := o.deps.Identifier.Identify(ctx, identify.Request{
		DriveID:     req.DriveID,
		DiscName:    req.DiscName,
		BackupDir:   destDir,
		Fingerprint: h.fingerprint,
	})
	if err != nil {
		o.logger.Debug("identification skipped",
			logging.Int(logging.FieldDriveID, req.DriveID),
			logging.Error(err),
		)
		return
	}

	if key := h.fingerprint.CacheKey(); key != "" && o.deps.Cache != nil {
		match := fingerprint.Match{Title: result.Title, Year: result.Year}
		if err := o.deps.Cache.Add(ctx, key, match); err != nil {
			o.logger.Warn("fingerprint cache add failed", logging.Error(err))
		}
	}

	if err := o.deps.Notifier.NotifyIdentificationComplete(ctx, result.Title, result.MediaType); err != nil {
		o.logger.Warn("identification notification failed", logging.Error(err))
	}
}

func (o *Orchestrator) logResult(req Request, h *handle, result *makemkv.Result, success bool, failure string) {
	attrs := []logging.Attr{
		logging.Int(logging.FieldDriveID, req.DriveID),
		logging.String(logging.FieldRunID, h.runID),
		logging.Bool("success", success),
		logging.Int("saved_titles", result.SavedTitles),
		logging.Int("failed_titles", result.FailedTitles),
		logging.Float64("recovery_percent", result.RecoveryPercent),
		logging.Int("diagnostics", len(result.Errors)),
	}
	if success {
		o.logger.Info("backup finished", logging.Args(attrs...)...)
		return
	}
	attrs = append(attrs, logging.String("failure", failure))
	o.logger.Warn("backup failed", logging.Args(attrs...)...)
}

// destinationDir picks the output directory for one run: a slug of the disc
// name, suffixed with the run id when the slug already exists on disk.
func (o *Orchestrator) destinationDir(discName, runID string) string {
	slug := sanitizeSlug(discName, 64)
	if slug == "" {
		slug = "disc"
	}
	dest := filepath.Join(o.cfg.Paths.BackupDir, slug)
	if _, err := os.Stat(dest); err == nil {
		suffix := runID
		if len(suffix) > 8 {
			suffix = suffix[:8]
		}
		dest = dest + "-" + suffix
	}
	return dest
}

// sanitizeSlug converts input to a lowercase alphanumeric slug with hyphens.
// Spaces, underscores, periods, and hyphens become hyphens. Other characters
// are dropped. maxLen of 0 means unlimited length.
func sanitizeSlug(input string, maxLen int) string {
	input = strings.ToLower(strings.TrimSpace(input))
	var slug strings.Builder
	lastHyphen := false
	for _, r := range input {
		if maxLen > 0 && slug.Len() >= maxLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			slug.WriteRune(r)
			lastHyphen = false
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if !lastHyphen {
				slug.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(slug.String(), "-")
}

type noopNotifier struct{}

func (noopNotifier) NotifyBackupStarted(context.Context, string, string) error          { return nil }
func (noopNotifier) NotifyBackupCompleted(context.Context, string, int) error           { return nil }
func (noopNotifier) NotifyBackupFailed(context.Context, string, string) error           { return nil }
func (noopNotifier) NotifyIdentificationComplete(context.Context, string, string) error { return nil }
func (noopNotifier) NotifyError(context.Context, error, string) error                   { return nil }
func (noopNotifier) TestNotification(context.Context) error                             { return nil }
