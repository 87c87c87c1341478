package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"platter/internal/armcache"
	"platter/internal/backup"
	"platter/internal/config"
	"platter/internal/deps"
	"platter/internal/disc"
	"platter/internal/events"
	"platter/internal/fingerprint"
	"platter/internal/history"
	"platter/internal/identify"
	"platter/internal/logging"
	"platter/internal/makemkv"
	"platter/internal/notifications"
	"platter/internal/platform"
)

// Daemon hosts the backup orchestrator and enforces single-instance
// execution via a file lock.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	enumerator *disc.Enumerator
	orch       *backup.Orchestrator
	bus        *events.Bus
	cache      *armcache.Cache
	store      *history.Store
	notifier   notifications.Service
	eventLog   *eventLog

	lockPath string
	lock     *flock.Flock

	running atomic.Bool

	stateMu sync.Mutex
	stopped chan struct{}
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool            `json:"running"`
	PID           int             `json:"pid"`
	LockPath      string          `json:"lock_path"`
	HistoryDBPath string          `json:"history_db_path"`
	CacheEnabled  bool            `json:"cache_enabled"`
	ActiveBackups []backup.Status `json:"active_backups"`
	Dependencies  []deps.Status   `json:"dependencies"`
	Paths         []PathStatus    `json:"paths"`
}

// PathStatus reports writability of one directory the daemon depends on.
type PathStatus struct {
	Label    string `json:"label"`
	Path     string `json:"path"`
	Writable bool   `json:"writable"`
	Detail   string `json:"detail,omitempty"`
}

// New wires the daemon's subsystems from configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	logger = logging.NewComponentLogger(logger, "daemon")

	lister, err := makemkv.New(cfg.MakemkvBinary(), cfg.MakeMKV.InfoTimeout, cfg.MakeMKV.BackupTimeout,
		makemkv.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("build makemkv client: %w", err)
	}

	osPlatform := platform.New()
	enumerator := disc.NewEnumerator(osPlatform, lister, logger)

	var cache *armcache.Cache
	if cfg.ARMCache.Enabled {
		cache, err = armcache.Open(cfg.ARMCache.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open fingerprint cache: %w", err)
		}
	}

	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("open history store: %w", err)
	}

	capturerOpts := []fingerprint.Option{fingerprint.WithLogger(logger)}
	if cache != nil {
		capturerOpts = append(capturerOpts, fingerprint.WithLookup(cache))
	}
	capturer := fingerprint.New(
		time.Duration(cfg.Drives.FingerprintTimeout)*time.Second,
		capturerOpts...,
	)

	identifier := identify.NewNop()
	if cfg.Identification.Enabled && strings.TrimSpace(cfg.Identification.Command) != "" {
		identifier = identify.NewCommand(cfg.Identification.Command, cfg.Identification.Timeout,
			identify.WithLogger(logger))
	}

	bus := events.NewBus()
	notifier := notifications.NewService(cfg)

	newBackuper := func() (makemkv.Backuper, error) {
		return makemkv.New(cfg.MakemkvBinary(), cfg.MakeMKV.InfoTimeout, cfg.MakeMKV.BackupTimeout,
			makemkv.WithLogger(logger))
	}

	orch, err := backup.New(cfg, backup.Deps{
		Capturer:    capturer,
		Cache:       cache,
		Bus:         bus,
		Notifier:    notifier,
		Identifier:  identifier,
		Ejector:     disc.NewEjector(osPlatform),
		History:     store,
		NewBackuper: newBackuper,
		Logger:      logger,
	})
	if err != nil {
		_ = store.Close()
		_ = cache.Close()
		bus.Close()
		return nil, fmt.Errorf("build orchestrator: %w", err)
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "platterd.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logger,
		enumerator: enumerator,
		orch:       orch,
		bus:        bus,
		cache:      cache,
		store:      store,
		notifier:   notifier,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.eventLog = newEventLog(bus, logger)
	return d, nil
}

// Start acquires the daemon lock. It fails when another instance holds it.
func (d *Daemon) Start(_ context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another platter daemon instance is already running")
	}

	d.stateMu.Lock()
	d.stopped = make(chan struct{})
	d.stateMu.Unlock()
	d.running.Store(true)
	d.logger.Info("platter daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop cancels in-flight backups and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.orch.Close()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.stateMu.Lock()
	if d.stopped != nil {
		close(d.stopped)
		d.stopped = nil
	}
	d.stateMu.Unlock()
	d.logger.Info("platter daemon stopped")
}

// Done returns a channel closed when the daemon stops. Foreground hosts
// select on it alongside signal contexts.
func (d *Daemon) Done() <-chan struct{} {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.stopped == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return d.stopped
}

// Close releases all daemon resources.
func (d *Daemon) Close() error {
	d.Stop()
	d.eventLog.Close()
	d.bus.Close()
	var errs []error
	if err := d.store.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := d.cache.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// checkPath verifies the directory exists and accepts writes.
func checkPath(label, dir string) PathStatus {
	status := PathStatus{Label: label, Path: dir}
	if strings.TrimSpace(dir) == "" {
		status.Detail = "not configured"
		return status
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		status.Detail = err.Error()
		return status
	}
	f, err := os.CreateTemp(dir, ".platter-writecheck-*")
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	status.Writable = true
	return status
}

// Scan enumerates drives with media present.
func (d *Daemon) Scan(ctx context.Context) ([]disc.Drive, []disc.DetectionError) {
	drives := d.enumerator.Detect(ctx)
	return drives, d.enumerator.Errors()
}

// StartBackup begins a backup for one drive.
func (d *Daemon) StartBackup(ctx context.Context, req backup.Request) (backup.StartResult, error) {
	return d.orch.Start(ctx, req)
}

// CancelBackup requests termination of the backup on driveID.
func (d *Daemon) CancelBackup(driveID int) bool {
	return d.orch.Cancel(driveID)
}

// RunningBackups lists in-flight backups.
func (d *Daemon) RunningBackups() []backup.Status {
	return d.orch.Running()
}

// History returns the most recent backup runs.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Entry, error) {
	return d.store.List(ctx, limit)
}

// Cache exposes the fingerprint match cache; nil when disabled.
func (d *Daemon) Cache() *armcache.Cache {
	return d.cache
}

// Events returns buffered events after the given sequence number, waiting up
// to wait for new ones when none are pending.
func (d *Daemon) Events(ctx context.Context, afterSeq int64, wait time.Duration) ([]BufferedEvent, int64) {
	return d.eventLog.After(ctx, afterSeq, wait)
}

// TestNotification sends a test push notification.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns current daemon state.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:       d.running.Load(),
		PID:           os.Getpid(),
		LockPath:      d.lockPath,
		HistoryDBPath: d.cfg.HistoryDBPath(),
		CacheEnabled:  d.cache.Enabled(),
		ActiveBackups: d.orch.Running(),
		Dependencies:  deps.CheckBinaries(deps.Requirements(d.cfg)),
		Paths: []PathStatus{
			checkPath("Backup directory", d.cfg.Paths.BackupDir),
			checkPath("Log directory", d.cfg.Paths.LogDir),
			checkPath("Cache directory", d.cfg.Paths.CacheDir),
		},
	}
}
