package disc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"platter/internal/logging"
	"platter/internal/makemkv"
	"platter/internal/platform"
)

// Enumerator reconciles the operating system's drive-letter view with
// MakeMKV's internal disc-index table into a canonical list of drives
// holding media.
type Enumerator struct {
	platform platform.Platform
	lister   makemkv.DriveLister
	logger   *slog.Logger

	mu   sync.Mutex
	errs []DetectionError
}

// NewEnumerator constructs a drive enumerator.
func NewEnumerator(p platform.Platform, lister makemkv.DriveLister, logger *slog.Logger) *Enumerator {
	return &Enumerator{
		platform: p,
		lister:   lister,
		logger:   logging.NewComponentLogger(logger, "enumerator"),
	}
}

// Detect scans for optical drives with readable media. It is read-only with
// respect to disc state. Failures at any stage are recorded as detection
// errors and never abort the remaining drives; a total failure yields an
// empty list with the cause available through Errors.
func (e *Enumerator) Detect(ctx context.Context) []Drive {
	e.mu.Lock()
	e.errs = nil
	e.mu.Unlock()

	letters, err := e.platform.DriveLetters(ctx)
	if err != nil {
		e.record("list-drives", "", err)
		return nil
	}

	var present []string
	for _, letter := range letters {
		driveType, err := e.platform.DriveType(ctx, letter)
		if err != nil {
			e.record("drive-type", letter, err)
			continue
		}
		if driveType != platform.DriveOptical {
			continue
		}
		if err := e.platform.ProbeRoot(ctx, letter); err != nil {
			e.logger.Debug("drive excluded",
				logging.String("drive", letter),
				logging.String("reason", classifyProbeFailure(err)),
			)
			continue
		}
		present = append(present, letter)
	}

	if len(present) == 0 {
		return nil
	}

	// One mapping query per scan, never per drive.
	mapping := e.queryMapping(ctx)

	drives := make([]Drive, 0, len(present))
	for position, letter := range present {
		drive := Drive{
			ID:          position,
			DriveLetter: letter,
			DiscName:    e.volumeLabel(ctx, letter),
			DiscType:    DiscTypeDVD,
		}

		if record, ok := mapping[letter]; ok {
			drive.ToolDiscIndex = record.Index
			drive.HasToolMapping = true
			if record.TypeCode == makemkv.TypeCodeBluRay {
				drive.DiscType = DiscTypeBluRay
			}
			if drive.DiscName == UnknownDiscName && strings.TrimSpace(record.DiscName) != "" {
				drive.DiscName = record.DiscName
			}
		} else {
			drive.ToolDiscIndex = position
			drive.Warning = fmt.Sprintf("MakeMKV did not report drive %s; using fallback disc index %d", letter, position)
			e.record("map-disc-index", letter, errors.New("drive missing from MakeMKV enumeration"))
		}

		size, err := e.platform.DiskSize(ctx, letter)
		if err != nil {
			e.record("disk-size", letter, err)
		} else {
			drive.DiscSizeBytes = size
		}

		drives = append(drives, drive)
	}

	e.logger.Info("drive scan complete",
		logging.Int("drives", len(drives)),
		logging.Int("detection_errors", len(e.Errors())),
	)
	return drives
}

// Errors returns the detection errors accumulated by the most recent Detect
// call.
func (e *Enumerator) Errors() []DetectionError {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]DetectionError, len(e.errs))
	copy(out, e.errs)
	return out
}

func (e *Enumerator) queryMapping(ctx context.Context) map[string]makemkv.DriveRecord {
	if e.lister == nil {
		e.record("map-disc-index", "", errors.New("makemkv client unavailable"))
		return nil
	}
	mapping, err := e.lister.Drives(ctx)
	if err != nil {
		// An empty mapping is a valid degraded state; unmapped drives get
		// fallback indices.
		e.record("map-disc-index", "", err)
	}
	return mapping
}

func (e *Enumerator) volumeLabel(ctx context.Context, letter string) string {
	label, err := e.platform.VolumeLabel(ctx, letter)
	if err != nil {
		e.record("volume-label", letter, err)
		return UnknownDiscName
	}
	if strings.TrimSpace(label) == "" {
		return UnknownDiscName
	}
	return strings.TrimSpace(label)
}

func (e *Enumerator) record(stage, drive string, err error) {
	detection := DetectionError{Stage: stage, Drive: drive, Err: err.Error()}
	e.mu.Lock()
	e.errs = append(e.errs, detection)
	e.mu.Unlock()
	e.logger.Warn("detection error",
		logging.String(logging.FieldEventType, "detection_error"),
		logging.String("stage", stage),
		logging.String("drive", drive),
		logging.Error(err),
	)
}

// classifyProbeFailure maps a root-probe error onto a diagnostic bucket.
// Every bucket is treated as "no media"; the classification exists for logs
// only.
func classifyProbeFailure(err error) string {
	if err == nil {
		return ""
	}
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "not ready") || strings.Contains(lower, "no medium") || errors.Is(err, fs.ErrNotExist):
		return "no-disc"
	case strings.Contains(lower, "busy") || strings.Contains(lower, "in use"):
		return "busy"
	case errors.Is(err, fs.ErrPermission) || strings.Contains(lower, "access is denied"):
		return "access-denied"
	default:
		return "other"
	}
}
