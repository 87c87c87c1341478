package disc

// DiscType identifies the media class of an inserted disc.
type DiscType string

const (
	DiscTypeDVD    DiscType = "DVD"
	DiscTypeBluRay DiscType = "Blu-ray"
)

// UnknownDiscName is the sentinel disc name used when no volume label can be
// read.
const UnknownDiscName = "Unknown Disc"

// Drive describes one optical drive with confirmed media, as reconciled from
// the OS view and the MakeMKV view during a single scan. Values are immutable
// after creation; the next scan supersedes them.
type Drive struct {
	// ID is stable within one scan only.
	ID            int      `json:"id"`
	DriveLetter   string   `json:"drive_letter"`
	DiscName      string   `json:"disc_name"`
	DiscType      DiscType `json:"disc_type"`
	DiscSizeBytes int64    `json:"disc_size_bytes"`
	// ToolDiscIndex is the disc index MakeMKV assigned, or the drive's
	// position in the scan result when HasToolMapping is false.
	ToolDiscIndex  int    `json:"tool_disc_index"`
	HasToolMapping bool   `json:"has_tool_mapping"`
	Warning        string `json:"warning,omitempty"`
}

// DetectionError records one non-fatal failure observed during a scan.
// Errors accumulate for a single enumeration pass and are discarded when the
// next pass starts.
type DetectionError struct {
	Stage string `json:"stage"`
	Drive string `json:"drive,omitempty"`
	Err   string `json:"error"`
}
