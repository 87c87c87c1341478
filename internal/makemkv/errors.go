package makemkv

import (
	"regexp"
	"strings"
	"time"
)

// ErrorRecord is the structured form of one free-text diagnostic line.
// Records are immutable once produced and accumulate per backup to compute
// the recovery percentage.
type ErrorRecord struct {
	Message   string    `json:"message"`
	File      string    `json:"file,omitempty"`
	Error     string    `json:"error"`
	Offset    string    `json:"offset,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Diagnostic error labels, matched in order; first match wins.
const (
	ErrorLabelHashCheck    = "Hash check failed"
	ErrorLabelRead         = "Read error"
	ErrorLabelFailedToSave = "Failed to save"
	ErrorLabelUnknown      = "Unknown error"
)

var (
	// Media-segment and disc-structure filenames: stream segments
	// (00800.m2ts, VTS_01_1.VOB), playlists, structure files, outputs.
	errorFilePattern = regexp.MustCompile(
		`(?i)\b(?:\d+\.m2ts|VTS_\d+_\d+\.VOB|VIDEO_TS\.(?:IFO|BUP|VOB)|[\w-]+\.(?:mpls|bdmv|ifo|bup|mkv))\b`,
	)
	errorOffsetPattern = regexp.MustCompile(`(?i)\boffset\b\D*(\d+)`)
)

// ParseErrorMessage converts a diagnostic line into an ErrorRecord. It is a
// total function: any input, including the empty string, yields a record with
// the message preserved and a default label.
func ParseErrorMessage(line string) ErrorRecord {
	record := ErrorRecord{
		Message:   line,
		Error:     ErrorLabelUnknown,
		Timestamp: time.Now().UTC(),
	}

	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "hash check failed"):
		record.Error = ErrorLabelHashCheck
	case strings.Contains(lower, "error reading"):
		record.Error = ErrorLabelRead
	case strings.Contains(lower, "failed to save"):
		record.Error = ErrorLabelFailedToSave
	}

	if match := errorFilePattern.FindString(line); match != "" {
		record.File = match
	}
	if match := errorOffsetPattern.FindStringSubmatch(line); match != nil {
		record.Offset = match[1]
	}

	return record
}

// fatalKeywords mark conditions that cannot be ridden out by re-reading a
// sector; checked before the recoverable set so that a line containing both
// classes fails closed.
var fatalKeywords = []string{
	"out of memory",
	"disk full",
	"permission denied",
	"access denied",
	"cannot create",
	"invalid",
}

var recoverableKeywords = []string{
	"hash check failed",
	"read error",
	"error reading",
	"scsi error",
	"bad sector",
}

// IsRecoverableError reports whether a diagnostic line describes a localized,
// tolerable failure (a bad sector, a failed hash on one segment). Unknown
// messages are conservatively treated as fatal.
func IsRecoverableError(line string) bool {
	lower := strings.ToLower(line)
	for _, keyword := range fatalKeywords {
		if strings.Contains(lower, keyword) {
			return false
		}
	}
	for _, keyword := range recoverableKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// RecoveryPercent computes the share of files that survived a backup with
// recoverable errors. With no files at all there is nothing to recover from,
// so the result is 100.
func RecoveryPercent(successful, failed int) float64 {
	total := successful + failed
	if total == 0 {
		return 100
	}
	return float64(successful) / float64(total) * 100
}
