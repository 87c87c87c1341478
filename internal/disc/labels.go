package disc

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	allDigitsPattern = regexp.MustCompile(`^\d+$`)
	shortCodePattern = regexp.MustCompile(`^[A-Z0-9_]{1,4}$`)
)

// IsGenericLabel returns true if the label carries no usable content
// identity: technical volume identifiers, bare codes, disc numbering
// patterns.
func IsGenericLabel(label string) bool {
	label = strings.TrimSpace(label)
	if label == "" || label == UnknownDiscName {
		return true
	}

	upper := strings.ToUpper(label)

	patterns := []string{
		"LOGICAL_VOLUME_ID", "VOLUME_ID", "DVD_VIDEO", "BLURAY", "BD_ROM",
		"UNTITLED", "UNKNOWN DISC", "VOLUME_", "VOLUME ID", "DISK_", "TRACK_",
	}
	for _, pattern := range patterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}

	if allDigitsPattern.MatchString(label) {
		return true
	}
	if shortCodePattern.MatchString(upper) {
		return true
	}

	return false
}

var titleCaser = cases.Title(language.Und)

// PrettyLabel converts a technical volume label into a display title:
// "THE_DARK_KNIGHT" becomes "The Dark Knight". Labels that already contain
// lower-case letters are returned unchanged apart from underscore cleanup.
func PrettyLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return UnknownDiscName
	}

	cleaned := strings.ReplaceAll(label, "_", " ")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return UnknownDiscName
	}

	if cleaned != strings.ToUpper(cleaned) {
		return cleaned
	}
	return titleCaser.String(strings.ToLower(cleaned))
}
