package platform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// DriveType classifies a drive letter.
type DriveType int

const (
	DriveUnknown DriveType = iota
	DriveRemovable
	DriveFixed
	DriveRemote
	DriveOptical
	DriveRAMDisk
)

func (t DriveType) String() string {
	switch t {
	case DriveRemovable:
		return "removable"
	case DriveFixed:
		return "fixed"
	case DriveRemote:
		return "remote"
	case DriveOptical:
		return "optical"
	case DriveRAMDisk:
		return "ramdisk"
	default:
		return "unknown"
	}
}

// ErrInvalidDriveLetter is returned when an operation receives a drive
// designator that is not a single letter optionally followed by ':' or '\'.
var ErrInvalidDriveLetter = errors.New("invalid drive letter")

var driveLetterPattern = regexp.MustCompile(`^[A-Za-z][:\\]?$`)

// ValidateDriveLetter normalizes a drive designator to the bare upper-case
// letter. Anything that is not a single letter optionally followed by ':' or
// '\' is rejected before it can reach an external command.
func ValidateDriveLetter(letter string) (string, error) {
	trimmed := strings.TrimSpace(letter)
	if !driveLetterPattern.MatchString(trimmed) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDriveLetter, letter)
	}
	return strings.ToUpper(trimmed[:1]), nil
}

// Platform exposes the operating-system capabilities drive detection and
// backup orchestration depend on. Implementations must be safe for
// concurrent use.
type Platform interface {
	// DriveLetters lists all assigned drive letters ("C", "D", ...).
	DriveLetters(ctx context.Context) ([]string, error)
	// DriveType reports the drive class for a letter.
	DriveType(ctx context.Context, letter string) (DriveType, error)
	// VolumeLabel returns the volume label for a letter, empty when unlabeled.
	VolumeLabel(ctx context.Context, letter string) (string, error)
	// DiskSize returns the total byte capacity of the mounted volume.
	DiskSize(ctx context.Context, letter string) (int64, error)
	// ProbeRoot attempts a cheap directory read at the drive root. A nil
	// return means media is present and readable.
	ProbeRoot(ctx context.Context, letter string) error
	// Eject opens the drive tray. The letter is validated before any
	// external action executes.
	Eject(ctx context.Context, letter string) error
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	return cmd.Output()
}

// NewCommandExecutor returns the default os/exec-backed executor.
func NewCommandExecutor() Executor {
	return commandExecutor{}
}

// commandPlatform shells out to standard OS utilities (fsutil, vol,
// powershell) for every capability. It is the fallback used when no native
// implementation is available for the build target.
type commandPlatform struct {
	exec Executor
}

// NewCommandPlatform builds a command-backed platform. A nil executor gets
// the default os/exec implementation.
func NewCommandPlatform(exec Executor) Platform {
	if exec == nil {
		exec = commandExecutor{}
	}
	return &commandPlatform{exec: exec}
}

func (p *commandPlatform) DriveLetters(ctx context.Context) ([]string, error) {
	output, err := p.exec.Run(ctx, "fsutil", []string{"fsinfo", "drives"})
	if err != nil {
		return nil, fmt.Errorf("list drives: %w", err)
	}
	return ParseDriveList(string(output)), nil
}

func (p *commandPlatform) DriveType(ctx context.Context, letter string) (DriveType, error) {
	normalized, err := ValidateDriveLetter(letter)
	if err != nil {
		return DriveUnknown, err
	}
	output, err := p.exec.Run(ctx, "fsutil", []string{"fsinfo", "drivetype", normalized + ":"})
	if err != nil {
		return DriveUnknown, fmt.Errorf("query drive type for %s: %w", normalized, err)
	}
	return ParseDriveType(string(output)), nil
}

func (p *commandPlatform) VolumeLabel(ctx context.Context, letter string) (string, error) {
	normalized, err := ValidateDriveLetter(letter)
	if err != nil {
		return "", err
	}
	output, err := p.exec.Run(ctx, "cmd", []string{"/c", "vol", normalized + ":"})
	if err != nil {
		return "", fmt.Errorf("query volume label for %s: %w", normalized, err)
	}
	return ParseVolumeLabel(string(output)), nil
}

func (p *commandPlatform) DiskSize(ctx context.Context, letter string) (int64, error) {
	normalized, err := ValidateDriveLetter(letter)
	if err != nil {
		return 0, err
	}
	output, err := p.exec.Run(ctx, "fsutil", []string{"volume", "diskfree", normalized + ":"})
	if err != nil {
		return 0, fmt.Errorf("query disk size for %s: %w", normalized, err)
	}
	size, ok := ParseDiskFreeTotal(string(output))
	if !ok {
		return 0, fmt.Errorf("no total byte count in diskfree output for %s", normalized)
	}
	return size, nil
}

func (p *commandPlatform) ProbeRoot(_ context.Context, letter string) error {
	normalized, err := ValidateDriveLetter(letter)
	if err != nil {
		return err
	}
	_, err = os.ReadDir(normalized + `:\`)
	return err
}

func (p *commandPlatform) Eject(ctx context.Context, letter string) error {
	normalized, err := ValidateDriveLetter(letter)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(
		`(New-Object -ComObject Shell.Application).Namespace(17).ParseName('%s:').InvokeVerb('Eject')`,
		normalized,
	)
	if _, err := p.exec.Run(ctx, "powershell", []string{"-NoProfile", "-Command", script}); err != nil {
		return fmt.Errorf("eject %s: %w", normalized, err)
	}
	return nil
}

// ParseDriveList extracts drive letters from `fsutil fsinfo drives` output:
//
//	Drives: C:\ D:\ E:\
func ParseDriveList(output string) []string {
	var letters []string
	for _, field := range strings.Fields(output) {
		trimmed := strings.TrimSuffix(strings.TrimSuffix(field, `\`), ":")
		if len(trimmed) != 1 {
			continue
		}
		normalized, err := ValidateDriveLetter(trimmed)
		if err != nil {
			continue
		}
		letters = append(letters, normalized)
	}
	return letters
}

// ParseDriveType maps `fsutil fsinfo drivetype` output to a DriveType:
//
//	E: - CD-ROM Drive
func ParseDriveType(output string) DriveType {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "cd-rom"):
		return DriveOptical
	case strings.Contains(lower, "removable"):
		return DriveRemovable
	case strings.Contains(lower, "fixed"):
		return DriveFixed
	case strings.Contains(lower, "remote"):
		return DriveRemote
	case strings.Contains(lower, "ram disk"):
		return DriveRAMDisk
	default:
		return DriveUnknown
	}
}

// ParseVolumeLabel extracts the label from `vol` output:
//
//	 Volume in drive E is DISC_LABEL
//	 Volume in drive E has no label.
func ParseVolumeLabel(output string) string {
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		if strings.Contains(lower, "has no label") {
			return ""
		}
		marker := " is "
		idx := strings.Index(trimmed, marker)
		if idx < 0 || !strings.HasPrefix(lower, "volume in drive") {
			continue
		}
		return strings.TrimSpace(trimmed[idx+len(marker):])
	}
	return ""
}

var diskFreeTotalPattern = regexp.MustCompile(`(?i)total\s+(?:#\s+of\s+)?bytes\s*:\s*([\d,]+)`)

// ParseDiskFreeTotal extracts the total byte count from
// `fsutil volume diskfree` output.
func ParseDiskFreeTotal(output string) (int64, bool) {
	match := diskFreeTotalPattern.FindStringSubmatch(output)
	if match == nil {
		return 0, false
	}
	digits := strings.ReplaceAll(match[1], ",", "")
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
