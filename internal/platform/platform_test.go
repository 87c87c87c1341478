package platform

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestValidateDriveLetter(t *testing.T) {
	valid := map[string]string{
		"E":    "E",
		"e":    "E",
		"E:":   "E",
		`E\`:   "E",
		" d: ": "D",
	}
	for input, want := range valid {
		got, err := ValidateDriveLetter(input)
		if err != nil {
			t.Fatalf("ValidateDriveLetter(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ValidateDriveLetter(%q) = %q, want %q", input, got, want)
		}
	}

	invalid := []string{"", "EE", "E:/extra", "1", "E:;rm -rf", "$(boom)", `\\server\share`}
	for _, input := range invalid {
		if _, err := ValidateDriveLetter(input); !errors.Is(err, ErrInvalidDriveLetter) {
			t.Fatalf("ValidateDriveLetter(%q) = %v, want ErrInvalidDriveLetter", input, err)
		}
	}
}

func TestParseDriveList(t *testing.T) {
	output := "\nDrives: C:\\ D:\\ E:\\\n"
	got := ParseDriveList(output)
	want := []string{"C", "D", "E"}
	if len(got) != len(want) {
		t.Fatalf("expected %d letters, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected letters: got %v want %v", got, want)
		}
	}
}

func TestParseDriveType(t *testing.T) {
	cases := map[string]DriveType{
		"E: - CD-ROM Drive":         DriveOptical,
		"C: - Fixed Drive":          DriveFixed,
		"F: - Removable Drive":      DriveRemovable,
		"Z: - Remote/Network Drive": DriveRemote,
		"garbage":                   DriveUnknown,
	}
	for input, want := range cases {
		if got := ParseDriveType(input); got != want {
			t.Fatalf("ParseDriveType(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestParseVolumeLabel(t *testing.T) {
	labeled := " Volume in drive E is THE_DARK_KNIGHT\n Volume Serial Number is 1234-ABCD\n"
	if got := ParseVolumeLabel(labeled); got != "THE_DARK_KNIGHT" {
		t.Fatalf("unexpected label: %q", got)
	}

	unlabeled := " Volume in drive E has no label.\n"
	if got := ParseVolumeLabel(unlabeled); got != "" {
		t.Fatalf("expected empty label, got %q", got)
	}
}

func TestParseDiskFreeTotal(t *testing.T) {
	output := `Total free bytes        :  1,234 ( 1.2 KB)
Total bytes             : 24,335,974,400 (22.7 GB)
Total quota free bytes  :  1,234 ( 1.2 KB)`
	got, ok := ParseDiskFreeTotal(output)
	if !ok {
		t.Fatal("expected total bytes to parse")
	}
	if got != 24335974400 {
		t.Fatalf("unexpected total: %d", got)
	}

	if _, ok := ParseDiskFreeTotal("no numbers here"); ok {
		t.Fatal("expected parse failure")
	}
}

type scriptedExecutor struct {
	outputs map[string][]byte
	calls   []string
}

func (s *scriptedExecutor) Run(_ context.Context, binary string, args []string) ([]byte, error) {
	key := binary + " " + strings.Join(args, " ")
	s.calls = append(s.calls, key)
	if out, ok := s.outputs[key]; ok {
		return out, nil
	}
	return nil, errors.New("command not scripted: " + key)
}

func TestCommandPlatformEjectRejectsBeforeExecuting(t *testing.T) {
	exec := &scriptedExecutor{}
	p := NewCommandPlatform(exec)

	err := p.Eject(context.Background(), "E:; shutdown")
	if !errors.Is(err, ErrInvalidDriveLetter) {
		t.Fatalf("expected ErrInvalidDriveLetter, got %v", err)
	}
	if len(exec.calls) != 0 {
		t.Fatalf("expected no command execution, got %v", exec.calls)
	}
}

func TestCommandPlatformDriveLetters(t *testing.T) {
	exec := &scriptedExecutor{outputs: map[string][]byte{
		"fsutil fsinfo drives": []byte("Drives: C:\\ E:\\\n"),
	}}
	p := NewCommandPlatform(exec)

	letters, err := p.DriveLetters(context.Background())
	if err != nil {
		t.Fatalf("DriveLetters returned error: %v", err)
	}
	if len(letters) != 2 || letters[1] != "E" {
		t.Fatalf("unexpected letters: %v", letters)
	}
}
