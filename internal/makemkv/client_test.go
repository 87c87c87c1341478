package makemkv_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"platter/internal/makemkv"
)

type fakeExecutor struct {
	lines []string
	err   error
	calls [][]string
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string, onStdout func(string)) error {
	f.calls = append(f.calls, append([]string{binary}, args...))
	for _, line := range f.lines {
		if onStdout != nil {
			onStdout(line)
		}
	}
	return f.err
}

func TestDrivesRetainsOnlyMediaPresent(t *testing.T) {
	exec := &fakeExecutor{lines: []string{
		`DRV:0,2,999,12,"BD-RE ASUS BW-16D1HT","THE_DARK_KNIGHT","E:"`,
		`DRV:1,0,999,0,"DVD drive","",""`,
		`DRV:2,256,999,0,"DVD drive","","F:"`,
		`DRV:3,2,999,1,"DVD drive","HOME_MOVIES","G:"`,
		`DRV:4,2,999,1,"weird record with no letter","ORPHAN",""`,
		`DRV:malformed`,
		`MSG:1005,0,1,"MakeMKV started","%1","MakeMKV"`,
	}}

	client, err := makemkv.New("makemkvcon", 30, 60, makemkv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	mapping, err := client.Drives(context.Background())
	if err != nil {
		t.Fatalf("Drives returned error: %v", err)
	}
	if len(mapping) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(mapping), mapping)
	}

	bluray, ok := mapping["E"]
	if !ok {
		t.Fatal("expected mapping for drive E")
	}
	if bluray.Index != 0 || bluray.TypeCode != makemkv.TypeCodeBluRay || bluray.DiscName != "THE_DARK_KNIGHT" {
		t.Fatalf("unexpected record for E: %+v", bluray)
	}

	dvd, ok := mapping["G"]
	if !ok {
		t.Fatal("expected mapping for drive G")
	}
	if dvd.Index != 3 || dvd.TypeCode == makemkv.TypeCodeBluRay {
		t.Fatalf("unexpected record for G: %+v", dvd)
	}
}

func TestDrivesReturnsEmptyMapOnExecutionFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("executable file not found")}
	client, err := makemkv.New("makemkvcon", 30, 60, makemkv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	mapping, err := client.Drives(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if len(mapping) != 0 {
		t.Fatalf("expected empty mapping, got %v", mapping)
	}
}

func TestBackupStreamsProgressAndCollectsErrors(t *testing.T) {
	exec := &fakeExecutor{lines: []string{
		`PRGT:5018,0,"Backing up disc"`,
		`PRGC:5019,0,"Copying files"`,
		"PRGV:0,32768,65536",
		`MSG:2003,0,1,"Error reading sector 12345 - bad sector","%1","..."`,
		"PRGV:0,65536,65536",
		`MSG:5004,0,2,"2 titles saved, 1 failed","%1 titles saved, %2 failed","2","1"`,
	}}

	client, err := makemkv.New("makemkvcon", 30, 60, makemkv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	var updates []makemkv.ProgressUpdate
	var logs []string
	result, err := client.Backup(context.Background(), 0, t.TempDir(),
		func(update makemkv.ProgressUpdate) { updates = append(updates, update) },
		func(line string) { logs = append(logs, line) },
	)
	if err != nil {
		t.Fatalf("Backup returned error: %v", err)
	}

	if len(updates) < 2 {
		t.Fatalf("expected progress updates, got %d", len(updates))
	}
	last := updates[len(updates)-1]
	if last.Percent != 100 {
		t.Fatalf("expected final percent 100, got %v", last.Percent)
	}
	if last.Stage != "Backing up disc" {
		t.Fatalf("unexpected stage: %q", last.Stage)
	}

	if len(logs) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %v", len(logs), logs)
	}

	if result.SavedTitles != 2 || result.FailedTitles != 1 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error record, got %d", len(result.Errors))
	}
	if result.Errors[0].Error != makemkv.ErrorLabelRead {
		t.Fatalf("unexpected error label: %q", result.Errors[0].Error)
	}
	wantPercent := float64(2) / 3 * 100
	if result.RecoveryPercent != wantPercent {
		t.Fatalf("unexpected recovery percent: %v", result.RecoveryPercent)
	}
}

func TestBackupTargetsRequestedDiscIndex(t *testing.T) {
	exec := &fakeExecutor{}
	client, err := makemkv.New("makemkvcon", 30, 60, makemkv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if _, err := client.Backup(context.Background(), 3, t.TempDir(), nil, nil); err != nil {
		t.Fatalf("Backup returned error: %v", err)
	}

	if len(exec.calls) != 1 {
		t.Fatalf("expected one invocation, got %d", len(exec.calls))
	}
	joined := strings.Join(exec.calls[0], " ")
	if !strings.Contains(joined, "backup --decrypt disc:3") {
		t.Fatalf("expected disc:3 target, got %q", joined)
	}
}

func TestBackupSubprocessFailureIsAuthoritative(t *testing.T) {
	exec := &fakeExecutor{
		lines: []string{
			`MSG:5004,0,2,"1 titles saved, 0 failed","%1 titles saved, %2 failed","1","0"`,
		},
		err: errors.New("exit status 1"),
	}
	client, err := makemkv.New("makemkvcon", 30, 60, makemkv.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	result, err := client.Backup(context.Background(), 0, t.TempDir(), nil, nil)
	if err == nil {
		t.Fatal("expected error from failing subprocess")
	}
	if !errors.Is(err, makemkv.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool, got %v", err)
	}
	if result == nil || result.SavedTitles != 1 {
		t.Fatalf("expected partial result alongside error, got %+v", result)
	}
}

func TestBackupRejectsNegativeIndex(t *testing.T) {
	client, err := makemkv.New("makemkvcon", 30, 60, makemkv.WithExecutor(&fakeExecutor{}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Backup(context.Background(), -1, t.TempDir(), nil, nil); err == nil {
		t.Fatal("expected error for negative disc index")
	}
}
