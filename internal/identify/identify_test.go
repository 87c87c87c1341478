package identify

import (
	"context"
	"errors"
	"testing"
)

type scriptedExecutor struct {
	output []byte
	err    error
	binary string
	args   []string
}

func (s *scriptedExecutor) Run(_ context.Context, binary string, args []string) ([]byte, error) {
	s.binary = binary
	s.args = args
	return s.output, s.err
}

func TestCommandIdentifierParsesResult(t *testing.T) {
	exec := &scriptedExecutor{output: []byte(`{"title":"Inception","year":2010,"media_type":"movie"}`)}
	identifier := NewCommand("identify-disc", 30, WithExecutor(exec))

	result, err := identifier.Identify(context.Background(), Request{
		DriveID:   0,
		DiscName:  "INCEPTION",
		BackupDir: "/backups/INCEPTION",
	})
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if result.Title != "Inception" || result.Year != 2010 || result.MediaType != "movie" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if exec.binary != "identify-disc" {
		t.Fatalf("unexpected binary: %q", exec.binary)
	}
	if len(exec.args) != 2 || exec.args[0] != "/backups/INCEPTION" || exec.args[1] != "INCEPTION" {
		t.Fatalf("unexpected args: %v", exec.args)
	}
}

func TestCommandIdentifierRejectsEmptyTitle(t *testing.T) {
	exec := &scriptedExecutor{output: []byte(`{"title":"  "}`)}
	identifier := NewCommand("identify-disc", 30, WithExecutor(exec))

	if _, err := identifier.Identify(context.Background(), Request{}); err == nil {
		t.Fatal("expected error for empty title")
	}
}

func TestCommandIdentifierFallsBackToVolumeLabel(t *testing.T) {
	exec := &scriptedExecutor{output: []byte(`{"title":""}`)}
	identifier := NewCommand("identify-disc", 30, WithExecutor(exec))

	result, err := identifier.Identify(context.Background(), Request{DiscName: "THE_DARK_KNIGHT"})
	if err != nil {
		t.Fatalf("identify: %v", err)
	}
	if result.Title != "The Dark Knight" {
		t.Fatalf("expected label fallback, got %+v", result)
	}

	// Generic labels never seed a title.
	if _, err := identifier.Identify(context.Background(), Request{DiscName: "DVD_VIDEO"}); err == nil {
		t.Fatal("expected error for generic label")
	}
}

func TestCommandIdentifierPropagatesExecFailure(t *testing.T) {
	exec := &scriptedExecutor{err: errors.New("exit status 1")}
	identifier := NewCommand("identify-disc", 30, WithExecutor(exec))

	if _, err := identifier.Identify(context.Background(), Request{}); err == nil {
		t.Fatal("expected error from failing command")
	}
}

func TestNopIdentifier(t *testing.T) {
	if _, err := NewNop().Identify(context.Background(), Request{}); err == nil {
		t.Fatal("expected disabled error")
	}
}
