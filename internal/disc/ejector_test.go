package disc_test

import (
	"context"
	"errors"
	"testing"

	"platter/internal/disc"
	"platter/internal/platform"
	"platter/internal/testsupport"
)

func TestEjectorRejectsInvalidInputBeforeActing(t *testing.T) {
	p := testsupport.NewOpticalPlatform("E", "MOVIE", 1000)
	ejector := disc.NewEjector(p)

	invalid := []string{"", "EF", "E: & del *", "../E", "E:; shutdown"}
	for _, input := range invalid {
		err := ejector.Eject(context.Background(), input)
		if !errors.Is(err, platform.ErrInvalidDriveLetter) {
			t.Errorf("Eject(%q): expected ErrInvalidDriveLetter, got %v", input, err)
		}
	}
	if len(p.EjectedDrives()) != 0 {
		t.Fatalf("no eject should have run, got %v", p.EjectedDrives())
	}
}

func TestEjectorNormalizesDriveLetter(t *testing.T) {
	p := testsupport.NewOpticalPlatform("E", "MOVIE", 1000)
	ejector := disc.NewEjector(p)

	for _, input := range []string{"e", "E:", `e\`} {
		if err := ejector.Eject(context.Background(), input); err != nil {
			t.Fatalf("Eject(%q): %v", input, err)
		}
	}
	ejected := p.EjectedDrives()
	if len(ejected) != 3 {
		t.Fatalf("expected 3 ejects, got %v", ejected)
	}
	for _, letter := range ejected {
		if letter != "E" {
			t.Fatalf("expected normalized letter E, got %q", letter)
		}
	}
}
