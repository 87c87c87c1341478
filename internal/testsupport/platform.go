package testsupport

import (
	"context"
	"fmt"
	"sync"

	"platter/internal/platform"
)

// FakePlatform is an injectable platform.Platform double. Zero value is an
// empty machine with no drives; populate the maps to script behaviour.
type FakePlatform struct {
	mu sync.Mutex

	Letters    []string
	LettersErr error
	Types      map[string]platform.DriveType
	Labels     map[string]string
	LabelErrs  map[string]error
	Sizes      map[string]int64
	SizeErrs   map[string]error
	ProbeErrs  map[string]error
	EjectErrs  map[string]error

	Ejected []string
}

var _ platform.Platform = (*FakePlatform)(nil)

// NewOpticalPlatform builds a fake with one optical drive holding labeled
// media, the common case in orchestrator tests.
func NewOpticalPlatform(letter, label string, size int64) *FakePlatform {
	return &FakePlatform{
		Letters: []string{"C", letter},
		Types: map[string]platform.DriveType{
			"C":    platform.DriveFixed,
			letter: platform.DriveOptical,
		},
		Labels: map[string]string{letter: label},
		Sizes:  map[string]int64{letter: size},
	}
}

func (f *FakePlatform) DriveLetters(context.Context) ([]string, error) {
	if f.LettersErr != nil {
		return nil, f.LettersErr
	}
	out := make([]string, len(f.Letters))
	copy(out, f.Letters)
	return out, nil
}

func (f *FakePlatform) DriveType(_ context.Context, letter string) (platform.DriveType, error) {
	if t, ok := f.Types[letter]; ok {
		return t, nil
	}
	return platform.DriveUnknown, nil
}

func (f *FakePlatform) VolumeLabel(_ context.Context, letter string) (string, error) {
	if err, ok := f.LabelErrs[letter]; ok {
		return "", err
	}
	return f.Labels[letter], nil
}

func (f *FakePlatform) DiskSize(_ context.Context, letter string) (int64, error) {
	if err, ok := f.SizeErrs[letter]; ok {
		return 0, err
	}
	if size, ok := f.Sizes[letter]; ok {
		return size, nil
	}
	return 0, fmt.Errorf("no size scripted for drive %s", letter)
}

func (f *FakePlatform) ProbeRoot(_ context.Context, letter string) error {
	if err, ok := f.ProbeErrs[letter]; ok {
		return err
	}
	return nil
}

func (f *FakePlatform) Eject(_ context.Context, letter string) error {
	if err, ok := f.EjectErrs[letter]; ok {
		return err
	}
	f.mu.Lock()
	f.Ejected = append(f.Ejected, letter)
	f.mu.Unlock()
	return nil
}

// EjectedDrives returns the letters ejected so far.
func (f *FakePlatform) EjectedDrives() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Ejected))
	copy(out, f.Ejected)
	return out
}
