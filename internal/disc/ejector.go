package disc

import (
	"context"

	"platter/internal/platform"
)

// Ejector defines disc eject operations.
type Ejector interface {
	Eject(ctx context.Context, driveLetter string) error
}

type platformEjector struct {
	platform platform.Platform
}

// NewEjector creates an ejector backed by the platform capability layer.
// Input validation is strict: anything but a single drive letter (optionally
// followed by ':' or '\') is rejected before any external action runs.
func NewEjector(p platform.Platform) Ejector {
	return platformEjector{platform: p}
}

func (e platformEjector) Eject(ctx context.Context, driveLetter string) error {
	letter, err := platform.ValidateDriveLetter(driveLetter)
	if err != nil {
		return err
	}
	return e.platform.Eject(ctx, letter)
}
