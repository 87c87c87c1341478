//go:build !windows

package platform

// New returns the default platform for this build target. Without native OS
// bindings the command-backed implementation is used; individual calls fail
// cleanly when the underlying utilities are absent and drive detection
// degrades to an empty scan with recorded errors.
func New() Platform {
	return NewCommandPlatform(nil)
}
