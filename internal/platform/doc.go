// Package platform abstracts the operating-system capabilities drive
// detection needs: drive-letter enumeration, drive-type and volume-label
// queries, free-space lookups, media probes, and tray eject.
//
// The Platform interface keeps orchestration logic testable without an
// optical drive. The default implementation on Windows talks to the Win32
// API; other build targets fall back to shelling out, which degrades to
// recorded detection errors when the utilities are unavailable.
package platform
