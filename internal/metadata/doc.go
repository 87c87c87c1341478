// Package metadata reads and writes the JSON sidecar kept next to extracted
// disc content. Only the fingerprint field is owned here; everything else in
// the file round-trips unchanged.
package metadata
