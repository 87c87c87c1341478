// Package makemkv mediates access to the makemkvcon CLI used for disc
// enumeration and backups.
//
// It normalizes command invocation, formalizes the robot-mode output as a
// total line grammar (drive records, messages, progress), classifies
// free-text diagnostics into recoverable and fatal failures, and exposes
// testable interfaces for the drive enumerator and the backup orchestrator.
//
// Prefer this package over ad-hoc exec.Command usage when interacting with
// MakeMKV so progress reporting and timeout handling remain consistent.
package makemkv
