// Package backup coordinates parallel disc extractions. The orchestrator
// owns the registry of in-flight backups, enforces at most one extraction
// per drive, captures a fingerprint before the subprocess starts, streams
// progress and diagnostics to the event bus, and runs post-completion side
// effects.
package backup
