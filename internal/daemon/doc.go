// Package daemon hosts the backup orchestrator behind a single-instance file
// lock and exposes the operations the IPC surface serves.
package daemon
