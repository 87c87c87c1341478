// Package logging builds the slog loggers used across the daemon and CLI.
//
// It provides console and JSON handlers, attribute helper shorthands, and
// component-scoped logger construction so every subsystem logs with the same
// field vocabulary (component, drive_id, disc_name, event_type).
package logging
