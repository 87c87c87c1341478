// Package history keeps a durable record of finished backup runs.
package history
