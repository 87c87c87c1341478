// Package notifications sends ntfy push notifications for backup lifecycle
// milestones. With no topic configured every notification is a silent noop.
package notifications
