// Package armcache stores fingerprint-to-title matches in SQLite so a disc
// seen before can be named before extraction finishes.
package armcache
