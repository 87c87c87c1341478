// Package fingerprint captures a stable, disc-derived identity for inserted
// media before extraction mutates any file timestamps. Strategies run in a
// fixed priority order, strongest signal first, and degrade to an unknown
// fingerprint rather than failing the backup.
package fingerprint
