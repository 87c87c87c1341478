// Package identify defines the boundary to the identification pipeline that
// names extracted disc content. Identification is asynchronous and advisory;
// it never blocks or fails a backup.
package identify
