// Package history persists disc insert and removal events in SQLite.
//
// The daemon records one row per detected disc with its geometry, track
// count and fingerprint, then stamps the removal time when the disc leaves
// the drive. The CLI reads the table back for `discdrive history`.
package history
