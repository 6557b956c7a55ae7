// Package daemon coordinates the long-running discdrive process.
//
// It wires the configured drive, the disc monitor, the history store and
// the metrics registry into a single lifecycle with flock-based locking to
// prevent multiple instances and to keep one-shot CLI reads off a drive the
// daemon is polling. An HTTP listener serves /api/status and /metrics.
package daemon
