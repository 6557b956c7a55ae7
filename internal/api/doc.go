// Package api defines wire-format types for the daemon HTTP endpoints.
//
// DriveStatus carries the current disc as JSON for /api/status and for the
// CLI's --json output; HistoryRecord mirrors a stored detection. DTOs use
// camelCase JSON tags, media types as their lowercase labels, and RFC3339
// timestamps with milliseconds.
package api
