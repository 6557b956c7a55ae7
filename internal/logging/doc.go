// Package logging assembles structured slog loggers and formatting helpers
// used across discdrive.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// attribute helpers that keep field names consistent (event_type,
// error_hint, impact, device). Components take a *slog.Logger and fall back
// to NewNop when none is supplied, so the driver never needs a logger to
// function.
package logging
