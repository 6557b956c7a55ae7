// Package config loads, normalizes, and validates discdrive configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts),
// reads TOML files, and honours the DISCDRIVE_DEVICE environment fallback.
// The CLI and daemon obtain every setting through Load so downstream code
// receives canonical device paths, expanded directories, and clear
// validation errors.
package config
