// Package preflight provides readiness checks for the drive and the paths
// discdrive depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll when it starts and logs every failure; a failed
//     check does not stop it, since a drive may appear later.
//   - The CLI "discdrive check" command prints every result.
package preflight
