// Package fingerprint computes deterministic fingerprints for optical discs.
//
// Fingerprints are taken through a disc.Source so they work on whatever
// backend the disc subsystem uses:
//   - layout: media type, sector count, layer break and every TOC entry
//   - content: the volume descriptor area (sectors 16-19) of DVDs and of
//     CDs whose first track carries data
//
// Audio CDs and media whose descriptor area cannot be read fall back to the
// layout alone. The fingerprint is a hex SHA-256 used by the history store
// to recognise a disc that comes back.
package fingerprint
