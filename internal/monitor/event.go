package monitor

import (
	"time"

	"discdrive/internal/disc"
)

// EventKind distinguishes insertion from removal.
type EventKind int

const (
	Inserted EventKind = iota + 1
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event reports a disc transition. Geometry, Tracks and Fingerprint describe
// the inserted disc, or the disc that left for Removed.
type Event struct {
	Kind        EventKind
	Device      string
	Geometry    disc.Geometry
	Tracks      []disc.TocEntry
	Fingerprint string
	At          time.Time
}
