package disc

// Source is a random-access sector source backed by some disc medium. The
// consuming disc subsystem depends only on this interface so physical drives
// and other backends are interchangeable.
//
// Implementations are not safe for concurrent use; callers serialize access.
type Source interface {
	// Reopen (re)opens the backing medium and recomputes its geometry.
	Reopen() error
	// Close releases the backing medium.
	Close() error

	// ReadSectors2048 reads count cooked sectors starting at sector into buf.
	ReadSectors2048(sector, count uint32, buf []byte) error
	// ReadSectors2352 reads count raw frames starting at sector into buf.
	ReadSectors2352(sector, count uint32, buf []byte) error
	// ReadTOC returns the tracks found by the last successful CD probe.
	ReadTOC() []TocEntry
	// ReadTrackSubQ returns the current subchannel position.
	ReadTrackSubQ() (SubQ, error)
	// DiscReady reports whether a usable disc is present, reprobing or
	// clearing geometry as the drive state changes.
	DiscReady() bool
	// IsOpen reports whether the backing medium currently holds a handle.
	IsOpen() bool

	Geometry() Geometry
	SectorCount() uint32
	LayerBreak() uint32
	MediaType() MediaType
}

// ReopenObserver is implemented by sources that report every Reopen,
// including those DiscReady starts on its own.
type ReopenObserver interface {
	ObserveReopen(fn func(error))
}
