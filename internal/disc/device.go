package disc

// Device is an open handle on an optical drive. The Linux implementation
// maps each method onto one pread or CD-ROM/DVD control request; tests supply
// fakes.
type Device interface {
	// ReadAt performs a single positioned read.
	ReadAt(p []byte, off int64) (int, error)
	// ReadDVDPhysical queries the physical format structure of one layer.
	ReadDVDPhysical(layer uint8) (DVDLayer, error)
	// ReadTOCHeader returns the first and last track numbers.
	ReadTOCHeader() (first, last uint8, err error)
	// ReadTOCEntry returns the LBA-format entry for one track.
	ReadTOCEntry(track uint8) (TocEntry, error)
	// ReadRaw reads the raw frame addressed by the MSF encoded in frame.
	ReadRaw(frame *RawFrame) error
	// ReadSubchannel returns the current Q subchannel position.
	ReadSubchannel() (SubQ, error)
	// DriveStatus queries the current slot of the drive.
	DriveStatus() (DriveStatus, error)
	// SelectSpeed requests a spindle speed; 0 selects the drive default.
	SelectSpeed(speed int) error
	Close() error
}

// Opener opens a device path for read-only, non-blocking access.
type Opener func(path string) (Device, error)

// DVDLayer is the decoded physical format descriptor of one DVD layer.
type DVDLayer struct {
	// Layers is the raw "number of layers" field: 0 for single layer.
	Layers uint8
	// TrackPath is 0 for parallel and 1 for opposite track path.
	TrackPath   uint8
	StartSector uint32
	EndSector   uint32
	EndSectorL0 uint32
}
