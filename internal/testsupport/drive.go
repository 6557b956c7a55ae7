package testsupport

import (
	"errors"
	"io"
	"sync"

	"discdrive/internal/disc"
)

// ErrFakeIO is the default error fake drives return for injected failures.
var ErrFakeIO = errors.New("fake drive i/o error")

// FakeDrive is an in-memory disc.Device. Zero values answer every query with
// a failure, so tests only fill in what the simulated medium supports.
type FakeDrive struct {
	// Data backs cooked reads; sector n lives at Data[n*2048:].
	Data []byte
	// ShortRead caps every cooked read to this many bytes when positive.
	ShortRead int
	ReadErr   error

	// DVD maps layer numbers to their physical descriptors. A missing layer
	// fails the structure query.
	DVD map[uint8]disc.DVDLayer

	HasTOC   bool
	TOCFirst uint8
	TOCLast  uint8
	// Tracks maps track numbers (including disc.LeadOutTrack) to entries.
	// A missing track fails its query.
	Tracks map[uint8]disc.TocEntry

	// RawFail makes the raw read of the given LBA fail.
	RawFail     map[uint32]error
	RawRequests []disc.MSF

	SubQ    disc.SubQ
	SubQErr error

	// Status may be changed with SetStatus while another goroutine polls.
	Status    disc.DriveStatus
	StatusErr error
	statusMu  sync.Mutex

	Speeds   []int
	SpeedErr error
	CloseErr error
	Closed   bool
}

// NewCDDrive returns a drive holding a CD whose tracks start at the given
// LBAs (track numbers 1..n) with the lead-out at leadOut.
func NewCDDrive(leadOut uint32, starts ...uint32) *FakeDrive {
	d := &FakeDrive{
		HasTOC:   true,
		TOCFirst: 1,
		TOCLast:  uint8(len(starts)),
		Tracks:   map[uint8]disc.TocEntry{},
		Status:   disc.DriveStatusDiscOK,
	}
	for i, lba := range starts {
		track := uint8(i + 1)
		d.Tracks[track] = disc.TocEntry{LBA: lba, Track: track, Adr: 1, Control: 0x04}
	}
	d.Tracks[disc.LeadOutTrack] = disc.TocEntry{LBA: leadOut, Track: disc.LeadOutTrack, Adr: 1, Control: 0x04}
	return d
}

// NewDVDDrive returns a drive holding a DVD described by the given layer
// descriptors (index = layer number).
func NewDVDDrive(layers ...disc.DVDLayer) *FakeDrive {
	d := &FakeDrive{
		DVD:    map[uint8]disc.DVDLayer{},
		Status: disc.DriveStatusDiscOK,
	}
	for i, l := range layers {
		d.DVD[uint8(i)] = l
	}
	return d
}

// FillPattern allocates Data for the given number of cooked sectors, each
// byte derived from its absolute offset.
func (d *FakeDrive) FillPattern(sectors int) {
	d.Data = make([]byte, sectors*disc.SectorSize)
	for i := range d.Data {
		d.Data[i] = byte(i*7 + i/disc.SectorSize)
	}
}

// RawPattern returns the frame content the fake serves for lba.
func RawPattern(lba uint32) []byte {
	frame := make([]byte, disc.RawSectorSize)
	for i := range frame {
		frame[i] = byte(int(lba) + i)
	}
	return frame
}

func (d *FakeDrive) ReadAt(p []byte, off int64) (int, error) {
	if d.ReadErr != nil {
		return 0, d.ReadErr
	}
	if off >= int64(len(d.Data)) {
		return 0, io.EOF
	}
	n := copy(p, d.Data[off:])
	if d.ShortRead > 0 && n > d.ShortRead {
		n = d.ShortRead
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (d *FakeDrive) ReadDVDPhysical(layer uint8) (disc.DVDLayer, error) {
	l, ok := d.DVD[layer]
	if !ok {
		return disc.DVDLayer{}, ErrFakeIO
	}
	return l, nil
}

func (d *FakeDrive) ReadTOCHeader() (uint8, uint8, error) {
	if !d.HasTOC {
		return 0, 0, ErrFakeIO
	}
	return d.TOCFirst, d.TOCLast, nil
}

func (d *FakeDrive) ReadTOCEntry(track uint8) (disc.TocEntry, error) {
	entry, ok := d.Tracks[track]
	if !ok {
		return disc.TocEntry{}, ErrFakeIO
	}
	return entry, nil
}

func (d *FakeDrive) ReadRaw(frame *disc.RawFrame) error {
	addr := frame.Address()
	d.RawRequests = append(d.RawRequests, addr)
	lba := addr.LBA()
	if err, ok := d.RawFail[lba]; ok {
		return err
	}
	copy(frame[:], RawPattern(lba))
	return nil
}

func (d *FakeDrive) ReadSubchannel() (disc.SubQ, error) {
	if d.SubQErr != nil {
		return disc.SubQ{}, d.SubQErr
	}
	return d.SubQ, nil
}

// SetStatus changes the reported drive status.
func (d *FakeDrive) SetStatus(status disc.DriveStatus) {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	d.Status = status
}

func (d *FakeDrive) DriveStatus() (disc.DriveStatus, error) {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	if d.StatusErr != nil {
		return disc.DriveStatusNoInfo, d.StatusErr
	}
	return d.Status, nil
}

func (d *FakeDrive) SelectSpeed(speed int) error {
	d.Speeds = append(d.Speeds, speed)
	return d.SpeedErr
}

func (d *FakeDrive) Close() error {
	d.Closed = true
	return d.CloseErr
}

// FakeOpener hands out Drive on every open and counts the calls.
type FakeOpener struct {
	Drive *FakeDrive
	Err   error
	Opens int
	Paths []string
}

// Open implements disc.Opener.
func (o *FakeOpener) Open(path string) (disc.Device, error) {
	o.Opens++
	o.Paths = append(o.Paths, path)
	if o.Err != nil {
		return nil, o.Err
	}
	if o.Drive == nil {
		return nil, ErrFakeIO
	}
	o.Drive.Closed = false
	return o.Drive, nil
}

// NewFakeSource returns an IOCtlSource wired to drive through a counting
// opener.
func NewFakeSource(drive *FakeDrive, opts ...disc.Option) (*disc.IOCtlSource, *FakeOpener) {
	opener := &FakeOpener{Drive: drive}
	opts = append([]disc.Option{disc.WithOpener(opener.Open)}, opts...)
	return disc.NewIOCtlSource("/dev/sr0", opts...), opener
}
