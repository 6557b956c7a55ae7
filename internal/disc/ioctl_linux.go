//go:build linux

package disc

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Request numbers and selectors from linux/cdrom.h.
const (
	ioctlCDROMReadTOCHeader = 0x5305
	ioctlCDROMReadTOCEntry  = 0x5306
	ioctlCDROMSubchannel    = 0x530b
	ioctlCDROMReadRaw       = 0x5314
	ioctlCDROMSelectSpeed   = 0x5322
	ioctlCDROMDriveStatus   = 0x5326
	ioctlDVDReadStruct      = 0x5390

	cdromFormatLBA = 0x01
	cdromFormatMSF = 0x02

	// cdslCurrent (INT_MAX) selects the current slot. Slot 0 asks the
	// driver to close the tray first.
	cdslCurrent = 0x7fffffff
)

// cdromTOCHeader mirrors struct cdrom_tochdr.
type cdromTOCHeader struct {
	FirstTrack uint8
	LastTrack  uint8
}

// cdromTOCEntry mirrors struct cdrom_tocentry with the address union read
// as its LBA member.
type cdromTOCEntry struct {
	Track    uint8
	AdrCtrl  uint8
	Format   uint8
	_        uint8
	LBA      int32
	DataMode uint8
	_        [3]byte
}

// cdromSubchannel mirrors struct cdrom_subchnl.
type cdromSubchannel struct {
	Format      uint8
	AudioStatus uint8
	AdrCtrl     uint8
	Track       uint8
	Index       uint8
	_           [3]byte
	AbsAddr     [4]byte
	RelAddr     [4]byte
}

// Adr occupies the low nibble and control the high nibble of the shared
// byte on little-endian builds.
func splitAdrCtrl(b uint8) (adr, ctrl uint8) {
	return b & 0x0f, b >> 4
}

type linuxDevice struct {
	fd int
}

func openDevice(path string) (Device, error) {
	// O_NONBLOCK yields a usable descriptor even when the drive is empty.
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return &linuxDevice{fd: fd}, nil
}

func (d *linuxDevice) ioctl(req uintptr, arg unsafe.Pointer) (uintptr, error) {
	r1, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(arg))
	if errno != 0 {
		return 0, errno
	}
	return r1, nil
}

func (d *linuxDevice) ReadAt(p []byte, off int64) (int, error) {
	n, err := unix.Pread(d.fd, p, off)
	if n < 0 {
		n = 0
	}
	return n, err
}

func (d *linuxDevice) ReadDVDPhysical(layer uint8) (DVDLayer, error) {
	s := newPhysicalQuery(layer)
	if _, err := d.ioctl(ioctlDVDReadStruct, unsafe.Pointer(s)); err != nil {
		return DVDLayer{}, err
	}
	return s.layer(layer), nil
}

func (d *linuxDevice) ReadTOCHeader() (uint8, uint8, error) {
	var hdr cdromTOCHeader
	if _, err := d.ioctl(ioctlCDROMReadTOCHeader, unsafe.Pointer(&hdr)); err != nil {
		return 0, 0, err
	}
	return hdr.FirstTrack, hdr.LastTrack, nil
}

func (d *linuxDevice) ReadTOCEntry(track uint8) (TocEntry, error) {
	entry := cdromTOCEntry{Track: track, Format: cdromFormatLBA}
	if _, err := d.ioctl(ioctlCDROMReadTOCEntry, unsafe.Pointer(&entry)); err != nil {
		return TocEntry{}, err
	}
	adr, ctrl := splitAdrCtrl(entry.AdrCtrl)
	return TocEntry{
		LBA:     uint32(entry.LBA),
		Track:   entry.Track,
		Adr:     adr,
		Control: ctrl,
	}, nil
}

func (d *linuxDevice) ReadRaw(frame *RawFrame) error {
	_, err := d.ioctl(ioctlCDROMReadRaw, unsafe.Pointer(frame))
	return err
}

func (d *linuxDevice) ReadSubchannel() (SubQ, error) {
	sc := cdromSubchannel{Format: cdromFormatMSF}
	if _, err := d.ioctl(ioctlCDROMSubchannel, unsafe.Pointer(&sc)); err != nil {
		return SubQ{}, err
	}
	adr, _ := splitAdrCtrl(sc.AdrCtrl)
	return SubQ{Adr: adr, TrackNum: sc.Track, TrackIndex: sc.Index}, nil
}

func (d *linuxDevice) DriveStatus() (DriveStatus, error) {
	r1, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), ioctlCDROMDriveStatus, cdslCurrent)
	if errno != 0 {
		return DriveStatusNoInfo, errno
	}
	return DriveStatus(r1), nil
}

func (d *linuxDevice) SelectSpeed(speed int) error {
	return unix.IoctlSetInt(d.fd, ioctlCDROMSelectSpeed, speed)
}

func (d *linuxDevice) Close() error {
	return unix.Close(d.fd)
}
