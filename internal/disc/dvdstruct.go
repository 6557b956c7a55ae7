package disc

import "encoding/binary"

// The DVD_READ_STRUCT request copies a whole dvd_struct union in and out of
// user memory, so the buffer must be as large as its largest member
// (dvd_manufact: type, layer_num, pad, int len, 2048 value bytes).
const dvdStructSize = 2056

const (
	dvdStructPhysical = 0x00

	// Offsets inside dvd_physical.
	dvdOffType     = 0
	dvdOffLayerNum = 1
	dvdOffLayers   = 4
	dvdLayerSize   = 20

	// Offsets inside one dvd_layer.
	dvdLayerOffFlags     = 2
	dvdLayerOffStart     = 8
	dvdLayerOffEnd       = 12
	dvdLayerOffEndL0     = 16
	dvdMaxLayers         = 4
	dvdTrackPathBit      = 4
	dvdLayerCountShift   = 5
	dvdLayerCountMask    = 0x03
	dvdTrackPathMask     = 0x01
	otpAddressSpaceMask  = 0xFFFFFF
	dualLayerLayerNumber = 1
)

// dvdStruct is the request/response buffer for a physical structure query.
type dvdStruct [dvdStructSize]byte

func newPhysicalQuery(layer uint8) *dvdStruct {
	var s dvdStruct
	s[dvdOffType] = dvdStructPhysical
	s[dvdOffLayerNum] = layer
	return &s
}

// layer decodes the descriptor the drive filled in for the given layer.
// Bitfields follow the little-endian GCC layout of struct dvd_layer: byte 2
// holds layer_type in bits 0-3, track_path in bit 4 and nlayers in bits 5-6.
func (s *dvdStruct) layer(n uint8) DVDLayer {
	if n >= dvdMaxLayers {
		return DVDLayer{}
	}
	base := dvdOffLayers + int(n)*dvdLayerSize
	flags := s[base+dvdLayerOffFlags]
	return DVDLayer{
		Layers:      (flags >> dvdLayerCountShift) & dvdLayerCountMask,
		TrackPath:   (flags >> dvdTrackPathBit) & dvdTrackPathMask,
		StartSector: binary.NativeEndian.Uint32(s[base+dvdLayerOffStart:]),
		EndSector:   binary.NativeEndian.Uint32(s[base+dvdLayerOffEnd:]),
		EndSectorL0: binary.NativeEndian.Uint32(s[base+dvdLayerOffEndL0:]),
	}
}

// setLayer encodes a descriptor the way the kernel would. Used by fakes.
func (s *dvdStruct) setLayer(n uint8, l DVDLayer) {
	if n >= dvdMaxLayers {
		return
	}
	base := dvdOffLayers + int(n)*dvdLayerSize
	s[base+dvdLayerOffFlags] = (l.Layers&dvdLayerCountMask)<<dvdLayerCountShift |
		(l.TrackPath&dvdTrackPathMask)<<dvdTrackPathBit
	binary.NativeEndian.PutUint32(s[base+dvdLayerOffStart:], l.StartSector)
	binary.NativeEndian.PutUint32(s[base+dvdLayerOffEnd:], l.EndSector)
	binary.NativeEndian.PutUint32(s[base+dvdLayerOffEndL0:], l.EndSectorL0)
}
