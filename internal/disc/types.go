package disc

import "fmt"

const (
	// SectorSize is the size of a cooked (user data only) sector.
	SectorSize = 2048
	// RawSectorSize is the size of a full raw CD frame.
	RawSectorSize = 2352
	// LeadOutTrack is the synthetic track number the drive reports for the
	// lead-out area.
	LeadOutTrack = 0xAA
)

// MediaType classifies the medium currently in the drive.
type MediaType int

const (
	// MediaNone means no usable disc has been detected.
	MediaNone MediaType = iota
	MediaCD
	MediaDVDSingleLayer
	// MediaDVDDualLayerPTP is a dual-layer DVD with parallel track path.
	MediaDVDDualLayerPTP
	// MediaDVDDualLayerOTP is a dual-layer DVD with opposite track path.
	MediaDVDDualLayerOTP
)

// String returns a stable label for the media type.
func (m MediaType) String() string {
	switch m {
	case MediaNone:
		return "none"
	case MediaCD:
		return "cd"
	case MediaDVDSingleLayer:
		return "dvd_single_layer"
	case MediaDVDDualLayerPTP:
		return "dvd_dual_layer_ptp"
	case MediaDVDDualLayerOTP:
		return "dvd_dual_layer_otp"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseMediaType is the inverse of MediaType.String. Unknown labels map to
// MediaNone.
func ParseMediaType(label string) MediaType {
	for m := MediaCD; m <= MediaDVDDualLayerOTP; m++ {
		if m.String() == label {
			return m
		}
	}
	return MediaNone
}

// IsDVD reports whether m is any DVD variant.
func (m MediaType) IsDVD() bool {
	return m == MediaDVDSingleLayer || m == MediaDVDDualLayerPTP || m == MediaDVDDualLayerOTP
}

// Geometry describes the detected size and layout of the medium.
//
// SectorCount is zero exactly when no usable disc is present. LayerBreak is
// only meaningful for dual-layer DVDs and is zero otherwise.
type Geometry struct {
	SectorCount uint32
	LayerBreak  uint32
	Media       MediaType
}

// Empty reports whether the geometry describes no usable disc.
func (g Geometry) Empty() bool {
	return g.SectorCount == 0
}

// IsDualLayer reports whether the geometry carries a meaningful layer break.
func (g Geometry) IsDualLayer() bool {
	return g.Media == MediaDVDDualLayerPTP || g.Media == MediaDVDDualLayerOTP
}

// TocEntry is one physical track from a CD table of contents.
type TocEntry struct {
	LBA     uint32
	Track   uint8
	Adr     uint8
	Control uint8
}

// controlDataTrack is the Q-channel control bit marking a data track.
const controlDataTrack = 0x04

// IsData reports whether the control flags mark a data track.
func (e TocEntry) IsData() bool {
	return e.Control&controlDataTrack != 0
}

// SubQ is a snapshot of the current subchannel Q position.
type SubQ struct {
	Adr        uint8
	TrackNum   uint8
	TrackIndex uint8
}
