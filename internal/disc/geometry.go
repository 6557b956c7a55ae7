package disc

import (
	"fmt"

	"discdrive/internal/logging"
)

// readDVDInfo classifies DVD media from the physical format structure. A
// failing layer 0 query is the normal outcome for CDs.
func (s *IOCtlSource) readDVDInfo() error {
	l0, err := s.dev.ReadDVDPhysical(0)
	if err != nil {
		return fmt.Errorf("dvd layer 0 structure: %w", err)
	}

	geometry, err := dvdGeometry(l0, func() (DVDLayer, error) {
		return s.dev.ReadDVDPhysical(dualLayerLayerNumber)
	})
	if err != nil {
		return err
	}
	s.geometry = geometry
	return nil
}

// dvdGeometry derives the sector count and layer break from the layer 0
// descriptor, querying layer 1 only for parallel track path media.
func dvdGeometry(l0 DVDLayer, layer1 func() (DVDLayer, error)) (Geometry, error) {
	start := l0.StartSector
	end := l0.EndSector

	switch {
	case l0.Layers == 0:
		return Geometry{
			Media:       MediaDVDSingleLayer,
			LayerBreak:  0,
			SectorCount: end - start + 1,
		}, nil

	case l0.TrackPath == 0:
		l1, err := layer1()
		if err != nil {
			return Geometry{}, fmt.Errorf("dvd layer 1 structure: %w", err)
		}
		return Geometry{
			Media:       MediaDVDDualLayerPTP,
			LayerBreak:  end - start,
			SectorCount: end - start + 1 + l1.EndSector - l1.StartSector + 1,
		}, nil

	default:
		// Layer 1 of an opposite track path disc counts addresses down, so its
		// start is the 24-bit complement of the last layer 0 address.
		endL0 := l0.EndSectorL0
		return Geometry{
			Media:       MediaDVDDualLayerOTP,
			LayerBreak:  endL0 - start,
			SectorCount: endL0 - start + 1 + end - (^endL0 & otpAddressSpaceMask) + 1,
		}, nil
	}
}

// readCDInfo enumerates the table of contents. Tracks that fail to answer are
// left out; a missing header or lead-out fails the probe.
func (s *IOCtlSource) readCDInfo() error {
	first, last, err := s.dev.ReadTOCHeader()
	if err != nil {
		return fmt.Errorf("toc header: %w", err)
	}

	toc := make([]TocEntry, 0, max(int(last)-int(first)+1, 0))
	for n := int(first); n <= int(last); n++ {
		entry, err := s.dev.ReadTOCEntry(uint8(n))
		if err != nil {
			s.logger.Debug("toc entry unavailable",
				logging.Int("track", n),
				logging.Error(err),
			)
			continue
		}
		toc = append(toc, entry)
	}

	leadOut, err := s.dev.ReadTOCEntry(LeadOutTrack)
	if err != nil {
		return fmt.Errorf("toc lead-out: %w", err)
	}

	s.toc = toc
	s.geometry = Geometry{
		Media:       MediaCD,
		SectorCount: leadOut.LBA,
	}
	return nil
}
