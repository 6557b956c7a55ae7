package disc

import (
	"errors"

	"discdrive/internal/logging"
)

const (
	modeCooked = "cooked"
	modeRaw    = "raw"
)

// ReadSectors2048 reads count user-data sectors starting at sector with one
// positioned read. Anything short of the full count*2048 bytes fails the
// call; nothing is retried.
func (s *IOCtlSource) ReadSectors2048(sector, count uint32, buf []byte) error {
	expected := int(count) * SectorSize
	if s.dev == nil {
		return s.readFailed(&ReadError{Mode: modeCooked, First: sector, Last: lastSector(sector, count), Expected: expected, Err: ErrClosed})
	}
	if len(buf) < expected {
		return s.readFailed(&ReadError{Mode: modeCooked, First: sector, Last: lastSector(sector, count), Expected: expected, Err: errShortBuffer})
	}

	n, err := s.dev.ReadAt(buf[:expected], int64(sector)*SectorSize)
	if n == expected {
		return nil
	}
	readErr := &ReadError{
		Mode:     modeCooked,
		First:    sector,
		Last:     lastSector(sector, count),
		Expected: expected,
		Got:      n,
	}
	// io.EOF on a short read says nothing beyond the byte count.
	if err != nil && n == 0 {
		readErr.Err = err
	}
	return s.readFailed(readErr)
}

// ReadSectors2352 reads count raw frames starting at sector, one control
// request per frame. The first failing frame aborts the call; frames copied
// before it stay in buf but the call as a whole has failed.
func (s *IOCtlSource) ReadSectors2352(sector, count uint32, buf []byte) error {
	expected := int(count) * RawSectorSize
	if s.dev == nil {
		return s.readFailed(&ReadError{Mode: modeRaw, First: sector, Last: lastSector(sector, count), Expected: expected, Err: ErrClosed})
	}
	if len(buf) < expected {
		return s.readFailed(&ReadError{Mode: modeRaw, First: sector, Last: lastSector(sector, count), Expected: expected, Err: errShortBuffer})
	}

	var frame RawFrame
	for n := uint32(0); n < count; n++ {
		lba := sector + n
		frame.encodeMSF(LBAToMSF(lba))
		if err := s.dev.ReadRaw(&frame); err != nil {
			return s.readFailed(&ReadError{
				Mode:     modeRaw,
				First:    lba,
				Last:     lba,
				Expected: RawSectorSize,
				Err:      err,
			})
		}
		copy(buf[int(n)*RawSectorSize:], frame[:])
	}
	return nil
}

var errShortBuffer = errors.New("destination buffer too small")

func lastSector(sector, count uint32) uint32 {
	if count == 0 {
		return sector
	}
	return sector + count - 1
}

func (s *IOCtlSource) readFailed(err *ReadError) error {
	logging.WarnWithContext(s.logger, "sector read failed", "sector_read_failed",
		logging.String("mode", err.Mode),
		logging.Uint64("first_sector", uint64(err.First)),
		logging.Uint64("last_sector", uint64(err.Last)),
		logging.Int("bytes_expected", err.Expected),
		logging.Int("bytes_read", err.Got),
		logging.Error(err),
		logging.String(logging.FieldImpact, "request returned no data"),
	)
	return err
}
