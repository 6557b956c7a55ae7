package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"hash"
	"time"

	"discdrive/internal/disc"
)

const (
	descriptorSector = 16
	descriptorCount  = 4
)

// ErrNoDisc is returned when the source reports no usable geometry.
var ErrNoDisc = errors.New("no disc geometry to fingerprint")

// Compute returns a deterministic fingerprint for the disc currently cached
// by src. It does not reprobe; call DiscReady or Reopen first.
func Compute(ctx context.Context, src disc.Source) (string, error) {
	if src == nil {
		return "", ErrNoDisc
	}
	geometry := src.Geometry()
	if geometry.Empty() {
		return "", ErrNoDisc
	}

	h := sha256.New()
	toc := src.ReadTOC()
	writeLayout(h, geometry, toc)

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if hasDataArea(geometry, toc) {
		buf := make([]byte, descriptorCount*disc.SectorSize)
		if err := src.ReadSectors2048(descriptorSector, descriptorCount, buf); err == nil {
			_, _ = h.Write([]byte("content"))
			_, _ = h.Write(buf)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ComputeTimeout wraps Compute with a deadline. The default timeout is 30
// seconds.
func ComputeTimeout(ctx context.Context, src disc.Source, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return Compute(ctx, src)
}

func writeLayout(h hash.Hash, g disc.Geometry, toc []disc.TocEntry) {
	var word [4]byte
	put := func(v uint32) {
		binary.BigEndian.PutUint32(word[:], v)
		_, _ = h.Write(word[:])
	}

	_, _ = h.Write([]byte(g.Media.String()))
	_, _ = h.Write([]byte{0})
	put(g.SectorCount)
	put(g.LayerBreak)
	for _, entry := range toc {
		_, _ = h.Write([]byte{entry.Track, entry.Adr, entry.Control})
		put(entry.LBA)
	}
}

func hasDataArea(g disc.Geometry, toc []disc.TocEntry) bool {
	if g.Media.IsDVD() {
		return g.SectorCount > descriptorSector+descriptorCount
	}
	return len(toc) > 0 && toc[0].IsData()
}
