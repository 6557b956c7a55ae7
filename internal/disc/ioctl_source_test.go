package disc_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"slices"
	"testing"

	"discdrive/internal/disc"
	"discdrive/internal/testsupport"
)

const dvdStart = 0x30000

func TestReopenNonexistentPathFails(t *testing.T) {
	src := disc.NewIOCtlSource(filepath.Join(t.TempDir(), "missing-sr0"))

	err := src.Reopen()
	if err == nil {
		t.Fatal("expected Reopen to fail for a missing device")
	}
	if !errors.Is(err, disc.ErrOpen) && !errors.Is(err, disc.ErrUnsupported) {
		t.Fatalf("expected open failure, got %v", err)
	}
	if src.IsOpen() {
		t.Fatal("handle must stay closed after a failed open")
	}

	buf := make([]byte, disc.SectorSize)
	if err := src.ReadSectors2048(0, 1, buf); !errors.Is(err, disc.ErrClosed) {
		t.Fatalf("cooked read on closed source: %v", err)
	}
	raw := make([]byte, disc.RawSectorSize)
	if err := src.ReadSectors2352(0, 1, raw); !errors.Is(err, disc.ErrClosed) {
		t.Fatalf("raw read on closed source: %v", err)
	}
	if _, err := src.ReadTrackSubQ(); !errors.Is(err, disc.ErrSubchannel) {
		t.Fatalf("subchannel on closed source: %v", err)
	}
	if src.DiscReady() {
		t.Fatal("closed source must not report a disc")
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close on closed source: %v", err)
	}
}

func TestReopenOpenErrorCarriesOSError(t *testing.T) {
	opener := &testsupport.FakeOpener{Err: testsupport.ErrFakeIO}
	src := disc.NewIOCtlSource("sr0", disc.WithOpener(opener.Open))

	err := src.Reopen()
	var openErr *disc.OpenError
	if !errors.As(err, &openErr) {
		t.Fatalf("expected *OpenError, got %T", err)
	}
	if openErr.Path != "/dev/sr0" {
		t.Fatalf("unexpected path %q", openErr.Path)
	}
	if !errors.Is(err, testsupport.ErrFakeIO) {
		t.Fatal("expected the OS error to be wrapped")
	}
}

func TestReopenSingleLayerDVD(t *testing.T) {
	const sectors = 2_000_000
	drive := testsupport.NewDVDDrive(disc.DVDLayer{
		StartSector: dvdStart,
		EndSector:   dvdStart + sectors - 1,
	})
	src, _ := testsupport.NewFakeSource(drive)

	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	g := src.Geometry()
	if g.SectorCount != sectors {
		t.Fatalf("sector count = %d, want %d", g.SectorCount, sectors)
	}
	if g.LayerBreak != 0 {
		t.Fatalf("layer break = %d, want 0", g.LayerBreak)
	}
	if g.Media != disc.MediaDVDSingleLayer {
		t.Fatalf("media = %s", g.Media)
	}
}

func TestReopenDualLayerParallelDVD(t *testing.T) {
	const a, b = 2_086_912, 1_998_000
	drive := testsupport.NewDVDDrive(
		disc.DVDLayer{Layers: 1, TrackPath: 0, StartSector: dvdStart, EndSector: dvdStart + a - 1},
		disc.DVDLayer{Layers: 1, TrackPath: 0, StartSector: dvdStart, EndSector: dvdStart + b - 1},
	)
	src, _ := testsupport.NewFakeSource(drive)

	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if got := src.SectorCount(); got != a+b {
		t.Fatalf("sector count = %d, want %d", got, a+b)
	}
	if got := src.LayerBreak(); got != a-1 {
		t.Fatalf("layer break = %d, want %d", got, a-1)
	}
	if got := src.MediaType(); got != disc.MediaDVDDualLayerPTP {
		t.Fatalf("media = %s", got)
	}
}

func TestReopenDualLayerParallelDVDMissingLayerOneFallsBackToCD(t *testing.T) {
	drive := testsupport.NewDVDDrive(
		disc.DVDLayer{Layers: 1, TrackPath: 0, StartSector: dvdStart, EndSector: dvdStart + 99},
	)
	src, _ := testsupport.NewFakeSource(drive)

	err := src.Reopen()
	if !errors.Is(err, disc.ErrNoMedia) {
		t.Fatalf("expected ErrNoMedia, got %v", err)
	}
	if !src.IsOpen() {
		t.Fatal("a probe failure must leave the handle open")
	}
	if !src.Geometry().Empty() || src.MediaType() != disc.MediaNone {
		t.Fatalf("expected empty geometry, got %+v", src.Geometry())
	}
}

func TestReopenDualLayerOppositeDVD(t *testing.T) {
	const a, b = 0x1000, 0x800
	endL0 := uint32(dvdStart + a - 1)
	l1Start := ^endL0 & 0xFFFFFF
	drive := testsupport.NewDVDDrive(disc.DVDLayer{
		Layers:      1,
		TrackPath:   1,
		StartSector: dvdStart,
		EndSector:   l1Start + b - 1,
		EndSectorL0: endL0,
	})
	src, _ := testsupport.NewFakeSource(drive)

	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if got := src.SectorCount(); got != a+b {
		t.Fatalf("sector count = %#x, want %#x", got, a+b)
	}
	if got := src.LayerBreak(); got != a-1 {
		t.Fatalf("layer break = %#x, want %#x", got, a-1)
	}
	if got := src.MediaType(); got != disc.MediaDVDDualLayerOTP {
		t.Fatalf("media = %s", got)
	}
}

func TestReopenPrefersDVDOverTOC(t *testing.T) {
	drive := testsupport.NewCDDrive(5000, 0)
	drive.DVD = map[uint8]disc.DVDLayer{0: {StartSector: dvdStart, EndSector: dvdStart + 9}}
	src, _ := testsupport.NewFakeSource(drive)

	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if src.MediaType() != disc.MediaDVDSingleLayer {
		t.Fatalf("expected DVD classification, got %s", src.MediaType())
	}
	if toc := src.ReadTOC(); len(toc) != 0 {
		t.Fatalf("DVD must not carry a TOC, got %v", toc)
	}
}

func TestReopenCDSkipsUnansweredTracks(t *testing.T) {
	drive := testsupport.NewCDDrive(180_000, 0, 12_000, 40_000, 90_000)
	delete(drive.Tracks, 2)
	drive.Tracks[3] = disc.TocEntry{LBA: 40_000, Track: 3, Adr: 1, Control: 0x00}
	src, _ := testsupport.NewFakeSource(drive)

	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if src.SectorCount() != 180_000 {
		t.Fatalf("sector count = %d", src.SectorCount())
	}
	if src.MediaType() != disc.MediaCD {
		t.Fatalf("media = %s", src.MediaType())
	}
	if src.LayerBreak() != 0 {
		t.Fatalf("layer break = %d", src.LayerBreak())
	}

	want := []disc.TocEntry{
		{LBA: 0, Track: 1, Adr: 1, Control: 0x04},
		{LBA: 40_000, Track: 3, Adr: 1, Control: 0x00},
		{LBA: 90_000, Track: 4, Adr: 1, Control: 0x04},
	}
	got := src.ReadTOC()
	if len(got) != len(want) {
		t.Fatalf("toc = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("toc[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if got[1].IsData() || !got[0].IsData() {
		t.Fatal("unexpected data flag decoding")
	}

	got[0].LBA = 99
	if src.ReadTOC()[0].LBA != 0 {
		t.Fatal("ReadTOC must return a copy")
	}
}

func TestReopenCDWithoutLeadOutFails(t *testing.T) {
	drive := testsupport.NewCDDrive(1000, 0)
	delete(drive.Tracks, disc.LeadOutTrack)
	src, _ := testsupport.NewFakeSource(drive)

	err := src.Reopen()
	var probeErr *disc.ProbeError
	if !errors.As(err, &probeErr) {
		t.Fatalf("expected *ProbeError, got %v", err)
	}
	if src.SectorCount() != 0 || len(src.ReadTOC()) != 0 {
		t.Fatal("failed probe must leave geometry and TOC empty")
	}
}

func TestReopenRecomputesWholesale(t *testing.T) {
	drive := testsupport.NewCDDrive(1000, 0, 500)
	src, _ := testsupport.NewFakeSource(drive)
	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen CD: %v", err)
	}
	if len(src.ReadTOC()) != 2 {
		t.Fatal("expected CD TOC")
	}

	drive.DVD = map[uint8]disc.DVDLayer{0: {StartSector: dvdStart, EndSector: dvdStart + 49}}
	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen DVD: %v", err)
	}
	if len(src.ReadTOC()) != 0 {
		t.Fatal("stale TOC survived reopen")
	}
	if src.SectorCount() != 50 {
		t.Fatalf("sector count = %d", src.SectorCount())
	}
}

func TestReadSectors2048(t *testing.T) {
	drive := testsupport.NewDVDDrive(disc.DVDLayer{StartSector: dvdStart, EndSector: dvdStart + 63})
	drive.FillPattern(64)
	src, _ := testsupport.NewFakeSource(drive)
	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}

	buf := make([]byte, 3*disc.SectorSize)
	if err := src.ReadSectors2048(10, 3, buf); err != nil {
		t.Fatalf("ReadSectors2048: %v", err)
	}
	want := drive.Data[10*disc.SectorSize : 13*disc.SectorSize]
	if !bytes.Equal(buf, want) {
		t.Fatal("cooked read returned wrong content")
	}
}

func TestReadSectors2048Failures(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*testsupport.FakeDrive)
		sector   uint32
		count    uint32
		bufSize  int
		wantGot  int
		wantWrap error
	}{
		{
			name:    "short read",
			setup:   func(d *testsupport.FakeDrive) { d.ShortRead = 100 },
			sector:  0,
			count:   2,
			bufSize: 2 * disc.SectorSize,
			wantGot: 100,
		},
		{
			name:    "past end of medium",
			setup:   func(*testsupport.FakeDrive) {},
			sector:  63,
			count:   2,
			bufSize: 2 * disc.SectorSize,
			wantGot: disc.SectorSize,
		},
		{
			name:     "io error",
			setup:    func(d *testsupport.FakeDrive) { d.ReadErr = testsupport.ErrFakeIO },
			sector:   0,
			count:    1,
			bufSize:  disc.SectorSize,
			wantWrap: testsupport.ErrFakeIO,
		},
		{
			name:    "buffer too small",
			setup:   func(*testsupport.FakeDrive) {},
			sector:  0,
			count:   2,
			bufSize: disc.SectorSize,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drive := testsupport.NewDVDDrive(disc.DVDLayer{StartSector: dvdStart, EndSector: dvdStart + 63})
			drive.FillPattern(64)
			tt.setup(drive)
			src, _ := testsupport.NewFakeSource(drive)
			if err := src.Reopen(); err != nil {
				t.Fatalf("Reopen: %v", err)
			}

			err := src.ReadSectors2048(tt.sector, tt.count, make([]byte, tt.bufSize))
			if !errors.Is(err, disc.ErrRead) {
				t.Fatalf("expected ErrRead, got %v", err)
			}
			var readErr *disc.ReadError
			if !errors.As(err, &readErr) {
				t.Fatalf("expected *ReadError, got %T", err)
			}
			if readErr.First != tt.sector || readErr.Last != tt.sector+tt.count-1 {
				t.Fatalf("range = %d-%d", readErr.First, readErr.Last)
			}
			if readErr.Expected != int(tt.count)*disc.SectorSize {
				t.Fatalf("expected bytes = %d", readErr.Expected)
			}
			if readErr.Got != tt.wantGot {
				t.Fatalf("got bytes = %d, want %d", readErr.Got, tt.wantGot)
			}
			if tt.wantWrap != nil && !errors.Is(err, tt.wantWrap) {
				t.Fatalf("expected %v to be wrapped", tt.wantWrap)
			}
		})
	}
}

func TestReadSectors2352(t *testing.T) {
	drive := testsupport.NewCDDrive(1000, 0)
	src, _ := testsupport.NewFakeSource(drive)
	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}

	buf := make([]byte, 3*disc.RawSectorSize)
	if err := src.ReadSectors2352(10, 3, buf); err != nil {
		t.Fatalf("ReadSectors2352: %v", err)
	}
	for i := uint32(0); i < 3; i++ {
		frame := buf[int(i)*disc.RawSectorSize : int(i+1)*disc.RawSectorSize]
		if !bytes.Equal(frame, testsupport.RawPattern(10+i)) {
			t.Fatalf("frame %d has wrong content", i)
		}
	}
	wantAddr := []disc.MSF{{0, 2, 10}, {0, 2, 11}, {0, 2, 12}}
	if len(drive.RawRequests) != len(wantAddr) {
		t.Fatalf("requests = %v", drive.RawRequests)
	}
	for i, want := range wantAddr {
		if drive.RawRequests[i] != want {
			t.Fatalf("request %d = %s, want %s", i, drive.RawRequests[i], want)
		}
	}
}

func TestReadSectors2352AbortsOnFirstFailure(t *testing.T) {
	drive := testsupport.NewCDDrive(1000, 0)
	drive.RawFail = map[uint32]error{21: testsupport.ErrFakeIO, 22: testsupport.ErrFakeIO}
	src, _ := testsupport.NewFakeSource(drive)
	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}

	buf := make([]byte, 4*disc.RawSectorSize)
	err := src.ReadSectors2352(20, 4, buf)
	var readErr *disc.ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected *ReadError, got %v", err)
	}
	if readErr.First != 21 || readErr.Last != 21 {
		t.Fatalf("failure reported for %d-%d, want 21", readErr.First, readErr.Last)
	}
	if !errors.Is(err, testsupport.ErrFakeIO) {
		t.Fatal("expected device error to be wrapped")
	}
	if len(drive.RawRequests) != 2 {
		t.Fatalf("expected the call to stop after the failing frame, got %d requests", len(drive.RawRequests))
	}
	if !bytes.Equal(buf[:disc.RawSectorSize], testsupport.RawPattern(20)) {
		t.Fatal("frame read before the failure should remain in the buffer")
	}
}

func TestReadTrackSubQ(t *testing.T) {
	drive := testsupport.NewCDDrive(1000, 0)
	drive.SubQ = disc.SubQ{Adr: 1, TrackNum: 2, TrackIndex: 1}
	src, _ := testsupport.NewFakeSource(drive)
	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}

	got, err := src.ReadTrackSubQ()
	if err != nil {
		t.Fatalf("ReadTrackSubQ: %v", err)
	}
	if got != drive.SubQ {
		t.Fatalf("subq = %+v", got)
	}

	drive.SubQErr = testsupport.ErrFakeIO
	if _, err := src.ReadTrackSubQ(); !errors.Is(err, disc.ErrSubchannel) || !errors.Is(err, testsupport.ErrFakeIO) {
		t.Fatalf("expected wrapped subchannel failure, got %v", err)
	}
}

func TestDiscReadyClearsGeometryOnRemoval(t *testing.T) {
	drive := testsupport.NewDVDDrive(
		disc.DVDLayer{Layers: 1, StartSector: dvdStart, EndSector: dvdStart + 999},
		disc.DVDLayer{Layers: 1, StartSector: dvdStart, EndSector: dvdStart + 499},
	)
	src, opener := testsupport.NewFakeSource(drive)
	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if !src.DiscReady() {
		t.Fatal("expected disc ready with cached geometry")
	}
	if opener.Opens != 1 {
		t.Fatalf("cached geometry must not trigger a reopen, opens = %d", opener.Opens)
	}

	drive.Status = disc.DriveStatusTrayOpen
	if src.DiscReady() {
		t.Fatal("expected no disc after removal")
	}
	if g := src.Geometry(); g != (disc.Geometry{}) {
		t.Fatalf("geometry not reset: %+v", g)
	}

	drive.Status = disc.DriveStatusDiscOK
	if !src.DiscReady() {
		t.Fatal("expected disc ready after reinsertion")
	}
	if opener.Opens != 2 {
		t.Fatalf("expected exactly one reopen on reinsertion, opens = %d", opener.Opens)
	}
	if src.SectorCount() != 1500 {
		t.Fatalf("sector count after reprobe = %d", src.SectorCount())
	}
}

func TestDiscReadyStatusErrorTreatedAsRemoval(t *testing.T) {
	drive := testsupport.NewCDDrive(1000, 0)
	src, _ := testsupport.NewFakeSource(drive)
	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	drive.StatusErr = testsupport.ErrFakeIO
	if src.DiscReady() {
		t.Fatal("status failure must report no disc")
	}
	if src.SectorCount() != 0 || src.ReadTOC() != nil {
		t.Fatal("status failure must clear geometry and TOC")
	}
}

func TestDiscReadyDiscOKButProbeFails(t *testing.T) {
	drive := &testsupport.FakeDrive{Status: disc.DriveStatusDiscOK}
	src, opener := testsupport.NewFakeSource(drive)
	if err := src.Reopen(); !errors.Is(err, disc.ErrNoMedia) {
		t.Fatalf("expected ErrNoMedia, got %v", err)
	}

	if src.DiscReady() {
		t.Fatal("a drive reporting disc OK with an unreadable medium is treated as absent")
	}
	if opener.Opens != 2 {
		t.Fatalf("expected one reprobe, opens = %d", opener.Opens)
	}
}

func TestSpindleSpeedHook(t *testing.T) {
	t.Run("inert by default", func(t *testing.T) {
		drive := testsupport.NewCDDrive(1000, 0)
		src, _ := testsupport.NewFakeSource(drive)
		if err := src.Reopen(); err != nil {
			t.Fatalf("Reopen: %v", err)
		}
		if err := src.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
		if len(drive.Speeds) != 0 {
			t.Fatalf("unexpected speed requests %v", drive.Speeds)
		}
	})

	t.Run("configured CD speed restored on close", func(t *testing.T) {
		drive := testsupport.NewCDDrive(1000, 0)
		src, _ := testsupport.NewFakeSource(drive, disc.WithSpindleSpeed(4))
		if err := src.Reopen(); err != nil {
			t.Fatalf("Reopen: %v", err)
		}
		drive.SpeedErr = testsupport.ErrFakeIO
		if err := src.Close(); err != nil {
			t.Fatalf("Close must ignore spindle errors: %v", err)
		}
		if len(drive.Speeds) != 2 || drive.Speeds[0] != 4 || drive.Speeds[1] != 0 {
			t.Fatalf("speed requests = %v", drive.Speeds)
		}
		if !drive.Closed {
			t.Fatal("device not released")
		}
	})

	t.Run("reopen restores before selecting again", func(t *testing.T) {
		drive := testsupport.NewCDDrive(1000, 0)
		src, _ := testsupport.NewFakeSource(drive, disc.WithSpindleSpeed(4))
		for range 2 {
			if err := src.Reopen(); err != nil {
				t.Fatalf("Reopen: %v", err)
			}
		}
		if want := []int{4, 0, 4}; !slices.Equal(drive.Speeds, want) {
			t.Fatalf("speed requests = %v, want %v", drive.Speeds, want)
		}
		_ = src.Close()
		if want := []int{4, 0, 4, 0}; !slices.Equal(drive.Speeds, want) {
			t.Fatalf("speed requests after close = %v, want %v", drive.Speeds, want)
		}
	})

	t.Run("DVD left alone", func(t *testing.T) {
		drive := testsupport.NewDVDDrive(disc.DVDLayer{StartSector: dvdStart, EndSector: dvdStart + 9})
		src, _ := testsupport.NewFakeSource(drive, disc.WithSpindleSpeed(4))
		if err := src.Reopen(); err != nil {
			t.Fatalf("Reopen: %v", err)
		}
		_ = src.Close()
		if len(drive.Speeds) != 0 {
			t.Fatalf("unexpected speed requests %v", drive.Speeds)
		}
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	drive := testsupport.NewCDDrive(1000, 0)
	src, _ := testsupport.NewFakeSource(drive)
	if err := src.Reopen(); err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if src.IsOpen() || !drive.Closed {
		t.Fatal("expected handle released")
	}
	if err := src.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestMediaTypeString(t *testing.T) {
	tests := map[disc.MediaType]string{
		disc.MediaNone:            "none",
		disc.MediaCD:              "cd",
		disc.MediaDVDSingleLayer:  "dvd_single_layer",
		disc.MediaDVDDualLayerPTP: "dvd_dual_layer_ptp",
		disc.MediaDVDDualLayerOTP: "dvd_dual_layer_otp",
		disc.MediaType(42):        "unknown(42)",
	}
	for media, want := range tests {
		if got := media.String(); got != want {
			t.Errorf("MediaType(%d).String() = %q, want %q", int(media), got, want)
		}
	}
	if disc.MediaCD == disc.MediaNone || disc.MediaCD.IsDVD() {
		t.Fatal("CD must be distinct from the empty state and DVD variants")
	}
}
