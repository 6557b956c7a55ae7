package disc

import "testing"

func TestPhysicalQueryRequestFields(t *testing.T) {
	s := newPhysicalQuery(1)
	if s[dvdOffType] != dvdStructPhysical {
		t.Fatalf("type = %d", s[dvdOffType])
	}
	if s[dvdOffLayerNum] != 1 {
		t.Fatalf("layer_num = %d", s[dvdOffLayerNum])
	}
	if len(s) != dvdStructSize {
		t.Fatalf("buffer size = %d", len(s))
	}
}

func TestDVDLayerDecode(t *testing.T) {
	want := DVDLayer{
		Layers:      1,
		TrackPath:   1,
		StartSector: 0x30000,
		EndSector:   0xFCF7FF,
		EndSectorL0: 0x30FFF,
	}
	var s dvdStruct
	s.setLayer(0, want)
	s.setLayer(1, DVDLayer{StartSector: 7, EndSector: 9})

	if got := s.layer(0); got != want {
		t.Fatalf("layer(0) = %+v, want %+v", got, want)
	}
	if got := s.layer(1); got.StartSector != 7 || got.EndSector != 9 || got.Layers != 0 {
		t.Fatalf("layer(1) = %+v", got)
	}
	if got := s.layer(dvdMaxLayers); got != (DVDLayer{}) {
		t.Fatalf("out of range layer decoded %+v", got)
	}
}

func TestDVDLayerFlagBits(t *testing.T) {
	var s dvdStruct
	// layer_type=0xF, track_path=1, nlayers=1
	s[dvdOffLayers+dvdLayerOffFlags] = 0x0F | 1<<4 | 1<<5
	got := s.layer(0)
	if got.TrackPath != 1 || got.Layers != 1 {
		t.Fatalf("decoded flags %+v", got)
	}
}

func TestDVDGeometryOppositeTrackPathFormula(t *testing.T) {
	l0 := DVDLayer{
		Layers:      1,
		TrackPath:   1,
		StartSector: 0x30000,
		EndSector:   0xFCF7FF,
		EndSectorL0: 0x30FFF,
	}
	g, err := dvdGeometry(l0, func() (DVDLayer, error) {
		t.Fatal("layer 1 must not be queried for opposite track path")
		return DVDLayer{}, nil
	})
	if err != nil {
		t.Fatalf("dvdGeometry: %v", err)
	}
	if g.Media != MediaDVDDualLayerOTP {
		t.Fatalf("media = %s", g.Media)
	}
	if g.LayerBreak != 0xFFF {
		t.Fatalf("layer break = %#x", g.LayerBreak)
	}
	if g.SectorCount != 0x1800 {
		t.Fatalf("sector count = %#x", g.SectorCount)
	}
}
