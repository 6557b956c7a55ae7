package api

import (
	"time"

	"discdrive/internal/disc"
	"discdrive/internal/history"
	"discdrive/internal/monitor"
)

// FromGeometry builds a status for a disc read directly from a source.
func FromGeometry(device string, g disc.Geometry, toc []disc.TocEntry) DriveStatus {
	status := DriveStatus{
		Device:      device,
		Present:     !g.Empty(),
		Media:       g.Media.String(),
		SectorCount: g.SectorCount,
		Tracks:      FromTOC(toc),
	}
	if g.IsDualLayer() {
		status.LayerBreak = g.LayerBreak
	}
	return status
}

// FromEvent builds a status from the monitor's current insert event.
func FromEvent(ev monitor.Event) DriveStatus {
	status := FromGeometry(ev.Device, ev.Geometry, ev.Tracks)
	status.Fingerprint = ev.Fingerprint
	status.InsertedAt = formatTime(ev.At)
	return status
}

// FromTOC converts TOC entries, keeping their order.
func FromTOC(toc []disc.TocEntry) []Track {
	if len(toc) == 0 {
		return nil
	}
	tracks := make([]Track, len(toc))
	for i, entry := range toc {
		tracks[i] = Track{
			Number:  entry.Track,
			LBA:     entry.LBA,
			MSF:     disc.LBAToMSF(entry.LBA).String(),
			Adr:     entry.Adr,
			Control: entry.Control,
			Data:    entry.IsData(),
		}
	}
	return tracks
}

// FromRecord converts a stored detection.
func FromRecord(rec history.Record) HistoryRecord {
	return HistoryRecord{
		ID:          rec.ID,
		Device:      rec.Device,
		Media:       rec.Media.String(),
		SectorCount: rec.SectorCount,
		LayerBreak:  rec.LayerBreak,
		Tracks:      rec.Tracks,
		Fingerprint: rec.Fingerprint,
		InsertedAt:  formatTime(rec.InsertedAt),
		RemovedAt:   formatTime(rec.RemovedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
