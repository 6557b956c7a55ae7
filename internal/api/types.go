package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// DriveStatus describes the drive and the disc currently detected in it.
type DriveStatus struct {
	Device      string  `json:"device"`
	Present     bool    `json:"present"`
	Media       string  `json:"media"`
	SectorCount uint32  `json:"sectorCount"`
	LayerBreak  uint32  `json:"layerBreak,omitempty"`
	Tracks      []Track `json:"tracks,omitempty"`
	Fingerprint string  `json:"fingerprint,omitempty"`
	InsertedAt  string  `json:"insertedAt,omitempty"`
	Daemon      *Daemon `json:"daemon,omitempty"`
}

// Track is one TOC entry.
type Track struct {
	Number  uint8  `json:"number"`
	LBA     uint32 `json:"lba"`
	MSF     string `json:"msf"`
	Adr     uint8  `json:"adr"`
	Control uint8  `json:"control"`
	Data    bool   `json:"data"`
}

// Daemon summarizes the process serving the status.
type Daemon struct {
	Running     bool   `json:"running"`
	PID         int    `json:"pid"`
	HistoryPath string `json:"historyPath"`
	LockPath    string `json:"lockPath"`
}

// HistoryRecord is a stored detection.
type HistoryRecord struct {
	ID          string `json:"id"`
	Device      string `json:"device"`
	Media       string `json:"media"`
	SectorCount uint32 `json:"sectorCount"`
	LayerBreak  uint32 `json:"layerBreak,omitempty"`
	Tracks      int    `json:"tracks"`
	Fingerprint string `json:"fingerprint,omitempty"`
	InsertedAt  string `json:"insertedAt"`
	RemovedAt   string `json:"removedAt,omitempty"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
