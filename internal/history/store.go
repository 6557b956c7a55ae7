package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"discdrive/internal/disc"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("history record not found")

// Detection describes a disc as it was first seen in a drive.
type Detection struct {
	Device      string
	Geometry    disc.Geometry
	Tracks      int
	Fingerprint string
	At          time.Time
}

// Record is a stored detection. RemovedAt is zero while the disc is still in
// the drive (or the daemon stopped before seeing it leave).
type Record struct {
	ID          string
	Device      string
	Media       disc.MediaType
	SectorCount uint32
	LayerBreak  uint32
	Tracks      int
	Fingerprint string
	InsertedAt  time.Time
	RemovedAt   time.Time
}

// Present reports whether no removal has been recorded.
func (r Record) Present() bool {
	return r.RemovedAt.IsZero()
}

// Store manages detection history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const recordColumns = `id, device, media, sector_count, layer_break, track_count, fingerprint, inserted_at, removed_at`

// RecordInsert stores a new detection and returns it with a fresh id.
func (s *Store) RecordInsert(ctx context.Context, d Detection) (Record, error) {
	if strings.TrimSpace(d.Device) == "" {
		return Record{}, errors.New("record insert: device is required")
	}
	if d.Geometry.Empty() {
		return Record{}, errors.New("record insert: empty geometry")
	}
	at := d.At
	if at.IsZero() {
		at = time.Now()
	}
	rec := Record{
		ID:          uuid.NewString(),
		Device:      d.Device,
		Media:       d.Geometry.Media,
		SectorCount: d.Geometry.SectorCount,
		LayerBreak:  d.Geometry.LayerBreak,
		Tracks:      d.Tracks,
		Fingerprint: d.Fingerprint,
		InsertedAt:  at.UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO detections (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		rec.ID,
		rec.Device,
		rec.Media.String(),
		int64(rec.SectorCount),
		int64(rec.LayerBreak),
		rec.Tracks,
		nullableString(rec.Fingerprint),
		rec.InsertedAt.Format(timeLayout),
	)
	if err != nil {
		return Record{}, fmt.Errorf("insert detection: %w", err)
	}
	return rec, nil
}

// RecordRemoval stamps the removal time on record id. Stamping an already
// removed record keeps the first time.
func (s *Store) RecordRemoval(ctx context.Context, id string, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE detections SET removed_at = COALESCE(removed_at, ?) WHERE id = ?`,
		at.UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("record removal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record removal rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("record removal %s: %w", id, ErrNotFound)
	}
	return nil
}

// CloseOpen stamps every record of device still lacking a removal time. The
// daemon calls it on startup so a crash does not leave stale present rows.
func (s *Store) CloseOpen(ctx context.Context, device string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE detections SET removed_at = ? WHERE device = ? AND removed_at IS NULL`,
		at.UTC().Format(timeLayout), device,
	)
	if err != nil {
		return 0, fmt.Errorf("close open records: %w", err)
	}
	return res.RowsAffected()
}

// List returns the newest records first. limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM detections ORDER BY inserted_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list detections: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	return records, nil
}

// Latest returns the most recent record for device.
func (s *Store) Latest(ctx context.Context, device string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM detections WHERE device = ? ORDER BY inserted_at DESC LIMIT 1`,
		device,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("latest %s: %w", device, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("latest detection: %w", err)
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec         Record
		media       string
		sectorCount int64
		layerBreak  int64
		fingerprint sql.NullString
		insertedAt  string
		removedAt   sql.NullString
	)
	if err := row.Scan(&rec.ID, &rec.Device, &media, &sectorCount, &layerBreak, &rec.Tracks, &fingerprint, &insertedAt, &removedAt); err != nil {
		return Record{}, err
	}
	rec.Media = disc.ParseMediaType(media)
	rec.SectorCount = uint32(sectorCount)
	rec.LayerBreak = uint32(layerBreak)
	rec.Fingerprint = fingerprint.String
	var err error
	if rec.InsertedAt, err = time.Parse(timeLayout, insertedAt); err != nil {
		return Record{}, fmt.Errorf("parse inserted_at: %w", err)
	}
	if removedAt.Valid {
		if rec.RemovedAt, err = time.Parse(timeLayout, removedAt.String); err != nil {
			return Record{}, fmt.Errorf("parse removed_at: %w", err)
		}
	}
	return rec, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
