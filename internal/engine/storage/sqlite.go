package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	_ "modernc.org/sqlite"

	"github.com/mfigueredo/placegrid/internal/model"
)

type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// ScanMeta describes one stored scan session.
type ScanMeta struct {
	ID            int64
	Address       string
	Lat           float64
	Lng           float64
	BoxSizeMeters float64
	TileTarget    int
	PlaceTypes    string
	CreatedAt     string
}

// TileRecord is a stored tile result together with its polygon.
type TileRecord struct {
	model.TileResult
	Polygon orb.Ring
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// Optimize for write throughput
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-64000",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createSchema(db); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS scans (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		address TEXT,
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		box_size_m REAL NOT NULL,
		tile_target INTEGER NOT NULL,
		place_types TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS tile_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		scan_id INTEGER NOT NULL REFERENCES scans(id),
		tile_id INTEGER NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		area_sq_km REAL NOT NULL,
		success INTEGER NOT NULL,
		place_count INTEGER NOT NULL,
		reason TEXT,
		polygon TEXT NOT NULL,
		UNIQUE(scan_id, tile_id)
	);
	CREATE INDEX IF NOT EXISTS idx_tile_results_scan ON tile_results(scan_id);
	`
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// CreateScan records a scan session and returns its id.
func (s *Store) CreateScan(address string, center orb.Point, boxSizeMeters float64, tileTarget int, placeTypes []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		INSERT INTO scans (address, lat, lng, box_size_m, tile_target, place_types)
		VALUES (?,?,?,?,?,?)`,
		address, center.Lat(), center.Lon(), boxSizeMeters, tileTarget, strings.Join(placeTypes, ","),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting scan: %w", err)
	}
	return res.LastInsertId()
}

// InsertResults stores one batch of tile results. tiles must contain an
// entry for every result's TileID; polygons are stored as GeoJSON text.
func (s *Store) InsertResults(scanID int64, tiles []model.Tile, results []model.TileResult) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[int]model.Tile, len(tiles))
	for _, t := range tiles {
		byID[t.ID] = t
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning tx: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO tile_results
		(scan_id, tile_id, lat, lon, area_sq_km, success, place_count, reason, polygon)
		VALUES (?,?,?,?,?,?,?,?,?)
	`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("preparing stmt: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range results {
		tile, ok := byID[r.TileID]
		if !ok {
			continue
		}
		geom, err := geojson.NewGeometry(orb.Polygon{tile.Polygon}).MarshalJSON()
		if err != nil {
			continue
		}
		res, err := stmt.Exec(
			scanID, r.TileID, r.Lat, r.Lon, r.AreaSqKm,
			r.Success, r.Count, r.Reason, string(geom),
		)
		if err != nil {
			continue
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing tx: %w", err)
	}

	return inserted, nil
}

// LatestScanID returns the most recently created scan.
func (s *Store) LatestScanID() (int64, error) {
	var id int64
	err := s.db.QueryRow("SELECT id FROM scans ORDER BY id DESC LIMIT 1").Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("no scans stored")
	}
	return id, err
}

// Scan loads one scan's metadata.
func (s *Store) Scan(scanID int64) (ScanMeta, error) {
	var m ScanMeta
	err := s.db.QueryRow(`
		SELECT id, address, lat, lng, box_size_m, tile_target, place_types, created_at
		FROM scans WHERE id = ?`, scanID).
		Scan(&m.ID, &m.Address, &m.Lat, &m.Lng, &m.BoxSizeMeters, &m.TileTarget, &m.PlaceTypes, &m.CreatedAt)
	if err != nil {
		return ScanMeta{}, fmt.Errorf("loading scan %d: %w", scanID, err)
	}
	return m, nil
}

// TileRecords loads a scan's tile results ordered by tile id.
func (s *Store) TileRecords(scanID int64) ([]TileRecord, error) {
	rows, err := s.db.Query(`
		SELECT tile_id, lat, lon, area_sq_km, success, place_count, reason, polygon
		FROM tile_results WHERE scan_id = ? ORDER BY tile_id`, scanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []TileRecord
	for rows.Next() {
		var rec TileRecord
		var geomText string
		if err := rows.Scan(
			&rec.TileID, &rec.Lat, &rec.Lon, &rec.AreaSqKm,
			&rec.Success, &rec.Count, &rec.Reason, &geomText,
		); err != nil {
			continue
		}
		var geom geojson.Geometry
		if err := json.Unmarshal([]byte(geomText), &geom); err == nil {
			if poly, ok := geom.Geometry().(orb.Polygon); ok && len(poly) > 0 {
				rec.Polygon = poly[0]
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TotalCount sums the place counts of one scan's successful tiles.
func (s *Store) TotalCount(scanID int64) (int, error) {
	var total int
	err := s.db.QueryRow(
		"SELECT COALESCE(SUM(place_count), 0) FROM tile_results WHERE scan_id = ? AND success = 1",
		scanID).Scan(&total)
	return total, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
