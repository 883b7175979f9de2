package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store handles SQLite persistence for detection events, zone statistics
// and learned wildlife patterns.
type Store struct {
	db *sql.DB
}

// DetectionEventRecord is one coordinator cycle outcome worth keeping.
type DetectionEventRecord struct {
	ID          string
	Timestamp   time.Time
	Method      string
	Confidence  float64
	Adjustment  float64
	Motion      bool
	Captured    bool
	Transmitted bool
	Alerted     bool
	Category    string
	Likelihood  float64
	Bounds      BoundsRecord
	Rationale   string
	ProcessMs   float64
}

// BoundsRecord is the stored bounding box.
type BoundsRecord struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ZoneStatRecord mirrors one presence zone's counters.
type ZoneStatRecord struct {
	ZoneID         int
	Name           string
	Detections     uint64
	FalsePositives uint64
	LastDetection  time.Time
	AvgConfidence  float64
}

// LearnedPatternRecord is one persisted wildlife pattern pool.
type LearnedPatternRecord struct {
	Category  string
	Exemplars string // JSON-encoded characteristics
	Observed  uint64
	UpdatedAt time.Time
}

// Open opens the database and switches on WAL mode.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate runs the schema migrations.
func (s *Store) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS detection_events (
			id TEXT PRIMARY KEY,
			timestamp DATETIME NOT NULL,
			method TEXT NOT NULL,
			confidence REAL,
			adjustment REAL,
			motion INTEGER DEFAULT 0,
			captured INTEGER DEFAULT 0,
			transmitted INTEGER DEFAULT 0,
			alerted INTEGER DEFAULT 0,
			category TEXT,
			likelihood REAL,
			bounds TEXT,
			rationale TEXT,
			process_ms REAL
		)`,
		`CREATE TABLE IF NOT EXISTS zone_stats (
			zone_id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			detections INTEGER DEFAULT 0,
			false_positives INTEGER DEFAULT 0,
			last_detection DATETIME,
			avg_confidence REAL
		)`,
		`CREATE TABLE IF NOT EXISTS learned_patterns (
			category TEXT PRIMARY KEY,
			exemplars TEXT NOT NULL,
			observed INTEGER DEFAULT 0,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_time ON detection_events(timestamp DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_events_category ON detection_events(category, timestamp DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveEvent inserts or updates a detection event.
func (s *Store) SaveEvent(ev *DetectionEventRecord) error {
	boundsJSON, err := json.Marshal(ev.Bounds)
	if err != nil {
		return fmt.Errorf("failed to marshal bounds: %w", err)
	}

	query := `INSERT INTO detection_events
		(id, timestamp, method, confidence, adjustment, motion, captured,
		 transmitted, alerted, category, likelihood, bounds, rationale, process_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			transmitted = excluded.transmitted,
			alerted = excluded.alerted`

	_, err = s.db.Exec(query, ev.ID, ev.Timestamp, ev.Method, ev.Confidence,
		ev.Adjustment, boolInt(ev.Motion), boolInt(ev.Captured), boolInt(ev.Transmitted),
		boolInt(ev.Alerted), ev.Category, ev.Likelihood, string(boundsJSON),
		ev.Rationale, ev.ProcessMs)
	if err != nil {
		return fmt.Errorf("failed to save detection event: %w", err)
	}
	return nil
}

// GetEvent retrieves one event by id, nil when absent.
func (s *Store) GetEvent(id string) (*DetectionEventRecord, error) {
	query := `SELECT id, timestamp, method, confidence, adjustment, motion, captured,
		transmitted, alerted, category, likelihood, bounds, rationale, process_ms
		FROM detection_events WHERE id = ?`

	ev, err := scanEvent(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get detection event: %w", err)
	}
	return ev, nil
}

// ListEvents returns events newest-first with optional filters.
func (s *Store) ListEvents(category string, since *time.Time, limit int) ([]*DetectionEventRecord, error) {
	query := `SELECT id, timestamp, method, confidence, adjustment, motion, captured,
		transmitted, alerted, category, likelihood, bounds, rationale, process_ms
		FROM detection_events WHERE 1=1`
	args := []interface{}{}

	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	if since != nil {
		query += " AND timestamp >= ?"
		args = append(args, *since)
	}
	query += " ORDER BY timestamp DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list detection events: %w", err)
	}
	defer rows.Close()

	var events []*DetectionEventRecord
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan detection event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// DeleteOldEvents drops events before the cutoff and reports how many.
func (s *Store) DeleteOldEvents(before time.Time) (int64, error) {
	result, err := s.db.Exec("DELETE FROM detection_events WHERE timestamp < ?", before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old events: %w", err)
	}
	return result.RowsAffected()
}

// SaveZoneStat upserts one zone's counters.
func (s *Store) SaveZoneStat(z *ZoneStatRecord) error {
	query := `INSERT INTO zone_stats
		(zone_id, name, detections, false_positives, last_detection, avg_confidence)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(zone_id) DO UPDATE SET
			name = excluded.name,
			detections = excluded.detections,
			false_positives = excluded.false_positives,
			last_detection = excluded.last_detection,
			avg_confidence = excluded.avg_confidence`

	_, err := s.db.Exec(query, z.ZoneID, z.Name, z.Detections, z.FalsePositives,
		z.LastDetection, z.AvgConfidence)
	if err != nil {
		return fmt.Errorf("failed to save zone stats: %w", err)
	}
	return nil
}

// ListZoneStats returns all persisted zone counters.
func (s *Store) ListZoneStats() ([]*ZoneStatRecord, error) {
	rows, err := s.db.Query(`SELECT zone_id, name, detections, false_positives,
		last_detection, avg_confidence FROM zone_stats ORDER BY zone_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list zone stats: %w", err)
	}
	defer rows.Close()

	var stats []*ZoneStatRecord
	for rows.Next() {
		var z ZoneStatRecord
		var last sql.NullTime
		if err := rows.Scan(&z.ZoneID, &z.Name, &z.Detections, &z.FalsePositives,
			&last, &z.AvgConfidence); err != nil {
			return nil, fmt.Errorf("failed to scan zone stats: %w", err)
		}
		if last.Valid {
			z.LastDetection = last.Time
		}
		stats = append(stats, &z)
	}
	return stats, rows.Err()
}

// SavePattern upserts a learned pattern pool.
func (s *Store) SavePattern(p *LearnedPatternRecord) error {
	query := `INSERT INTO learned_patterns (category, exemplars, observed, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(category) DO UPDATE SET
			exemplars = excluded.exemplars,
			observed = excluded.observed,
			updated_at = CURRENT_TIMESTAMP`

	_, err := s.db.Exec(query, p.Category, p.Exemplars, p.Observed)
	if err != nil {
		return fmt.Errorf("failed to save learned pattern: %w", err)
	}
	return nil
}

// ListPatterns returns all persisted pattern pools.
func (s *Store) ListPatterns() ([]*LearnedPatternRecord, error) {
	rows, err := s.db.Query(`SELECT category, exemplars, observed, updated_at
		FROM learned_patterns ORDER BY observed DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list learned patterns: %w", err)
	}
	defer rows.Close()

	var patterns []*LearnedPatternRecord
	for rows.Next() {
		var p LearnedPatternRecord
		if err := rows.Scan(&p.Category, &p.Exemplars, &p.Observed, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan learned pattern: %w", err)
		}
		patterns = append(patterns, &p)
	}
	return patterns, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row scannable) (*DetectionEventRecord, error) {
	var (
		ev          DetectionEventRecord
		boundsJSON  string
		motion      int
		captured    int
		transmitted int
		alerted     int
	)
	err := row.Scan(&ev.ID, &ev.Timestamp, &ev.Method, &ev.Confidence, &ev.Adjustment,
		&motion, &captured, &transmitted, &alerted, &ev.Category, &ev.Likelihood,
		&boundsJSON, &ev.Rationale, &ev.ProcessMs)
	if err != nil {
		return nil, err
	}
	ev.Motion = motion == 1
	ev.Captured = captured == 1
	ev.Transmitted = transmitted == 1
	ev.Alerted = alerted == 1
	if boundsJSON != "" {
		if err := json.Unmarshal([]byte(boundsJSON), &ev.Bounds); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bounds: %w", err)
		}
	}
	return &ev, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
