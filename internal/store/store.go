// Package store persists scan reports in SQLite so scans can be listed,
// reloaded and diffed later.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/raysh454/kage/internal/logging"
	"github.com/raysh454/kage/internal/model"
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrScanNotFound = errors.New("scan not found")

// ScanRecord is the listing row for a stored scan; the full report is loaded
// separately via GetReport.
type ScanRecord struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	CreatedAt       time.Time `json:"created_at"`
	Elapsed         int64     `json:"elapsed_ms"`
	TotalElements   int       `json:"total_elements"`
	TotalDetections int       `json:"total_detections"`
}

// Store wraps the scans table.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string, logger logging.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %s: %w", path, err)
	}
	s, err := NewStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore returns a Store and runs migrations from schema.sql.
func NewStore(db *sql.DB, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	if logger == nil {
		logger = logging.Nop()
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Store{db: db, logger: logger.With(logging.Field{Key: "component", Value: "store"})}, nil
}

// SaveReport persists a report. If the report carries no ID one is assigned,
// and the (possibly updated) ID is returned.
func (s *Store) SaveReport(ctx context.Context, r *model.ScanReport) (string, error) {
	if r == nil {
		return "", fmt.Errorf("nil report")
	}
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scans (id, url, created_at, elapsed_ms, total_elements, total_detections, report)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.URL, r.Timestamp.Unix(), r.Elapsed.Milliseconds(),
		r.TotalElements, r.Summary.TotalDetections, string(payload),
	)
	if err != nil {
		return "", fmt.Errorf("insert scan: %w", err)
	}

	s.logger.Debug("saved scan report",
		logging.Field{Key: "scan_id", Value: r.ID},
		logging.Field{Key: "url", Value: r.URL},
		logging.Field{Key: "detections", Value: r.Summary.TotalDetections},
	)
	return r.ID, nil
}

// GetReport loads a full report by scan ID.
func (s *Store) GetReport(ctx context.Context, id string) (*model.ScanReport, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT report FROM scans WHERE id = ? LIMIT 1`, id)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrScanNotFound
		}
		return nil, err
	}

	var r model.ScanReport
	if err := json.Unmarshal([]byte(payload), &r); err != nil {
		return nil, fmt.Errorf("unmarshal stored report %s: %w", id, err)
	}
	return &r, nil
}

// ListScans returns scan records, newest first. limit <= 0 means no limit.
func (s *Store) ListScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	query := `SELECT id, url, created_at, elapsed_ms, total_elements, total_detections
              FROM scans
              ORDER BY created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.URL, &createdAt, &rec.Elapsed, &rec.TotalElements, &rec.TotalDetections); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListScansByURL returns stored scans of one URL, newest first.
func (s *Store) ListScansByURL(ctx context.Context, url string, limit int) ([]ScanRecord, error) {
	query := `SELECT id, url, created_at, elapsed_ms, total_elements, total_detections
              FROM scans
              WHERE url = ?
              ORDER BY created_at DESC`
	args := []interface{}{url}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.URL, &createdAt, &rec.Elapsed, &rec.TotalElements, &rec.TotalDetections); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteScan removes a stored scan.
func (s *Store) DeleteScan(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrScanNotFound
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
