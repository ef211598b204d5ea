package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database and applies
// migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("catalog path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure catalog directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func (s *Store) applyMigrations(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS identities (
			material_name TEXT PRIMARY KEY,
			uuid TEXT NOT NULL,
			content_hash TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS batches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			state TEXT NOT NULL,
			total INTEGER NOT NULL DEFAULT 0,
			finished INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			reason TEXT NOT NULL DEFAULT ''
		)`,
		fmt.Sprintf("PRAGMA user_version = %d", schemaVersion),
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// LookupIdentity returns the stored identity for a material name.
func (s *Store) LookupIdentity(ctx context.Context, materialName string) (string, bool, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT uuid FROM identities WHERE material_name = ?", materialName).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup identity: %w", err)
	}
	return id, true, nil
}

// SaveIdentity records (or refreshes) an identity assignment. The UUID
// for an existing material name is preserved on conflict; only the
// content hash and timestamp move.
func (s *Store) SaveIdentity(ctx context.Context, materialName, id, contentHash string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (material_name, uuid, content_hash, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(material_name) DO UPDATE SET
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at`,
		materialName, id, contentHash, now)
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// BatchRecord is one journal row.
type BatchRecord struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	State      string
	Total      int
	Finished   int
	Failed     int
	Reason     string
}

// BeginBatch opens a journal row for a starting batch.
func (s *Store) BeginBatch(ctx context.Context, total int) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO batches (started_at, state, total) VALUES (?, 'running', ?)",
		now, total)
	if err != nil {
		return 0, fmt.Errorf("begin batch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("begin batch id: %w", err)
	}
	return id, nil
}

// FinishBatch records a batch's terminal state and counters.
func (s *Store) FinishBatch(ctx context.Context, id int64, state string, finished, failed int, reason string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		UPDATE batches
		SET finished_at = ?, state = ?, finished = ?, failed = ?, reason = ?
		WHERE id = ?`,
		now, state, finished, failed, reason, id)
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	return nil
}

// RecentBatches returns up to limit journal rows, newest first.
func (s *Store) RecentBatches(ctx context.Context, limit int) ([]BatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, COALESCE(finished_at, ''), state, total, finished, failed, reason
		FROM batches ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var records []BatchRecord
	for rows.Next() {
		var rec BatchRecord
		var started, finished string
		if err := rows.Scan(&rec.ID, &started, &finished, &rec.State, &rec.Total, &rec.Finished, &rec.Failed, &rec.Reason); err != nil {
			return nil, fmt.Errorf("scan batch row: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339, started)
		if finished != "" {
			rec.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch rows: %w", err)
	}
	return records, nil
}
