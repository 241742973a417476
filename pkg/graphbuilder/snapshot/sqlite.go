package snapshot

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/observability"
)

var sqliteSchema = []string{`
	CREATE TABLE IF NOT EXISTS projects (
		name TEXT PRIMARY KEY,
		last_revision INTEGER NOT NULL
	)`, `
	CREATE TABLE IF NOT EXISTS revisions (
		project TEXT NOT NULL,
		revision INTEGER NOT NULL,
		timestamp TEXT NOT NULL,
		digest TEXT NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (project, revision)
	)`,
}

// SQLiteStore persists revisions to SQLite.
// It is suitable for single-process use.
type SQLiteStore struct {
	db     *sql.DB
	cfg    storeConfig
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore opens or creates a store at path.
// The path should be a file path (e.g., "./snapshots.db") or ":memory:" for testing.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: ":memory:" databases are per connection, and writes
	// serialize anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, cfg: newStoreConfig(opts)}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(project string, data []byte) (Info, error) {
	if project == "" {
		return Info{}, ErrEmptyProject
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		observability.LogSnapshotError(s.cfg.logger, project, "save", ErrStoreClosed)
		return Info{}, ErrStoreClosed
	}

	info, err := s.save(project, data)
	if err != nil {
		observability.LogSnapshotError(s.cfg.logger, project, "save", err)
		return Info{}, err
	}
	observability.LogSnapshot(s.cfg.logger, project, info.Revision, len(data))
	return info, nil
}

func (s *SQLiteStore) save(project string, data []byte) (Info, error) {
	if data == nil {
		data = []byte{}
	}
	info := Info{
		Project:   project,
		Timestamp: time.Now().UTC(),
		Size:      int64(len(data)),
		Digest:    digest(data),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Info{}, fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	err = tx.QueryRow(`
		INSERT INTO projects (name, last_revision) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET last_revision = last_revision + 1
		RETURNING last_revision
	`, project).Scan(&info.Revision)
	if err != nil {
		return Info{}, fmt.Errorf("allocate revision: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO revisions (project, revision, timestamp, digest, data)
		VALUES (?, ?, ?, ?, ?)
	`, project, info.Revision, info.Timestamp.Format(time.RFC3339Nano), info.Digest, data); err != nil {
		return Info{}, fmt.Errorf("save snapshot: %w", err)
	}

	if s.cfg.keep > 0 {
		if _, err := tx.Exec(`
			DELETE FROM revisions WHERE project = ? AND revision <= ?
		`, project, info.Revision-int64(s.cfg.keep)); err != nil {
			return Info{}, fmt.Errorf("prune snapshots: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Info{}, fmt.Errorf("commit save: %w", err)
	}
	return info, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(project string, revision int64) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var data []byte
	err := s.db.QueryRow(`
		SELECT data FROM revisions
		WHERE project = ? AND revision = ?
	`, project, revision).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return data, nil
}

// Latest implements Store.
func (s *SQLiteStore) Latest(project string) (Info, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Info{}, nil, ErrStoreClosed
	}

	var (
		info      = Info{Project: project}
		timestamp string
		data      []byte
	)
	err := s.db.QueryRow(`
		SELECT revision, timestamp, digest, data FROM revisions
		WHERE project = ?
		ORDER BY revision DESC
		LIMIT 1
	`, project).Scan(&info.Revision, &timestamp, &info.Digest, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Info{}, nil, ErrNotFound
	}
	if err != nil {
		return Info{}, nil, fmt.Errorf("load latest snapshot: %w", err)
	}
	info.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
	info.Size = int64(len(data))
	return info, data, nil
}

// List implements Store.
func (s *SQLiteStore) List(project string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`
		SELECT revision, timestamp, digest, LENGTH(data)
		FROM revisions
		WHERE project = ?
		ORDER BY revision
	`, project)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		info := Info{Project: project}
		var timestamp string
		if err := rows.Scan(&info.Revision, &timestamp, &info.Digest, &info.Size); err != nil {
			return nil, fmt.Errorf("scan snapshot info: %w", err)
		}
		info.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return infos, nil
}

// Projects implements Store.
func (s *SQLiteStore) Projects() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.Query(`SELECT DISTINCT project FROM revisions ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return names, nil
}

// DeleteProject implements Store. Revision numbering restarts at 1.
func (s *SQLiteStore) DeleteProject(project string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.Exec(`DELETE FROM revisions WHERE project = ?`, project); err != nil {
		return fmt.Errorf("delete snapshots: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM projects WHERE name = ?`, project); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
