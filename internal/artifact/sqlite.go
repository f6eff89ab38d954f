package artifact

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const artifactTable = "gateway_artifacts"

// SQLiteStore persists artifacts in a SQLite database so resource addresses
// stay readable across gateway restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the
// schema exists. Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL keeps concurrent reads from blocking tool-call writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			session_id TEXT NOT NULL,
			name TEXT NOT NULL,
			version INTEGER NOT NULL,
			mime_type TEXT NOT NULL,
			data BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY(session_id, name, version)
		);`, artifactTable),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_session ON %s(session_id);`, artifactTable, artifactTable),
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Put stores a new version of the named artifact.
func (s *SQLiteStore) Put(ctx context.Context, sessionID, name, mimeType string, data []byte) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var version int
	row := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COALESCE(MAX(version), 0) + 1 FROM %s WHERE session_id = ? AND name = ?", artifactTable),
		sessionID, name)
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("allocating version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (session_id, name, version, mime_type, data, created_at) VALUES (?, ?, ?, ?, ?, ?)", artifactTable),
		sessionID, name, version, mimeType, data, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("inserting artifact: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing artifact: %w", err)
	}
	return version, nil
}

// Get returns the latest version of the named artifact.
func (s *SQLiteStore) Get(ctx context.Context, sessionID, name string) (*Artifact, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT version, mime_type, data, created_at FROM %s
			WHERE session_id = ? AND name = ?
			ORDER BY version DESC LIMIT 1`, artifactTable),
		sessionID, name)

	a := &Artifact{SessionID: sessionID, Name: name}
	var createdAt int64
	if err := row.Scan(&a.Version, &a.MIMEType, &a.Data, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	a.CreatedAt = time.UnixMilli(createdAt)
	return a, nil
}

// List returns metadata for the latest version of each artifact in the session.
func (s *SQLiteStore) List(ctx context.Context, sessionID string) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT name, MAX(version), mime_type, LENGTH(data), created_at FROM %s
			WHERE session_id = ? GROUP BY name ORDER BY name`, artifactTable),
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var createdAt int64
		if err := rows.Scan(&info.Name, &info.Version, &info.MIMEType, &info.Size, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning artifact row: %w", err)
		}
		info.CreatedAt = time.UnixMilli(createdAt)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// DeleteSession removes all artifacts belonging to the session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE session_id = ?", artifactTable), sessionID)
	if err != nil {
		return fmt.Errorf("deleting session artifacts: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
