package patient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const collectionName = "patients"

// SQLiteStore snapshots the collection as one JSON payload row in a local
// SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		path = "patients.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS patient_collection (
		name TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create patient_collection table: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*Collection, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM patient_collection WHERE name = ?`, collectionName).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, missing(s.path)
	}
	if err != nil {
		return nil, storageErr("load", fmt.Errorf("select collection: %w", err))
	}
	return decodeCollection(payload, s.path)
}

func (s *SQLiteStore) Save(ctx context.Context, c *Collection) (retErr error) {
	data, err := encodeCollection(c)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("save", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO patient_collection(name, payload) VALUES(?, ?)
		 ON CONFLICT(name) DO UPDATE SET payload = excluded.payload`,
		collectionName, data); err != nil {
		return storageErr("save", fmt.Errorf("upsert collection: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return storageErr("save", fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
