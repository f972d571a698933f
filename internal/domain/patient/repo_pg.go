package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgQuerier is the subset of *pgxpool.Pool used by PGStore.
type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PGStore keeps the collection as a single JSON row in the
// patient_collection table created by the embedded migrations. The column
// is json rather than jsonb so the stored key order survives.
type PGStore struct {
	db pgQuerier
}

func NewPGStore(db pgQuerier) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Load(ctx context.Context) (*Collection, error) {
	var payload []byte
	err := s.db.QueryRow(ctx,
		`SELECT payload FROM patient_collection WHERE name = $1`, collectionName).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, missing("postgres patient_collection")
	}
	if err != nil {
		return nil, storageErr("load", fmt.Errorf("select collection: %w", err))
	}
	return decodeCollection(payload, "postgres patient_collection")
}

// Save replaces the row in a single statement, so a concurrent reader sees
// either the previous or the new payload.
func (s *PGStore) Save(ctx context.Context, c *Collection) error {
	data, err := encodeCollection(c)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO patient_collection (name, payload, updated_at) VALUES ($1, $2::json, NOW())
		 ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()`,
		collectionName, string(data))
	if err != nil {
		return storageErr("save", fmt.Errorf("upsert collection: %w", err))
	}
	return nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

// Close releases the pool when PGStore was given one it can close.
func (s *PGStore) Close() error {
	if c, ok := s.db.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}
