package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Store persists the whole patient collection as a single resource. Load and
// Save always move the complete collection; there are no partial writes.
// Implementations do not lock: Service serialises load-mutate-save.
type Store interface {
	Load(ctx context.Context) (*Collection, error)
	Save(ctx context.Context, c *Collection) error
	Ping(ctx context.Context) error
	Close() error
}

// Initialize writes an empty collection when s has none yet. It reports
// whether a collection was created.
func Initialize(ctx context.Context, s Store) (bool, error) {
	_, err := s.Load(ctx)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrCollectionMissing) {
		return false, err
	}
	if err := s.Save(ctx, NewCollection()); err != nil {
		return false, err
	}
	return true, nil
}

func encodeCollection(c *Collection) ([]byte, error) {
	if c == nil {
		c = NewCollection()
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, storageErr("encode", err)
	}
	return data, nil
}

func decodeCollection(data []byte, source string) (*Collection, error) {
	c := NewCollection()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, storageErr("load", fmt.Errorf("decode %s: %w", source, err))
	}
	return c, nil
}

func missing(source string) error {
	return storageErr("load", fmt.Errorf("%s: %w", source, ErrCollectionMissing))
}
