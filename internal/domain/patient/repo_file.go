package patient

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps the collection as a JSON document on the local
// filesystem. Saves go through a temp file in the same directory followed by
// a rename, so readers see either the old or the new document.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = "patients.json"
	}
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (*Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageErr("load", err)
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, missing(s.path)
	}
	if err != nil {
		return nil, storageErr("load", err)
	}
	return decodeCollection(data, s.path)
}

func (s *FileStore) Save(ctx context.Context, c *Collection) error {
	if err := ctx.Err(); err != nil {
		return storageErr("save", err)
	}
	data, err := encodeCollection(c)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageErr("save", fmt.Errorf("create dirs: %w", err))
	}
	tmp, err := os.CreateTemp(dir, ".patients-*.tmp")
	if err != nil {
		return storageErr("save", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return storageErr("save", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return storageErr("save", err)
	}
	if err := tmp.Close(); err != nil {
		return storageErr("save", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return storageErr("save", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return storageErr("save", err)
	}
	return nil
}

func (s *FileStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return missing(s.path)
		}
		return storageErr("ping", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
