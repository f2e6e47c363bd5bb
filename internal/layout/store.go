package layout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JonMunkholm/credgen/internal/core"
)

// Store persists the one layout that survives across sessions.
type Store interface {
	// Load returns the saved layout or ErrNotFound.
	Load(ctx context.Context) (core.Layout, error)
	Save(ctx context.Context, l core.Layout) error
}

// LoadOrDefault loads from s, falling back to Default when nothing is saved.
func LoadOrDefault(ctx context.Context, s Store) (core.Layout, error) {
	l, err := s.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return core.Layout{}, err
	}
	return l, nil
}

// FileStore keeps the layout document in a single file.
type FileStore struct {
	Path string
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load(_ context.Context) (core.Layout, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return core.Layout{}, ErrNotFound
	}
	if err != nil {
		return core.Layout{}, &core.IOError{Op: "read layout", Path: s.Path, Err: err}
	}
	l, err := Import(data)
	if err != nil {
		return core.Layout{}, fmt.Errorf("load %s: %w", s.Path, err)
	}
	return l, nil
}

// Save writes the document to a temporary file and renames it over Path.
func (s *FileStore) Save(_ context.Context, l core.Layout) error {
	data, err := Export(l)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.IOError{Op: "create layout directory", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".layout-*.json")
	if err != nil {
		return &core.IOError{Op: "write layout", Path: s.Path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &core.IOError{Op: "write layout", Path: s.Path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &core.IOError{Op: "write layout", Path: s.Path, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return &core.IOError{Op: "write layout", Path: s.Path, Err: err}
	}
	return nil
}
