package localstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/spf13/afero"
)

// FileStore keeps one file per record under a directory. Writes go to a
// temporary file that is renamed over the record.
type FileStore struct {
	fs  afero.Fs
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(fsys afero.Fs, dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("state dir is required")
	}
	if err := fsys.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{fs: fsys, dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return path.Join(s.dir, path.Base(path.Clean("/"+key))+".json")
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	b, err := afero.ReadFile(s.fs, s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

func (s *FileStore) Put(_ context.Context, key string, value []byte) error {
	final := s.path(key)
	tmp := final + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, value, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp, final); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("commit %s: %w", key, err)
	}
	return nil
}

// Delete is a no-op for a record that does not exist.
func (s *FileStore) Delete(_ context.Context, key string) error {
	err := s.fs.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
