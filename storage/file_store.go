package storage

import (
	"context"
	"path/filepath"

	"Playa/logger"
)

// Mirror receives a copy of every file written by a FileStore.
type Mirror interface {
	Put(ctx context.Context, name string, data []byte) error
}

// FileStore keeps one value of type T as a zlib compressed JSON file.
type FileStore[T any] struct {
	path   string
	mirror Mirror
}

// NewFileStore returns a store backed by path. mirror may be nil.
func NewFileStore[T any](path string, mirror Mirror) *FileStore[T] {
	return &FileStore[T]{path: path, mirror: mirror}
}

func (s *FileStore[T]) Path() string {
	return s.path
}

// Load reads the stored value. A missing file yields an error wrapping
// os.ErrNotExist.
func (s *FileStore[T]) Load(ctx context.Context) (T, error) {
	var v T
	if err := LoadCompressed(s.path, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Save writes v atomically, then copies it to the mirror. Mirror failures are
// logged and do not fail the save.
func (s *FileStore[T]) Save(ctx context.Context, v T) error {
	data, err := SaveCompressed(s.path, v)
	if err != nil {
		return err
	}

	if s.mirror != nil {
		name := filepath.Base(s.path)
		if err := s.mirror.Put(ctx, name, data); err != nil {
			logger.Warn("failed to mirror state file",
				logger.String("file", name),
				logger.ErrorField(err))
		}
	}
	return nil
}
