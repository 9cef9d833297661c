// Package library indexes the music found under the configured roots.
package library

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"sync"

	"Playa/logger"
	"Playa/model"
)

// ErrNotFound is returned for paths and hashes the library does not know.
var ErrNotFound = errors.New("not found in library")

// Index maps library hashes to track metadata.
type Index map[string]model.Metadata

// Store persists the index.
type Store interface {
	Load(ctx context.Context) (Index, error)
	Save(ctx context.Context, index Index) error
}

// Library is safe for concurrent use.
type Library struct {
	roots     []string
	extractor model.Extractor
	store     Store
	workers   int

	mu     sync.RWMutex
	index  Index
	scanMu sync.Mutex
}

type Option func(*Library)

// WithWorkers bounds how many directories are scanned at once.
func WithWorkers(n int) Option {
	return func(l *Library) {
		if n > 0 {
			l.workers = n
		}
	}
}

// New returns an empty library. store may be nil to keep the index in memory.
func New(roots []string, extractor model.Extractor, store Store, opts ...Option) *Library {
	l := &Library{
		roots:     roots,
		extractor: extractor,
		store:     store,
		workers:   4,
		index:     make(Index),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open loads the persisted index. Missing or corrupt state starts empty.
func (l *Library) Open(ctx context.Context) {
	if l.store == nil {
		return
	}

	index, err := l.store.Load(ctx)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no library index yet, run a rescan")
	case err != nil:
		logger.Warn("failed to load library index, starting empty", logger.ErrorField(err))
	default:
		if index == nil {
			index = make(Index)
		}
		l.mu.Lock()
		l.index = index
		l.mu.Unlock()
		logger.Info("library index loaded", logger.Int("tracks", len(index)))
	}
}

func (l *Library) Roots() []string {
	return l.roots
}

// Data returns a copy of the index.
func (l *Library) Data() Index {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.index)
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.index)
}

// Lookup resolves a library hash to its path and metadata.
func (l *Library) Lookup(hash string) (string, model.Metadata, error) {
	l.mu.RLock()
	meta, ok := l.index[hash]
	l.mu.RUnlock()
	if !ok {
		return "", model.Metadata{}, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}

	path, err := DecodePath(hash)
	if err != nil {
		return "", model.Metadata{}, err
	}
	return path, meta, nil
}

// TrackByHash returns the indexed track for hash.
func (l *Library) TrackByHash(hash string) (*model.Track, error) {
	path, meta, err := l.Lookup(hash)
	if err != nil {
		return nil, err
	}
	return model.NewTrackWithMetadata(path, &meta), nil
}

// TrackByPath returns the indexed track for path.
func (l *Library) TrackByPath(path string) (*model.Track, error) {
	return l.TrackByHash(EncodePath(path))
}

// Track builds a track for path, reusing indexed metadata when there is any.
// Unknown paths get lazily extracted metadata.
func (l *Library) Track(path string) *model.Track {
	if track, err := l.TrackByPath(path); err == nil {
		return track
	}
	return model.NewTrack(path, l.extractor)
}

// Replace swaps the index and persists it.
func (l *Library) Replace(ctx context.Context, index Index) error {
	l.mu.Lock()
	l.index = index
	l.mu.Unlock()

	if l.store == nil {
		return nil
	}
	if err := l.store.Save(ctx, maps.Clone(index)); err != nil {
		return fmt.Errorf("save library index: %w", err)
	}
	return nil
}
