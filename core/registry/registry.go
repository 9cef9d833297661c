// Package registry keeps named playlists and persists them in the background.
package registry

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	"Playa/logger"
)

// LastActive is the reserved name holding the playlist of the previous run.
// It is never listed by Names.
const LastActive = "__last__"

var ErrNotFound = errors.New("playlist not found")

// Store persists the whole registry.
type Store interface {
	Load(ctx context.Context) (map[string][]string, error)
	Save(ctx context.Context, lists map[string][]string) error
}

// Registry is safe for concurrent use. Mutations update memory at once and
// schedule a write; bursts of mutations are coalesced into one write.
type Registry struct {
	mu    sync.Mutex
	lists map[string][]string
	store Store

	dirty chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
}

// New returns an empty registry writing to store. Call Open to load the
// stored contents and start the writer.
func New(store Store) *Registry {
	return &Registry{
		lists: make(map[string][]string),
		store: store,
		dirty: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Open loads the stored playlists and starts the background writer. Missing
// or unreadable state starts empty.
func (r *Registry) Open(ctx context.Context) {
	lists, err := r.store.Load(ctx)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.Info("no saved playlists, starting empty")
	case err != nil:
		logger.Warn("failed to load saved playlists, starting empty", logger.ErrorField(err))
	default:
		r.mu.Lock()
		if lists != nil {
			r.lists = lists
		}
		r.mu.Unlock()
		logger.Info("saved playlists loaded", logger.Int("count", len(lists)))
	}

	r.wg.Add(1)
	go r.writer()
}

func (r *Registry) writer() {
	defer r.wg.Done()
	for {
		select {
		case <-r.dirty:
			r.flushLogged()
		case <-r.done:
			return
		}
	}
}

func (r *Registry) flushLogged() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.Flush(ctx); err != nil {
		logger.Error("failed to persist playlists", logger.ErrorField(err))
	}
}

func (r *Registry) markDirty() {
	select {
	case r.dirty <- struct{}{}:
	default:
	}
}

// Flush writes the current contents synchronously.
func (r *Registry) Flush(ctx context.Context) error {
	r.mu.Lock()
	lists := make(map[string][]string, len(r.lists))
	for name, paths := range r.lists {
		lists[name] = slices.Clone(paths)
	}
	r.mu.Unlock()

	if err := r.store.Save(ctx, lists); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	return nil
}

// Close stops the writer and flushes once more.
func (r *Registry) Close() {
	select {
	case <-r.done:
		return
	default:
	}
	close(r.done)
	r.wg.Wait()
	r.flushLogged()
}

func (r *Registry) Save(name string, paths []string) error {
	r.mu.Lock()
	r.lists[name] = slices.Clone(paths)
	r.mu.Unlock()

	r.markDirty()
	return nil
}

func (r *Registry) Load(name string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	paths, ok := r.lists[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return slices.Clone(paths), nil
}

func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	_, ok := r.lists[name]
	delete(r.lists, name)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	r.markDirty()
	return nil
}

// Names lists the saved playlists in order, without the reserved slot.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := slices.Sorted(maps.Keys(r.lists))
	return slices.DeleteFunc(names, func(name string) bool { return name == LastActive })
}
