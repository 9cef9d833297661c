// Package playlist holds the authoritative play order, the current track
// pointer and the undo/redo history.
package playlist

import (
	"errors"
	"fmt"
	"maps"

	"Playa/core/ordered"
	"Playa/logger"
	"Playa/model"

	"github.com/google/uuid"
)

var (
	ErrEmptyPlaylist = errors.New("empty playlist")
	ErrOutOfBounds   = ordered.ErrOutOfBounds
	ErrNoRegistry    = errors.New("no playlist registry configured")
)

// DefaultUndoLimit bounds the undo stack.
const DefaultUndoLimit = 100

// Registry persists named lists of track paths.
type Registry interface {
	Save(name string, paths []string) error
	Load(name string) ([]string, error)
	Delete(name string) error
	Names() []string
}

// TrackFactory builds a track for a stored path.
type TrackFactory func(path string) *model.Track

// Entry is one playlist slot.
type Entry struct {
	ID    string
	Track *model.Track
}

// Engine is not safe for concurrent use; it is owned by the event loop.
type Engine struct {
	tracks  map[string]*model.Track
	order   *ordered.Collection[string]
	current string

	history  *history
	registry Registry
	factory  TrackFactory

	onChanged func()
}

type Option func(*Engine)

func WithUndoLimit(n int) Option {
	return func(e *Engine) {
		e.history = newHistory(n)
	}
}

func WithRegistry(r Registry) Option {
	return func(e *Engine) {
		e.registry = r
	}
}

func WithTrackFactory(f TrackFactory) Option {
	return func(e *Engine) {
		e.factory = f
	}
}

// New returns an empty playlist.
func New(opts ...Option) *Engine {
	e := &Engine{
		tracks:  make(map[string]*model.Track),
		order:   ordered.New[string](),
		history: newHistory(DefaultUndoLimit),
		factory: func(path string) *model.Track { return model.NewTrack(path, nil) },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnChanged registers the callback fired after every change of contents.
func (e *Engine) OnChanged(fn func()) {
	e.onChanged = fn
}

func (e *Engine) changed() {
	if e.onChanged != nil {
		e.onChanged()
	}
}

func (e *Engine) present() snapshot {
	return snapshot{tracks: maps.Clone(e.tracks), order: e.order.Clone()}
}

func (e *Engine) mark() {
	e.history.mark(e.present())
}

func (e *Engine) restore(s snapshot) {
	e.tracks = s.tracks
	e.order = s.order
	if _, ok := e.tracks[e.current]; !ok {
		e.current = ""
	}
}

func (e *Engine) insert(track *model.Track, position int) string {
	id := uuid.NewString()
	e.tracks[id] = track
	e.order.Insert(id, position)
	return id
}

// Insert adds track before position (ordered.End appends) and returns its entry id.
func (e *Engine) Insert(track *model.Track, position int) string {
	e.mark()
	id := e.insert(track, position)
	e.changed()
	return id
}

// InsertMany adds tracks as one undoable step, keeping their order.
func (e *Engine) InsertMany(tracks []*model.Track, position int) []string {
	if len(tracks) == 0 {
		return nil
	}

	e.mark()
	ids := make([]string, 0, len(tracks))
	for i, track := range tracks {
		p := position
		if p >= 0 {
			p += i
		}
		ids = append(ids, e.insert(track, p))
	}
	e.changed()
	return ids
}

// Remove deletes the entry at position, clearing the current pointer if it
// pointed there.
func (e *Engine) Remove(position int) error {
	id, err := e.order.At(position)
	if err != nil {
		return err
	}

	e.mark()
	e.drop(position, id)
	e.changed()
	return nil
}

// Discard removes the entry with id without recording history or notifying.
// It is used to heal the playlist from unplayable entries.
func (e *Engine) Discard(id string) bool {
	position := e.order.Index(func(v string) bool { return v == id })
	if position < 0 {
		return false
	}
	e.drop(position, id)
	return true
}

func (e *Engine) drop(position int, id string) {
	_, _ = e.order.Remove(position)
	delete(e.tracks, id)
	if e.current == id {
		e.current = ""
	}
}

// Move reinserts the entry at origin before target. The entry keeps its id,
// so the current pointer follows it.
func (e *Engine) Move(origin, target int) error {
	n := e.order.Len()
	if origin < 0 || origin >= n || target < 0 || target > n {
		return ErrOutOfBounds
	}
	if origin == target || origin+1 == target {
		return nil
	}

	e.mark()
	if _, err := e.order.Move(origin, target); err != nil {
		return err
	}
	e.changed()
	return nil
}

// Clear empties the playlist.
func (e *Engine) Clear() {
	e.mark()
	e.tracks = make(map[string]*model.Track)
	e.order.Clear()
	e.current = ""
	e.changed()
}

// Replace swaps the contents for tracks as one undoable step.
func (e *Engine) Replace(tracks []*model.Track) {
	e.mark()
	e.tracks = make(map[string]*model.Track)
	e.order.Clear()
	e.current = ""
	for _, track := range tracks {
		e.insert(track, ordered.End)
	}
	e.changed()
}

// Start points the current pointer at position.
func (e *Engine) Start(position int) error {
	if e.order.Len() == 0 {
		return ErrEmptyPlaylist
	}
	id, err := e.order.At(position)
	if err != nil {
		return err
	}
	e.current = id
	return nil
}

// Stop clears the current pointer.
func (e *Engine) Stop() {
	e.current = ""
}

// StepNext advances the current pointer. It reports false, with the pointer
// cleared, when there is no next entry.
func (e *Engine) StepNext() (int, bool) {
	position, ok := e.CurrentPosition()
	if !ok {
		logger.Warn("step next without a current track, it was probably removed while playing")
		return 0, false
	}

	next := position + 1
	if next >= e.order.Len() {
		e.current = ""
		return 0, false
	}
	if err := e.Start(next); err != nil {
		e.current = ""
		return 0, false
	}
	return next, true
}

// Undo restores the state before the last mutation.
func (e *Engine) Undo() bool {
	s, ok := e.history.stepBack(e.present())
	if !ok {
		return false
	}
	e.restore(s)
	e.changed()
	return true
}

// Redo reapplies the last undone mutation.
func (e *Engine) Redo() bool {
	s, ok := e.history.stepForward(e.present())
	if !ok {
		return false
	}
	e.restore(s)
	e.changed()
	return true
}

func (e *Engine) HasUndo() bool {
	return e.history.canUndo()
}

func (e *Engine) HasRedo() bool {
	return e.history.canRedo()
}

func (e *Engine) Len() int {
	return e.order.Len()
}

// CurrentPosition returns the position of the current entry.
func (e *Engine) CurrentPosition() (int, bool) {
	if e.current == "" {
		return 0, false
	}
	position := e.order.Index(func(v string) bool { return v == e.current })
	if position < 0 {
		return 0, false
	}
	return position, true
}

// CurrentID returns the entry id of the current track, or "".
func (e *Engine) CurrentID() string {
	return e.current
}

// CurrentTrack returns the current track, or nil.
func (e *Engine) CurrentTrack() *model.Track {
	if e.current == "" {
		return nil
	}
	return e.tracks[e.current]
}

// Entries returns the playlist in order.
func (e *Engine) Entries() []Entry {
	entries := make([]Entry, 0, e.order.Len())
	for _, id := range e.order.All {
		entries = append(entries, Entry{ID: id, Track: e.tracks[id]})
	}
	return entries
}

// Tracks returns the tracks in order.
func (e *Engine) Tracks() []*model.Track {
	tracks := make([]*model.Track, 0, e.order.Len())
	for _, id := range e.order.All {
		tracks = append(tracks, e.tracks[id])
	}
	return tracks
}

// Paths returns the track paths in order.
func (e *Engine) Paths() []string {
	paths := make([]string, 0, e.order.Len())
	for _, id := range e.order.All {
		paths = append(paths, e.tracks[id].Path())
	}
	return paths
}

// Save stores the current contents under name.
func (e *Engine) Save(name string) error {
	if e.registry == nil {
		return ErrNoRegistry
	}
	if err := e.registry.Save(name, e.Paths()); err != nil {
		return fmt.Errorf("save playlist %q: %w", name, err)
	}
	return nil
}

// Restore swaps the contents for tracks without an undo step. It is meant
// for startup, where undoing back to an empty playlist makes no sense.
func (e *Engine) Restore(tracks []*model.Track) {
	e.tracks = make(map[string]*model.Track)
	e.order.Clear()
	e.current = ""
	for _, track := range tracks {
		e.insert(track, ordered.End)
	}
	e.changed()
}

// Saved builds the tracks of the playlist saved under name. Tracks come from
// the track factory and may still need their metadata extracted.
func (e *Engine) Saved(name string) ([]*model.Track, error) {
	if e.registry == nil {
		return nil, ErrNoRegistry
	}
	paths, err := e.registry.Load(name)
	if err != nil {
		return nil, fmt.Errorf("load playlist %q: %w", name, err)
	}

	tracks := make([]*model.Track, 0, len(paths))
	for _, path := range paths {
		tracks = append(tracks, e.factory(path))
	}
	return tracks, nil
}

// Delete removes the saved playlist name.
func (e *Engine) Delete(name string) error {
	if e.registry == nil {
		return ErrNoRegistry
	}
	if err := e.registry.Delete(name); err != nil {
		return fmt.Errorf("delete playlist %q: %w", name, err)
	}
	return nil
}

// Names lists the saved playlists.
func (e *Engine) Names() []string {
	if e.registry == nil {
		return nil
	}
	return e.registry.Names()
}
