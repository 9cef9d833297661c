// Package player drives playback: it ties the playlist, the feed scheduler
// and the broadcast hub together on the event loop.
package player

import (
	"context"
	"errors"
	"time"

	"Playa/core/broadcast"
	"Playa/core/feed"
	"Playa/core/loop"
	"Playa/core/playlist"
	"Playa/core/registry"
	"Playa/core/scrobble"
	"Playa/logger"
	"Playa/model"
	"Playa/repository"

	"golang.org/x/sync/errgroup"
)

// ErrNotPlaying is returned by Next and Prev when no track is current.
var ErrNotPlaying = errors.New("not playing")

const (
	sideEffectTimeout = 10 * time.Second
	extractWorkers    = 4
)

// Controller is safe for concurrent use. Its exported methods run their
// work on the executor; everything else is only touched from loop tasks.
type Controller struct {
	exec   loop.Executor
	engine *playlist.Engine
	sched  *feed.Scheduler
	hub    *broadcast.Hub

	scrobbler scrobble.Scrobbler
	plays     repository.PlayLogRepository
	now       func() time.Time

	// generation invalidates payload reads still in flight when playback
	// moves on before they complete.
	generation uint64
	startedAt  time.Time
}

type Option func(*Controller)

func WithScrobbler(s scrobble.Scrobbler) Option {
	return func(c *Controller) {
		c.scrobbler = s
	}
}

func WithPlayLog(r repository.PlayLogRepository) Option {
	return func(c *Controller) {
		c.plays = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// New wires the controller to engine, sched and hub. It takes over their
// callbacks.
func New(exec loop.Executor, engine *playlist.Engine, sched *feed.Scheduler, hub *broadcast.Hub, opts ...Option) *Controller {
	c := &Controller{
		exec:      exec,
		engine:    engine,
		sched:     sched,
		hub:       hub,
		scrobbler: scrobble.Nop{},
		plays:     repository.NopPlayLogRepository{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	engine.OnChanged(c.onPlaylistChanged)
	sched.SetCallbacks(feed.Callbacks{
		OnPush:          hub.Push,
		OnTimerUpdate:   func(p float64) { hub.Announce(timerUpdate(p)) },
		OnTrackFinished: c.onTrackFinished,
		OnStop:          func() { logger.Debug("feed stopped") },
	})
	return c
}

func (c *Controller) do(fn func() error) error {
	var err error
	if doErr := c.exec.Do(func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}

// Restore loads the playlist that was active at the last shutdown.
func (c *Controller) Restore() error {
	tracks, err := c.saved(registry.LastActive)
	if err != nil {
		return err
	}
	return c.do(func() error {
		c.engine.Restore(tracks)
		return nil
	})
}

// ---- playback ----

// Start plays the entry at position, lifting any pause. Unreadable entries
// are removed from the playlist and the next one at the same position is
// tried. A pause requested while the track is still being read holds.
func (c *Controller) Start(position int) error {
	return c.do(func() error {
		return c.start(position)
	})
}

func (c *Controller) Next() error {
	return c.step(1)
}

func (c *Controller) Prev() error {
	return c.step(-1)
}

func (c *Controller) step(delta int) error {
	return c.do(func() error {
		position, ok := c.engine.CurrentPosition()
		if !ok {
			return ErrNotPlaying
		}
		return c.start(position + delta)
	})
}

// Stop halts playback and forgets the current track.
func (c *Controller) Stop() error {
	return c.do(func() error {
		c.generation++
		c.stopFeed()
		c.engine.Stop()
		c.hub.Announce(playbackFinished())
		return nil
	})
}

// Pause toggles pause and returns the new state.
func (c *Controller) Pause() (bool, error) {
	var paused bool
	err := c.do(func() error {
		paused = c.sched.TogglePause()
		c.hub.Announce(playbackPaused(paused))
		return nil
	})
	return paused, err
}

func (c *Controller) start(position int) error {
	if err := c.engine.Start(position); err != nil {
		return err
	}
	c.stopFeed()
	c.playCurrent(true, false)
	return nil
}

// stopFeed stops the scheduler, which also lifts a pause. Listeners that saw
// the pause are told it is over.
func (c *Controller) stopFeed() {
	paused := c.sched.Paused()
	c.sched.Stop()
	if paused {
		c.hub.Announce(playbackPaused(false))
	}
}

// playCurrent reads the current track off the loop and continues in
// onPrepared. healed is set once an unreadable entry has been discarded.
func (c *Controller) playCurrent(clear, healed bool) {
	c.generation++
	generation := c.generation
	id := c.engine.CurrentID()
	track := c.engine.CurrentTrack()

	c.exec.Offload(func() {
		chunks, err := c.sched.Prepare(track)
		c.exec.Post(func() {
			c.onPrepared(generation, id, track, chunks, err, clear, healed)
		})
	})
}

func (c *Controller) onPrepared(generation uint64, id string, track *model.Track, chunks [][]byte, err error, clear, healed bool) {
	if generation != c.generation || c.engine.CurrentID() != id {
		logger.Debug("discarding stale payload", logger.String("path", track.Path()))
		return
	}

	if err != nil {
		logger.Warn("removing unplayable track", logger.String("path", track.Path()), logger.ErrorField(err))
		position, _ := c.engine.CurrentPosition()
		c.engine.Discard(id)

		if position < c.engine.Len() {
			if startErr := c.engine.Start(position); startErr == nil {
				c.playCurrent(clear, true)
				return
			}
		}
		c.engine.Stop()
		c.onPlaylistChanged()
		c.finishPlaylist()
		return
	}

	if healed {
		c.onPlaylistChanged()
	}
	current := currentState(c.engine)
	c.hub.Announce(trackStarted(current))
	logger.Info("track started", logger.Int("position", current.Position), logger.String("track", track.String()))

	c.startedAt = c.now()
	c.sched.Extend(chunks, clear)
	c.sched.Start()

	startedAt := c.startedAt
	c.exec.Offload(func() {
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()

		if err := c.scrobbler.NowPlaying(track); err != nil {
			logger.Warn("now playing update failed", logger.ErrorField(err))
		}
		if err := c.plays.Record(ctx, model.NewPlayLog(track, startedAt)); err != nil {
			logger.Warn("failed to record play", logger.ErrorField(err))
		}
	})
}

func (c *Controller) onTrackFinished() {
	if finished := c.engine.CurrentTrack(); finished != nil {
		startedAt := c.startedAt
		c.exec.Offload(func() {
			if err := c.scrobbler.Scrobble(finished, startedAt); err != nil {
				logger.Warn("scrobble failed", logger.ErrorField(err))
			}
		})
	}

	if _, ok := c.engine.StepNext(); !ok {
		c.finishPlaylist()
		return
	}
	c.playCurrent(false, false)
}

func (c *Controller) finishPlaylist() {
	logger.Info("playlist finished")
	c.sched.ClearHistory()
	c.hub.Announce(playbackFinished())
}

// ---- playlist ----

func (c *Controller) onPlaylistChanged() {
	c.hub.Announce(playlistChanged(playlistState(c.engine)))
	if err := c.engine.Save(registry.LastActive); err != nil && !errors.Is(err, playlist.ErrNoRegistry) {
		logger.Warn("failed to save active playlist", logger.ErrorField(err))
	}
}

// Playlist returns the current playlist state.
func (c *Controller) Playlist() (PlaylistState, error) {
	var state PlaylistState
	err := c.do(func() error {
		state = playlistState(c.engine)
		return nil
	})
	return state, err
}

// Current returns the current position and track. Position is -1 when
// nothing plays.
func (c *Controller) Current() (Current, error) {
	var current Current
	err := c.do(func() error {
		current = currentState(c.engine)
		return nil
	})
	return current, err
}

// mutate runs fn on the loop and returns the resulting playlist state.
func (c *Controller) mutate(fn func() error) (PlaylistState, error) {
	var state PlaylistState
	err := c.do(func() error {
		if err := fn(); err != nil {
			return err
		}
		state = playlistState(c.engine)
		return nil
	})
	return state, err
}

// Insert adds tracks before position, ordered.End appends.
func (c *Controller) Insert(tracks []*model.Track, position int) (PlaylistState, error) {
	return c.mutate(func() error {
		c.engine.InsertMany(tracks, position)
		return nil
	})
}

func (c *Controller) Remove(position int) (PlaylistState, error) {
	return c.mutate(func() error {
		return c.engine.Remove(position)
	})
}

func (c *Controller) Move(origin, target int) (PlaylistState, error) {
	return c.mutate(func() error {
		return c.engine.Move(origin, target)
	})
}

func (c *Controller) Clear() (PlaylistState, error) {
	return c.mutate(func() error {
		c.engine.Clear()
		return nil
	})
}

// Undo reports false when there was nothing to undo.
func (c *Controller) Undo() (PlaylistState, bool, error) {
	var undone bool
	state, err := c.mutate(func() error {
		undone = c.engine.Undo()
		return nil
	})
	return state, undone, err
}

func (c *Controller) Redo() (PlaylistState, bool, error) {
	var redone bool
	state, err := c.mutate(func() error {
		redone = c.engine.Redo()
		return nil
	})
	return state, redone, err
}

// Save stores the playlist under name and announces the new name list.
func (c *Controller) Save(name string) ([]string, error) {
	return c.registryOp(func() error { return c.engine.Save(name) })
}

// Load replaces the playlist with the one saved under name.
func (c *Controller) Load(name string) (PlaylistState, error) {
	tracks, err := c.saved(name)
	if err != nil {
		return PlaylistState{}, err
	}
	return c.mutate(func() error {
		c.engine.Replace(tracks)
		return nil
	})
}

// saved resolves a saved playlist and extracts the metadata of its tracks
// on the calling goroutine, so the loop never waits on tag reads.
func (c *Controller) saved(name string) ([]*model.Track, error) {
	var tracks []*model.Track
	err := c.do(func() error {
		var err error
		tracks, err = c.engine.Saved(name)
		return err
	})
	if err != nil {
		return nil, err
	}

	var g errgroup.Group
	g.SetLimit(extractWorkers)
	for _, track := range tracks {
		g.Go(func() error {
			track.Metadata()
			return nil
		})
	}
	_ = g.Wait()
	return tracks, nil
}

// Delete forgets the playlist saved under name and announces the new name list.
func (c *Controller) Delete(name string) ([]string, error) {
	return c.registryOp(func() error { return c.engine.Delete(name) })
}

func (c *Controller) registryOp(fn func() error) ([]string, error) {
	var names []string
	err := c.do(func() error {
		if err := fn(); err != nil {
			return err
		}
		names = c.engine.Names()
		c.hub.Announce(registryUpdated(names))
		return nil
	})
	return names, err
}

// Names lists the saved playlists.
func (c *Controller) Names() ([]string, error) {
	var names []string
	err := c.do(func() error {
		names = c.engine.Names()
		return nil
	})
	return names, err
}

// ---- listeners ----

// ConnectStream registers an audio listener and primes it with the recent
// chunks so playback starts right away.
func (c *Controller) ConnectStream(l *broadcast.Listener) error {
	return c.do(func() error {
		c.hub.RegisterStream(l, c.sched.History())
		return nil
	})
}

// ConnectInfo registers an event listener and replays the current state to
// it: playback status, pause state, playlist and saved playlist names.
func (c *Controller) ConnectInfo(l *broadcast.Listener) error {
	return c.do(func() error {
		c.hub.RegisterInfo(l)

		status := playbackFinished()
		if current := currentState(c.engine); current.Track != nil {
			status = trackStarted(current)
		}
		replay := []broadcast.Event{
			status,
			playbackPaused(c.sched.Paused()),
			playlistChanged(playlistState(c.engine)),
			registryUpdated(c.engine.Names()),
		}
		for _, ev := range replay {
			if err := c.hub.Send(l, ev); err != nil {
				logger.Debug("info replay interrupted", logger.String("listener", l.ID()), logger.ErrorField(err))
				return nil
			}
		}
		return nil
	})
}

// Disconnect forgets l. It is safe to call more than once.
func (c *Controller) Disconnect(l *broadcast.Listener) {
	c.hub.Unregister(l)
}

// LibraryUpdated tells info listeners that the library was rescanned.
func (c *Controller) LibraryUpdated(tracks int) {
	c.exec.Post(func() {
		c.hub.Announce(libraryUpdated(tracks))
	})
}
