// Package scrobble reports played tracks to last.fm.
package scrobble

import (
	"fmt"
	"sync"
	"time"

	"Playa/config"
	"Playa/logger"
	"Playa/model"

	"github.com/shkh/lastfm-go/lastfm"
)

// Scrobbler reports listening activity. Implementations are best-effort
// and may block on network I/O, so callers keep them off the event loop.
type Scrobbler interface {
	NowPlaying(track *model.Track) error
	Scrobble(track *model.Track, at time.Time) error
}

// New returns a last.fm scrobbler when cfg carries credentials, a no-op
// one otherwise.
func New(cfg config.LastfmConfig) Scrobbler {
	if !cfg.Enabled() {
		logger.Info("last.fm credentials not set, scrobbling disabled")
		return Nop{}
	}
	return &Client{
		api:  lastfm.New(cfg.Key, cfg.Secret),
		user: cfg.User,
		pass: cfg.Pass,
	}
}

// Nop discards everything.
type Nop struct{}

func (Nop) NowPlaying(*model.Track) error           { return nil }
func (Nop) Scrobble(*model.Track, time.Time) error { return nil }

// Client talks to last.fm with a mobile session obtained from the
// configured user and password on first use.
type Client struct {
	api  *lastfm.Api
	user string
	pass string

	mu       sync.Mutex
	loggedIn bool
}

func (c *Client) login() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return nil
	}
	if err := c.api.Login(c.user, c.pass); err != nil {
		return fmt.Errorf("last.fm login: %w", err)
	}
	c.loggedIn = true
	return nil
}

func (c *Client) NowPlaying(track *model.Track) error {
	params, ok := trackParams(track)
	if !ok {
		return nil
	}
	if err := c.login(); err != nil {
		return err
	}
	if _, err := c.api.Track.UpdateNowPlaying(params); err != nil {
		return fmt.Errorf("update now playing: %w", err)
	}
	return nil
}

func (c *Client) Scrobble(track *model.Track, at time.Time) error {
	params, ok := trackParams(track)
	if !ok {
		return nil
	}
	if err := c.login(); err != nil {
		return err
	}
	params["timestamp"] = at.Unix()
	if _, err := c.api.Track.Scrobble(params); err != nil {
		return fmt.Errorf("scrobble: %w", err)
	}
	return nil
}

// trackParams builds the request parameters shared by now-playing and
// scrobble calls. Tracks without an artist or an album are not reported.
func trackParams(track *model.Track) (lastfm.P, bool) {
	if track == nil {
		return nil, false
	}
	meta := track.Metadata()
	if meta == nil || meta.Artist == "" || meta.Album == "" {
		return nil, false
	}

	params := lastfm.P{
		"artist": meta.Artist,
		"track":  meta.Title,
		"album":  meta.Album,
	}
	if meta.AlbumArtist != "" && meta.AlbumArtist != meta.Artist {
		params["albumArtist"] = meta.AlbumArtist
	}
	if meta.TrackNumber > 0 {
		params["trackNumber"] = meta.TrackNumber
	}
	if meta.Length > 0 {
		params["duration"] = int(meta.Length)
	}
	return params, true
}
