package model

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Kind is the container format of a media file.
type Kind string

const (
	KindUnknown Kind = ""
	KindMP3     Kind = "mp3"
	KindM4A     Kind = "m4a"
)

// Metadata is the tag and stream information of a media file.
// Field names on the wire follow the historical client protocol.
type Metadata struct {
	Album       string  `json:"album"`
	Artist      string  `json:"artist"`
	AlbumArtist string  `json:"albumartist"`
	Title       string  `json:"trackname"`
	TrackNumber int     `json:"tracknumber,omitempty"`
	DiscNumber  int     `json:"discnumber,omitempty"`
	Year        int     `json:"year,omitempty"`
	Length      float64 `json:"length"` // seconds
	Kind        Kind    `json:"type"`
}

// Duration returns Length as a time.Duration.
func (m *Metadata) Duration() time.Duration {
	return time.Duration(m.Length * float64(time.Second))
}

// HasTags reports whether any textual tag is set.
func (m *Metadata) HasTags() bool {
	return m.Album != "" || m.Artist != "" || m.AlbumArtist != "" || m.Title != "" ||
		m.TrackNumber != 0 || m.DiscNumber != 0 || m.Year != 0
}

// Extractor reads metadata from a media file.
type Extractor interface {
	Extract(path string) (*Metadata, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(path string) (*Metadata, error)

func (f ExtractorFunc) Extract(path string) (*Metadata, error) {
	return f(path)
}

// Track is an immutable reference to a playable media file.
// Metadata is extracted at most once per Track value and cached.
type Track struct {
	path      string
	extractor Extractor

	once sync.Once
	meta *Metadata
}

// NewTrack returns a track whose metadata is extracted lazily.
func NewTrack(path string, extractor Extractor) *Track {
	return &Track{path: path, extractor: extractor}
}

// NewTrackWithMetadata returns a track with already known metadata.
func NewTrackWithMetadata(path string, meta *Metadata) *Track {
	t := &Track{path: path}
	if meta != nil {
		m := *meta
		t.meta = &m
	}
	t.once.Do(func() {})
	return t
}

// Path is the opaque locator of the media file.
func (t *Track) Path() string {
	return t.path
}

// Metadata returns the cached metadata, extracting it on first use.
// It returns nil for unreadable or untagged media.
func (t *Track) Metadata() *Metadata {
	t.once.Do(func() {
		if t.extractor == nil {
			return
		}
		meta, err := t.extractor.Extract(t.path)
		if err != nil {
			return
		}
		t.meta = meta
	})
	return t.meta
}

// Payload reads the raw media bytes.
func (t *Track) Payload() ([]byte, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}
	return data, nil
}

func (t *Track) String() string {
	if m := t.Metadata(); m != nil && m.Title != "" {
		return fmt.Sprintf("%s - %s", m.Artist, m.Title)
	}
	return t.path
}
