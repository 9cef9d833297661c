// Package audio extracts tags and stream information from media files.
package audio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"Playa/model"

	"github.com/dhowden/tag"
	"github.com/llehouerou/go-m4a"
	"github.com/llehouerou/go-mp3"
)

// ErrNoTags is returned for files without a readable tag block.
var ErrNoTags = errors.New("no readable tags")

// Supported file extensions.
const (
	ExtMP3 = ".mp3"
	ExtM4A = ".m4a"
	ExtMP4 = ".mp4"
)

// IsSupported reports whether path has a playable extension.
func IsSupported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3, ExtM4A, ExtMP4:
		return true
	}
	return false
}

// Extractor reads metadata with dhowden/tag and measures duration with the
// container decoders.
type Extractor struct{}

var _ model.Extractor = Extractor{}

// Extract returns the metadata of path. Files without tags yield ErrNoTags.
// A file whose duration cannot be measured still gets metadata with Length 0.
func (Extractor) Extract(path string) (*model.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoTags, path, err)
	}

	kind := kindOf(m.FileType(), path)
	track, _ := m.Track()
	disc, _ := m.Disc()

	meta := &model.Metadata{
		Album:       m.Album(),
		Artist:      m.Artist(),
		AlbumArtist: m.AlbumArtist(),
		Title:       m.Title(),
		TrackNumber: track,
		DiscNumber:  disc,
		Year:        m.Year(),
		Kind:        kind,
	}

	if duration, err := Duration(path, kind); err == nil {
		meta.Length = duration.Seconds()
	}
	return meta, nil
}

func kindOf(ft tag.FileType, path string) model.Kind {
	switch ft {
	case tag.MP3:
		return model.KindMP3
	case tag.M4A, tag.M4B, tag.M4P, tag.ALAC:
		return model.KindM4A
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3:
		return model.KindMP3
	case ExtM4A, ExtMP4:
		return model.KindM4A
	}
	return model.KindUnknown
}

// Duration measures the playing time of path for the given container kind.
func Duration(path string, kind model.Kind) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	switch kind {
	case model.KindMP3:
		decoder, err := mp3.NewDecoder(f)
		if err != nil {
			return 0, err
		}
		sampleRate := decoder.SampleRate()
		if sampleRate == 0 {
			return 0, errors.New("mp3: invalid sample rate")
		}
		sampleCount := max(decoder.SampleCount(), 0)
		return time.Duration(float64(sampleCount) / float64(sampleRate) * float64(time.Second)), nil

	case model.KindM4A:
		container, err := m4a.Open(f)
		if err != nil {
			return 0, err
		}
		return container.Duration(), nil
	}

	return 0, fmt.Errorf("unsupported format: %s", filepath.Ext(path))
}
