package audio

import (
	"os"
	"path/filepath"
	"testing"

	"Playa/model"

	"github.com/dhowden/tag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("/music/a.mp3"))
	assert.True(t, IsSupported("/music/A.M4A"))
	assert.True(t, IsSupported("/music/a.mp4"))
	assert.False(t, IsSupported("/music/a.flac"))
	assert.False(t, IsSupported("/music/cover.jpg"))
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		ft   tag.FileType
		path string
		want model.Kind
	}{
		{tag.MP3, "x", model.KindMP3},
		{tag.M4A, "x", model.KindM4A},
		{tag.ALAC, "x", model.KindM4A},
		{tag.UnknownFileType, "a.mp3", model.KindMP3},
		{tag.UnknownFileType, "a.mp4", model.KindM4A},
		{tag.FLAC, "a.flac", model.KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, kindOf(tt.ft, tt.path), "%s %s", tt.ft, tt.path)
	}
}

func TestExtract_Untagged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.mp3")
	require.NoError(t, os.WriteFile(path, []byte("not an mp3 at all"), 0o644))

	_, err := Extractor{}.Extract(path)
	assert.ErrorIs(t, err, ErrNoTags)
}

func TestExtract_Missing(t *testing.T) {
	_, err := Extractor{}.Extract(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDuration_Unsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.flac")
	require.NoError(t, os.WriteFile(path, []byte("fLaC"), 0o644))

	_, err := Duration(path, model.KindUnknown)
	assert.Error(t, err)
}
