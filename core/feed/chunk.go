package feed

import (
	"errors"
	"fmt"
	"math"
	"time"

	"Playa/model"
)

// ErrUnreadableMedia is returned when a track cannot be turned into chunks.
var ErrUnreadableMedia = errors.New("unreadable media")

// Prebuffer returns how much audio the first chunk covers for a container kind.
// m4a needs a large head start because its index can sit at the end of the file.
func Prebuffer(kind model.Kind) time.Duration {
	switch kind {
	case model.KindMP3:
		return 300 * time.Millisecond
	case model.KindM4A:
		return 70 * time.Second
	}
	return 0
}

// Prepare reads the payload of track and splits it into one prebuffer chunk
// followed by chunks sized to play for one tick each. It does blocking I/O
// and touches no scheduler state.
func Prepare(track *model.Track, tick time.Duration) ([][]byte, error) {
	meta := track.Metadata()
	if meta == nil || meta.Length <= 0 {
		return nil, fmt.Errorf("%w: %s: unknown duration", ErrUnreadableMedia, track.Path())
	}
	prebuf := Prebuffer(meta.Kind)
	if prebuf == 0 {
		return nil, fmt.Errorf("%w: %s: unsupported container %q", ErrUnreadableMedia, track.Path(), meta.Kind)
	}

	payload, err := track.Payload()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableMedia, err)
	}
	return Split(payload, meta.Duration(), prebuf, tick), nil
}

// Split cuts payload into a prebuffer chunk covering prebuf of duration and
// tick sized chunks for the rest. The chunks always concatenate to payload.
func Split(payload []byte, duration, prebuf, tick time.Duration) [][]byte {
	if len(payload) == 0 || duration <= 0 {
		return nil
	}
	prebuf = min(prebuf, duration)

	size := float64(len(payload))
	prebufSize := int(math.Ceil(size * prebuf.Seconds() / duration.Seconds()))
	prebufSize = min(max(prebufSize, 1), len(payload))

	chunks := [][]byte{payload[:prebufSize]}
	rest := payload[prebufSize:]
	if len(rest) == 0 {
		return chunks
	}

	numChunks := (duration - prebuf).Seconds() / tick.Seconds()
	chunkSize := len(rest)
	if numChunks > 0 {
		chunkSize = max(int(math.Ceil(float64(len(rest))/numChunks)), 1)
	}

	for len(rest) > 0 {
		n := min(chunkSize, len(rest))
		chunks = append(chunks, rest[:n])
		rest = rest[n:]
	}
	return chunks
}
