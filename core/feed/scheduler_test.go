package feed

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"Playa/core/loop"
	"Playa/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTrack(t *testing.T, size int, length float64, kind model.Kind) (*model.Track, []byte) {
	t.Helper()
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	path := filepath.Join(t.TempDir(), "track."+string(kind))
	require.NoError(t, os.WriteFile(path, payload, 0o644))
	return model.NewTrackWithMetadata(path, &model.Metadata{Title: "t", Length: length, Kind: kind}), payload
}

func TestPrepare_ChunkCoverage(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		length float64
		kind   model.Kind
		tick   time.Duration
	}{
		{"mp3 one second ticks", 48_000, 12, model.KindMP3, time.Second},
		{"mp3 fast ticks", 100_003, 7.5, model.KindMP3, 200 * time.Millisecond},
		{"m4a long prebuffer", 500_000, 200, model.KindM4A, time.Second},
		{"m4a shorter than prebuffer", 10_000, 30, model.KindM4A, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			track, payload := writeTrack(t, tt.size, tt.length, tt.kind)

			chunks, err := Prepare(track, tt.tick)
			require.NoError(t, err)
			require.NotEmpty(t, chunks)

			assert.Equal(t, payload, bytes.Join(chunks, nil))

			prebuf := min(Prebuffer(tt.kind).Seconds(), tt.length)
			want := int(math.Ceil(float64(tt.size) * prebuf / tt.length))
			assert.Equal(t, want, len(chunks[0]))
		})
	}
}

func TestPrepare_ChunkCount(t *testing.T) {
	track, _ := writeTrack(t, 10_000, 10.3, model.KindMP3)

	chunks, err := Prepare(track, time.Second)
	require.NoError(t, err)

	// one prebuffer chunk plus one per second of the remaining ten seconds
	assert.Len(t, chunks, 11)
}

func TestPrepare_Unreadable(t *testing.T) {
	missing := model.NewTrackWithMetadata(filepath.Join(t.TempDir(), "gone.mp3"),
		&model.Metadata{Length: 10, Kind: model.KindMP3})
	_, err := Prepare(missing, time.Second)
	assert.ErrorIs(t, err, ErrUnreadableMedia)

	untagged := model.NewTrackWithMetadata("/x.mp3", nil)
	_, err = Prepare(untagged, time.Second)
	assert.ErrorIs(t, err, ErrUnreadableMedia)

	unknownKind := model.NewTrackWithMetadata("/x.ogg", &model.Metadata{Length: 10})
	_, err = Prepare(unknownKind, time.Second)
	assert.ErrorIs(t, err, ErrUnreadableMedia)
}

type recorder struct {
	pushes   [][]byte
	progress []float64
	finished int
	stopped  int
}

func newScheduler(t *testing.T, history int) (*Scheduler, *loop.Manual, *recorder) {
	t.Helper()
	exec := loop.NewManual()
	s := NewScheduler(exec, Config{TickInterval: time.Second, HistoryChunks: history})
	rec := &recorder{}
	s.SetCallbacks(Callbacks{
		OnPush:          func(c []byte) { rec.pushes = append(rec.pushes, c) },
		OnTimerUpdate:   func(p float64) { rec.progress = append(rec.progress, p) },
		OnTrackFinished: func() { rec.finished++ },
		OnStop:          func() { rec.stopped++ },
	})
	return s, exec, rec
}

func chunksOf(n int) [][]byte {
	chunks := make([][]byte, n)
	for i := range chunks {
		chunks[i] = []byte{byte(i), byte(i)}
	}
	return chunks
}

func TestScheduler_TicksUntilFinished(t *testing.T) {
	s, exec, rec := newScheduler(t, 3)

	s.Extend(chunksOf(4), true)
	assert.Equal(t, StateFeeding, s.State())

	s.Start()
	assert.Equal(t, StatePlaying, s.State())
	assert.Len(t, rec.pushes, 1, "first chunk goes out immediately")

	exec.Advance(3 * time.Second)
	assert.Len(t, rec.pushes, 4)
	assert.Equal(t, []float64{25, 50, 75, 100}, rec.progress)
	assert.Zero(t, rec.finished)

	exec.Advance(time.Second)
	assert.Equal(t, 1, rec.finished)
	assert.Equal(t, StateIdle, s.State())
	assert.Zero(t, exec.ActiveTimers())
}

func TestScheduler_StartIsIdempotent(t *testing.T) {
	s, exec, rec := newScheduler(t, 3)

	s.Start()
	assert.Empty(t, rec.pushes, "nothing queued")

	s.Extend(chunksOf(5), true)
	s.Start()
	s.Start()
	s.Start()
	assert.Len(t, rec.pushes, 1)
	assert.Equal(t, 1, exec.ActiveTimers())

	exec.Advance(time.Second)
	assert.Len(t, rec.pushes, 2)
}

func TestScheduler_HistoryIsBounded(t *testing.T) {
	s, exec, _ := newScheduler(t, 2)

	chunks := chunksOf(5)
	s.Extend(chunks, true)
	s.Start()
	exec.Advance(4 * time.Second)

	assert.Equal(t, [][]byte{chunks[3], chunks[4]}, s.History())

	s.ClearHistory()
	assert.Empty(t, s.History())
}

func TestScheduler_PauseResume(t *testing.T) {
	s, exec, rec := newScheduler(t, 3)

	s.Extend(chunksOf(5), true)
	s.Start()

	assert.True(t, s.TogglePause())
	assert.Equal(t, StatePaused, s.State())
	assert.Zero(t, exec.ActiveTimers())

	exec.Advance(10 * time.Second)
	assert.Len(t, rec.pushes, 1, "no ticks while paused")

	assert.False(t, s.TogglePause())
	assert.Len(t, rec.pushes, 2, "resume ticks immediately")
	assert.Equal(t, 1, exec.ActiveTimers())

	exec.Advance(time.Second)
	assert.Len(t, rec.pushes, 3)
}

func TestScheduler_StartWhilePaused(t *testing.T) {
	s, exec, rec := newScheduler(t, 3)

	s.Pause()
	s.Extend(chunksOf(5), true)
	s.Start()

	assert.Equal(t, StatePaused, s.State())
	assert.Empty(t, rec.pushes)
	assert.Zero(t, exec.ActiveTimers())

	s.Resume()
	assert.Equal(t, StatePlaying, s.State())
	assert.Len(t, rec.pushes, 1)
}

func TestScheduler_PauseDiscardsQueuedTick(t *testing.T) {
	s, exec, rec := newScheduler(t, 3)

	s.Extend(chunksOf(5), true)
	s.Start()

	// a tick already posted to the loop must not run after pause and resume
	stale := s.generation
	s.Pause()
	s.Resume()
	exec.Post(func() { s.play(stale) })
	exec.RunPending()

	assert.Len(t, rec.pushes, 2)
	assert.Equal(t, 1, exec.ActiveTimers())
}

func TestScheduler_Stop(t *testing.T) {
	s, exec, rec := newScheduler(t, 3)

	s.Extend(chunksOf(5), true)
	s.Start()
	exec.Advance(time.Second)

	s.Stop()
	assert.Equal(t, StateIdle, s.State())
	assert.Empty(t, s.History())
	assert.Zero(t, s.Queued())
	assert.Zero(t, s.Progress())
	assert.Equal(t, 1, rec.stopped)

	exec.Advance(5 * time.Second)
	assert.Len(t, rec.pushes, 2)
	assert.Zero(t, rec.finished)
}

func TestScheduler_ExtendWithoutClearAppends(t *testing.T) {
	s, exec, rec := newScheduler(t, 3)

	s.Extend(chunksOf(2), true)
	s.Start()
	s.Extend(chunksOf(3), false)
	assert.Equal(t, 4, s.Queued())

	exec.Advance(10 * time.Second)
	assert.Len(t, rec.pushes, 5)
	assert.Equal(t, 1, rec.finished)
}

func TestScheduler_ExtendWithClearDropsQueued(t *testing.T) {
	s, _, _ := newScheduler(t, 3)

	s.Extend(chunksOf(4), true)
	s.Extend(chunksOf(2), true)

	assert.Equal(t, 2, s.Queued())
}

func TestScheduler_GaplessFromFinishCallback(t *testing.T) {
	exec := loop.NewManual()
	s := NewScheduler(exec, Config{TickInterval: time.Second, HistoryChunks: 3})

	pushes := 0
	fed := false
	s.SetCallbacks(Callbacks{
		OnPush: func([]byte) { pushes++ },
		OnTrackFinished: func() {
			if fed {
				return
			}
			fed = true
			s.Extend(chunksOf(2), false)
			s.Start()
		},
	})

	s.Extend(chunksOf(2), true)
	s.Start()
	exec.Advance(10 * time.Second)

	assert.Equal(t, 4, pushes)
	assert.Equal(t, StateIdle, s.State())
	assert.Zero(t, exec.ActiveTimers())
}

func TestProgress_ZeroTotal(t *testing.T) {
	s, _, _ := newScheduler(t, 3)
	assert.Zero(t, s.Progress())
}

func TestFeed(t *testing.T) {
	s, _, _ := newScheduler(t, 3)
	track, _ := writeTrack(t, 1000, 5, model.KindMP3)

	require.NoError(t, s.Feed(track, true))
	assert.Positive(t, s.Queued())

	bad := model.NewTrackWithMetadata("/nope.mp3", nil)
	assert.ErrorIs(t, s.Feed(bad, true), ErrUnreadableMedia)
}
