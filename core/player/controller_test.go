package player

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Playa/core/broadcast"
	"Playa/core/feed"
	"Playa/core/loop"
	"Playa/core/ordered"
	"Playa/core/playlist"
	"Playa/core/registry"
	"Playa/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = time.Second

type fixture struct {
	exec   *loop.Manual
	engine *playlist.Engine
	sched  *feed.Scheduler
	hub    *broadcast.Hub
	ctrl   *Controller
	info   *broadcast.Listener
	reg    *registry.Registry
	scrob  *fakeScrobbler
}

type fakeScrobbler struct {
	mu         sync.Mutex
	nowPlaying []string
	scrobbled  []string
}

func (f *fakeScrobbler) NowPlaying(track *model.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nowPlaying = append(f.nowPlaying, track.Path())
	return nil
}

func (f *fakeScrobbler) Scrobble(track *model.Track, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrobbled = append(f.scrobbled, track.Path())
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		exec:  loop.NewManual(),
		hub:   broadcast.NewHub(),
		reg:   registry.New(nil),
		scrob: &fakeScrobbler{},
	}
	f.engine = playlist.New(playlist.WithRegistry(f.reg))
	f.sched = feed.NewScheduler(f.exec, feed.Config{TickInterval: tick, HistoryChunks: 3})
	f.ctrl = New(f.exec, f.engine, f.sched, f.hub, WithScrobbler(f.scrob))

	f.info = broadcast.NewListener(broadcast.InfoQueueSize)
	f.hub.RegisterInfo(f.info)
	return f
}

// readable writes a 3 second mp3 payload. With one second ticks it is cut
// into chunks of 300, 1000, 1000 and 700 bytes.
func readable(t *testing.T, name string) *model.Track {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".mp3")
	require.NoError(t, os.WriteFile(path, make([]byte, 3000), 0o644))
	return model.NewTrackWithMetadata(path, &model.Metadata{Title: name, Artist: "Band", Album: "LP", Length: 3, Kind: model.KindMP3})
}

func unreadable(name string) *model.Track {
	return model.NewTrackWithMetadata("/does/not/exist/"+name+".mp3", &model.Metadata{Title: name, Length: 3, Kind: model.KindMP3})
}

type received struct {
	Event broadcast.Kind  `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// events drains the info listener.
func (f *fixture) events(t *testing.T) []received {
	t.Helper()
	var out []received
	for {
		select {
		case msg, ok := <-f.info.Messages():
			if !ok {
				return out
			}
			var ev received
			require.NoError(t, json.Unmarshal(msg, &ev))
			out = append(out, ev)
		default:
			return out
		}
	}
}

func kinds(events []received) []broadcast.Kind {
	out := make([]broadcast.Kind, 0, len(events))
	for _, ev := range events {
		if ev.Event == broadcast.KindTimerUpdate {
			continue
		}
		out = append(out, ev.Event)
	}
	return out
}

func startedTitles(t *testing.T, events []received) []string {
	t.Helper()
	var titles []string
	for _, ev := range events {
		if ev.Event != broadcast.KindTrackStarted {
			continue
		}
		var c Current
		require.NoError(t, json.Unmarshal(ev.Data, &c))
		require.NotNil(t, c.Track)
		titles = append(titles, c.Track.Title)
	}
	return titles
}

func (f *fixture) insert(t *testing.T, tracks ...*model.Track) {
	t.Helper()
	_, err := f.ctrl.Insert(tracks, ordered.End)
	require.NoError(t, err)
	f.events(t)
}

func TestStart_AnnouncesAndFeeds(t *testing.T) {
	f := newFixture(t)
	a := readable(t, "A")
	f.insert(t, a)

	require.NoError(t, f.ctrl.Start(0))
	f.exec.RunPending()

	events := f.events(t)
	assert.Equal(t, []string{"A"}, startedTitles(t, events))
	assert.Equal(t, feed.StatePlaying, f.sched.State())
	assert.Equal(t, []string{a.Path()}, f.scrob.nowPlaying)

	current, err := f.ctrl.Current()
	require.NoError(t, err)
	assert.Equal(t, 0, current.Position)
	assert.Equal(t, a.Path(), current.Track.Path)
}

func TestStart_Errors(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.ctrl.Start(0), playlist.ErrEmptyPlaylist)

	f.insert(t, readable(t, "A"))
	assert.ErrorIs(t, f.ctrl.Start(1), playlist.ErrOutOfBounds)
	assert.ErrorIs(t, f.ctrl.Start(-1), playlist.ErrOutOfBounds)

	f.exec.RunPending()
	assert.Empty(t, f.events(t), "failed starts have no side effects")
	assert.Equal(t, feed.StateIdle, f.sched.State())
}

func TestStart_HealsUnreadableMedia(t *testing.T) {
	f := newFixture(t)
	b := readable(t, "B")
	f.insert(t, unreadable("A"), b)

	require.NoError(t, f.ctrl.Start(0))
	f.exec.RunPending()

	events := f.events(t)
	assert.Equal(t, []string{"B"}, startedTitles(t, events))
	assert.Equal(t, []broadcast.Kind{broadcast.KindPlaylistChanged, broadcast.KindTrackStarted}, kinds(events))

	state, err := f.ctrl.Playlist()
	require.NoError(t, err)
	require.Len(t, state.Playlist, 1)
	assert.Equal(t, b.Path(), state.Playlist[0].Path)
	assert.Equal(t, 0, state.Position)
	assert.Equal(t, feed.StatePlaying, f.sched.State())
}

func TestStart_AllUnreadableFinishes(t *testing.T) {
	f := newFixture(t)
	f.insert(t, unreadable("A"), unreadable("B"))

	require.NoError(t, f.ctrl.Start(0))
	f.exec.RunPending()

	events := f.events(t)
	assert.Empty(t, startedTitles(t, events))
	assert.Equal(t, []broadcast.Kind{broadcast.KindPlaylistChanged, broadcast.KindPlaybackFinished}, kinds(events))

	state, err := f.ctrl.Playlist()
	require.NoError(t, err)
	assert.Empty(t, state.Playlist)
	assert.Equal(t, -1, state.Position)
}

func TestTrackFinished_AdvancesGaplessly(t *testing.T) {
	f := newFixture(t)
	a, b := readable(t, "A"), readable(t, "B")
	f.insert(t, a, b)

	require.NoError(t, f.ctrl.Start(0))
	f.exec.RunPending()

	// Prebuffer plus three ticks drain A, the next tick finishes it.
	f.exec.Advance(4 * tick)

	events := f.events(t)
	assert.Equal(t, []string{"A", "B"}, startedTitles(t, events))
	assert.Equal(t, []string{a.Path()}, f.scrob.scrobbled)
	assert.NotEmpty(t, f.sched.History(), "history survives a gapless transition")

	f.exec.Advance(10 * tick)
	events = f.events(t)
	assert.Equal(t, broadcast.KindPlaybackFinished, kinds(events)[len(kinds(events))-1])
	assert.Empty(t, f.sched.History())
	assert.Equal(t, []string{a.Path(), b.Path()}, f.scrob.scrobbled)

	_, err := f.ctrl.Current()
	require.NoError(t, err)
	assert.ErrorIs(t, f.ctrl.Next(), ErrNotPlaying)
}

func TestNextPrev(t *testing.T) {
	f := newFixture(t)
	f.insert(t, readable(t, "A"), readable(t, "B"))

	assert.ErrorIs(t, f.ctrl.Next(), ErrNotPlaying)
	assert.ErrorIs(t, f.ctrl.Prev(), ErrNotPlaying)

	require.NoError(t, f.ctrl.Start(0))
	f.exec.RunPending()
	require.NoError(t, f.ctrl.Next())
	f.exec.RunPending()
	assert.ErrorIs(t, f.ctrl.Next(), playlist.ErrOutOfBounds)
	require.NoError(t, f.ctrl.Prev())
	f.exec.RunPending()

	assert.Equal(t, []string{"A", "B", "A"}, startedTitles(t, f.events(t)))
}

func TestStaleStartIsDiscarded(t *testing.T) {
	f := newFixture(t)
	f.insert(t, readable(t, "A"), readable(t, "B"))

	require.NoError(t, f.ctrl.Start(0))
	require.NoError(t, f.ctrl.Start(1))
	f.exec.RunPending()

	assert.Equal(t, []string{"B"}, startedTitles(t, f.events(t)))
}

func TestStopAndPause(t *testing.T) {
	f := newFixture(t)
	f.insert(t, readable(t, "A"))
	require.NoError(t, f.ctrl.Start(0))
	f.exec.RunPending()
	f.events(t)

	paused, err := f.ctrl.Pause()
	require.NoError(t, err)
	assert.True(t, paused)
	paused, err = f.ctrl.Pause()
	require.NoError(t, err)
	assert.False(t, paused)

	require.NoError(t, f.ctrl.Stop())
	assert.Equal(t, feed.StateIdle, f.sched.State())

	events := f.events(t)
	assert.Equal(t, []broadcast.Kind{
		broadcast.KindPlaybackPaused,
		broadcast.KindPlaybackPaused,
		broadcast.KindPlaybackFinished,
	}, kinds(events))
	assert.JSONEq(t, `{"paused":true}`, string(events[0].Data))

	current, err := f.ctrl.Current()
	require.NoError(t, err)
	assert.Equal(t, -1, current.Position)
	assert.Nil(t, current.Track)
}

func TestPause_HoldsWhileTrackIsRead(t *testing.T) {
	f := newFixture(t)
	f.insert(t, readable(t, "A"))

	require.NoError(t, f.ctrl.Start(0))
	paused, err := f.ctrl.Pause()
	require.NoError(t, err)
	require.True(t, paused)

	f.exec.RunPending()
	assert.Equal(t, feed.StatePaused, f.sched.State())
	assert.True(t, f.sched.Paused())
	assert.Equal(t, 4, f.sched.Queued(), "nothing pushed while paused")

	events := f.events(t)
	assert.Equal(t, []broadcast.Kind{broadcast.KindPlaybackPaused, broadcast.KindTrackStarted}, kinds(events))
	assert.JSONEq(t, `{"paused":true}`, string(events[0].Data))

	paused, err = f.ctrl.Pause()
	require.NoError(t, err)
	assert.False(t, paused)
	assert.Equal(t, feed.StatePlaying, f.sched.State())
	assert.Equal(t, 3, f.sched.Queued())
}

func TestStart_LiftsPause(t *testing.T) {
	f := newFixture(t)
	f.insert(t, readable(t, "A"), readable(t, "B"))
	require.NoError(t, f.ctrl.Start(0))
	f.exec.RunPending()
	_, err := f.ctrl.Pause()
	require.NoError(t, err)
	f.events(t)

	require.NoError(t, f.ctrl.Next())
	f.exec.RunPending()
	assert.Equal(t, feed.StatePlaying, f.sched.State())

	events := f.events(t)
	require.Equal(t, []broadcast.Kind{broadcast.KindPlaybackPaused, broadcast.KindTrackStarted}, kinds(events))
	assert.JSONEq(t, `{"paused":false}`, string(events[0].Data))
	assert.Equal(t, []string{"B"}, startedTitles(t, events))

	_, err = f.ctrl.Pause()
	require.NoError(t, err)
	f.events(t)
	require.NoError(t, f.ctrl.Stop())
	assert.Equal(t, []broadcast.Kind{broadcast.KindPlaybackPaused, broadcast.KindPlaybackFinished}, kinds(f.events(t)))
}

func TestPlaylistCommands_AnnounceAndAutosave(t *testing.T) {
	f := newFixture(t)
	a, b := readable(t, "A"), readable(t, "B")

	state, err := f.ctrl.Insert([]*model.Track{a}, ordered.End)
	require.NoError(t, err)
	assert.True(t, state.HasUndo)
	state, err = f.ctrl.Insert([]*model.Track{b}, 0)
	require.NoError(t, err)
	require.Len(t, state.Playlist, 2)
	assert.Equal(t, "B", state.Playlist[0].Title)

	saved, err := f.reg.Load(registry.LastActive)
	require.NoError(t, err)
	assert.Equal(t, []string{b.Path(), a.Path()}, saved)

	state, err = f.ctrl.Move(1, 0)
	require.NoError(t, err)
	assert.Equal(t, "A", state.Playlist[0].Title)

	_, err = f.ctrl.Remove(5)
	assert.ErrorIs(t, err, playlist.ErrOutOfBounds)

	state, undone, err := f.ctrl.Undo()
	require.NoError(t, err)
	assert.True(t, undone)
	assert.True(t, state.HasRedo)
	assert.Equal(t, "B", state.Playlist[0].Title)

	_, redone, err := f.ctrl.Redo()
	require.NoError(t, err)
	assert.True(t, redone)

	state, err = f.ctrl.Clear()
	require.NoError(t, err)
	assert.Empty(t, state.Playlist)

	events := f.events(t)
	for _, ev := range events {
		assert.Equal(t, broadcast.KindPlaylistChanged, ev.Event)
	}
	assert.Len(t, events, 6)
}

func TestNamedPlaylists(t *testing.T) {
	f := newFixture(t)
	a := readable(t, "A")
	f.insert(t, a)

	names, err := f.ctrl.Save("mix")
	require.NoError(t, err)
	assert.Equal(t, []string{"mix"}, names)

	_, err = f.ctrl.Clear()
	require.NoError(t, err)
	state, err := f.ctrl.Load("mix")
	require.NoError(t, err)
	require.Len(t, state.Playlist, 1)
	assert.Equal(t, a.Path(), state.Playlist[0].Path)

	_, err = f.ctrl.Load("nope")
	assert.ErrorIs(t, err, registry.ErrNotFound)

	names, err = f.ctrl.Delete("mix")
	require.NoError(t, err)
	assert.Empty(t, names)
	_, err = f.ctrl.Delete("mix")
	assert.ErrorIs(t, err, registry.ErrNotFound)

	var updates int
	for _, ev := range f.events(t) {
		if ev.Event == broadcast.KindPlaylistRegistryUpdated {
			updates++
		}
	}
	assert.Equal(t, 2, updates)
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.reg.Save(registry.LastActive, []string{"/m/a.mp3", "/m/b.mp3"}))

	require.NoError(t, f.ctrl.Restore())
	state, err := f.ctrl.Playlist()
	require.NoError(t, err)
	require.Len(t, state.Playlist, 2)
	assert.False(t, state.HasUndo)
}

func TestLoadAndRestore_ExtractOffLoop(t *testing.T) {
	ev := loop.New()
	go ev.Run()
	t.Cleanup(ev.Stop)

	var calls, blocked atomic.Int32
	// A task posted from inside the extractor only runs promptly when the
	// loop is free, so a timeout means the extraction held the loop.
	extractor := model.ExtractorFunc(func(path string) (*model.Metadata, error) {
		calls.Add(1)
		ran := make(chan struct{})
		ev.Post(func() { close(ran) })
		select {
		case <-ran:
		case <-time.After(time.Second):
			blocked.Add(1)
		}
		return &model.Metadata{Title: filepath.Base(path), Length: 3, Kind: model.KindMP3}, nil
	})

	reg := registry.New(nil)
	require.NoError(t, reg.Save(registry.LastActive, []string{"/m/a.mp3", "/m/b.mp3", "/m/c.mp3"}))
	require.NoError(t, reg.Save("mix", []string{"/m/d.mp3"}))

	engine := playlist.New(playlist.WithRegistry(reg), playlist.WithTrackFactory(func(path string) *model.Track {
		return model.NewTrack(path, extractor)
	}))
	sched := feed.NewScheduler(ev, feed.Config{TickInterval: tick, HistoryChunks: 3})
	ctrl := New(ev, engine, sched, broadcast.NewHub())

	require.NoError(t, ctrl.Restore())
	state, err := ctrl.Playlist()
	require.NoError(t, err)
	require.Len(t, state.Playlist, 3)
	assert.Equal(t, "a.mp3", state.Playlist[0].Title)

	state, err = ctrl.Load("mix")
	require.NoError(t, err)
	require.Len(t, state.Playlist, 1)
	assert.Equal(t, "d.mp3", state.Playlist[0].Title)

	_, _, err = ctrl.Undo()
	require.NoError(t, err)
	assert.Equal(t, int32(4), calls.Load(), "each track is read once")
	assert.Zero(t, blocked.Load(), "tags were read on the event loop")
}

func TestConnectInfo_Replay(t *testing.T) {
	f := newFixture(t)
	f.insert(t, readable(t, "A"))
	_, err := f.ctrl.Save("mix")
	require.NoError(t, err)
	require.NoError(t, f.ctrl.Start(0))
	f.exec.RunPending()

	l := broadcast.NewListener(broadcast.InfoQueueSize)
	require.NoError(t, f.ctrl.ConnectInfo(l))

	var got []received
	for range 4 {
		msg := <-l.Messages()
		var ev received
		require.NoError(t, json.Unmarshal(msg, &ev))
		got = append(got, ev)
	}
	assert.Equal(t, []broadcast.Kind{
		broadcast.KindTrackStarted,
		broadcast.KindPlaybackPaused,
		broadcast.KindPlaylistChanged,
		broadcast.KindPlaylistRegistryUpdated,
	}, kinds(got))
	assert.JSONEq(t, `{"list":["mix"]}`, string(got[3].Data))

	f.ctrl.Disconnect(l)
	f.ctrl.Disconnect(l)
	_, open := <-l.Messages()
	assert.False(t, open)
}

func TestConnectInfo_IdleReplay(t *testing.T) {
	f := newFixture(t)
	l := broadcast.NewListener(broadcast.InfoQueueSize)
	require.NoError(t, f.ctrl.ConnectInfo(l))

	msg := <-l.Messages()
	var ev received
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, broadcast.KindPlaybackFinished, ev.Event)
}

func TestConnectStream_ReceivesHistory(t *testing.T) {
	f := newFixture(t)
	f.insert(t, readable(t, "A"))
	require.NoError(t, f.ctrl.Start(0))
	f.exec.RunPending()
	f.exec.Advance(2 * tick)

	l := broadcast.NewListener(broadcast.StreamQueueSize)
	require.NoError(t, f.ctrl.ConnectStream(l))

	history := f.sched.History()
	require.Len(t, history, 3)
	for _, want := range history {
		assert.Equal(t, want, <-l.Messages())
	}

	f.exec.Advance(tick)
	assert.Len(t, <-l.Messages(), 700, "live chunks follow the history")
}

func TestLibraryUpdated(t *testing.T) {
	f := newFixture(t)
	f.ctrl.LibraryUpdated(42)
	f.exec.RunPending()

	events := f.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, broadcast.KindLibraryUpdated, events[0].Event)
	assert.JSONEq(t, `{"tracks":42}`, string(events[0].Data))
}
