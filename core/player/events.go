package player

import (
	"Playa/core/broadcast"
	"Playa/core/library"
	"Playa/core/playlist"
	"Playa/model"
)

// TrackView is how a playlist entry is shown to clients.
type TrackView struct {
	ID   string `json:"id,omitempty"`
	Hash string `json:"hash"`
	Path string `json:"path"`
	model.Metadata
}

func viewTrack(id string, track *model.Track) TrackView {
	v := TrackView{ID: id, Hash: library.EncodePath(track.Path()), Path: track.Path()}
	if meta := track.Metadata(); meta != nil {
		v.Metadata = *meta
	}
	return v
}

// PlaylistState is the payload of PlaylistChanged and of every playlist
// command response.
type PlaylistState struct {
	Playlist []TrackView `json:"playlist"`
	HasUndo  bool        `json:"hasUndo"`
	HasRedo  bool        `json:"hasRedo"`
	// Position of the current entry, -1 when nothing plays.
	Position int `json:"position"`
}

// Current is the payload of TrackStarted and of the current track query.
type Current struct {
	Position int        `json:"position"`
	Track    *TrackView `json:"track"`
}

type pausedData struct {
	Paused bool `json:"paused"`
}

type timerData struct {
	Progress float64 `json:"position"`
}

type registryData struct {
	List []string `json:"list"`
}

type libraryData struct {
	Tracks int `json:"tracks"`
}

func playlistState(e *playlist.Engine) PlaylistState {
	entries := e.Entries()
	state := PlaylistState{
		Playlist: make([]TrackView, 0, len(entries)),
		HasUndo:  e.HasUndo(),
		HasRedo:  e.HasRedo(),
		Position: -1,
	}
	for _, entry := range entries {
		state.Playlist = append(state.Playlist, viewTrack(entry.ID, entry.Track))
	}
	if position, ok := e.CurrentPosition(); ok {
		state.Position = position
	}
	return state
}

func currentState(e *playlist.Engine) Current {
	position, ok := e.CurrentPosition()
	if !ok {
		return Current{Position: -1}
	}
	v := viewTrack(e.CurrentID(), e.CurrentTrack())
	return Current{Position: position, Track: &v}
}

func trackStarted(c Current) broadcast.Event {
	return broadcast.NewEvent(broadcast.KindTrackStarted, c)
}

func playbackFinished() broadcast.Event {
	return broadcast.NewEvent(broadcast.KindPlaybackFinished, nil)
}

func playbackPaused(paused bool) broadcast.Event {
	return broadcast.NewEvent(broadcast.KindPlaybackPaused, pausedData{Paused: paused})
}

func playlistChanged(s PlaylistState) broadcast.Event {
	return broadcast.NewEvent(broadcast.KindPlaylistChanged, s)
}

func registryUpdated(names []string) broadcast.Event {
	if names == nil {
		names = []string{}
	}
	return broadcast.NewEvent(broadcast.KindPlaylistRegistryUpdated, registryData{List: names})
}

func timerUpdate(progress float64) broadcast.Event {
	return broadcast.NewEvent(broadcast.KindTimerUpdate, timerData{Progress: progress})
}

func libraryUpdated(tracks int) broadcast.Event {
	return broadcast.NewEvent(broadcast.KindLibraryUpdated, libraryData{Tracks: tracks})
}
