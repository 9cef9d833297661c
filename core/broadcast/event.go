package broadcast

import "encoding/json"

// Kind names an info stream event.
type Kind string

const (
	KindTrackStarted            Kind = "TrackStarted"
	KindPlaybackFinished        Kind = "PlaybackFinished"
	KindPlaybackPaused          Kind = "PlaybackPaused"
	KindPlaylistChanged         Kind = "PlaylistChanged"
	KindPlaylistRegistryUpdated Kind = "PlaylistRegistryUpdated"
	KindTimerUpdate             Kind = "TimerUpdate"
	KindLibraryUpdated          Kind = "LibraryUpdated"
)

// Event is one message on the info stream.
type Event struct {
	Kind Kind `json:"event"`
	Data any  `json:"data"`
}

// NewEvent builds an event. A nil data payload is sent as an empty object.
func NewEvent(kind Kind, data any) Event {
	if data == nil {
		data = struct{}{}
	}
	return Event{Kind: kind, Data: data}
}

// Encode renders the event as a single JSON line without the trailing newline.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}
