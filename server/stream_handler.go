package server

import (
	"net/http"

	"Playa/core/broadcast"
	"Playa/logger"
)

// streamHandler serves the live audio as one endless chunked response.
func (a *App) streamHandler(w http.ResponseWriter, r *http.Request) {
	l := broadcast.NewListener(broadcast.StreamQueueSize)
	if err := a.player.ConnectStream(l); err != nil {
		writeError(w, "Failed to connect", err)
		return
	}
	defer a.player.Disconnect(l)

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	pump(w, r, l, nil)
}

// infoStreamHandler serves events as newline delimited JSON.
func (a *App) infoStreamHandler(w http.ResponseWriter, r *http.Request) {
	l := broadcast.NewListener(broadcast.InfoQueueSize)
	if err := a.player.ConnectInfo(l); err != nil {
		writeError(w, "Failed to connect", err)
		return
	}
	defer a.player.Disconnect(l)

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	pump(w, r, l, []byte("\n"))
}

// pump copies queued messages to w until the client leaves or the hub drops
// the listener.
func pump(w http.ResponseWriter, r *http.Request, l *broadcast.Listener, suffix []byte) {
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case msg, ok := <-l.Messages():
			if !ok {
				logger.Info("listener closed by hub", logger.String("listener", l.ID()))
				return
			}
			if _, err := w.Write(msg); err != nil {
				logger.Debug("listener went away", logger.String("listener", l.ID()), logger.ErrorField(err))
				return
			}
			if suffix != nil {
				if _, err := w.Write(suffix); err != nil {
					return
				}
			}
			if flusher != nil {
				flusher.Flush()
			}
		case <-r.Context().Done():
			return
		}
	}
}
