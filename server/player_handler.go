package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// PlayerAction names a playback control endpoint.
type PlayerAction int

const (
	PlayerStart PlayerAction = iota
	PlayerStop
	PlayerPause
	PlayerNext
	PlayerPrev
)

type messageResponse struct {
	Msg string `json:"msg"`
}

func (a *App) playerHandler(action PlayerAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.handlePlayer(action, w, r)
	}
}

func (a *App) handlePlayer(action PlayerAction, w http.ResponseWriter, r *http.Request) {
	var (
		msg string
		err error
	)

	switch action {
	case PlayerStart:
		msg = "Started"
		err = a.player.Start(position(mux.Vars(r), "position", 0))
	case PlayerStop:
		msg = "Stopped"
		err = a.player.Stop()
	case PlayerPause:
		var paused bool
		paused, err = a.player.Pause()
		msg = pick(paused, "Paused", "Resumed")
	case PlayerNext:
		msg = "Skipped forward"
		err = a.player.Next()
	case PlayerPrev:
		msg = "Skipped back"
		err = a.player.Prev()
	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Err: "unknown player action"})
		return
	}

	if err != nil {
		writeError(w, "Playback command failed", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: msg})
}
