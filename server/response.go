package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"Playa/core/library"
	"Playa/core/player"
	"Playa/core/playlist"
	"Playa/core/registry"
	"Playa/logger"
)

type errorResponse struct {
	Msg string `json:"msg,omitempty"`
	Err string `json:"err"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to write response", logger.ErrorField(err))
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, library.ErrNotFound),
		errors.Is(err, registry.ErrNotFound),
		errors.Is(err, playlist.ErrOutOfBounds):
		return http.StatusNotFound
	case errors.Is(err, playlist.ErrEmptyPlaylist),
		errors.Is(err, player.ErrNotPlaying):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", logger.String("msg", msg), logger.ErrorField(err))
	}
	writeJSON(w, status, errorResponse{Msg: msg, Err: err.Error()})
}
