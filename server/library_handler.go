package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"Playa/core/library"
	"Playa/logger"
	"Playa/model"
)

type libraryResponse struct {
	Msg     string        `json:"msg,omitempty"`
	Library library.Index `json:"library"`
}

type progressLine struct {
	Progress library.Progress `json:"progress"`
}

type historyResponse struct {
	History []*model.PlayLog `json:"history"`
}

func (a *App) libraryHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, libraryResponse{Library: a.library.Data()})
}

// rescanHandler streams one progress line per scanned directory and ends
// with the new library.
func (a *App) rescanHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)

	index, err := a.rescan(r.Context(), func(p library.Progress) {
		if err := enc.Encode(progressLine{Progress: p}); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	})
	if err != nil {
		logger.Warn("library rescan failed", logger.ErrorField(err))
		_ = enc.Encode(errorResponse{Msg: "Rescan failed", Err: err.Error()})
		return
	}
	_ = enc.Encode(libraryResponse{Msg: "Library rescanned", Library: index})
}

func (a *App) historyHandler(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := a.plays.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, "Failed to read play history", err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{History: entries})
}
