package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"Playa/core/ordered"
	"Playa/core/player"
	"Playa/model"

	"github.com/gorilla/mux"
)

// PlaylistAction names a playlist endpoint.
type PlaylistAction int

const (
	PlaylistGet PlaylistAction = iota
	PlaylistInsert
	PlaylistLibraryInsert
	PlaylistRemove
	PlaylistMove
	PlaylistClear
	PlaylistCurrent
	PlaylistSave
	PlaylistLoad
	PlaylistDelete
	PlaylistList
	PlaylistUndo
	PlaylistRedo
)

type playlistResponse struct {
	Msg string `json:"msg,omitempty"`
	player.PlaylistState
}

type currentResponse struct {
	Msg string `json:"msg,omitempty"`
	player.Current
}

type namesResponse struct {
	Msg  string   `json:"msg,omitempty"`
	List []string `json:"list"`
}

func newNamesResponse(msg string, names []string) namesResponse {
	if names == nil {
		names = []string{}
	}
	return namesResponse{Msg: msg, List: names}
}

func (a *App) playlistHandler(action PlaylistAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.handlePlaylist(action, w, r)
	}
}

func (a *App) handlePlaylist(action PlaylistAction, w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	switch action {
	case PlaylistGet:
		state, err := a.player.Playlist()
		if err != nil {
			writeError(w, "Failed to read playlist", err)
			return
		}
		writeJSON(w, http.StatusOK, playlistResponse{PlaylistState: state})

	case PlaylistInsert:
		path := "/" + vars["path"]
		track, err := a.library.TrackByPath(path)
		if err != nil {
			writeError(w, "Track not in library", err)
			return
		}
		a.insert(w, []*model.Track{track}, position(vars, "position", ordered.End), "Track added")

	case PlaylistLibraryInsert:
		hashes := strings.Split(vars["hashes"], ",")
		tracks := make([]*model.Track, 0, len(hashes))
		for _, hash := range hashes {
			track, err := a.library.TrackByHash(hash)
			if err != nil {
				writeError(w, "Track not in library", err)
				return
			}
			tracks = append(tracks, track)
		}
		a.insert(w, tracks, position(vars, "position", ordered.End), fmt.Sprintf("%d tracks added", len(tracks)))

	case PlaylistRemove:
		state, err := a.player.Remove(position(vars, "position", 0))
		if err != nil {
			writeError(w, "Track out of bounds", err)
			return
		}
		writeJSON(w, http.StatusOK, playlistResponse{Msg: "Track removed", PlaylistState: state})

	case PlaylistMove:
		state, err := a.player.Move(position(vars, "start", 0), position(vars, "end", 0))
		if err != nil {
			writeError(w, "Track out of bounds", err)
			return
		}
		writeJSON(w, http.StatusOK, playlistResponse{PlaylistState: state})

	case PlaylistClear:
		state, err := a.player.Clear()
		if err != nil {
			writeError(w, "Failed to clear playlist", err)
			return
		}
		writeJSON(w, http.StatusOK, playlistResponse{Msg: "Playlist cleared", PlaylistState: state})

	case PlaylistCurrent:
		current, err := a.player.Current()
		if err != nil {
			writeError(w, "Failed to read current track", err)
			return
		}
		resp := currentResponse{Current: current}
		if current.Track == nil {
			resp.Msg = "Not playing"
		}
		writeJSON(w, http.StatusOK, resp)

	case PlaylistSave:
		names, err := a.player.Save(vars["name"])
		if err != nil {
			writeError(w, "Failed to save playlist", err)
			return
		}
		writeJSON(w, http.StatusOK, newNamesResponse("Playlist saved", names))

	case PlaylistLoad:
		state, err := a.player.Load(vars["name"])
		if err != nil {
			writeError(w, "Playlist not found", err)
			return
		}
		writeJSON(w, http.StatusOK, playlistResponse{Msg: "Playlist loaded", PlaylistState: state})

	case PlaylistDelete:
		names, err := a.player.Delete(vars["name"])
		if err != nil {
			writeError(w, "Playlist not found", err)
			return
		}
		writeJSON(w, http.StatusOK, newNamesResponse("Playlist deleted", names))

	case PlaylistList:
		names, err := a.player.Names()
		if err != nil {
			writeError(w, "Failed to list playlists", err)
			return
		}
		writeJSON(w, http.StatusOK, newNamesResponse("", names))

	case PlaylistUndo:
		state, ok, err := a.player.Undo()
		if err != nil {
			writeError(w, "Undo failed", err)
			return
		}
		writeJSON(w, http.StatusOK, playlistResponse{Msg: pick(ok, "Undone", "Nothing to undo"), PlaylistState: state})

	case PlaylistRedo:
		state, ok, err := a.player.Redo()
		if err != nil {
			writeError(w, "Redo failed", err)
			return
		}
		writeJSON(w, http.StatusOK, playlistResponse{Msg: pick(ok, "Redone", "Nothing to redo"), PlaylistState: state})

	default:
		writeJSON(w, http.StatusNotFound, errorResponse{Err: "unknown playlist action"})
	}
}

func (a *App) insert(w http.ResponseWriter, tracks []*model.Track, pos int, msg string) {
	state, err := a.player.Insert(tracks, pos)
	if err != nil {
		writeError(w, "Failed to add tracks", err)
		return
	}
	writeJSON(w, http.StatusOK, playlistResponse{Msg: msg, PlaylistState: state})
}

// position reads an integer route variable. The routes only admit digits, so
// a missing variable is the only way to get the fallback.
func position(vars map[string]string, key string, fallback int) int {
	value, ok := vars[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func pick(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
