package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

func newRouter(a *App) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/playlist", a.playlistHandler(PlaylistGet)).Methods(http.MethodGet)
	pl := router.PathPrefix("/playlist").Subrouter()
	pl.HandleFunc("/insert/{position:-?[0-9]+}/{path:.+}", a.playlistHandler(PlaylistInsert)).Methods(http.MethodGet)
	pl.HandleFunc("/insert/{path:.+}", a.playlistHandler(PlaylistInsert)).Methods(http.MethodGet)
	pl.HandleFunc("/library/insert/{position:-?[0-9]+}/{hashes}", a.playlistHandler(PlaylistLibraryInsert)).Methods(http.MethodGet)
	pl.HandleFunc("/library/insert/{hashes}", a.playlistHandler(PlaylistLibraryInsert)).Methods(http.MethodGet)
	pl.HandleFunc("/remove/{position:-?[0-9]+}", a.playlistHandler(PlaylistRemove)).Methods(http.MethodGet)
	pl.HandleFunc("/move/{start:-?[0-9]+}/{end:-?[0-9]+}", a.playlistHandler(PlaylistMove)).Methods(http.MethodGet)
	pl.HandleFunc("/clear", a.playlistHandler(PlaylistClear)).Methods(http.MethodGet)
	pl.HandleFunc("/current", a.playlistHandler(PlaylistCurrent)).Methods(http.MethodGet)
	// Loading or deleting a name that was never saved answers 404 and leaves
	// the playlist and the registry untouched.
	pl.HandleFunc("/save/{name}", a.playlistHandler(PlaylistSave)).Methods(http.MethodGet)
	pl.HandleFunc("/load/{name}", a.playlistHandler(PlaylistLoad)).Methods(http.MethodGet)
	pl.HandleFunc("/delete/{name}", a.playlistHandler(PlaylistDelete)).Methods(http.MethodGet)
	pl.HandleFunc("/list", a.playlistHandler(PlaylistList)).Methods(http.MethodGet)
	pl.HandleFunc("/undo", a.playlistHandler(PlaylistUndo)).Methods(http.MethodGet)
	pl.HandleFunc("/redo", a.playlistHandler(PlaylistRedo)).Methods(http.MethodGet)

	pr := router.PathPrefix("/player").Subrouter()
	pr.HandleFunc("/start/{position:-?[0-9]+}", a.playerHandler(PlayerStart)).Methods(http.MethodGet)
	pr.HandleFunc("/start", a.playerHandler(PlayerStart)).Methods(http.MethodGet)
	pr.HandleFunc("/stop", a.playerHandler(PlayerStop)).Methods(http.MethodGet)
	pr.HandleFunc("/pause", a.playerHandler(PlayerPause)).Methods(http.MethodGet)
	pr.HandleFunc("/next", a.playerHandler(PlayerNext)).Methods(http.MethodGet)
	pr.HandleFunc("/prev", a.playerHandler(PlayerPrev)).Methods(http.MethodGet)

	router.HandleFunc("/library", a.libraryHandler).Methods(http.MethodGet)
	router.HandleFunc("/library/rescan", a.rescanHandler).Methods(http.MethodGet)
	router.HandleFunc("/history", a.historyHandler).Methods(http.MethodGet)

	router.HandleFunc("/stream", a.streamHandler).Methods(http.MethodGet)
	router.HandleFunc("/infostream", a.infoStreamHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws/infostream", a.wsInfoStreamHandler).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Err: "no route for " + r.URL.Path})
	})
	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
