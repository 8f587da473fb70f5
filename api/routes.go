package api

import (
	"net/http"
	"strings"

	"duoaudio/audiogen"
	"duoaudio/config"
	"duoaudio/events"
	"duoaudio/runner/storage"
)

// Deps are the components the HTTP API serves
type Deps struct {
	Config  *config.Config
	Service *audiogen.Service
	Store   *storage.Storage
	Broker  *events.EventBroker
}

// NewMux registers every API route
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/runs", GetRuns(d.Store))
	mux.HandleFunc("/api/runs/", GetRun(d.Store))
	mux.HandleFunc("/api/events", SSEHandler(d.Broker))

	mux.HandleFunc("/api/lessons", GetLessons(d.Config, d.Service))
	mux.HandleFunc("/api/lessons/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimRight(r.URL.Path, "/")
		switch {
		case strings.HasSuffix(path, "/audio/run"):
			PostLessonRun(d.Config, d.Service)(w, r)
		case strings.HasSuffix(path, "/audio/cancel"):
			PostLessonCancel(d.Service)(w, r)
		case strings.HasSuffix(path, "/audio/reset"):
			PostLessonReset(d.Service)(w, r)
		case strings.HasSuffix(path, "/audio"):
			GetLessonAudio(d.Service)(w, r)
		case strings.HasSuffix(path, "/stats"):
			GetLessonStats(d.Store)(w, r)
		default:
			http.NotFound(w, r)
		}
	})

	return mux
}

// CORS allows the admin dashboard to call the API from another origin
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
