// Package api exposes the tracker storage layer over HTTP.
//
// The handlers are a thin translation layer: decode JSON, call storage,
// map sentinel errors to status codes. All domain rules live below the
// storage interface.
package api

import (
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/steveyegge/tracker/internal/config"
	"github.com/steveyegge/tracker/internal/storage"
)

// Server routes HTTP requests onto a storage backend.
type Server struct {
	store storage.Storage
}

// NewHandler builds the full API handler for the given backend.
func NewHandler(store storage.Storage) http.Handler {
	s := &Server{store: store}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/api/projects", s.handleProjects)
	mux.HandleFunc("/api/projects/", s.handleProjectByID)
	mux.HandleFunc("/api/items", s.handleItems)
	mux.HandleFunc("/api/items/", s.handleItemSubtree)
	mux.HandleFunc("/api/comments/", s.handleCommentByID)
	mux.HandleFunc("/api/attachments/", s.handleAttachmentByID)
	mux.HandleFunc("/api/users", s.handleUsers)
	mux.HandleFunc("/api/users/", s.handleUserByID)
	mux.HandleFunc("/api/teams", s.handleTeams)
	mux.HandleFunc("/api/teams/", s.handleTeamByID)

	return logRequests(mux)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(`{"status":"ok"}` + "\n"))
}

// logRequests emits one line per request with method, path, status and
// elapsed time.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d %s", r.Method, r.URL.Path, rec.status, time.Since(start).Round(time.Microsecond))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// actorID extracts the acting user from the X-Actor-ID header, falling
// back to the configured default actor when the header is absent. Zero
// means unattributed; a malformed header is treated the same way rather
// than failing the mutation.
func actorID(r *http.Request) int64 {
	raw := strings.TrimSpace(r.Header.Get("X-Actor-ID"))
	if raw == "" {
		return config.GetInt64(config.KeyActor)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

// pathID parses the numeric ID segment after the given route prefix and
// returns the remainder of the path ("" when the ID is the last segment).
func pathID(r *http.Request, prefix string) (int64, string, bool) {
	rest := strings.TrimPrefix(r.URL.Path, prefix)
	seg, tail, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(seg, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, tail, true
}
