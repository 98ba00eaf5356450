package server

import (
	"encoding/json"
	"net/http"

	"github.com/ahumphreys/spindle/internal/shared"
	"github.com/ahumphreys/spindle/internal/tasks"
	"github.com/charmbracelet/log"
)

// PlaylistHandler serves the merged playlist view and the overlay mutations.
//
// All endpoints require an authenticated session; [SessionMiddleware] guarantees
// the session and user are present in the request context.
type PlaylistHandler struct {
	engine *tasks.LibraryEngine
	logger *log.Logger
}

// NewPlaylistHandler creates the handler for playlist operations.
func NewPlaylistHandler(engine *tasks.LibraryEngine, logger *log.Logger) *PlaylistHandler {
	return &PlaylistHandler{engine: engine, logger: logger}
}

// Routes returns the method-qualified patterns this handler serves.
func (h *PlaylistHandler) Routes() []string {
	return []string{
		"GET /",
		"GET /api/playlists",
		"GET /api/playlists/{id}/tracks",
		"POST /api/playlists/visibility",
		"POST /api/playlists/visibility/toggle",
		"POST /api/target",
		"POST /api/commit",
	}
}

// ServeHTTP dispatches on method and path.
func (h *PlaylistHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && (r.URL.Path == "/" || r.URL.Path == "/api/playlists"):
		h.list(w, r)
	case r.Method == http.MethodGet:
		h.tracks(w, r)
	case r.URL.Path == "/api/playlists/visibility":
		h.setVisibility(w, r)
	case r.URL.Path == "/api/playlists/visibility/toggle":
		h.toggleVisibility(w, r)
	case r.URL.Path == "/api/target":
		h.saveTarget(w, r)
	case r.URL.Path == "/api/commit":
		h.commit(w, r)
	default:
		http.NotFound(w, r)
	}
}

// list responds with the user's assembled playlist collection.
func (h *PlaylistHandler) list(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	session := SessionFromContext(r.Context())

	playlists, err := h.engine.AssemblePlaylists(r.Context(), user, session)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":      map[string]string{"id": user.ID, "username": user.Username},
		"playlists": playlists,
	})
}

// tracks responds with every track of one playlist in upstream order.
func (h *PlaylistHandler) tracks(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())

	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": shared.ErrMissingArgument.Error()})
		return
	}

	tracks, err := h.engine.PlaylistTracks(r.Context(), session, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "tracks": tracks})
}

type visibilityRequest struct {
	IDs     []string `json:"ids"`
	Visible *bool    `json:"visible,omitempty"`
}

// toggleVisibility flips the stored flag for each id, whole batch atomic.
func (h *PlaylistHandler) toggleVisibility(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": shared.ErrInvalidInput.Error()})
		return
	}

	if err := h.engine.ToggleVisibility(r.Context(), user.ID, req.IDs); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Ok"})
}

// setVisibility upserts an explicit flag for each id.
func (h *PlaylistHandler) setVisibility(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.IDs) == 0 || req.Visible == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": shared.ErrInvalidInput.Error()})
		return
	}

	if err := h.engine.SetVisibility(r.Context(), user.ID, req.IDs, *req.Visible); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Ok"})
}

type targetRequest struct {
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
}

// saveTarget upserts the target playlist mapping for a source playlist.
func (h *PlaylistHandler) saveTarget(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SourceID == "" || req.TargetID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": shared.ErrInvalidInput.Error()})
		return
	}

	if err := h.engine.SetTarget(r.Context(), user.ID, req.SourceID, req.TargetID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Ok"})
}

type commitRequest struct {
	ID    string   `json:"id"`
	State []string `json:"state"`
}

// commit overwrites the playlist's track order upstream with the submitted uris.
func (h *PlaylistHandler) commit(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())

	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": shared.ErrInvalidInput.Error()})
		return
	}

	if err := h.engine.Commit(r.Context(), session, req.ID, req.State); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Ok"})
}
