package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/wbru/vibematch/internal/auth"
	"github.com/wbru/vibematch/internal/recommend"
	"github.com/wbru/vibematch/internal/shared"
	"github.com/wbru/vibematch/internal/spotify"
)

// APIHandler serves the JSON API consumed by the management front end.
type APIHandler struct {
	manager      *auth.Manager
	fetcher      *spotify.Fetcher
	orchestrator *recommend.Orchestrator
	history      *recommend.History
	playlistID   string
	logger       *log.Logger
}

// APIHandlerOpts contains configuration for creating an [APIHandler].
type APIHandlerOpts struct {
	Manager      *auth.Manager
	Fetcher      *spotify.Fetcher
	Orchestrator *recommend.Orchestrator
	History      *recommend.History
	PlaylistID   string
	Logger       *log.Logger
}

// NewAPIHandler creates a new [APIHandler].
func NewAPIHandler(opts APIHandlerOpts) *APIHandler {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &APIHandler{
		manager:      opts.Manager,
		fetcher:      opts.Fetcher,
		orchestrator: opts.Orchestrator,
		history:      opts.History,
		playlistID:   opts.PlaylistID,
		logger:       opts.Logger,
	}
}

// Register attaches all API routes to the router.
func (h *APIHandler) Register(r Router) {
	r.Handle(http.MethodGet, "/api/auth-status", http.HandlerFunc(h.AuthStatus))
	r.Handle(http.MethodGet, "/api/me", http.HandlerFunc(h.Me))
	r.Handle(http.MethodGet, "/api/playlist", http.HandlerFunc(h.Playlist))
	r.Handle(http.MethodGet, "/api/playlist-details", http.HandlerFunc(h.PlaylistDetails))
	r.Handle(http.MethodPut, "/api/playlist-details", http.HandlerFunc(h.UpdatePlaylistDetails))
	r.Handle(http.MethodGet, "/api/search", http.HandlerFunc(h.Search))
	r.Handle(http.MethodGet, "/api/vibe-match", http.HandlerFunc(h.VibeMatch))
	r.Handle(http.MethodGet, "/api/history", http.HandlerFunc(h.History))
	r.Handle(http.MethodPost, "/api/add-tracks", http.HandlerFunc(h.AddTracks))
	r.Handle(http.MethodDelete, "/api/remove-tracks", http.HandlerFunc(h.RemoveTracks))
	r.Handle(http.MethodPut, "/api/reorder-tracks", http.HandlerFunc(h.ReorderTracks))
}

// AuthStatus reports whether a usable credential exists for the allowed account.
func (h *APIHandler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	if _, err := h.manager.Token(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"authorized": false, "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authorized": true})
}

// Me returns the authenticated user's profile.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.fetcher.Me(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Playlist returns one page of the managed playlist's tracks.
func (h *APIHandler) Playlist(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := h.fetcher.PlaylistPage(r.Context(), h.playlistID, offset, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// PlaylistDetails returns the managed playlist's metadata.
func (h *APIHandler) PlaylistDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.fetcher.PlaylistDetails(r.Context(), h.playlistID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// UpdatePlaylistDetails changes the managed playlist's name, description, or visibility.
func (h *APIHandler) UpdatePlaylistDetails(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Public      *bool   `json:"public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.fetcher.UpdateDetails(r.Context(), h.playlistID, body.Name, body.Description, body.Public); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// Search finds tracks matching the q query parameter.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "Query parameter required", http.StatusBadRequest)
		return
	}

	tracks, err := h.fetcher.Search(r.Context(), query, 20)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

// VibeMatch runs a recommendation pass over the managed playlist.
func (h *APIHandler) VibeMatch(w http.ResponseWriter, r *http.Request) {
	want, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	result, err := h.orchestrator.RecommendPlaylist(r.Context(), h.playlistID, want)
	if err != nil {
		if errors.Is(err, shared.ErrNoReferenceData) {
			writeJSON(w, http.StatusOK, map[string]any{"candidates": []any{}, "message": err.Error()})
			return
		}
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// History returns recent recommendation runs.
func (h *APIHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{"runs": []any{}})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// AddTracks appends tracks to the managed playlist.
func (h *APIHandler) AddTracks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URIs     []string `json:"uris"`
		Position *int     `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.URIs) == 0 {
		http.Error(w, "uris array required", http.StatusBadRequest)
		return
	}

	snap, err := h.fetcher.AddTracks(r.Context(), h.playlistID, body.URIs, body.Position)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "snapshot_id": snap.SnapshotID})
}

// RemoveTracks removes tracks from the managed playlist.
func (h *APIHandler) RemoveTracks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URIs []string `json:"uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.URIs) == 0 {
		http.Error(w, "uris array required", http.StatusBadRequest)
		return
	}

	snap, err := h.fetcher.RemoveTracks(r.Context(), h.playlistID, body.URIs)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "snapshot_id": snap.SnapshotID})
}

// ReorderTracks moves one track within the managed playlist.
func (h *APIHandler) ReorderTracks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RangeStart   *int `json:"range_start"`
		InsertBefore *int `json:"insert_before"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RangeStart == nil || body.InsertBefore == nil {
		http.Error(w, "range_start and insert_before required", http.StatusBadRequest)
		return
	}

	snap, err := h.fetcher.ReorderTracks(r.Context(), h.playlistID, *body.RangeStart, *body.InsertBefore)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "snapshot_id": snap.SnapshotID})
}

// writeError maps core error kinds to HTTP status codes, preserving upstream
// detail so failures can be rendered to an operator.
func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	h.logger.Error("request failed", "error", err)

	var apiErr *spotify.APIError
	switch {
	case errors.Is(err, shared.ErrNotAuthorized),
		errors.Is(err, shared.ErrRefreshFailed),
		errors.Is(err, shared.ErrAuthDenied),
		errors.Is(err, shared.ErrWrongAccount):
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": err.Error()})
	case errors.As(err, &apiErr):
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "upstream_status": apiErr.Status})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
