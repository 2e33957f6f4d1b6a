package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/voxforge/voxcraft/internal/pipeline"
	"github.com/voxforge/voxcraft/internal/session"
)

// API bundles the HTTP handlers around the turn orchestrator and the
// session registry.
type API struct {
	orchestrator *pipeline.Orchestrator
	sessions     *session.Manager
}

// NewAPI creates the handler set.
func NewAPI(orchestrator *pipeline.Orchestrator, sessions *session.Manager) *API {
	return &API{orchestrator: orchestrator, sessions: sessions}
}

// generateRequest is the body of POST /api/generate.
type generateRequest struct {
	Username string `json:"username"`
	Prompt   string `json:"prompt"`
}

// Generate handles POST /api/generate: one conversational turn. The
// response always carries a message, success or descriptive error.
func (a *API) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	result := a.orchestrator.RunTurn(r.Context(), req.Username, req.Prompt)
	writeJSON(w, http.StatusOK, result)
}

// sessionResponse is the body of GET /api/sessions/{id}.
type sessionResponse struct {
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id,omitempty"`
	StartTime    string `json:"start_time"`
	LastActivity string `json:"last_activity"`
	MessageCount int    `json:"message_count"`
	Active       bool   `json:"active"`
}

// Session handles GET and DELETE on /api/sessions/{id}. GET returns the
// session's lifecycle state; DELETE is the explicit close path and triggers
// summarize-on-eviction.
func (a *API) Session(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "session ID is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s := a.sessions.GetSession(id)
		if s == nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{
			SessionID:    s.SessionID,
			UserID:       s.UserID,
			StartTime:    s.StartTime.Format("2006-01-02T15:04:05Z07:00"),
			LastActivity: s.LastActivity().Format("2006-01-02T15:04:05Z07:00"),
			MessageCount: s.MessageCount(),
			Active:       s.IsActive(),
		})

	case http.MethodDelete:
		// Idempotent: deleting an unknown session is still a 204.
		a.sessions.EndSession(r.Context(), id)
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// Health handles GET /healthz.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": a.sessions.ActiveCount(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handlers: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
