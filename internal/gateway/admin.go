package gateway

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/MichalKokolus/chatbot-advisor/internal/chat"
)

// sessionJSON is a serializable session snapshot. Turn contents are
// deliberately omitted; operators see shape, not conversations.
type sessionJSON struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Turns        int       `json:"turns"`
}

// handleListSessions returns all stored sessions as JSON.
func (g *Gateway) handleListSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sessions := []sessionJSON{}

		if g.sessions != nil {
			g.sessions.Range(func(sess *chat.Session) bool {
				sessions = append(sessions, sessionJSON{
					ID:           sess.ID,
					CreatedAt:    sess.CreatedAt,
					LastActivity: sess.LastActivity(),
					Turns:        sess.Len(),
				})
				return true
			})
		}

		writeJSON(w, http.StatusOK, sessions)
	}
}

// handleDeleteSession removes a session by its id.
func (g *Gateway) handleDeleteSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if g.sessions == nil || !g.sessions.Remove(id) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleGuardEvents lists persisted guard rule activations, newest first.
// Query parameters: rule (exact match), limit.
func (g *Gateway) handleGuardEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if g.events == nil {
			writeError(w, http.StatusNotFound, "audit store not enabled")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		events, err := g.events.ListGuardEvents(r.Context(), r.URL.Query().Get("rule"), limit)
		if err != nil {
			g.logger.Error("guard event listing failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if events == nil {
			events = []chat.StoredGuardEvent{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

// handleConfig serves the running configuration file with secret values
// replaced, so operators can inspect a deployment without shell access.
func (g *Gateway) handleConfig() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if g.configPath == "" {
			writeError(w, http.StatusNotFound, "config path unknown")
			return
		}

		raw, err := os.ReadFile(g.configPath)
		if err != nil {
			g.logger.Error("config read failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		var doc map[string]any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			g.logger.Error("config parse failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if g.redactor != nil {
			g.redactor.RedactMap(doc)
		}
		writeJSON(w, http.StatusOK, doc)
	}
}
