package gateway

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/MichalKokolus/chatbot-advisor/internal/chat"
)

// maxBodySize bounds a chat request body. Generous compared to
// MaxMessageLen to leave room for JSON framing and escapes.
const maxBodySize = 16 * 1024

// MessageRequest is the POST /api/v1/chat/message request body.
type MessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// MessageResponse is the reply envelope for a handled chat message.
type MessageResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HistoryResponse is the GET /api/v1/chat/session/{id}/history body.
type HistoryResponse struct {
	SessionID string      `json:"session_id"`
	CreatedAt time.Time   `json:"created_at"`
	Messages  []chat.Turn `json:"messages"`
}

// SessionResponse reports a session lifecycle operation.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// handleRoot answers GET / with a service banner so load balancers and
// humans can tell what is listening.
func (g *Gateway) handleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": "chatbot-advisor",
			"status":  "running",
		})
	}
}

// handleChatMessage is the main conversational endpoint. Provider
// failures do not surface here; the orchestrator substitutes the fallback
// and the request still succeeds.
func (g *Gateway) handleChatMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MessageRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Message == "" {
			writeError(w, http.StatusBadRequest, "message must not be empty")
			return
		}
		if utf8.RuneCountInString(req.Message) > MaxMessageLen {
			writeError(w, http.StatusBadRequest, "message exceeds maximum length")
			return
		}

		if err := g.limiter.Allow(rateKey(r, req.SessionID)); err != nil {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please slow down")
			return
		}

		reply, err := g.orch.HandleMessage(r.Context(), req.SessionID, req.Message)

		// Limiter cleanup rides on message traffic, like session expiry.
		g.limiter.PruneIdle()

		if err != nil {
			g.logger.Error("message handling failed", "error", err)
			writeError(w, http.StatusInternalServerError, "error processing chat message: "+err.Error())
			return
		}

		writeJSON(w, http.StatusOK, MessageResponse{
			Response:  reply.Text,
			SessionID: reply.SessionID,
		})
	}
}

// handleNewSession creates an empty session up front, for clients that
// want the id before the first message.
func (g *Gateway) handleNewSession() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, SessionResponse{
			SessionID: g.orch.NewSession(),
			Status:    "created",
		})
	}
}

// handleHistory returns the ordered turn log for a live session.
func (g *Gateway) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		view, err := g.orch.History(id)
		if err != nil {
			if errors.Is(err, chat.ErrSessionNotFound) {
				writeError(w, http.StatusNotFound, "session not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		turns := view.Turns
		if turns == nil {
			turns = []chat.Turn{}
		}
		writeJSON(w, http.StatusOK, HistoryResponse{
			SessionID: view.SessionID,
			CreatedAt: view.CreatedAt,
			Messages:  turns,
		})
	}
}

// handleEndSession removes a session explicitly.
func (g *Gateway) handleEndSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !g.orch.EndSession(id) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeJSON(w, http.StatusOK, SessionResponse{
			SessionID: id,
			Status:    "ended",
		})
	}
}

// rateKey picks the throttling bucket for a chat request: the session for
// established conversations, the client address for first contact.
func rateKey(r *http.Request, sessionID string) string {
	if sessionID != "" {
		return "session:" + sessionID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
