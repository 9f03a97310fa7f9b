package gateway

import (
	"context"
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// wsError is sent to the client for recoverable protocol errors; the
// connection stays open.
type wsError struct {
	Error string `json:"error"`
}

// handleWebSocket upgrades GET /ws/chat and runs a message loop: one
// inbound MessageRequest yields one outbound MessageResponse. The session
// id rides inside each frame, so a reconnecting client resumes where it
// left off.
func (g *Gateway) handleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: g.config.CORS.AllowedOrigins,
		})
		if err != nil {
			g.logger.Warn("websocket accept failed", "error", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "server error") //nolint:errcheck

		ctx := r.Context()
		for {
			var req MessageRequest
			if err := wsjson.Read(ctx, conn, &req); err != nil {
				status := websocket.CloseStatus(err)
				if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway ||
					errors.Is(err, context.Canceled) {
					_ = conn.Close(websocket.StatusNormalClosure, "")
					return
				}
				g.logger.Debug("websocket read failed", "error", err)
				_ = conn.Close(websocket.StatusInvalidFramePayloadData, "invalid message")
				return
			}

			if req.Message == "" || utf8.RuneCountInString(req.Message) > MaxMessageLen {
				if err := wsjson.Write(ctx, conn, wsError{Error: "message must be 1-1000 characters"}); err != nil {
					return
				}
				continue
			}

			if err := g.limiter.Allow(rateKey(r, req.SessionID)); err != nil {
				if err := wsjson.Write(ctx, conn, wsError{Error: "rate limit exceeded, please slow down"}); err != nil {
					return
				}
				continue
			}

			reply, err := g.orch.HandleMessage(ctx, req.SessionID, req.Message)
			g.limiter.PruneIdle()
			if err != nil {
				g.logger.Error("websocket message handling failed", "error", err)
				if err := wsjson.Write(ctx, conn, wsError{Error: "error processing chat message: " + err.Error()}); err != nil {
					return
				}
				continue
			}

			if err := wsjson.Write(ctx, conn, MessageResponse{
				Response:  reply.Text,
				SessionID: reply.SessionID,
			}); err != nil {
				return
			}
		}
	}
}
