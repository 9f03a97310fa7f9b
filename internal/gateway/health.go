package gateway

import (
	"net/http"

	"github.com/MichalKokolus/chatbot-advisor/internal/provider"
)

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status    string            `json:"status"` // "ok" or "degraded"
	Sessions  int               `json:"sessions"`
	Providers []provider.Status `json:"providers,omitempty"`
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 while every provider is healthy, 503 once any is degraded.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok"}

		if g.sessions != nil {
			resp.Sessions = g.sessions.Len()
		}
		if g.chain != nil {
			resp.Providers = g.chain.HealthReport()
			for _, p := range resp.Providers {
				if !p.Available {
					resp.Status = "degraded"
					break
				}
			}
		}

		status := http.StatusOK
		if resp.Status == "degraded" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
