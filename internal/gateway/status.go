package gateway

import (
	"net/http"
	"runtime"
	"time"

	"github.com/MichalKokolus/chatbot-advisor/internal/provider"
)

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds float64           `json:"uptime_seconds"`
	Sessions      int               `json:"sessions"`
	Providers     []provider.Status `json:"providers,omitempty"`
	Goroutines    int               `json:"goroutines"`
	GoVersion     string            `json:"go_version"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			UptimeSeconds: time.Since(g.startedAt).Truncate(time.Second).Seconds(),
			Goroutines:    runtime.NumGoroutine(),
			GoVersion:     runtime.Version(),
		}

		if g.sessions != nil {
			resp.Sessions = g.sessions.Len()
		}
		if g.chain != nil {
			resp.Providers = g.chain.HealthReport()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
