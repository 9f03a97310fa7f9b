package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter constructs the chi mux with all routes wired.
func (g *Gateway) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: g.config.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(g.instrument)

	// Public — no auth required.
	r.Get("/", g.handleRoot())
	r.Get("/health", g.handleHealth())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/chat", func(r chi.Router) {
		r.Post("/message", g.handleChatMessage())
		r.Post("/session/new", g.handleNewSession())
		r.Get("/session/{id}/history", g.handleHistory())
		r.Delete("/session/{id}", g.handleEndSession())
	})

	r.Get("/ws/chat", g.handleWebSocket())

	// Admin endpoints — auth required. Not mounted if no auth configured.
	if g.config.Auth.IsConfigured() {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(g.config.Auth, g.limiter, g.logger))
			r.Get("/status", g.handleStatus())
			r.Route("/api", func(r chi.Router) {
				r.Get("/sessions", g.handleListSessions())
				r.Delete("/sessions/{id}", g.handleDeleteSession())
				r.Get("/guard/events", g.handleGuardEvents())
				r.Get("/config", g.handleConfig())
			})
		})
	}

	return r
}
