// Package gateway provides the HTTP surface of the advisor: the public
// chat API, a WebSocket transport, health and metrics endpoints, and an
// authenticated admin group. It binds to loopback by default and is a
// leaf module; nothing imports it.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/MichalKokolus/chatbot-advisor/internal/chat"
	"github.com/MichalKokolus/chatbot-advisor/internal/core"
	"github.com/MichalKokolus/chatbot-advisor/internal/provider"
	"github.com/MichalKokolus/chatbot-advisor/internal/security"
)

func init() {
	core.RegisterModule(&Gateway{})
}

// Gateway is the HTTP gateway module.
type Gateway struct {
	config    Config
	appCtx    *core.AppContext
	logger    *slog.Logger
	server    *http.Server
	limiter   *security.RateLimiter
	metrics   *httpMetrics
	startedAt time.Time

	// metricsReg is overridable in tests to avoid polluting the default
	// Prometheus registry.
	metricsReg prometheus.Registerer

	// Resolved lazily at Start() via the service registry.
	orch       *chat.Orchestrator
	sessions   chat.SessionStore
	chain      *provider.Chain
	events     chat.GuardEventLister
	configPath string
	redactor   *security.Redactor
}

// ModuleInfo implements core.Module.
func (g *Gateway) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "gateway.http",
		New: func() core.Module { return &Gateway{} },
	}
}

// Configure implements core.Configurable.
func (g *Gateway) Configure(node *yaml.Node) error {
	if err := node.Decode(&g.config); err != nil {
		return err
	}
	g.config.defaults()
	return nil
}

// Provision implements core.Provisioner.
func (g *Gateway) Provision(ctx *core.AppContext) error {
	g.config.defaults()
	g.appCtx = ctx
	g.logger = ctx.Logger
	g.limiter = security.NewRateLimiter(g.config.RateLimit)
	g.metrics = newHTTPMetrics(g.registerer())
	return nil
}

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", g.config.Bind); err != nil {
		return errors.New("gateway: invalid bind address: " + g.config.Bind)
	}
	return nil
}

// Start implements core.Starter. The orchestrator is required; everything
// else degrades gracefully when absent.
func (g *Gateway) Start() error {
	svc, ok := g.appCtx.Service(chat.ServiceOrchestrator)
	if !ok {
		return errors.New("gateway: chat orchestrator service is not registered (is chat.advisor enabled?)")
	}
	orch, ok := svc.(*chat.Orchestrator)
	if !ok {
		return errors.New("gateway: chat orchestrator service has unexpected type")
	}
	g.orch = orch

	if svc, ok := g.appCtx.Service(chat.ServiceSessions); ok {
		if store, ok := svc.(chat.SessionStore); ok {
			g.sessions = store
		}
	}
	if svc, ok := g.appCtx.Service("provider.chain"); ok {
		if chain, ok := svc.(*provider.Chain); ok {
			g.chain = chain
		}
	}
	if svc, ok := g.appCtx.Service("audit.events"); ok {
		if lister, ok := svc.(chat.GuardEventLister); ok {
			g.events = lister
		}
	}
	if svc, ok := g.appCtx.Service("config.path"); ok {
		if path, ok := svc.(string); ok {
			g.configPath = path
		}
	}
	if svc, ok := g.appCtx.Service("security.redactor"); ok {
		if red, ok := svc.(*security.Redactor); ok {
			g.redactor = red
		}
	}

	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return errors.New("gateway: listen failed: " + err.Error())
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Bind)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}

// Compile-time interface assertions.
var (
	_ core.Module       = (*Gateway)(nil)
	_ core.Configurable = (*Gateway)(nil)
	_ core.Provisioner  = (*Gateway)(nil)
	_ core.Validator    = (*Gateway)(nil)
	_ core.Starter      = (*Gateway)(nil)
	_ core.Stopper      = (*Gateway)(nil)
)
