package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/MichalKokolus/chatbot-advisor/internal/core"
	"github.com/MichalKokolus/chatbot-advisor/internal/guard"
	"github.com/MichalKokolus/chatbot-advisor/internal/provider"
)

func init() {
	core.RegisterModule(&Advisor{})
}

// Service names published by this module.
const (
	ServiceOrchestrator = "chat.orchestrator"
	ServiceSessions     = "chat.sessions"
)

// ServiceGuardAuditor is the optional service name an audit module
// publishes to receive guard events.
const ServiceGuardAuditor = "audit.guard"

// Config is the yaml configuration for the chat.advisor module.
type Config struct {
	// SessionExpiry is the idle duration after which a session is
	// eligible for eviction.
	SessionExpiry time.Duration `yaml:"session_expiry"`

	// MaxHistoryTurns bounds the prompt context window.
	MaxHistoryTurns int `yaml:"max_history_turns"`

	SystemPrompt    string `yaml:"system_prompt"`
	FallbackMessage string `yaml:"fallback_message"`

	// Providers lists provider service names in failover order. The
	// first entry is the primary.
	Providers []string `yaml:"providers"`

	Completion CompletionConfig `yaml:"completion"`
	Guard      guard.Config     `yaml:"guard"`
}

// CompletionConfig holds generation parameters and failover tuning.
type CompletionConfig struct {
	Temperature float64       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	Timeout     time.Duration `yaml:"timeout"`

	// FailoverCooldown is how long a failed provider is skipped.
	FailoverCooldown time.Duration `yaml:"failover_cooldown"`
}

func (c *Config) defaults() {
	if c.SessionExpiry == 0 {
		c.SessionExpiry = DefaultMaxIdle
	}
	if c.MaxHistoryTurns == 0 {
		c.MaxHistoryTurns = DefaultMaxHistoryTurns
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.FallbackMessage == "" {
		c.FallbackMessage = FallbackMessage
	}
	if len(c.Providers) == 0 {
		c.Providers = []string{"provider.gemini"}
	}
	if c.Completion.Temperature == 0 {
		c.Completion.Temperature = DefaultTemperature
	}
	if c.Completion.MaxTokens == 0 {
		c.Completion.MaxTokens = DefaultMaxTokens
	}
	if c.Completion.Timeout == 0 {
		c.Completion.Timeout = DefaultCompletionTimeout
	}
}

func (c *Config) validate() error {
	if c.SessionExpiry < 0 {
		return fmt.Errorf("chat.advisor: session_expiry must be positive, got %s", c.SessionExpiry)
	}
	if c.MaxHistoryTurns < 0 {
		return fmt.Errorf("chat.advisor: max_history_turns must be positive, got %d", c.MaxHistoryTurns)
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		return fmt.Errorf("chat.advisor: completion.temperature must be in [0, 2], got %g", c.Completion.Temperature)
	}
	return nil
}

// Advisor is the conversation module. It owns the session store and the
// orchestrator and publishes both as services for the transport modules.
type Advisor struct {
	config Config
	ctx    *core.AppContext
	logger *slog.Logger

	store *InMemorySessionStore
	orch  *Orchestrator

	// metricsReg is overridable in tests to avoid polluting the default
	// Prometheus registry.
	metricsReg prometheus.Registerer
}

// ModuleInfo implements core.Module.
func (a *Advisor) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "chat.advisor",
		New: func() core.Module { return &Advisor{} },
	}
}

// Configure implements core.Configurable.
func (a *Advisor) Configure(node *yaml.Node) error {
	if err := node.Decode(&a.config); err != nil {
		return err
	}
	return nil
}

// Provision implements core.Provisioner. The session store is published
// here so other modules can resolve it during their own Start.
func (a *Advisor) Provision(ctx *core.AppContext) error {
	a.config.defaults()
	a.ctx = ctx
	a.logger = ctx.Logger
	a.store = NewInMemorySessionStore(a.config.SessionExpiry)
	ctx.RegisterService(ServiceSessions, a.store)
	return nil
}

// Validate implements core.Validator.
func (a *Advisor) Validate() error {
	return a.config.validate()
}

// Start implements core.Starter. Provider services are resolved here,
// after every module has provisioned, and the orchestrator is published
// for the gateway to pick up.
func (a *Advisor) Start() error {
	var entries []provider.ChainEntry
	for _, name := range a.config.Providers {
		svc, ok := a.ctx.Service(name)
		if !ok {
			return fmt.Errorf("chat.advisor: provider service %q is not registered (is its module enabled?)", name)
		}
		p, ok := svc.(provider.Provider)
		if !ok {
			return fmt.Errorf("chat.advisor: service %q is not a completion provider", name)
		}
		entries = append(entries, provider.ChainEntry{Name: name, Provider: p})
	}

	chainOpts := []provider.ChainOption{provider.WithLogger(a.logger)}
	if a.config.Completion.FailoverCooldown > 0 {
		chainOpts = append(chainOpts, provider.WithCooldown(a.config.Completion.FailoverCooldown))
	}
	chain, err := provider.NewChain(entries, chainOpts...)
	if err != nil {
		return fmt.Errorf("chat.advisor: %w", err)
	}

	var auditor GuardAuditor
	if svc, ok := a.ctx.Service(ServiceGuardAuditor); ok {
		if ga, ok := svc.(GuardAuditor); ok {
			auditor = ga
		}
	}

	a.orch, err = NewOrchestrator(OrchestratorConfig{
		Store:           a.store,
		Completer:       chain,
		Guard:           guard.New(a.config.Guard),
		SystemPrompt:    a.config.SystemPrompt,
		MaxHistoryTurns: a.config.MaxHistoryTurns,
		MaxIdle:         a.config.SessionExpiry,
		Params: CompletionParams{
			Temperature: a.config.Completion.Temperature,
			MaxTokens:   a.config.Completion.MaxTokens,
			Timeout:     a.config.Completion.Timeout,
		},
		Fallback: a.config.FallbackMessage,
		Logger:   a.logger,
		Metrics:  newPromMetrics(a.registerer(), a.store),
		Auditor:  auditor,
	})
	if err != nil {
		return err
	}

	a.ctx.RegisterService(ServiceOrchestrator, a.orch)
	a.ctx.RegisterService("provider.chain", chain)

	a.logger.Info("advisor started",
		"providers", a.config.Providers,
		"session_expiry", a.config.SessionExpiry,
		"max_history_turns", a.config.MaxHistoryTurns,
	)
	return nil
}

func (a *Advisor) registerer() prometheus.Registerer {
	if a.metricsReg != nil {
		return a.metricsReg
	}
	return prometheus.DefaultRegisterer
}

// Stop implements core.Stopper.
func (a *Advisor) Stop(_ context.Context) error {
	if a.store != nil {
		a.logger.Info("advisor stopped", "active_sessions", a.store.Len())
	}
	return nil
}

// Compile-time interface assertions.
var (
	_ core.Module       = (*Advisor)(nil)
	_ core.Configurable = (*Advisor)(nil)
	_ core.Provisioner  = (*Advisor)(nil)
	_ core.Validator    = (*Advisor)(nil)
	_ core.Starter      = (*Advisor)(nil)
	_ core.Stopper      = (*Advisor)(nil)
)
