package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MichalKokolus/chatbot-advisor/internal/guard"
	"github.com/MichalKokolus/chatbot-advisor/internal/provider"
)

// ErrSessionNotFound is returned by History when the id is unknown or the
// session has expired. Surfaced by the gateway as a 404.
var ErrSessionNotFound = errors.New("session not found")

// Completion call defaults, inherited from the original deployment.
const (
	DefaultTemperature       = 0.7
	DefaultMaxTokens         = 1000
	DefaultCompletionTimeout = 30 * time.Second

	// guardExcerptLen bounds how much raw model output is kept in an
	// audit event.
	guardExcerptLen = 160
)

// CompletionParams are the fixed generation parameters for every call.
type CompletionParams struct {
	Temperature float64
	MaxTokens   int

	// Timeout bounds the completion call; a timeout is handled exactly
	// like any other completion failure (fallback message, HTTP success).
	Timeout time.Duration
}

// Metrics receives orchestrator telemetry. Implemented by the gateway's
// Prometheus collectors; a nil Metrics disables recording.
type Metrics interface {
	RecordMessage()
	RecordCompletion(latency time.Duration, tokens int)
	RecordCompletionFailure()
	RecordGuardTrigger(rule string)
}

// GuardEvent describes one guard rule trigger, for offline list tuning.
type GuardEvent struct {
	Time      time.Time
	SessionID string
	Rule      string

	// Excerpt is a bounded prefix of the raw model output that tripped
	// the rule.
	Excerpt string
}

// GuardAuditor persists guard events. Implemented by the sqlite audit
// module; a nil GuardAuditor disables persistence.
type GuardAuditor interface {
	RecordGuardEvent(ctx context.Context, ev GuardEvent) error
}

// StoredGuardEvent is a persisted guard event as returned by a
// GuardEventLister.
type StoredGuardEvent struct {
	ID        int64     `json:"id"`
	Time      time.Time `json:"time"`
	SessionID string    `json:"session_id"`
	Rule      string    `json:"rule"`
	Excerpt   string    `json:"excerpt"`
}

// GuardEventLister reads back persisted guard events, newest first. An
// empty rule matches all rules; a non-positive limit applies the
// implementation's default.
type GuardEventLister interface {
	ListGuardEvents(ctx context.Context, rule string, limit int) ([]StoredGuardEvent, error)
}

// Reply is the outcome of handling one message.
type Reply struct {
	Text      string
	SessionID string

	// GuardRule is the guard rule that rewrote the response, or empty.
	GuardRule string

	// Fallback is true when the completion capability failed and the
	// canned fallback was substituted.
	Fallback bool
}

// SessionView is a read-only session snapshot for the history endpoint.
type SessionView struct {
	SessionID string
	CreatedAt time.Time
	Turns     []Turn
}

// OrchestratorConfig groups the orchestrator's dependencies. Store,
// Completer, and Guard are required; everything else has a default or is
// optional.
type OrchestratorConfig struct {
	Store     SessionStore
	Completer provider.Provider
	Guard     *guard.Filter

	SystemPrompt    string
	MaxHistoryTurns int
	MaxIdle         time.Duration
	Params          CompletionParams
	Fallback        string

	Logger  *slog.Logger
	Metrics Metrics
	Auditor GuardAuditor

	// Now is injectable for deterministic testing.
	Now func() time.Time
}

// Orchestrator drives the message pipeline: resolve session, append the
// user turn, assemble bounded context, call the completion capability,
// guard the result, append the assistant turn, sweep expired sessions.
// It is the single façade the transport layers (HTTP, WebSocket) talk to.
type Orchestrator struct {
	store      SessionStore
	lanes      *LaneLock
	completer  provider.Provider
	guard      *guard.Filter
	system     string
	maxHistory int
	maxIdle    time.Duration
	params     CompletionParams
	fallback   string
	logger     *slog.Logger
	metrics    Metrics
	auditor    GuardAuditor
	tracer     trace.Tracer
	now        func() time.Time
}

// NewOrchestrator validates cfg and builds an Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, errors.New("chat: orchestrator requires a session store")
	}
	if cfg.Completer == nil {
		return nil, errors.New("chat: orchestrator requires a completion provider")
	}
	if cfg.Guard == nil {
		return nil, errors.New("chat: orchestrator requires a guard filter")
	}

	o := &Orchestrator{
		store:      cfg.Store,
		lanes:      NewLaneLock(),
		completer:  cfg.Completer,
		guard:      cfg.Guard,
		system:     cfg.SystemPrompt,
		maxHistory: cfg.MaxHistoryTurns,
		maxIdle:    cfg.MaxIdle,
		params:     cfg.Params,
		fallback:   cfg.Fallback,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		auditor:    cfg.Auditor,
		tracer:     otel.Tracer("chatbot-advisor/chat"),
		now:        cfg.Now,
	}
	if o.system == "" {
		o.system = DefaultSystemPrompt
	}
	if o.maxHistory <= 0 {
		o.maxHistory = DefaultMaxHistoryTurns
	}
	if o.maxIdle <= 0 {
		o.maxIdle = DefaultMaxIdle
	}
	if o.params.Temperature == 0 {
		o.params.Temperature = DefaultTemperature
	}
	if o.params.MaxTokens <= 0 {
		o.params.MaxTokens = DefaultMaxTokens
	}
	if o.params.Timeout <= 0 {
		o.params.Timeout = DefaultCompletionTimeout
	}
	if o.fallback == "" {
		o.fallback = FallbackMessage
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// HandleMessage processes one inbound user message and returns the reply.
// Completion failures never surface as errors; the fallback message is
// substituted and the exchange still counts as a successful turn. The one
// exception is the inbound context being canceled, which returns an error
// instead of fabricating a turn for a departed caller.
func (o *Orchestrator) HandleMessage(ctx context.Context, sessionID, text string) (Reply, error) {
	ctx, span := o.tracer.Start(ctx, "chat.handle_message")
	defer span.End()

	if o.metrics != nil {
		o.metrics.RecordMessage()
	}

	sess, created := o.store.GetOrCreate(sessionID)
	span.SetAttributes(attribute.String("session.id", sess.ID))
	if created {
		o.logger.Info("session created", "session_id", sess.ID)
	}

	// Serialize per session: concurrent messages against the same id are
	// applied in arrival order; other sessions proceed in parallel.
	o.lanes.Acquire(sess.ID)
	defer o.lanes.Release(sess.ID)

	// Snapshot the context window before appending so the new message
	// appears exactly once in the prompt.
	text = strings.TrimSpace(text)
	history := sess.Recent(o.maxHistory)
	sess.AddTurn(RoleUser, text, o.now())

	raw, err := o.complete(ctx, BuildMessages(o.system, history, text))

	reply := Reply{SessionID: sess.ID}
	switch {
	case err != nil && ctx.Err() != nil:
		// The caller hung up mid-request. That is not a provider failure,
		// so no fallback turn is stored for a reply nobody will read.
		o.logger.Warn("request canceled before completion",
			"session_id", sess.ID,
			"error", err,
		)
		return Reply{}, fmt.Errorf("request canceled: %w", ctx.Err())
	case err != nil:
		// Timeout, quota, transport, empty output: all collapse into the
		// fallback. The user never sees a provider error.
		o.logger.Warn("completion failed, substituting fallback",
			"session_id", sess.ID,
			"error", err,
		)
		if o.metrics != nil {
			o.metrics.RecordCompletionFailure()
		}
		reply.Text = o.fallback
		reply.Fallback = true
	default:
		res := o.guard.Filter(raw)
		reply.Text = res.Text
		reply.GuardRule = res.Rule
		if res.Rule != "" {
			span.SetAttributes(attribute.String("guard.rule", res.Rule))
			o.logger.Info("guard rule triggered",
				"session_id", sess.ID,
				"rule", res.Rule,
			)
			if o.metrics != nil {
				o.metrics.RecordGuardTrigger(res.Rule)
			}
			o.recordGuardEvent(ctx, sess.ID, res.Rule, raw)
		}
	}

	sess.AddTurn(RoleAssistant, reply.Text, o.now())

	// Cleanup cadence is coupled to traffic, not wall-clock.
	if removed := o.store.SweepExpired(); removed > 0 {
		o.logger.Info("expired sessions swept", "removed", removed)
	}
	if s, ok := o.store.(*InMemorySessionStore); ok {
		o.lanes.Cleanup(s.ActiveIDs())
	}

	return reply, nil
}

// complete invokes the completion capability under the configured timeout
// and measures it. Empty output is an error here so the caller has a
// single failure branch.
func (o *Orchestrator) complete(ctx context.Context, msgs []provider.LLMMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.params.Timeout)
	defer cancel()

	ctx, span := o.tracer.Start(ctx, "chat.completion")
	defer span.End()

	temp := o.params.Temperature
	start := time.Now()
	resp, err := o.completer.Complete(ctx, provider.CompletionRequest{
		Messages:    msgs,
		MaxTokens:   o.params.MaxTokens,
		Temperature: &temp,
	})
	latency := time.Since(start)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", provider.ErrEmptyCompletion
	}

	if o.metrics != nil {
		o.metrics.RecordCompletion(latency, resp.Usage.TotalTokens)
	}
	return resp.Content, nil
}

func (o *Orchestrator) recordGuardEvent(ctx context.Context, sessionID, rule, raw string) {
	if o.auditor == nil {
		return
	}
	excerpt := raw
	if len(excerpt) > guardExcerptLen {
		// Back off to a rune boundary so the stored excerpt stays valid
		// UTF-8.
		cut := guardExcerptLen
		for cut > 0 && !utf8.RuneStart(excerpt[cut]) {
			cut--
		}
		excerpt = excerpt[:cut]
	}
	ev := GuardEvent{
		Time:      o.now(),
		SessionID: sessionID,
		Rule:      rule,
		Excerpt:   excerpt,
	}
	if err := o.auditor.RecordGuardEvent(ctx, ev); err != nil {
		// Audit is advisory; the reply must not fail because of it.
		o.logger.Warn("guard audit write failed", "error", err)
	}
}

// NewSession creates an empty session and returns its id.
func (o *Orchestrator) NewSession() string {
	return o.store.Create().ID
}

// EndSession removes the session and reports whether it existed.
func (o *Orchestrator) EndSession(id string) bool {
	return o.store.Remove(id)
}

// History returns the ordered turn log for a live session.
// Unknown and expired ids both yield ErrSessionNotFound.
func (o *Orchestrator) History(id string) (SessionView, error) {
	sess := o.store.Get(id)
	if sess == nil || sess.ExpiredAt(o.now(), o.maxIdle) {
		return SessionView{}, ErrSessionNotFound
	}
	return SessionView{
		SessionID: sess.ID,
		CreatedAt: sess.CreatedAt,
		Turns:     sess.History(),
	}, nil
}

// Sessions exposes the underlying store for transport-layer listings.
func (o *Orchestrator) Sessions() SessionStore {
	return o.store
}
