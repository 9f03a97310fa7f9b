package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// defaultCooldown is how long a failed entry is skipped before being retried.
const defaultCooldown = 30 * time.Second

// ChainEntry configures a single provider in the chain. Entries are tried
// in declaration order: the first is the primary, the rest are fallbacks.
type ChainEntry struct {
	Name     string
	Provider Provider
}

// chainEntry is the internal representation with cooldown tracking.
type chainEntry struct {
	ChainEntry

	mu        sync.Mutex
	lastErr   error
	failedAt  time.Time
	available bool
}

// Status is a point-in-time availability snapshot of one chain entry,
// serialized by the gateway's health endpoint.
type Status struct {
	Name      string `json:"name"`
	Model     string `json:"model"`
	Available bool   `json:"available"`
	LastError string `json:"last_error,omitempty"`
}

// Chain tries providers in order until one produces a usable completion.
// A failing entry enters a cooldown window during which it is skipped,
// so a dead primary does not add latency to every request.
type Chain struct {
	entries  []*chainEntry
	cooldown time.Duration
	logger   *slog.Logger

	// now is injectable for deterministic testing.
	now func() time.Time
}

// ChainOption configures optional Chain behavior.
type ChainOption func(*Chain)

// WithLogger injects a structured logger into the Chain.
func WithLogger(logger *slog.Logger) ChainOption {
	return func(c *Chain) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCooldown overrides the failure cooldown window.
func WithCooldown(d time.Duration) ChainOption {
	return func(c *Chain) {
		if d > 0 {
			c.cooldown = d
		}
	}
}

// NewChain creates a Chain from the given entries. At least one entry is
// required and every entry needs a name and a provider.
func NewChain(entries []ChainEntry, opts ...ChainOption) (*Chain, error) {
	if len(entries) == 0 {
		return nil, errors.New("provider: chain requires at least one entry")
	}

	c := &Chain{
		cooldown: defaultCooldown,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("provider: chain entry %d has no name", i)
		}
		if e.Provider == nil {
			return nil, fmt.Errorf("provider: chain entry %q has no provider", e.Name)
		}
		c.entries = append(c.entries, &chainEntry{ChainEntry: e, available: true})
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Complete runs the request against the chain. Entries inside their
// cooldown window are skipped unless every entry is cooling down, in which
// case all are tried anyway (a request should never fail purely because of
// bookkeeping). Retryable failures advance to the next entry; anything else
// is returned immediately.
func (c *Chain) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var lastErr error

	for pass := 0; pass < 2; pass++ {
		skipCooling := pass == 0
		attempted := false

		for _, e := range c.entries {
			if skipCooling && c.inCooldown(e) {
				continue
			}
			attempted = true

			resp, err := e.Provider.Complete(ctx, req)
			if err == nil && resp.Content == "" {
				err = ErrEmptyCompletion
			}
			if err == nil {
				c.markSuccess(e)
				return resp, nil
			}

			c.markFailure(e, err)
			c.logger.Warn("provider completion failed",
				"provider", e.Name,
				"error", err,
			)

			if ctx.Err() != nil {
				return CompletionResponse{}, ctx.Err()
			}
			if !IsRetryable(err) {
				return CompletionResponse{}, err
			}
			lastErr = err
		}

		// First pass tried someone and failed them all, or everyone was
		// cooling down. Only fall through to the second, cooldown-ignoring
		// pass in the latter case.
		if attempted {
			break
		}
	}

	if lastErr != nil {
		return CompletionResponse{}, fmt.Errorf("%w: %w", ErrAllProviders, lastErr)
	}
	return CompletionResponse{}, ErrAllProviders
}

// ModelName returns the primary entry's model identifier.
func (c *Chain) ModelName() string {
	return c.entries[0].Provider.ModelName()
}

// HealthReport returns availability snapshots for every entry, in chain order.
func (c *Chain) HealthReport() []Status {
	report := make([]Status, 0, len(c.entries))
	for _, e := range c.entries {
		e.mu.Lock()
		st := Status{
			Name:      e.Name,
			Model:     e.Provider.ModelName(),
			Available: e.available || !c.coolingLocked(e),
		}
		if e.lastErr != nil {
			st.LastError = e.lastErr.Error()
		}
		e.mu.Unlock()
		report = append(report, st)
	}
	return report
}

func (c *Chain) inCooldown(e *chainEntry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.available && c.coolingLocked(e)
}

// coolingLocked reports whether the entry's cooldown window is still open.
// Caller must hold e.mu.
func (c *Chain) coolingLocked(e *chainEntry) bool {
	return c.now().Sub(e.failedAt) < c.cooldown
}

func (c *Chain) markSuccess(e *chainEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.available = true
	e.lastErr = nil
}

func (c *Chain) markFailure(e *chainEntry, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.available = false
	e.lastErr = err
	e.failedAt = c.now()
}
