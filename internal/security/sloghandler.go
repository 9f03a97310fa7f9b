package security

import (
	"context"
	"log/slog"
)

// RedactingHandler wraps a slog.Handler and scrubs secrets from record
// messages and attribute values before the inner handler sees them.
// Provider modules register their API keys with the shared Redactor, so
// a key can never reach log output no matter which package logs it.
type RedactingHandler struct {
	inner    slog.Handler
	redactor *Redactor
}

var _ slog.Handler = (*RedactingHandler)(nil)

// NewRedactingHandler returns a handler that scrubs every record it
// passes to inner using redactor.
func NewRedactingHandler(inner slog.Handler, redactor *Redactor) *RedactingHandler {
	return &RedactingHandler{inner: inner, redactor: redactor}
}

func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle rebuilds the record with scrubbed message and attributes and
// hands the copy to the inner handler.
func (h *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, h.redactor.Redact(record.Message), record.PC)
	record.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.scrub(a))
		return true
	})
	return h.inner.Handle(ctx, clean)
}

// WithAttrs scrubs attrs before binding them, so secrets in preset
// attributes never reach the inner handler either.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		clean[i] = h.scrub(a)
	}
	return &RedactingHandler{inner: h.inner.WithAttrs(clean), redactor: h.redactor}
}

func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{inner: h.inner.WithGroup(name), redactor: h.redactor}
}

// scrub resolves an attribute and redacts any string content it can
// reach, descending into groups.
func (h *RedactingHandler) scrub(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindString:
		a.Value = slog.StringValue(h.redactor.Redact(a.Value.String()))
	case slog.KindGroup:
		members := a.Value.Group()
		clean := make([]slog.Attr, len(members))
		for i, m := range members {
			clean[i] = h.scrub(m)
		}
		a.Value = slog.GroupValue(clean...)
	case slog.KindAny:
		// Errors and arbitrary values stringify here; only swap the
		// value out when redaction actually changed it.
		s := a.Value.String()
		if red := h.redactor.Redact(s); red != s {
			a.Value = slog.StringValue(red)
		}
	}
	return a
}
