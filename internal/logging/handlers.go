package logging

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler fans records out to every enabled handler.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler drops nil handlers and combines the rest.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	valid := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			valid = append(valid, h)
		}
	}
	return &MultiHandler{handlers: valid}
}

// Enabled reports whether any handler accepts level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers r to every enabled handler; a failing sink does not stop the others.
// The returned error joins every sink failure.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return m
	}
	return m.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) each(fn func(slog.Handler) slog.Handler) *MultiHandler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = fn(h)
	}
	return &MultiHandler{handlers: handlers}
}

// ContextProvider returns attributes evaluated at log time.
type ContextProvider func() []slog.Attr

// ContextHandler appends the provider's attributes to every record.
type ContextHandler struct {
	inner    slog.Handler
	provider ContextProvider
}

func NewContextHandler(inner slog.Handler, provider ContextProvider) *ContextHandler {
	return &ContextHandler{inner: inner, provider: provider}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.provider != nil {
		r.AddAttrs(h.provider()...)
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs), provider: h.provider}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &ContextHandler{inner: h.inner.WithGroup(name), provider: h.provider}
}
