package logging

import (
	"context"
	"log/slog"
	"slices"

	"github.com/thoreinstein/nmsio/internal/errors"
)

// MultiHandler sends each record to several handlers, usually the terminal
// and the --log-file JSON handler. Every handler filters on its own level,
// so the file can keep Debug records the terminal drops.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler fans out to handlers. Nil handlers are dropped and nested
// MultiHandlers are flattened.
func NewMultiHandler(handlers ...slog.Handler) *MultiHandler {
	flat := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		switch h := h.(type) {
		case nil:
		case *MultiHandler:
			flat = append(flat, h.handlers...)
		default:
			flat = append(flat, h)
		}
	}
	return &MultiHandler{handlers: flat}
}

// Enabled implements slog.Handler.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(h.handlers, func(handler slog.Handler) bool {
		return handler.Enabled(ctx, level)
	})
}

// Handle passes a clone of r to every handler enabled for its level. A
// failing handler does not keep the record from the others; their errors
// are joined.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

// WithGroup implements slog.Handler.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = fn(handler)
	}
	return &MultiHandler{handlers: handlers}
}
