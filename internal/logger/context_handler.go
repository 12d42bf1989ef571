package logger

import (
	"context"
	"log/slog"

	"github.com/garyellow/tucurso-bot/internal/ctxutil"
)

// ContextHandler wraps a slog.Handler and adds sender_id, channel and
// request_id from the record's context, so call sites using the
// slog.*Context functions get correlation fields for free.
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler creates a new ContextHandler that wraps the provided handler.
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle enriches r with tracing values from ctx and delegates.
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if senderID := ctxutil.GetSenderID(ctx); senderID != "" {
			r.AddAttrs(slog.String("sender_id", senderID))
		}
		if channel := ctxutil.GetChannel(ctx); channel != "" {
			r.AddAttrs(slog.String("channel", channel))
		}
		if requestID, ok := ctxutil.GetRequestID(ctx); ok && requestID != "" {
			r.AddAttrs(slog.String("request_id", requestID))
		}
	}
	return h.handler.Handle(ctx, r)
}

// WithAttrs returns a new ContextHandler wrapping the derived handler.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

// WithGroup returns a new ContextHandler wrapping the derived handler.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}
