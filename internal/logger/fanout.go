package logger

import (
	"context"
	"errors"
	"log/slog"
)

// MultiHandler sends each record to every enabled sink.
type MultiHandler struct {
	sinks []slog.Handler
}

// NewMultiHandler ignores nil sinks.
func NewMultiHandler(sinks ...slog.Handler) *MultiHandler {
	m := &MultiHandler{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range m.sinks {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle clones r per sink since handlers may retain or mutate records.
func (m *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs error
	for _, s := range m.sinks {
		if s.Enabled(ctx, r.Level) {
			errs = errors.Join(errs, s.Handle(ctx, r.Clone()))
		}
	}
	return errs
}

func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.each(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (m *MultiHandler) WithGroup(name string) slog.Handler {
	return m.each(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (m *MultiHandler) each(fn func(slog.Handler) slog.Handler) *MultiHandler {
	next := &MultiHandler{sinks: make([]slog.Handler, len(m.sinks))}
	for i, s := range m.sinks {
		next.sinks[i] = fn(s)
	}
	return next
}
