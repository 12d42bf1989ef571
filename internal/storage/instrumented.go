package storage

import (
	"context"
	"time"

	"github.com/garyellow/tucurso-bot/internal/metrics"
)

// Instrumented records every store call in metrics.
type Instrumented struct {
	Store
	m *metrics.Metrics
}

// WithMetrics wraps s; a nil m returns s unchanged.
func WithMetrics(s Store, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &Instrumented{Store: s, m: m}
}

func (i *Instrumented) record(op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	i.m.RecordTrackerOp(i.Backend(), op, status)
}

func (i *Instrumented) Get(ctx context.Context, senderID string) (*Tracker, error) {
	t, err := i.Store.Get(ctx, senderID)
	i.record("get", err)
	return t, err
}

func (i *Instrumented) Save(ctx context.Context, t *Tracker) error {
	err := i.Store.Save(ctx, t)
	i.record("save", err)
	return err
}

func (i *Instrumented) Delete(ctx context.Context, senderID string) error {
	err := i.Store.Delete(ctx, senderID)
	i.record("delete", err)
	return err
}

func (i *Instrumented) DeleteExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := i.Store.DeleteExpired(ctx, ttl)
	i.record("delete_expired", err)
	if err == nil && n > 0 {
		i.m.TrackerExpiredTotal.Add(float64(n))
	}
	return n, err
}
