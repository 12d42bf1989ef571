package nlu

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/garyellow/tucurso-bot/internal/metrics"
)

// ErrBreakerOpen is returned when the breaker rejects a remote call.
var ErrBreakerOpen = errors.New("nlu: remote interpreter circuit open")

// BreakerConfig configures the breaker around the remote interpreter.
type BreakerConfig struct {
	Name string
	// MaxFailures consecutive failures open the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before a half-open probe.
	OpenTimeout time.Duration
	Metrics     *metrics.Metrics
}

// BreakerInterpreter guards a remote interpreter with a circuit breaker.
// It outlives model reloads so that breaker state survives hot swaps.
type BreakerInterpreter struct {
	next    Interpreter
	cb      *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
	name    string
}

// NewBreakerInterpreter wraps next. A nil next yields a nil interpreter.
func NewBreakerInterpreter(next Interpreter, cfg BreakerConfig) *BreakerInterpreter {
	if next == nil {
		return nil
	}
	if cfg.Name == "" {
		cfg.Name = "llm"
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}

	b := &BreakerInterpreter{next: next, metrics: cfg.Metrics, name: cfg.Name}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		// Callers abandoning the request say nothing about remote health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
			b.publishState(to)
		},
	})
	b.publishState(gobreaker.StateClosed)
	return b
}

func (b *BreakerInterpreter) publishState(s gobreaker.State) {
	if b.metrics == nil {
		return
	}
	var v float64
	switch s {
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	b.metrics.SetBreakerState(b.name, v)
}

// Open reports whether calls are currently being rejected.
func (b *BreakerInterpreter) Open() bool {
	return b != nil && b.cb.State() == gobreaker.StateOpen
}

// State returns the breaker state name (closed, half-open, open).
func (b *BreakerInterpreter) State() string {
	if b == nil {
		return "disabled"
	}
	return b.cb.State().String()
}

// Parse runs the wrapped interpreter through the breaker.
func (b *BreakerInterpreter) Parse(ctx context.Context, text string) (*Result, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Parse(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Join(ErrBreakerOpen, err)
		}
		return nil, err
	}
	res, _ := out.(*Result)
	if res == nil {
		return nil, errors.New("nlu: remote interpreter returned no result")
	}
	return res, nil
}
