package nlu

import (
	"context"
	"errors"
	"log/slog"

	"github.com/garyellow/tucurso-bot/internal/ctxutil"
	"github.com/garyellow/tucurso-bot/internal/metrics"
	"github.com/garyellow/tucurso-bot/internal/ratelimit"
)

// DefaultThreshold is used when the bundle does not set one.
const DefaultThreshold = 0.35

// Parse outcomes recorded in metrics.
const (
	outcomeMatched  = "matched"
	outcomeFallback = "fallback"
	outcomeError    = "error"
	outcomeSkipped  = "skipped"
)

// Remote interpreters do not report a probability. Their answers are
// accepted with this fixed confidence, which clears any sane threshold.
const RemoteConfidence = 0.9

// PipelineOptions wires the optional parts of a Pipeline.
type PipelineOptions struct {
	// Threshold below which the remote interpreter is consulted.
	Threshold float64
	// Remote is consulted for low-confidence messages. May be nil.
	Remote Interpreter
	// Limiter caps remote calls per sender. May be nil.
	Limiter *ratelimit.KeyedLimiter
	Metrics *metrics.Metrics
}

// Pipeline combines the local classifier, the gazetteer and an optional
// remote interpreter.
type Pipeline struct {
	classifier *Classifier
	gazetteer  *Gazetteer
	remote     Interpreter
	limiter    *ratelimit.KeyedLimiter
	metrics    *metrics.Metrics
	threshold  float64
}

// NewPipeline assembles a pipeline.
func NewPipeline(classifier *Classifier, gazetteer *Gazetteer, opts PipelineOptions) *Pipeline {
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		opts.Threshold = DefaultThreshold
	}
	if b, ok := opts.Remote.(*BreakerInterpreter); ok && b == nil {
		opts.Remote = nil
	}
	return &Pipeline{
		classifier: classifier,
		gazetteer:  gazetteer,
		remote:     opts.Remote,
		limiter:    opts.Limiter,
		metrics:    opts.Metrics,
		threshold:  opts.Threshold,
	}
}

// Threshold returns the confidence threshold.
func (p *Pipeline) Threshold() float64 {
	return p.threshold
}

// Parse classifies text locally and escalates to the remote interpreter
// when the local confidence is below the threshold. Remote failures are
// logged and the local result is kept.
func (p *Pipeline) Parse(ctx context.Context, text string) (*Result, error) {
	local, err := p.classifier.Parse(ctx, text)
	if err != nil {
		p.record(SourceLocal, outcomeError, 0)
		return nil, err
	}
	local.Entities = p.gazetteer.Extract(text)
	p.record(SourceLocal, outcomeOf(local), local.Confidence)

	if local.Confidence >= p.threshold || p.remote == nil {
		return local, nil
	}

	if reason := p.skipRemote(ctx); reason != "" {
		slog.DebugContext(ctx, "remote interpreter skipped", "reason", reason)
		p.record(SourceRemote, outcomeSkipped, 0)
		return local, nil
	}

	remote, err := p.remote.Parse(ctx, text)
	if err != nil {
		if !errors.Is(err, ErrBreakerOpen) {
			slog.WarnContext(ctx, "remote interpreter failed, keeping local result",
				"error", err,
				"local_intent", local.Intent,
				"local_confidence", local.Confidence)
		}
		p.record(SourceRemote, outcomeError, 0)
		return local, nil
	}
	if remote.Intent != IntentFallback && !p.classifier.Knows(remote.Intent) {
		slog.WarnContext(ctx, "remote interpreter returned unknown intent",
			"intent", remote.Intent)
		p.record(SourceRemote, outcomeError, 0)
		return local, nil
	}

	merged := &Result{
		Intent:     remote.Intent,
		Confidence: RemoteConfidence,
		Entities:   local.Entities.merge(p.gazetteer.Resolve(remote.Entities)),
		Source:     SourceRemote,
	}
	p.record(SourceRemote, outcomeOf(merged), merged.Confidence)
	return merged, nil
}

// skipRemote returns why the remote call should not be made, or "".
func (p *Pipeline) skipRemote(ctx context.Context) string {
	if b, ok := p.remote.(*BreakerInterpreter); ok && b.Open() {
		return "circuit_open"
	}
	if p.limiter != nil {
		sender := ctxutil.GetSenderID(ctx)
		if sender == "" {
			sender = "anonymous"
		}
		if !p.limiter.Allow(sender) {
			return "rate_limited"
		}
	}
	return ""
}

func (p *Pipeline) record(source Source, outcome string, confidence float64) {
	if p.metrics != nil {
		p.metrics.RecordParse(string(source), outcome, confidence)
	}
}

func outcomeOf(r *Result) string {
	if r.Intent == IntentFallback {
		return outcomeFallback
	}
	return outcomeMatched
}
