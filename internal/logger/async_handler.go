package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultAsyncBufferSize   = 1024
	defaultAsyncFlushTimeout = 5 * time.Second
)

// AsyncOptions configures the async log pipeline.
type AsyncOptions struct {
	BufferSize   int
	FlushTimeout time.Duration
}

type queuedRecord struct {
	ctx     context.Context
	record  slog.Record
	handler slog.Handler
}

// queue is shared by an AsyncHandler and every handler derived from it
// through WithAttrs/WithGroup, so one goroutine drains all of them.
type queue struct {
	records      chan queuedRecord
	flushTimeout time.Duration
	stopped      atomic.Bool
	dropped      atomic.Uint64
	done         chan struct{}
	stopOnce     sync.Once
}

func newQueue(opts AsyncOptions) *queue {
	if opts.BufferSize <= 0 {
		opts.BufferSize = defaultAsyncBufferSize
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = defaultAsyncFlushTimeout
	}
	q := &queue{
		records:      make(chan queuedRecord, opts.BufferSize),
		flushTimeout: opts.FlushTimeout,
		done:         make(chan struct{}),
	}
	go q.drain()
	return q
}

func (q *queue) drain() {
	defer close(q.done)
	for rec := range q.records {
		// Remote sink errors have nowhere useful to go.
		_ = rec.handler.Handle(rec.ctx, rec.record)
	}
}

// push never blocks; a full buffer drops the record.
func (q *queue) push(rec queuedRecord) {
	if q.stopped.Load() {
		q.dropped.Add(1)
		return
	}
	select {
	case q.records <- rec:
	default:
		q.dropped.Add(1)
	}
}

func (q *queue) stop(ctx context.Context) error {
	q.stopOnce.Do(func() {
		q.stopped.Store(true)
		close(q.records)
	})
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.flushTimeout)
		defer cancel()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AsyncHandler hands records to a background goroutine so that slow remote
// sinks never block request paths.
type AsyncHandler struct {
	q       *queue
	handler slog.Handler
}

// NewAsyncHandler starts the background drain for handler.
func NewAsyncHandler(handler slog.Handler, opts AsyncOptions) *AsyncHandler {
	return &AsyncHandler{q: newQueue(opts), handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle enqueues a clone of r. The context is detached from cancellation
// because the record is handled after the caller returns.
func (h *AsyncHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		ctx = context.Background()
	}
	h.q.push(queuedRecord{ctx: context.WithoutCancel(ctx), record: r.Clone(), handler: h.handler})
	return nil
}

// WithAttrs shares the queue with the receiver.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{q: h.q, handler: h.handler.WithAttrs(attrs)}
}

// WithGroup shares the queue with the receiver.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{q: h.q, handler: h.handler.WithGroup(name)}
}

// Dropped returns how many records were discarded because the buffer was
// full or the handler was shut down.
func (h *AsyncHandler) Dropped() uint64 {
	if h == nil || h.q == nil {
		return 0
	}
	return h.q.dropped.Load()
}

// Shutdown stops accepting records and waits for the buffer to drain.
func (h *AsyncHandler) Shutdown(ctx context.Context) error {
	if h == nil || h.q == nil {
		return nil
	}
	return h.q.stop(ctx)
}
