package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestSenderIDContext(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		if got := GetSenderID(context.Background()); got != "" {
			t.Errorf("Expected empty string, got %s", got)
		}
	})

	t.Run("with sender ID", func(t *testing.T) {
		t.Parallel()
		ctx := WithSenderID(context.Background(), "user-42")
		if got := GetSenderID(ctx); got != "user-42" {
			t.Errorf("Expected sender user-42, got %s", got)
		}
		if got := MustGetSenderID(ctx); got != "user-42" {
			t.Errorf("Expected sender user-42, got %s", got)
		}
	})
}

func TestMustGetSenderID_Panic(t *testing.T) {
	t.Parallel()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected MustGetSenderID to panic on empty context")
		}
	}()

	MustGetSenderID(context.Background())
}

func TestChannelContext(t *testing.T) {
	t.Parallel()

	ctx := WithChannel(context.Background(), ChannelLINE)
	if got := GetChannel(ctx); got != ChannelLINE {
		t.Errorf("Expected channel %s, got %s", ChannelLINE, got)
	}
	if got := GetChannel(context.Background()); got != "" {
		t.Errorf("Expected empty channel, got %s", got)
	}
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	if _, ok := GetRequestID(context.Background()); ok {
		t.Error("Expected no request ID in empty context")
	}

	ctx := WithRequestID(context.Background(), "req-1")
	got, ok := GetRequestID(ctx)
	if !ok || got != "req-1" {
		t.Errorf("Expected request ID req-1, got %q (ok=%v)", got, ok)
	}
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithSenderID(parent, "sender")
	parent = WithChannel(parent, ChannelREST)
	parent = WithRequestID(parent, "req")
	cancel()

	detached := PreserveTracing(parent)

	if detached.Err() != nil {
		t.Errorf("Expected detached context to be live, got %v", detached.Err())
	}
	if _, ok := detached.Deadline(); ok {
		t.Error("Expected detached context to have no deadline")
	}
	if GetSenderID(detached) != "sender" || GetChannel(detached) != ChannelREST {
		t.Error("Expected tracing values to be preserved")
	}
	if id, _ := GetRequestID(detached); id != "req" {
		t.Errorf("Expected request ID req, got %s", id)
	}
}
