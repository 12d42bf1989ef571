// Package ctxutil provides type-safe context value management.
// Uses private key types to prevent collisions.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	senderIDKey  contextKey = "ctxutil.senderID"
	channelKey   contextKey = "ctxutil.channel"
	requestIDKey contextKey = "ctxutil.requestID"
)

// Channel names used as context values and metric labels.
const (
	ChannelREST = "rest"
	ChannelLINE = "line"
)

// WithSenderID adds the conversation sender ID to the context.
// The sender ID keys the tracker store and the per-sender rate limiters.
func WithSenderID(ctx context.Context, senderID string) context.Context {
	return context.WithValue(ctx, senderIDKey, senderID)
}

// GetSenderID retrieves the sender ID from the context.
// Returns an empty string if not set.
func GetSenderID(ctx context.Context) string {
	if v, ok := ctx.Value(senderIDKey).(string); ok {
		return v
	}
	return ""
}

// MustGetSenderID retrieves the sender ID from the context.
// Panics if the sender ID is not found.
func MustGetSenderID(ctx context.Context) string {
	senderID, ok := ctx.Value(senderIDKey).(string)
	if !ok || senderID == "" {
		panic("ctxutil: senderID not found")
	}
	return senderID
}

// WithChannel records which inbound channel (rest, line) carried the message.
func WithChannel(ctx context.Context, channel string) context.Context {
	return context.WithValue(ctx, channelKey, channel)
}

// GetChannel retrieves the channel from the context.
func GetChannel(ctx context.Context) string {
	if v, ok := ctx.Value(channelKey).(string); ok {
		return v
	}
	return ""
}

// WithRequestID adds a request ID to the context for tracing.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns the request ID and true if found, empty string and false otherwise.
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok
}

// PreserveTracing creates a detached context that keeps only the tracing
// values of ctx. The result is not canceled when ctx is.
//
// Use for work that outlives the request, such as LINE events processed
// after the webhook has been acknowledged.
func PreserveTracing(ctx context.Context) context.Context {
	newCtx := context.Background()

	if senderID := GetSenderID(ctx); senderID != "" {
		newCtx = WithSenderID(newCtx, senderID)
	}
	if channel := GetChannel(ctx); channel != "" {
		newCtx = WithChannel(newCtx, channel)
	}
	if requestID, ok := GetRequestID(ctx); ok && requestID != "" {
		newCtx = WithRequestID(newCtx, requestID)
	}

	return newCtx
}
