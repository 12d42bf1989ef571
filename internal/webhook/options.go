package webhook

import (
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// LINE Messaging API limits.
const (
	DefaultMaxMessagesPerReply = 5
	DefaultMaxEventsPerWebhook = 100
	DefaultMinReplyTokenLength = 10

	// DefaultReplyRate is the reply budget per second across all chats.
	DefaultReplyRate = 100.0
)

// Replier sends reply messages. *messaging_api.MessagingApiAPI implements it.
type Replier interface {
	ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
}

// HandlerOption is a functional option for configuring Handler.
type HandlerOption func(*Handler)

// WithReplier replaces the Messaging API client.
func WithReplier(r Replier) HandlerOption {
	return func(h *Handler) {
		h.replier = r
	}
}

// WithProcessingTimeout bounds the processing of one webhook batch.
func WithProcessingTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) {
		if timeout > 0 {
			h.processingTimeout = timeout
		}
	}
}

// WithMaxMessagesPerReply caps the messages sent with one reply token.
func WithMaxMessagesPerReply(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxMessagesPerReply = n
		}
	}
}

// WithMaxEventsPerWebhook caps the events processed from one callback.
func WithMaxEventsPerWebhook(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxEventsPerWebhook = n
		}
	}
}

// WithReplyRate sets the global reply rate in requests per second.
func WithReplyRate(rps float64) HandlerOption {
	return func(h *Handler) {
		if rps > 0 {
			h.replyRate = rps
		}
	}
}
