// Package webhook adapts the LINE Messaging API to the dialogue engine.
// Callbacks are verified, acknowledged with 200 and processed asynchronously;
// text messages are answered with reply messages.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/tucurso-bot/internal/config"
	"github.com/garyellow/tucurso-bot/internal/ctxutil"
	"github.com/garyellow/tucurso-bot/internal/dialogue"
	domerrors "github.com/garyellow/tucurso-bot/internal/errors"
	"github.com/garyellow/tucurso-bot/internal/logger"
	"github.com/garyellow/tucurso-bot/internal/metrics"
	"github.com/garyellow/tucurso-bot/internal/ratelimit"
	"github.com/garyellow/tucurso-bot/internal/sentry"
)

// Path is the LINE callback route.
const Path = "/callback/line"

// Event outcomes recorded in metrics.
const (
	statusSuccess     = "success"
	statusIgnored     = "ignored"
	statusError       = "error"
	statusUnavailable = "unavailable"
	statusReplyError  = "reply_error"
)

// Engine runs dialogue turns. *model.Manager implements it.
type Engine interface {
	HandleText(ctx context.Context, senderID, text string) ([]dialogue.Reply, error)
}

// Handler handles LINE webhook events
type Handler struct {
	channelSecret string
	replier       Replier
	engine        Engine
	metrics       *metrics.Metrics
	logger        *logger.Logger
	replyLimiter  *ratelimit.Limiter
	wg            sync.WaitGroup

	processingTimeout   time.Duration
	maxMessagesPerReply int
	maxEventsPerWebhook int
	replyRate           float64
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	ChannelSecret string
	ChannelToken  string
	Engine        Engine
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig, opts ...HandlerOption) (*Handler, error) {
	if cfg.ChannelSecret == "" {
		return nil, errors.New("webhook: channel secret is required")
	}
	if cfg.Engine == nil {
		return nil, errors.New("webhook: engine is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New("info")
	}

	h := &Handler{
		channelSecret:       cfg.ChannelSecret,
		engine:              cfg.Engine,
		metrics:             cfg.Metrics,
		logger:              cfg.Logger.WithModule("line"),
		processingTimeout:   config.LINEEventProcessing,
		maxMessagesPerReply: DefaultMaxMessagesPerReply,
		maxEventsPerWebhook: DefaultMaxEventsPerWebhook,
		replyRate:           DefaultReplyRate,
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.replier == nil {
		client, err := messaging_api.NewMessagingApiAPI(cfg.ChannelToken)
		if err != nil {
			return nil, fmt.Errorf("create messaging API client: %w", err)
		}
		h.replier = client
	}
	h.replyLimiter = ratelimit.New(h.replyRate, h.replyRate)

	return h, nil
}

// Handle is the Gin handler for the LINE callback endpoint.
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// LINE expects the acknowledgement before any processing.
	c.Status(http.StatusOK)

	if len(cb.Events) > h.maxEventsPerWebhook {
		h.logger.WithField("event_count", len(cb.Events)).
			WithField("limit", h.maxEventsPerWebhook).
			Warn("Too many events in webhook batch; truncating")
		cb.Events = cb.Events[:h.maxEventsPerWebhook]
	}
	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)

	requestID, _ := ctxutil.GetRequestID(c.Request.Context())
	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), h.processingTimeout)
		defer cancel()
		ctx = ctxutil.WithChannel(ctx, ctxutil.ChannelLINE)
		if requestID != "" {
			ctx = ctxutil.WithRequestID(ctx, requestID)
		}
		for _, event := range events {
			h.processEvent(ctx, event)
		}
	})
}

// processEvent handles one event. Only message events are answered.
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface) {
	e, ok := event.(webhook.MessageEvent)
	if !ok {
		h.logger.WithField("event_type", fmt.Sprintf("%T", event)).Debug("Unsupported event type")
		eventType := event.GetType()
		if eventType == "" {
			eventType = "unknown"
		}
		h.record(eventType, statusIgnored)
		return
	}

	start := time.Now()
	log := h.logger
	if e.WebhookEventId != "" {
		ctx = ctxutil.WithRequestID(ctx, e.WebhookEventId)
		log = log.WithRequestID(e.WebhookEventId)
	}
	if e.DeliveryContext != nil && e.DeliveryContext.IsRedelivery {
		log = log.WithField("is_redelivery", true)
	}

	text, ok := h.messageText(e)
	sender := senderID(e.Source)
	if !ok || sender == "" {
		h.record("message", statusIgnored)
		return
	}
	ctx = ctxutil.WithSenderID(ctx, sender)

	replies, err := h.engine.HandleText(ctx, sender, text)
	status := statusSuccess
	switch {
	case errors.Is(err, domerrors.ErrEngineNotLoaded):
		status = statusUnavailable
		replies = []dialogue.Reply{{RecipientID: sender, Text: msgUnavailable}}
	case err != nil:
		log.WithError(err).ErrorContext(ctx, "Failed to handle message")
		sentry.CaptureException(ctx, err)
		var ue *domerrors.UserError
		if !errors.As(err, &ue) || ue.Message == "" {
			h.record("message", statusError)
			return
		}
		status = statusError
		replies = []dialogue.Reply{{RecipientID: sender, Text: ue.Message}}
	}

	messages, truncated := buildMessages(replies, h.maxMessagesPerReply)
	if truncated {
		log.WithField("reply_count", len(replies)).
			WithField("limit", h.maxMessagesPerReply).
			Warn("Reply count exceeds limit; truncating")
	}
	if len(messages) > 0 {
		if err := h.reply(ctx, e.ReplyToken, messages); err != nil {
			log.WithError(err).Warn("Failed to send reply")
			status = statusReplyError
		}
	}
	h.record("message", status)

	log.WithField("duration_ms", time.Since(start).Milliseconds()).
		WithField("status", status).
		DebugContext(ctx, "Event processed")
}

// messageText returns the text the engine should see, or false when the
// message is not addressed to the bot.
func (h *Handler) messageText(e webhook.MessageEvent) (string, bool) {
	msg, ok := e.Message.(webhook.TextMessageContent)
	if !ok {
		return "", false
	}
	if isPersonalChat(e.Source) {
		return msg.Text, true
	}
	if !isBotMentioned(msg) {
		return "", false
	}
	return stripBotMentions(msg.Text, msg.Mention), true
}

func (h *Handler) reply(ctx context.Context, token string, messages []messaging_api.MessageInterface) error {
	if len(token) < DefaultMinReplyTokenLength {
		return fmt.Errorf("invalid reply token (length %d)", len(token))
	}
	if !h.replyLimiter.Allow() {
		if h.metrics != nil {
			h.metrics.RecordRateLimiterDrop("line_reply")
		}
		if err := h.replyLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for reply budget: %w", err)
		}
	}

	_, err := h.replier.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: token,
		Messages:   messages,
	})
	if err != nil && strings.Contains(err.Error(), "Invalid reply token") {
		return fmt.Errorf("reply token already used or expired: %w", err)
	}
	return err
}

func (h *Handler) record(eventType, status string) {
	if h.metrics != nil {
		h.metrics.RecordLINEEvent(eventType, status)
	}
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
