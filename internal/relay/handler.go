// Package relay exposes the dialogue engine over HTTP: a status endpoint and
// the REST webhook that takes one user message and returns the bot replies.
package relay

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/garyellow/tucurso-bot/internal/config"
	"github.com/garyellow/tucurso-bot/internal/ctxutil"
	"github.com/garyellow/tucurso-bot/internal/dialogue"
	domerrors "github.com/garyellow/tucurso-bot/internal/errors"
	"github.com/garyellow/tucurso-bot/internal/logger"
	"github.com/garyellow/tucurso-bot/internal/metrics"
	"github.com/garyellow/tucurso-bot/internal/ratelimit"
	"github.com/garyellow/tucurso-bot/internal/sentry"
	"github.com/gin-gonic/gin"
)

// Routes served by the relay.
const (
	PathStatus  = "/"
	PathWebhook = "/webhooks/rest/webhook"
)

// DefaultSender is used when the request names no sender.
const DefaultSender = "default"

// Status and error bodies returned to clients.
const (
	msgReady       = "Servidor activo y listo para recibir mensajes."
	msgNotLoaded   = "Error: Servidor activo, pero el modelo no se pudo cargar."
	msgUnavailable = "El modelo no está disponible."
	msgBadRequest  = "El cuerpo de la solicitud no es JSON válido."
	msgRateLimited = "Demasiados mensajes. Espera un momento e inténtalo de nuevo."
)

// Engine runs dialogue turns. *model.Manager implements it.
type Engine interface {
	Loaded() bool
	HandleText(ctx context.Context, senderID, text string) ([]dialogue.Reply, error)
}

// Request is the REST webhook body. Both fields are optional.
type Request struct {
	Sender  *string `json:"sender"`
	Message *string `json:"message"`
}

// senderOrDefault returns the sender, or DefaultSender when absent or empty.
func (r Request) senderOrDefault() string {
	if r.Sender == nil || *r.Sender == "" {
		return DefaultSender
	}
	return *r.Sender
}

func (r Request) text() string {
	if r.Message == nil {
		return ""
	}
	return *r.Message
}

// HandlerConfig wires a Handler. Engine is required.
type HandlerConfig struct {
	Engine  Engine
	Limiter *ratelimit.KeyedLimiter // per-sender; nil disables limiting
	Logger  *logger.Logger
	Metrics *metrics.Metrics

	// Timeout bounds one engine turn. Defaults to config.RequestProcessing.
	Timeout time.Duration
}

// Handler serves the relay endpoints.
type Handler struct {
	engine  Engine
	limiter *ratelimit.KeyedLimiter
	logger  *logger.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

// NewHandler creates a relay handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Engine == nil {
		return nil, errors.New("relay: engine is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New("info")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.RequestProcessing
	}
	return &Handler{
		engine:  cfg.Engine,
		limiter: cfg.Limiter,
		logger:  cfg.Logger.WithModule("relay"),
		metrics: cfg.Metrics,
		timeout: cfg.Timeout,
	}, nil
}

// Register mounts the relay routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET(PathStatus, h.Status)
	r.POST(PathWebhook, h.Webhook)
}

// Status reports whether the dialogue engine is loaded.
func (h *Handler) Status(c *gin.Context) {
	if !h.engine.Loaded() {
		c.JSON(http.StatusInternalServerError, gin.H{"status": msgNotLoaded})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": msgReady})
}

// Webhook runs one message through the engine and returns its replies.
func (h *Handler) Webhook(c *gin.Context) {
	start := time.Now()
	code := h.webhook(c)
	if h.metrics != nil {
		h.metrics.RecordRelay(PathWebhook, code, time.Since(start).Seconds())
	}
}

func (h *Handler) webhook(c *gin.Context) int {
	if !h.engine.Loaded() {
		return h.fail(c, http.StatusServiceUnavailable, msgUnavailable, "not_loaded")
	}

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.WithError(err).Debug("Malformed relay request")
		return h.fail(c, http.StatusBadRequest, msgBadRequest, "bad_request")
	}
	sender := req.senderOrDefault()

	ctx := ctxutil.WithChannel(c.Request.Context(), ctxutil.ChannelREST)
	ctx = ctxutil.WithSenderID(ctx, sender)

	if h.limiter != nil && !h.limiter.Allow(sender) {
		if wait := h.limiter.RetryAfter(sender); wait > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
		return h.fail(c, http.StatusTooManyRequests, msgRateLimited, "rate_limited")
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	replies, err := h.engine.HandleText(ctx, sender, req.text())
	if err != nil {
		if errors.Is(err, domerrors.ErrEngineNotLoaded) {
			return h.fail(c, http.StatusServiceUnavailable, msgUnavailable, "not_loaded")
		}
		h.logger.WithError(err).WithField("sender_id", sender).
			ErrorContext(ctx, "Relay turn failed")
		sentry.CaptureException(ctx, err)
		return h.fail(c, http.StatusInternalServerError, domerrors.GetUserMessage(err), "engine")
	}

	if replies == nil {
		replies = []dialogue.Reply{}
	}
	c.JSON(http.StatusOK, replies)
	return http.StatusOK
}

func (h *Handler) fail(c *gin.Context, code int, msg, errorType string) int {
	if h.metrics != nil {
		h.metrics.RecordHTTPError(errorType, "relay")
	}
	c.JSON(code, gin.H{"error": msg})
	return code
}
