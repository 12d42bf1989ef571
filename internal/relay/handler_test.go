package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/tucurso-bot/internal/catalog"
	"github.com/garyellow/tucurso-bot/internal/ctxutil"
	"github.com/garyellow/tucurso-bot/internal/dialogue"
	domerrors "github.com/garyellow/tucurso-bot/internal/errors"
	"github.com/garyellow/tucurso-bot/internal/metrics"
	"github.com/garyellow/tucurso-bot/internal/model"
	"github.com/garyellow/tucurso-bot/internal/ratelimit"
	"github.com/garyellow/tucurso-bot/internal/storage"
)

// fakeEngine echoes the message back and records what it was called with.
type fakeEngine struct {
	loaded bool
	err    error

	mu      sync.Mutex
	sender  string
	text    string
	channel string
}

func (f *fakeEngine) Loaded() bool { return f.loaded }

func (f *fakeEngine) HandleText(ctx context.Context, senderID, text string) ([]dialogue.Reply, error) {
	f.mu.Lock()
	f.sender, f.text, f.channel = senderID, text, ctxutil.GetChannel(ctx)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return []dialogue.Reply{{RecipientID: senderID, Text: "eco: " + text}}, nil
}

func newRouter(t *testing.T, cfg HandlerConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h, err := NewHandler(cfg)
	require.NoError(t, err)
	r := gin.New()
	h.Register(r)
	return r
}

func post(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, PathWebhook, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestNewHandler_RequiresEngine(t *testing.T) {
	t.Parallel()
	_, err := NewHandler(HandlerConfig{})
	require.Error(t, err)
}

func TestStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		loaded bool
		code   int
		status string
	}{
		{"loaded", true, http.StatusOK, "Servidor activo y listo para recibir mensajes."},
		{"not loaded", false, http.StatusInternalServerError, "Error: Servidor activo, pero el modelo no se pudo cargar."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newRouter(t, HandlerConfig{Engine: &fakeEngine{loaded: tt.loaded}})

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, PathStatus, nil))

			assert.Equal(t, tt.code, w.Code)
			assert.JSONEq(t, `{"status":"`+tt.status+`"}`, w.Body.String())
		})
	}
}

func TestWebhook_Defaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantSender string
		wantText   string
	}{
		{"both fields", `{"sender":"ana","message":"hola"}`, "ana", "hola"},
		{"missing sender", `{"message":"hola"}`, DefaultSender, "hola"},
		{"empty sender", `{"sender":"","message":"hola"}`, DefaultSender, "hola"},
		{"missing message", `{"sender":"ana"}`, "ana", ""},
		{"null fields", `{"sender":null,"message":null}`, DefaultSender, ""},
		{"empty object", `{}`, DefaultSender, ""},
		{"empty body", ``, DefaultSender, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			engine := &fakeEngine{loaded: true}
			r := newRouter(t, HandlerConfig{Engine: engine})

			w := post(r, tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var replies []dialogue.Reply
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &replies))
			require.Len(t, replies, 1)
			assert.Equal(t, tt.wantSender, replies[0].RecipientID)
			assert.Equal(t, "eco: "+tt.wantText, replies[0].Text)
			assert.Equal(t, tt.wantText, engine.text)
			assert.Equal(t, ctxutil.ChannelREST, engine.channel)
		})
	}
}

func TestWebhook_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		engine  *fakeEngine
		body    string
		code    int
		message string
	}{
		{
			name:    "not loaded",
			engine:  &fakeEngine{loaded: false},
			body:    `{"sender":"ana","message":"hola"}`,
			code:    http.StatusServiceUnavailable,
			message: "El modelo no está disponible.",
		},
		{
			name:    "unloaded during turn",
			engine:  &fakeEngine{loaded: true, err: domerrors.ErrEngineNotLoaded},
			body:    `{"sender":"ana","message":"hola"}`,
			code:    http.StatusServiceUnavailable,
			message: "El modelo no está disponible.",
		},
		{
			name:   "malformed json",
			engine: &fakeEngine{loaded: true},
			body:   `{"sender":`,
			code:   http.StatusBadRequest,
		},
		{
			name:   "wrong field type",
			engine: &fakeEngine{loaded: true},
			body:   `{"sender":"ana","message":42}`,
			code:   http.StatusBadRequest,
		},
		{
			name:    "engine failure",
			engine:  &fakeEngine{loaded: true, err: errors.New("save tracker: disk full")},
			body:    `{"sender":"ana","message":"hola"}`,
			code:    http.StatusInternalServerError,
			message: "save tracker: disk full",
		},
		{
			name: "user message preferred",
			engine: &fakeEngine{loaded: true, err: domerrors.NewWrapper("storage", "save").
				Wrap(errors.New("disk full"), "No se pudo guardar la conversación.")},
			body:    `{"sender":"ana","message":"hola"}`,
			code:    http.StatusInternalServerError,
			message: "No se pudo guardar la conversación.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newRouter(t, HandlerConfig{Engine: tt.engine})

			w := post(r, tt.body)
			assert.Equal(t, tt.code, w.Code)
			msg := decodeError(t, w)
			assert.NotEmpty(t, msg)
			if tt.message != "" {
				assert.Equal(t, tt.message, msg)
			}
		})
	}
}

func TestWebhook_RateLimited(t *testing.T) {
	t.Parallel()
	m := metrics.New(metrics.NewRegistry())
	limiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:       ratelimit.NameUser,
		Burst:      2,
		RefillRate: 0.001,
		Metrics:    m,
	})
	t.Cleanup(limiter.Stop)

	r := newRouter(t, HandlerConfig{
		Engine:  &fakeEngine{loaded: true},
		Limiter: limiter,
		Metrics: m,
	})

	for range 2 {
		require.Equal(t, http.StatusOK, post(r, `{"sender":"ana","message":"hola"}`).Code)
	}

	w := post(r, `{"sender":"ana","message":"hola"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.NotEmpty(t, decodeError(t, w))

	// Other senders have their own bucket.
	assert.Equal(t, http.StatusOK, post(r, `{"sender":"beto","message":"hola"}`).Code)

	assert.InDelta(t, 1, testutil.ToFloat64(m.RateLimiterDropped.WithLabelValues(ratelimit.NameUser)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RelayRequestsTotal.WithLabelValues(PathWebhook, "rate_limited")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.RelayRequestsTotal.WithLabelValues(PathWebhook, "2xx")), 0)
}

func TestWebhook_Timeout(t *testing.T) {
	t.Parallel()
	engine := &slowEngine{}
	r := newRouter(t, HandlerConfig{Engine: engine, Timeout: 10 * time.Millisecond})

	w := post(r, `{"sender":"ana","message":"hola"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decodeError(t, w), context.DeadlineExceeded.Error())
}

type slowEngine struct{}

func (slowEngine) Loaded() bool { return true }

func (slowEngine) HandleText(ctx context.Context, _, _ string) ([]dialogue.Reply, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestWebhook_WithModel(t *testing.T) {
	t.Parallel()
	manager := model.NewManager(model.EmbeddedSource{}, model.Deps{
		Catalog: catalog.Default(),
		Store:   storage.NewMemoryStore(),
		Seed:    1,
	}, nil)
	r := newRouter(t, HandlerConfig{Engine: manager})

	w := post(r, `{"sender":"ana","message":"hola"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	status := httptest.NewRecorder()
	r.ServeHTTP(status, httptest.NewRequest(http.MethodGet, PathStatus, nil))
	assert.Equal(t, http.StatusInternalServerError, status.Code)

	require.NoError(t, manager.Load(context.Background()))

	status = httptest.NewRecorder()
	r.ServeHTTP(status, httptest.NewRequest(http.MethodGet, PathStatus, nil))
	assert.Equal(t, http.StatusOK, status.Code)

	w = post(r, `{"sender":"ana","message":"¿Cuánto cuesta Unity 2D?"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var replies []dialogue.Reply
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &replies))
	require.Len(t, replies, 1)
	assert.Equal(t, "ana", replies[0].RecipientID)
	assert.Contains(t, replies[0].Text, "$90")
}
