package nlu

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/tucurso-bot/internal/catalog"
	"github.com/garyellow/tucurso-bot/internal/ctxutil"
	"github.com/garyellow/tucurso-bot/internal/metrics"
	"github.com/garyellow/tucurso-bot/internal/ratelimit"
)

var testExamples = map[string][]string{
	"saludar":          {"hola", "buenos dias"},
	"despedir":         {"adios", "hasta luego"},
	"consultar_precio": {"cuanto cuesta el curso", "precio del curso"},
}

func TestCanonical(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"¿Cuánto cuesta C#?", "cuanto cuesta c#"},
		{"  Programación,   Python!! ", "programacion python"},
		{"C++ básico", "c++ basico"},
		{"unity-2d", "unity 2d"},
		{"???", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Canonical(tt.in), "Canonical(%q)", tt.in)
	}
}

func TestCanonical_Idempotent(t *testing.T) {
	t.Parallel()
	for _, s := range []string{"¿Qué cursos de Diseño Gráfico hay?", "C# Básico", "unity 2d"} {
		once := Canonical(s)
		assert.Equal(t, once, Canonical(once))
	}
}

func TestNewClassifier_RejectsEmptyCorpus(t *testing.T) {
	t.Parallel()
	_, err := NewClassifier(nil)
	require.Error(t, err)

	_, err = NewClassifier(map[string][]string{"saludar": {"¿?", "  "}})
	require.Error(t, err)
}

func TestClassifier_Parse(t *testing.T) {
	t.Parallel()
	c, err := NewClassifier(testExamples)
	require.NoError(t, err)
	assert.Equal(t, 6, c.Size())
	assert.Equal(t, []string{"consultar_precio", "despedir", "saludar"}, c.Intents())

	t.Run("exact example", func(t *testing.T) {
		res, err := c.Parse(context.Background(), "¡Hola!")
		require.NoError(t, err)
		assert.Equal(t, "saludar", res.Intent)
		assert.InDelta(t, 1.0, res.Confidence, 1e-9)
		assert.Equal(t, SourceLocal, res.Source)
	})

	t.Run("words unique to one intent", func(t *testing.T) {
		res, err := c.Parse(context.Background(), "cuanto cuesta python")
		require.NoError(t, err)
		assert.Equal(t, "consultar_precio", res.Intent)
		assert.InDelta(t, 1.0, res.Confidence, 1e-9)
	})

	t.Run("words from two intents", func(t *testing.T) {
		res, err := c.Parse(context.Background(), "hola precio")
		require.NoError(t, err)
		assert.Greater(t, res.Confidence, 0.0)
		assert.Less(t, res.Confidence, 1.0)
	})

	t.Run("no overlap", func(t *testing.T) {
		res, err := c.Parse(context.Background(), "zzz qqq")
		require.NoError(t, err)
		assert.Equal(t, IntentFallback, res.Intent)
		assert.Zero(t, res.Confidence)
	})

	t.Run("empty", func(t *testing.T) {
		res, err := c.Parse(context.Background(), "  ¿? ")
		require.NoError(t, err)
		assert.Equal(t, IntentFallback, res.Intent)
	})
}

func newTestGazetteer() *Gazetteer {
	return NewGazetteer(catalog.Default(), map[string]string{
		"js":      "desarrollo web con javascript",
		"diseño":  "Diseño Gráfico",
		"juegos":  "videojuegos",
		"fantasy": "no existe",
	})
}

func TestGazetteer_Extract(t *testing.T) {
	t.Parallel()
	g := newTestGazetteer()

	tests := []struct {
		name string
		text string
		want Entities
	}{
		{"exact course", "¿Cuánto cuesta Excel Básico?", Entities{CourseName: "excel basico"}},
		{"course with symbol", "info de C# básico", Entities{CourseName: "c# basico"}},
		{"course with digit", "link de unity 2d", Entities{CourseName: "unity 2d"}},
		{"fragment", "quiero cursos de excel", Entities{CourseName: "excel"}},
		{"longest fragment", "algo de python para principiantes", Entities{CourseName: "python"}},
		{"category", "¿Qué cursos hay en Programación?", Entities{Category: "programacion"}},
		{"multi-word category", "cursos de edición de video", Entities{Category: "edicion de video"}},
		{"course synonym", "precio de js", Entities{CourseName: "desarrollo web con javascript"}},
		{"category synonym", "cursos de diseño", Entities{Category: "diseno grafico"}},
		{"category and course", "en videojuegos, godot avanzado", Entities{Category: "videojuegos", CourseName: "godot avanzado"}},
		{"stopwords only", "el precio de la", Entities{}},
		{"nothing", "hola", Entities{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Extract(tt.text))
		})
	}
}

func TestGazetteer_IgnoresUnknownSynonymTargets(t *testing.T) {
	t.Parallel()
	g := newTestGazetteer()
	assert.Equal(t, Entities{}, g.Extract("fantasy"))
}

func TestGazetteer_Resolve(t *testing.T) {
	t.Parallel()
	g := newTestGazetteer()

	got := g.Resolve(Entities{Category: " Programación ", CourseName: "Excel Básico"})
	assert.Equal(t, Entities{Category: "programacion", CourseName: "excel basico"}, got)

	got = g.Resolve(Entities{Category: "diseño", CourseName: "JS"})
	assert.Equal(t, Entities{Category: "diseno grafico", CourseName: "desarrollo web con javascript"}, got)

	got = g.Resolve(Entities{Category: "cocina", CourseName: "  Repostería "})
	assert.Equal(t, Entities{Category: "cocina", CourseName: "Repostería"}, got)
}

type fakeInterpreter struct {
	calls  atomic.Int32
	result *Result
	err    error
}

func (f *fakeInterpreter) Parse(context.Context, string) (*Result, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	return &r, nil
}

func newTestPipeline(t *testing.T, opts PipelineOptions) *Pipeline {
	t.Helper()
	c, err := NewClassifier(testExamples)
	require.NoError(t, err)
	return NewPipeline(c, newTestGazetteer(), opts)
}

func TestPipeline_ConfidentLocalSkipsRemote(t *testing.T) {
	t.Parallel()
	remote := &fakeInterpreter{result: &Result{Intent: "despedir"}}
	p := newTestPipeline(t, PipelineOptions{Remote: remote})

	res, err := p.Parse(context.Background(), "cuanto cuesta excel basico")
	require.NoError(t, err)
	assert.Equal(t, "consultar_precio", res.Intent)
	assert.Equal(t, "excel basico", res.Entities.CourseName)
	assert.Equal(t, SourceLocal, res.Source)
	assert.Zero(t, remote.calls.Load())
}

func TestPipeline_LowConfidenceUsesRemote(t *testing.T) {
	t.Parallel()
	remote := &fakeInterpreter{result: &Result{
		Intent:   "consultar_precio",
		Entities: Entities{Category: "Programación", CourseName: "python intermedio"},
	}}
	m := metrics.New(prometheus.NewRegistry())
	p := newTestPipeline(t, PipelineOptions{Remote: remote, Metrics: m})

	res, err := p.Parse(context.Background(), "y lo de excel?")
	require.NoError(t, err)
	assert.Equal(t, int32(1), remote.calls.Load())
	assert.Equal(t, "consultar_precio", res.Intent)
	assert.Equal(t, SourceRemote, res.Source)
	assert.InDelta(t, RemoteConfidence, res.Confidence, 1e-9)
	// The gazetteer found "excel"; the remote fills the missing category.
	assert.Equal(t, Entities{Category: "programacion", CourseName: "excel"}, res.Entities)

	assert.InDelta(t, 1, testutil.ToFloat64(m.NLUParsesTotal.WithLabelValues("local", "fallback")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NLUParsesTotal.WithLabelValues("remote", "matched")), 0)
}

func TestPipeline_RemoteFailureKeepsLocal(t *testing.T) {
	t.Parallel()
	remote := &fakeInterpreter{err: errors.New("upstream 503")}
	p := newTestPipeline(t, PipelineOptions{Remote: remote})

	res, err := p.Parse(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Equal(t, IntentFallback, res.Intent)
	assert.Equal(t, SourceLocal, res.Source)
}

func TestPipeline_UnknownRemoteIntentKeepsLocal(t *testing.T) {
	t.Parallel()
	remote := &fakeInterpreter{result: &Result{Intent: "reservar_vuelo"}}
	p := newTestPipeline(t, PipelineOptions{Remote: remote})

	res, err := p.Parse(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Equal(t, IntentFallback, res.Intent)
}

func TestPipeline_LimiterCapsRemoteCallsPerSender(t *testing.T) {
	t.Parallel()
	remote := &fakeInterpreter{result: &Result{Intent: "saludar"}}
	limiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:       ratelimit.NameLLM,
		Burst:      1,
		RefillRate: 1.0 / 3600,
	})
	defer limiter.Stop()
	p := newTestPipeline(t, PipelineOptions{Remote: remote, Limiter: limiter})

	ctxA := ctxutil.WithSenderID(context.Background(), "alice")
	ctxB := ctxutil.WithSenderID(context.Background(), "bob")

	res, err := p.Parse(ctxA, "zzz")
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, res.Source)

	res, err = p.Parse(ctxA, "zzz")
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, res.Source)

	res, err = p.Parse(ctxB, "zzz")
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, int32(2), remote.calls.Load())
}

func TestBreakerInterpreter_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()
	remote := &fakeInterpreter{err: errors.New("timeout")}
	m := metrics.New(prometheus.NewRegistry())
	breaker := NewBreakerInterpreter(remote, BreakerConfig{
		MaxFailures: 2,
		OpenTimeout: time.Hour,
		Metrics:     m,
	})
	p := newTestPipeline(t, PipelineOptions{Remote: breaker})

	for range 2 {
		_, err := p.Parse(context.Background(), "zzz")
		require.NoError(t, err)
	}
	assert.True(t, breaker.Open())
	assert.Equal(t, "open", breaker.State())
	assert.InDelta(t, 2, testutil.ToFloat64(m.BreakerStateGauge.WithLabelValues("llm")), 0)

	_, err := p.Parse(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Equal(t, int32(2), remote.calls.Load())

	_, err = breaker.Parse(context.Background(), "zzz")
	require.ErrorIs(t, err, ErrBreakerOpen)
}

func TestNewBreakerInterpreter_NilRemote(t *testing.T) {
	t.Parallel()
	b := NewBreakerInterpreter(nil, BreakerConfig{})
	assert.Nil(t, b)
	assert.False(t, b.Open())
	assert.Equal(t, "disabled", b.State())

	// A nil breaker passed as an Interpreter must not be called.
	p := newTestPipeline(t, PipelineOptions{Remote: b})
	res, err := p.Parse(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Equal(t, IntentFallback, res.Intent)
}
