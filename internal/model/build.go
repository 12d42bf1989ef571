package model

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/garyellow/tucurso-bot/internal/catalog"
	"github.com/garyellow/tucurso-bot/internal/dialogue"
	"github.com/garyellow/tucurso-bot/internal/logger"
	"github.com/garyellow/tucurso-bot/internal/metrics"
	"github.com/garyellow/tucurso-bot/internal/nlu"
	"github.com/garyellow/tucurso-bot/internal/ratelimit"
	"github.com/garyellow/tucurso-bot/internal/storage"
)

// Deps are the collaborators shared by every agent built from a bundle.
// They outlive model swaps.
type Deps struct {
	Catalog *catalog.Catalog
	Store   storage.Store
	// Remote is consulted for low-confidence messages. May be nil.
	Remote nlu.Interpreter
	// Limiter caps remote calls per sender. May be nil.
	Limiter *ratelimit.KeyedLimiter
	Logger  *logger.Logger
	Metrics *metrics.Metrics

	MaxMessageLength int
	Seed             int64
}

// Build turns a validated bundle into an agent.
func Build(b *Bundle, deps Deps) (*dialogue.Agent, error) {
	if deps.Catalog == nil {
		return nil, errors.New("build agent: catalog is required")
	}

	var (
		g          errgroup.Group
		classifier *nlu.Classifier
		gazetteer  *nlu.Gazetteer
	)
	g.Go(func() error {
		c, err := nlu.NewClassifier(b.Intents)
		if err != nil {
			return fmt.Errorf("build classifier: %w", err)
		}
		classifier = c
		return nil
	})
	g.Go(func() error {
		gazetteer = nlu.NewGazetteer(deps.Catalog, b.Synonyms)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pipeline := nlu.NewPipeline(classifier, gazetteer, nlu.PipelineOptions{
		Threshold: b.Threshold(),
		Remote:    deps.Remote,
		Limiter:   deps.Limiter,
		Metrics:   deps.Metrics,
	})

	agent, err := dialogue.NewAgent(dialogue.Config{
		Parser:           pipeline,
		Matcher:          catalog.NewMatcher(deps.Catalog),
		Store:            deps.Store,
		Domain:           b.Domain(),
		Logger:           deps.Logger,
		Metrics:          deps.Metrics,
		MaxMessageLength: deps.MaxMessageLength,
		Seed:             deps.Seed,
		Version:          b.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("build agent: %w", err)
	}
	return agent, nil
}
