package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/garyellow/tucurso-bot/internal/catalog"
	"github.com/garyellow/tucurso-bot/internal/ctxutil"
	domerrors "github.com/garyellow/tucurso-bot/internal/errors"
	"github.com/garyellow/tucurso-bot/internal/logger"
	"github.com/garyellow/tucurso-bot/internal/metrics"
	"github.com/garyellow/tucurso-bot/internal/nlu"
	"github.com/garyellow/tucurso-bot/internal/storage"
)

// Parser interprets one message. *nlu.Pipeline implements it.
type Parser interface {
	Parse(ctx context.Context, text string) (*nlu.Result, error)
	Threshold() float64
}

var (
	wrapLoad    = domerrors.NewWrapper("dialogue", "load_tracker")
	wrapParse   = domerrors.NewWrapper("dialogue", "parse")
	wrapExecute = domerrors.NewWrapper("dialogue", "execute")
	wrapSave    = domerrors.NewWrapper("dialogue", "save_tracker")
	wrapRestart = domerrors.NewWrapper("dialogue", "restart")
)

const (
	msgStoreFailed   = "No pude recuperar tu conversación. Intenta de nuevo en unos segundos."
	msgParseFailed   = "No pude entender tu mensaje en este momento. Intenta de nuevo."
	msgCatalogFailed = "No pude consultar el catálogo de cursos. Intenta de nuevo."
	msgSaveFailed    = "No pude guardar tu conversación. Intenta de nuevo en unos segundos."
	msgRestartFailed = "No pude reiniciar la conversación. Intenta de nuevo."
)

// Reply is one bot message addressed to the sender.
type Reply struct {
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
}

// Config wires an Agent.
type Config struct {
	Parser  Parser
	Matcher *catalog.Matcher
	Store   storage.Store
	Domain  *Domain
	Logger  *logger.Logger
	Metrics *metrics.Metrics

	// MaxMessageLength caps user text in runes. 0 disables the cap.
	MaxMessageLength int
	// Seed makes template choice reproducible. 0 seeds from the clock.
	Seed int64
	// Version identifies the model the agent was built from.
	Version string
}

// Agent handles text turns for any number of senders. It is safe for
// concurrent use; per-sender state lives in the store.
type Agent struct {
	parser  Parser
	matcher *catalog.Matcher
	store   storage.Store
	domain  *Domain
	logger  *logger.Logger
	metrics *metrics.Metrics
	maxLen  int
	version string

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewAgent validates cfg and builds an agent.
func NewAgent(cfg Config) (*Agent, error) {
	var errs []error
	if cfg.Parser == nil {
		errs = append(errs, errors.New("parser is required"))
	}
	if cfg.Matcher == nil {
		errs = append(errs, errors.New("matcher is required"))
	}
	if cfg.Store == nil {
		errs = append(errs, errors.New("store is required"))
	}
	if cfg.Domain == nil {
		errs = append(errs, errors.New("domain is required"))
	} else if !cfg.Domain.HasResponse(ResponseDefault) {
		errs = append(errs, fmt.Errorf("domain has no %s response", ResponseDefault))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("dialogue: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		log = &logger.Logger{Logger: slog.Default()}
	}
	seed := uint64(cfg.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return &Agent{
		parser:  cfg.Parser,
		matcher: cfg.Matcher,
		store:   cfg.Store,
		domain:  cfg.Domain,
		logger:  log.WithModule("dialogue"),
		metrics: cfg.Metrics,
		maxLen:  cfg.MaxMessageLength,
		version: cfg.Version,
		rng:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Version returns the model version.
func (a *Agent) Version() string {
	return a.version
}

// Catalog returns the catalog the agent answers from.
func (a *Agent) Catalog() *catalog.Catalog {
	return a.matcher.Catalog()
}

// HandleText runs one turn for senderID and returns the replies.
func (a *Agent) HandleText(ctx context.Context, senderID, text string) ([]Reply, error) {
	if senderID == "" {
		return nil, storage.ErrInvalidSender
	}
	start := time.Now()
	ctx = ctxutil.WithSenderID(ctx, senderID)
	text = Sanitize(text, a.maxLen)

	if text == RestartCommand {
		return a.restart(ctx, senderID, start)
	}

	tracker, err := a.store.Get(ctx, senderID)
	if err != nil {
		return nil, wrapLoad.Wrap(err, msgStoreFailed)
	}

	result, err := a.parser.Parse(ctx, text)
	if err != nil {
		return nil, wrapParse.Wrap(err, msgParseFailed)
	}

	updateSlots(tracker, result.Entities)
	action := a.policy(result)

	texts, err := a.execute(ctx, action, tracker.Slots)
	if err != nil {
		return nil, wrapExecute.Wrap(err, msgCatalogFailed)
	}

	tracker.LatestIntent = result.Intent
	tracker.LatestAction = action
	tracker.Turns++
	tracker.UpdatedAt = time.Now()
	if err := a.store.Save(ctx, tracker); err != nil {
		return nil, wrapSave.Wrap(err, msgSaveFailed)
	}

	a.logger.DebugContext(ctx, "turn handled",
		"intent", result.Intent,
		"confidence", result.Confidence,
		"source", result.Source,
		"action", action,
		"category", tracker.Slots.Category,
		"course_name", tracker.Slots.CourseName)
	a.recordTurn(result.Intent, action, start)

	return replies(senderID, texts), nil
}

func (a *Agent) restart(ctx context.Context, senderID string, start time.Time) ([]Reply, error) {
	if err := a.store.Delete(ctx, senderID); err != nil {
		return nil, wrapRestart.Wrap(err, msgRestartFailed)
	}
	texts := a.respond(ResponseRestart, storage.Slots{})
	a.recordTurn("", ActionRestart, start)
	return replies(senderID, texts), nil
}

// updateSlots replaces both slots when anything was extracted this turn and
// keeps the previous ones otherwise.
func updateSlots(t *storage.Tracker, e nlu.Entities) {
	if e.IsEmpty() {
		return
	}
	t.Slots = storage.Slots{Category: e.Category, CourseName: e.CourseName}
}

// policy picks the next action for a parse result.
func (a *Agent) policy(r *nlu.Result) string {
	if r.Confidence < a.parser.Threshold() {
		return ResponseDefault
	}
	return a.domain.ActionFor(r.Intent)
}

// execute runs action and returns the texts to send.
func (a *Agent) execute(ctx context.Context, action string, slots storage.Slots) ([]string, error) {
	if IsResponse(action) {
		return a.respond(action, slots), nil
	}

	op, ok := catalog.ParseOperation(action)
	if !ok {
		return nil, fmt.Errorf("unknown action %q", action)
	}
	resp, err := a.matcher.Execute(op, catalog.Query{
		Category:   slots.Category,
		CourseName: slots.CourseName,
	})
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", action, err)
	}

	if !resp.IsSignal() {
		a.recordLookup(op, "text")
		return []string{resp.Text}, nil
	}
	a.recordLookup(op, string(resp.Signal))
	a.logger.DebugContext(ctx, "catalog signal",
		"operation", op.String(),
		"signal", resp.Signal,
		"subject", resp.Subject)
	return a.respond(resp.Signal.Template(), signalSlots(slots, resp)), nil
}

// respond renders one variant of the named response, falling back to
// ResponseDefault when the name has no templates.
func (a *Agent) respond(name string, slots storage.Slots) []string {
	variants := a.domain.Responses[name]
	if len(variants) == 0 {
		a.logger.Warn("missing response template, using default", "response", name)
		variants = a.domain.Responses[ResponseDefault]
	}
	if len(variants) == 0 {
		return nil
	}
	return []string{render(variants[a.intn(len(variants))], slots)}
}

func (a *Agent) intn(n int) int {
	if n == 1 {
		return 0
	}
	a.rngMu.Lock()
	defer a.rngMu.Unlock()
	return a.rng.IntN(n)
}

func (a *Agent) recordTurn(intent, action string, start time.Time) {
	if a.metrics != nil {
		a.metrics.RecordTurn(intent, action, time.Since(start).Seconds())
	}
}

func (a *Agent) recordLookup(op catalog.Operation, outcome string) {
	if a.metrics != nil {
		a.metrics.RecordCatalogLookup(op.String(), outcome)
	}
}

func replies(senderID string, texts []string) []Reply {
	out := make([]Reply, 0, len(texts))
	for _, t := range texts {
		out = append(out, Reply{RecipientID: senderID, Text: t})
	}
	return out
}
