package nlu

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/iwilltry42/bm25-go/bm25"
)

// BM25 parameters, same as the common Okapi defaults.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// Classifier scores a message against every training example with BM25
// and picks the intent of the best-scoring example.
//
// Confidence is top / (top + best score among the other intents), so a
// message that only resembles one intent scores 1 and a message that
// resembles two intents equally scores 0.5.
type Classifier struct {
	index   *bm25.BM25Okapi
	intents []string          // intent of each indexed example
	exact   map[string]string // canonical example -> intent
	known   map[string]struct{}
}

// NewClassifier indexes examples (intent -> utterances). Examples that
// canonicalize to nothing are skipped; at least one must remain.
func NewClassifier(examples map[string][]string) (*Classifier, error) {
	names := make([]string, 0, len(examples))
	for name := range examples {
		names = append(names, name)
	}
	// Sorted so that score ties resolve the same way on every load.
	slices.Sort(names)

	c := &Classifier{
		exact: make(map[string]string),
		known: make(map[string]struct{}, len(names)),
	}
	var corpus []string
	for _, name := range names {
		c.known[name] = struct{}{}
		for _, ex := range examples[name] {
			canon := Canonical(ex)
			if canon == "" {
				continue
			}
			if _, dup := c.exact[canon]; !dup {
				c.exact[canon] = name
			}
			corpus = append(corpus, canon)
			c.intents = append(c.intents, name)
		}
	}
	if len(corpus) == 0 {
		return nil, errors.New("nlu: no usable training examples")
	}

	index, err := bm25.NewBM25Okapi(corpus, Tokenize, bm25K1, bm25B, nil)
	if err != nil {
		return nil, fmt.Errorf("nlu: build bm25 index: %w", err)
	}
	c.index = index
	return c, nil
}

// Intents returns the known intent names, sorted.
func (c *Classifier) Intents() []string {
	names := make([]string, 0, len(c.known))
	for name := range c.known {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Knows reports whether intent was present in the training data.
func (c *Classifier) Knows(intent string) bool {
	_, ok := c.known[intent]
	return ok
}

// Size returns the number of indexed examples.
func (c *Classifier) Size() int {
	return len(c.intents)
}

// Parse classifies text. It never returns entities; see Gazetteer.
func (c *Classifier) Parse(_ context.Context, text string) (*Result, error) {
	canon := Canonical(text)
	if canon == "" {
		return fallbackResult(), nil
	}
	if intent, ok := c.exact[canon]; ok {
		return &Result{Intent: intent, Confidence: 1, Source: SourceLocal}, nil
	}

	scores, err := c.index.GetScores(Tokenize(canon))
	if err != nil {
		return nil, fmt.Errorf("nlu: bm25 scoring: %w", err)
	}

	best := make(map[string]float64, len(c.known))
	for i, score := range scores {
		if i >= len(c.intents) {
			break
		}
		intent := c.intents[i]
		if cur, ok := best[intent]; !ok || score > cur {
			best[intent] = score
		}
	}

	top, topScore := "", 0.0
	for _, name := range c.Intents() {
		if s, ok := best[name]; ok && s > topScore {
			top, topScore = name, s
		}
	}
	if top == "" {
		return fallbackResult(), nil
	}

	runnerUp := 0.0
	for name, s := range best {
		if name != top && s > runnerUp {
			runnerUp = s
		}
	}

	return &Result{
		Intent:     top,
		Confidence: topScore / (topScore + runnerUp),
		Source:     SourceLocal,
	}, nil
}

func fallbackResult() *Result {
	return &Result{Intent: IntentFallback, Confidence: 0, Source: SourceLocal}
}
