// Package nlu turns user text into an intent plus catalog entities.
//
// The local path is a BM25 classifier over the bundle's example utterances
// and a gazetteer built from the catalog. A remote interpreter (an LLM
// function-calling parser) is consulted only when the local confidence is
// below the bundle threshold.
package nlu

import "context"

// IntentFallback is returned when nothing in the model matches the text.
const IntentFallback = "nlu_fallback"

// Source identifies which interpreter produced a result.
type Source string

// Result sources.
const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Entities are the catalog slot values found in a message.
type Entities struct {
	Category   string `json:"categoria,omitempty"`
	CourseName string `json:"nombre_curso,omitempty"`
}

// IsEmpty reports whether no entity was found.
func (e Entities) IsEmpty() bool {
	return e.Category == "" && e.CourseName == ""
}

// merge fills the empty fields of e from other.
func (e Entities) merge(other Entities) Entities {
	if e.Category == "" {
		e.Category = other.Category
	}
	if e.CourseName == "" {
		e.CourseName = other.CourseName
	}
	return e
}

// Result is one parsed message.
type Result struct {
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
	Source     Source   `json:"source"`
}

// Interpreter parses a single message.
type Interpreter interface {
	Parse(ctx context.Context, text string) (*Result, error)
}
