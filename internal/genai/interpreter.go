package genai

import (
	"context"
	"time"

	"github.com/garyellow/tucurso-bot/internal/nlu"
)

// Interpreter adapts an IntentParser to nlu.Interpreter.
type Interpreter struct {
	parser  IntentParser
	timeout time.Duration
}

// NewInterpreter wraps parser. timeout bounds each Parse when positive.
func NewInterpreter(parser IntentParser, timeout time.Duration) *Interpreter {
	return &Interpreter{parser: parser, timeout: timeout}
}

// Parse implements nlu.Interpreter. Confidence is left to the pipeline.
func (i *Interpreter) Parse(ctx context.Context, text string) (*nlu.Result, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	res, err := i.parser.Parse(ctx, text)
	if err != nil {
		return nil, err
	}
	return &nlu.Result{
		Intent: res.Intent,
		Entities: nlu.Entities{
			Category:   res.Param(ParamCategory),
			CourseName: res.Param(ParamCourseName),
		},
		Source: nlu.SourceRemote,
	}, nil
}

// Close closes the wrapped parser.
func (i *Interpreter) Close() error {
	return i.parser.Close()
}
