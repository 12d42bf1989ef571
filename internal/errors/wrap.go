package errors

import (
	"errors"
	"fmt"
)

// Wrapper attaches a module/operation label and a user-facing message to
// errors raised by one step of a turn.
type Wrapper struct {
	module string
	op     string
}

// NewWrapper returns a Wrapper for op inside module.
func NewWrapper(module, op string) Wrapper {
	return Wrapper{module: module, op: op}
}

// Wrap returns nil for a nil err.
func (w Wrapper) Wrap(err error, userMessage string) error {
	if err == nil {
		return nil
	}
	return &UserError{Module: w.module, Op: w.op, Err: err, Message: userMessage}
}

// UserError carries an internal cause and the text the chat user sees.
type UserError struct {
	Module  string
	Op      string
	Err     error
	Message string
}

// Error keeps the internal cause for logs; Message is never included.
func (e *UserError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Module, e.Op, e.Err)
}

func (e *UserError) Unwrap() error { return e.Err }

// GetUserMessage returns the message of the outermost UserError in err's
// chain, or err.Error() when there is none.
func GetUserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ue *UserError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return err.Error()
}
