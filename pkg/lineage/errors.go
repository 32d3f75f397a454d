package lineage

import (
	"errors"
	"fmt"
)

// Failure kinds. Extract wraps them in a *ParseError; Parse turns every one
// of them into an empty result.
var (
	ErrNoSelect          = errors.New("no SELECT keyword found")
	ErrNoTopLevelFrom    = errors.New("no top-level FROM follows SELECT")
	ErrUnbalancedParens  = errors.New("unbalanced parentheses")
	ErrUnterminatedQuote = errors.New("unterminated quoted literal")
)

// ParseError is a failure kind with the position it was detected at.
type ParseError struct {
	Err error
	Pos Position
}

func (e *ParseError) Error() string {
	if e.Pos.Line == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Kind returns a stable machine-readable name for the failure.
func (e *ParseError) Kind() string {
	return ErrorKind(e)
}

// ErrorKind maps an error from this package to a short identifier suitable
// for JSON payloads and logs. Unknown errors map to "error".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoSelect):
		return "no_select"
	case errors.Is(err, ErrNoTopLevelFrom):
		return "no_top_level_from"
	case errors.Is(err, ErrUnbalancedParens):
		return "unbalanced_parentheses"
	case errors.Is(err, ErrUnterminatedQuote):
		return "unterminated_quote"
	default:
		return "error"
	}
}
