package xlsform

import (
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Error is the single failure kind raised by questionnaire validation and
// ingestion. It carries every collected violation so callers can render a
// summary or a full list.
type Error struct {
	Errors []string
}

func NewError(msgs ...string) *Error {
	return &Error{Errors: msgs}
}

func (e *Error) Error() string {
	return strings.Join(e.Errors, "; ")
}

// FromMultierror flattens an accumulated multierror into a domain Error.
// Returns nil if err holds no failures.
func FromMultierror(err *multierror.Error) *Error {
	if err == nil || len(err.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(err.Errors))
	for i, e := range err.Errors {
		msgs[i] = e.Error()
	}
	return &Error{Errors: msgs}
}

// AsError returns the wrapped *Error if err is one, else wraps its message
// into a new domain Error. Used at the ingestion boundary so library
// failures surface as the one domain failure kind.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if ferr, ok := err.(*Error); ok {
		return ferr
	}
	return NewError(err.Error())
}
