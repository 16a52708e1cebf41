package query

import (
	"errors"
	"fmt"
)

// ErrNoRecords is wrapped by a ShapeError when a statement returned an empty result set
// where a record was required.
var ErrNoRecords = errors.New("no records found")

// ErrNoStatements is wrapped by a QueryError when the engine returned no responses.
var ErrNoStatements = errors.New("no statement results")

// QueryError reports that the engine rejected or failed to execute a statement.
type QueryError struct {
	Statement int
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("statement %d failed: %v", e.Statement, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ShapeError reports a result whose structure does not match what the caller decodes.
// Index is the offending array element, or -1 when the top-level result is at fault.
type ShapeError struct {
	Want  Kind
	Got   Kind
	Index int
	Err   error
}

func (e *ShapeError) Error() string {
	var msg string
	if e.Index < 0 {
		msg = fmt.Sprintf("result is %s, want %s", e.Got, e.Want)
	} else {
		msg = fmt.Sprintf("element %d is %s, want %s", e.Index, e.Got, e.Want)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *ShapeError) Unwrap() error { return e.Err }
