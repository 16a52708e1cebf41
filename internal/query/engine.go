package query

import (
	"context"
	"time"
)

// Vars are the named parameters bound to a statement.
type Vars map[string]Value

// Response is the outcome of one executed statement: either a result value or an error.
type Response struct {
	Result Value
	Err    error
	Time   time.Duration
}

// Executor runs statements against a query engine. Execute returns one Response per
// statement; the returned error is reserved for failures that prevent execution entirely
// (no connection, cancelled context). Implementations must be safe for concurrent use.
type Executor interface {
	Execute(ctx context.Context, stmt string, vars Vars) ([]Response, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, stmt string, vars Vars) ([]Response, error)

func (f ExecutorFunc) Execute(ctx context.Context, stmt string, vars Vars) ([]Response, error) {
	return f(ctx, stmt, vars)
}

// Elapsed sums the time the engine spent on every statement.
func Elapsed(ress []Response) time.Duration {
	var total time.Duration
	for _, res := range ress {
		total += res.Time
	}
	return total
}
