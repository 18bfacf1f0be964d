package dialect

import (
	"context"
	"database/sql"
)

// Mode is the execution mode a runner declares.
type Mode uint8

// Execution modes.
const (
	// Synchronous runners resolve every future before returning it.
	Synchronous Mode = iota + 1
	// Asynchronous runners may return pending futures.
	Asynchronous
)

func (m Mode) String() string {
	switch m {
	case Synchronous:
		return "synchronous"
	case Asynchronous:
		return "asynchronous"
	default:
		return "unknown"
	}
}

// TxOptions holds the transaction options.
type TxOptions = sql.TxOptions

// ResultSet holds raw rows as returned by the database, before any value
// conversion.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// InsertResult is the outcome of an insert executed without RETURNING.
type InsertResult struct {
	Affected     int64
	LastInsertID int64
}

// Runner executes compiled SQL. It is the only component that talks to a
// database; everything above it works on SQL text and parameters.
type Runner interface {
	// Capabilities returns the dialect profile the runner speaks.
	Capabilities() *Capabilities
	// Mode returns the execution mode of the runner.
	Mode() Mode

	ExecuteSelect(ctx context.Context, query string, args []any) *Future[*ResultSet]
	ExecuteMutation(ctx context.Context, query string, args []any) *Future[int64]
	ExecuteReturning(ctx context.Context, query string, args []any) *Future[*ResultSet]
	ExecuteInsertLastID(ctx context.Context, query string, args []any) *Future[InsertResult]
	ExecuteSchemaModification(ctx context.Context, query string) *Future[struct{}]

	BeginTransaction(ctx context.Context, opts *TxOptions) *Future[struct{}]
	Commit(ctx context.Context) *Future[struct{}]
	Rollback(ctx context.Context) *Future[struct{}]
}

// Async returns a runner that behaves like r but declares the
// asynchronous mode.
func Async(r Runner) Runner {
	return asyncRunner{r}
}

type asyncRunner struct{ Runner }

func (asyncRunner) Mode() Mode { return Asynchronous }
