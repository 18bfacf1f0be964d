// Package session executes statement trees through a dialect.Runner.
//
// A Connection compiles each statement for the runner's dialect, converts
// parameters and result cells with per-category transformers, and
// reshapes raw rows into objects (Row), scalar values, aggregated arrays
// and composed results.
//
//	conn := session.New(runner)
//	if err := conn.BeginTransaction(ctx); err != nil {
//	    return err
//	}
//	id, err := conn.InsertID(ctx, query.InsertInto(company).Values(query.Values{"name": "ACME"}))
//	if err != nil {
//	    _ = conn.Rollback(ctx)
//	    return err
//	}
//	rows, err := conn.SelectMany(ctx, query.From(company).
//	    Where(expr.EQ(company.C("id"), id)).
//	    Select(expr.F("id", company.C("id")), expr.F("name", company.C("name"))))
//
// Failed statements are never rolled back implicitly.
//
// # Execution Modes
//
// Runners declare their mode. Calls block until the runner's future
// resolves; a synchronous runner must hand back resolved futures, and
// a pending one fails the call with quarry.ErrRunnerSuspended.
package session
