// Package dialect describes the databases quarry compiles for and the
// Runner contract that executes compiled statements.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL
//   - MySQL: MySQL 8 / MariaDB
//   - MySQL57: MySQL 5.7 (no common table expressions)
//   - SQLite: SQLite 3.35 or later
//   - SQLServer: Microsoft SQL Server
//   - Oracle: Oracle Database 12c or later
//
// # Capabilities
//
// Each dialect has a built-in capability profile that the compiler consults
// while emitting SQL: boolean representation, RETURNING support, recursive
// query syntax, paging style, placeholder style, aggregated-array functions
// and uuid representation.
//
//	caps, err := dialect.Profile(dialect.SQLite)
//
// Profiles can be derived from YAML with LoadProfiles, e.g. to target an
// older server that lacks RETURNING:
//
//	profiles:
//	  - name: sqlite-3.31
//	    base: sqlite
//	    returning: false
//
// # Runner Interface
//
// A Runner executes SQL text with positional parameters and hands back
// Futures:
//
//	type Runner interface {
//	    Capabilities() *Capabilities
//	    Mode() Mode
//	    ExecuteSelect(ctx context.Context, query string, args []any) *Future[*ResultSet]
//	    ExecuteMutation(ctx context.Context, query string, args []any) *Future[int64]
//	    ...
//	}
//
// The Mode of a runner is declared, never inferred. A Synchronous runner
// must return resolved futures; the session package rejects a pending one
// with quarry.ErrRunnerSuspended. An Asynchronous runner may return pending
// futures, which are awaited.
//
// # Sub-packages
//
//   - dialect/sql: a database/sql based Runner with stats and debug wrappers
package dialect
