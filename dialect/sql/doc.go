// Package sql runs compiled statements on database/sql.
//
// Runner implements dialect.Runner for any database/sql driver. It is
// synchronous: every future it returns is already resolved. Statements run
// on the active transaction when one was started with BeginTransaction.
//
//	r, err := sql.Open(dialect.SQLite, "file:app.db?_pragma=foreign_keys(1)")
//	if err != nil {
//	    return err
//	}
//	conn := session.New(r)
//
// Profiles loaded from YAML are used through NewRunner:
//
//	profiles, _ := dialect.LoadProfiles(f)
//	r := sql.NewRunner(profiles["legacy-sqlite"], db)
//
// # Session Variables
//
// WithVar attaches variables that are SET before every statement run with
// the context. Outside a transaction they are reset before the pooled
// connection is released.
//
//	ctx = sql.WithVar(ctx, "search_path", "tenant_1")
//
// # Wrappers
//
// NewStatsRunner counts statements and reports slow ones, NewDebugRunner
// logs every statement with log/slog. Both wrap any dialect.Runner.
//
// # Constraint Errors
//
// IsUniqueConstraintError, IsForeignKeyConstraintError and
// IsCheckConstraintError classify driver errors of lib/pq,
// go-sql-driver/mysql and modernc.org/sqlite, looking through
// quarry.ExecutionError wrappers.
package sql
