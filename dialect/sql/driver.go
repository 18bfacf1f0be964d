package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/quarry/dialect"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// escapeStringValue escapes a string value for safe use in SQL.
// It escapes both single quotes (by doubling) and backslashes (for MySQL compatibility).
func escapeStringValue(s string) string {
	if !strings.ContainsAny(s, `'\`) {
		return s
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", "''")
	return s
}

// driverNames maps dialect names to the database/sql driver registering them.
var driverNames = map[string]string{
	dialect.Postgres:  "postgres",
	dialect.MySQL:     "mysql",
	dialect.MySQL57:   "mysql",
	dialect.SQLite:    "sqlite",
	dialect.SQLServer: "sqlserver",
	dialect.Oracle:    "oracle",
}

// DriverName returns the database/sql driver name used for a dialect.
func DriverName(name string) string {
	if d, ok := driverNames[name]; ok {
		return d
	}
	return name
}

// Runner is a synchronous dialect.Runner on top of database/sql. Statements
// run on the active transaction when there is one, and on the pool
// otherwise.
type Runner struct {
	db   *sql.DB
	caps *dialect.Capabilities
	tx   *sql.Tx
}

// Open opens a database for the named built-in dialect.
func Open(name, source string) (*Runner, error) {
	caps, err := dialect.Profile(name)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(DriverName(name), source)
	if err != nil {
		return nil, err
	}
	return NewRunner(caps, db), nil
}

// OpenDB wraps db with a Runner speaking the named built-in dialect.
func OpenDB(name string, db *sql.DB) (*Runner, error) {
	caps, err := dialect.Profile(name)
	if err != nil {
		return nil, err
	}
	return NewRunner(caps, db), nil
}

// NewRunner wraps db with a Runner speaking caps, e.g. a profile loaded
// with dialect.LoadProfiles.
func NewRunner(caps *dialect.Capabilities, db *sql.DB) *Runner {
	return &Runner{db: db, caps: caps}
}

// DB returns the underlying *sql.DB instance.
func (r *Runner) DB() *sql.DB { return r.db }

// Close closes the underlying database.
func (r *Runner) Close() error { return r.db.Close() }

// Capabilities implements dialect.Runner.
func (r *Runner) Capabilities() *dialect.Capabilities { return r.caps }

// Mode implements dialect.Runner.
func (r *Runner) Mode() dialect.Mode { return dialect.Synchronous }

// conn returns the executor of the next statement.
func (r *Runner) conn() Conn {
	if r.tx != nil {
		return Conn{r.tx, r.caps.Name}
	}
	return Conn{r.db, r.caps.Name}
}

// ExecuteSelect implements dialect.Runner.
func (r *Runner) ExecuteSelect(ctx context.Context, query string, args []any) *dialect.Future[*dialect.ResultSet] {
	return dialect.Done(r.conn().Query(ctx, query, args))
}

// ExecuteReturning implements dialect.Runner.
func (r *Runner) ExecuteReturning(ctx context.Context, query string, args []any) *dialect.Future[*dialect.ResultSet] {
	return dialect.Done(r.conn().Query(ctx, query, args))
}

// ExecuteMutation implements dialect.Runner.
func (r *Runner) ExecuteMutation(ctx context.Context, query string, args []any) *dialect.Future[int64] {
	res, err := r.conn().Exec(ctx, query, args)
	if err != nil {
		return dialect.Done(int64(0), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dialect.Done(int64(0), fmt.Errorf("dialect/sql: rows affected: %w", err))
	}
	return dialect.Done(n, nil)
}

// ExecuteInsertLastID implements dialect.Runner.
func (r *Runner) ExecuteInsertLastID(ctx context.Context, query string, args []any) *dialect.Future[dialect.InsertResult] {
	res, err := r.conn().Exec(ctx, query, args)
	if err != nil {
		return dialect.Done(dialect.InsertResult{}, err)
	}
	var out dialect.InsertResult
	if out.Affected, err = res.RowsAffected(); err != nil {
		return dialect.Done(out, fmt.Errorf("dialect/sql: rows affected: %w", err))
	}
	if out.LastInsertID, err = res.LastInsertId(); err != nil {
		return dialect.Done(out, fmt.Errorf("dialect/sql: last insert id: %w", err))
	}
	return dialect.Done(out, nil)
}

// ExecuteSchemaModification implements dialect.Runner.
func (r *Runner) ExecuteSchemaModification(ctx context.Context, query string) *dialect.Future[struct{}] {
	_, err := r.conn().Exec(ctx, query, nil)
	return dialect.Done(struct{}{}, err)
}

// BeginTransaction implements dialect.Runner.
func (r *Runner) BeginTransaction(ctx context.Context, opts *dialect.TxOptions) *dialect.Future[struct{}] {
	if r.tx != nil {
		return dialect.Done(struct{}{}, errors.New("dialect/sql: transaction already started"))
	}
	tx, err := r.db.BeginTx(ctx, opts)
	if err != nil {
		return dialect.Done(struct{}{}, fmt.Errorf("dialect/sql: begin: %w", err))
	}
	r.tx = tx
	return dialect.Done(struct{}{}, nil)
}

// Commit implements dialect.Runner.
func (r *Runner) Commit(context.Context) *dialect.Future[struct{}] {
	return dialect.Done(struct{}{}, r.end("commit", (*sql.Tx).Commit))
}

// Rollback implements dialect.Runner.
func (r *Runner) Rollback(context.Context) *dialect.Future[struct{}] {
	return dialect.Done(struct{}{}, r.end("rollback", (*sql.Tx).Rollback))
}

// end finishes the active transaction. The runner leaves the transaction
// even when fn fails, as database/sql closes it in both cases.
func (r *Runner) end(op string, fn func(*sql.Tx) error) error {
	if r.tx == nil {
		return fmt.Errorf("dialect/sql: %s: no active transaction", op)
	}
	tx := r.tx
	r.tx = nil
	if err := fn(tx); err != nil {
		return fmt.Errorf("dialect/sql: %s: %w", op, err)
	}
	return nil
}

// ctxVarsKey is the key used for attaching and reading the context variables.
type ctxVarsKey struct{}

// sessionVars holds sessions/transactions variables to set before every statement.
type sessionVars struct {
	vars []struct{ k, v string }
}

// WithVar returns a new context that holds the session variable to be executed before every query.
func WithVar(ctx context.Context, name, value string) context.Context {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	sv.vars = append(sv.vars, struct {
		k, v string
	}{
		k: name,
		v: value,
	})
	return context.WithValue(ctx, ctxVarsKey{}, sv)
}

// VarFromContext returns the session variable value from the context.
func VarFromContext(ctx context.Context, name string) (string, bool) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	for _, s := range sv.vars {
		if s.k == name {
			return s.v, true
		}
	}
	return "", false
}

// WithIntVar calls WithVar with the string representation of the value.
func WithIntVar(ctx context.Context, name string, value int) context.Context {
	return WithVar(ctx, name, strconv.Itoa(value))
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn executes statements on an ExecQuerier, setting the context's
// session variables first.
type Conn struct {
	ExecQuerier
	dialect string
}

// Exec executes a statement that returns no rows.
func (c Conn) Exec(ctx context.Context, query string, args []any) (res sql.Result, rerr error) {
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: set session vars: %w", err)
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	res, err = ex.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	return res, nil
}

// Query executes a statement and reads all of its rows. Cells are kept
// as the driver returns them.
func (c Conn) Query(ctx context.Context, query string, args []any) (set *dialect.ResultSet, rerr error) {
	ex, cf, err := c.maySetVars(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: set session vars: %w", err)
	}
	if cf != nil {
		defer func() { rerr = errors.Join(rerr, cf()) }()
	}
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	defer rows.Close()
	set, err = ScanAll(rows)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	return set, nil
}

// ScanAll reads the remaining rows of rows.
func ScanAll(rows ColumnScanner) (*dialect.ResultSet, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	set := &dialect.ResultSet{Columns: cols}
	for rows.Next() {
		row := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		set.Rows = append(set.Rows, row)
	}
	return set, rows.Err()
}

// maySetVars sets the session variables before executing a query.
func (c Conn) maySetVars(ctx context.Context) (ExecQuerier, func() error, error) {
	sv, _ := ctx.Value(ctxVarsKey{}).(sessionVars)
	if len(sv.vars) == 0 {
		return c, nil, nil
	}
	var (
		ex    ExecQuerier  // Underlying ExecQuerier.
		cf    func() error // Close function.
		reset []string     // Reset variables.
		seen  = make(map[string]struct{}, len(sv.vars))
	)
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx:
		ex = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, err
		}
		ex, cf = conn, conn.Close
	default:
		return nil, nil, fmt.Errorf("unsupported ExecQuerier type: %T", c.ExecQuerier)
	}
	for _, s := range sv.vars {
		if !isValidIdentifier(s.k) {
			if cf != nil {
				_ = cf()
			}
			return nil, nil, fmt.Errorf("invalid session variable name: %q", s.k)
		}
		if _, ok := seen[s.k]; !ok {
			switch c.dialect {
			case dialect.Postgres:
				reset = append(reset, fmt.Sprintf("RESET %s", s.k))
			case dialect.MySQL, dialect.MySQL57:
				reset = append(reset, fmt.Sprintf("SET %s = NULL", s.k))
			}
			seen[s.k] = struct{}{}
		}
		if _, err := ex.ExecContext(ctx, fmt.Sprintf("SET %s = '%s'", s.k, escapeStringValue(s.v))); err != nil {
			if cf != nil {
				err = errors.Join(err, cf())
			}
			return nil, nil, err
		}
	}
	// Variables set on a pooled connection are reset before it returns to
	// the pool, even if the statement's context was canceled.
	if cls := cf; cf != nil && len(reset) > 0 {
		cf = func() error {
			cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for _, q := range reset {
				if _, err := ex.ExecContext(cleanupCtx, q); err != nil {
					return errors.Join(err, cls())
				}
			}
			return cls()
		}
	}
	return ex, cf, nil
}

var _ dialect.Runner = (*Runner)(nil)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	Columns() ([]string, error)
	Err() error
	Next() bool
	Scan(dest ...any) error
}
