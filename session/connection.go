package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/privacy"
	"github.com/syssam/quarry/query"
	"github.com/syssam/quarry/resolve"
	"github.com/syssam/quarry/schema/field"
)

// Row is an object built from a result row. Null fields are omitted.
type Row = resolve.Row

// State is the transaction state of a connection.
type State uint8

// Transaction states.
const (
	Idle State = iota
	InTransaction
)

func (s State) String() string {
	if s == InTransaction {
		return "in transaction"
	}
	return "idle"
}

// Connection compiles statements for its runner's dialect, executes them
// and reshapes the results. A connection handles one statement at a time;
// a call made while another is in flight fails with
// quarry.ErrConcurrentUse.
type Connection struct {
	runner       dialect.Runner
	mode         dialect.Mode
	compiler     *compiler.Compiler
	log          *slog.Logger
	transformers map[field.Type]Transformer
	policy       *privacy.Policy

	busy      atomic.Bool
	state     State
	isolation sql.IsolationLevel
}

// Option configures a Connection.
type Option func(*Connection)

// WithLogger sets the logger statements are logged to at debug level.
func WithLogger(l *slog.Logger) Option {
	return func(c *Connection) {
		c.log = l
	}
}

// WithTransformer replaces the conversions of one value category.
func WithTransformer(t field.Type, tr Transformer) Option {
	return func(c *Connection) {
		c.transformers[t] = tr
	}
}

// WithPolicy evaluates every statement against p before it is compiled.
func WithPolicy(p privacy.Policy) Option {
	return func(c *Connection) {
		c.policy = &p
	}
}

// New returns an idle connection over r.
func New(r dialect.Runner, opts ...Option) *Connection {
	caps := r.Capabilities()
	c := &Connection{
		runner:       r,
		mode:         r.Mode(),
		compiler:     compiler.New(caps),
		log:          slog.Default(),
		transformers: defaultTransformers(caps),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Runner returns the runner of the connection.
func (c *Connection) Runner() dialect.Runner { return c.runner }

// Compiler returns the compiler used for the runner's dialect.
func (c *Connection) Compiler() *compiler.Compiler { return c.compiler }

// State returns the transaction state.
func (c *Connection) State() State { return c.state }

// acquire marks the connection busy for the duration of one call.
func (c *Connection) acquire() (release func(), err error) {
	if !c.busy.CompareAndSwap(false, true) {
		return nil, quarry.ErrConcurrentUse
	}
	return func() { c.busy.Store(false) }, nil
}

// await resolves a runner future. Runner errors are wrapped in an
// ExecutionError.
func await[T any](c *Connection, op, text string, f *dialect.Future[T]) (T, error) {
	if c.mode == dialect.Synchronous && !f.Ready() {
		var zero T
		return zero, fmt.Errorf("session: %s: %w", op, quarry.ErrRunnerSuspended)
	}
	v, err := f.Wait()
	if err != nil {
		return v, quarry.NewExecutionError(op, text, err)
	}
	return v, nil
}

// SetIsolationLevel sets the isolation level of the transactions begun
// afterwards. It is only legal while idle.
func (c *Connection) SetIsolationLevel(level sql.IsolationLevel) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()
	if c.state != Idle {
		return quarry.NewTransactionStateError("set isolation level", c.state.String())
	}
	c.isolation = level
	return nil
}

// BeginTransaction starts a transaction. Statements executed until Commit
// or Rollback share it.
func (c *Connection) BeginTransaction(ctx context.Context) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()
	if c.state != Idle {
		return quarry.NewTransactionStateError("begin", c.state.String())
	}
	var opts *dialect.TxOptions
	if c.isolation != sql.LevelDefault {
		opts = &dialect.TxOptions{Isolation: c.isolation}
	}
	c.log.DebugContext(ctx, "begin transaction", "isolation", c.isolation)
	if _, err := await(c, "begin", "", c.runner.BeginTransaction(ctx, opts)); err != nil {
		return err
	}
	c.state = InTransaction
	return nil
}

// Commit commits the transaction. The connection is idle afterwards, even
// when the runner fails.
func (c *Connection) Commit(ctx context.Context) error {
	return c.end(ctx, "commit", c.runner.Commit)
}

// Rollback rolls the transaction back. The connection is idle afterwards,
// even when the runner fails.
func (c *Connection) Rollback(ctx context.Context) error {
	return c.end(ctx, "rollback", c.runner.Rollback)
}

func (c *Connection) end(ctx context.Context, op string, fn func(context.Context) *dialect.Future[struct{}]) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()
	if c.state != InTransaction {
		return quarry.NewTransactionStateError(op, c.state.String())
	}
	c.log.DebugContext(ctx, op+" transaction")
	c.state = Idle
	_, err = await(c, op, "", fn(ctx))
	return err
}

// ExecSchema passes a DDL statement to the runner.
func (c *Connection) ExecSchema(ctx context.Context, ddl string) error {
	release, err := c.acquire()
	if err != nil {
		return err
	}
	defer release()
	c.log.DebugContext(ctx, "schema modification", "sql", ddl)
	_, err = await(c, "schema", ddl, c.runner.ExecuteSchemaModification(ctx, ddl))
	return err
}

// compile checks stmt against the policy and compiles it.
func (c *Connection) compile(ctx context.Context, stmt query.Statement) (*compiler.Query, error) {
	if c.policy != nil {
		if err := c.policy.Eval(ctx, stmt); err != nil {
			return nil, err
		}
	}
	return c.compiler.Compile(stmt)
}

// args converts the parameters of q for the runner.
func (c *Connection) args(q *compiler.Query) ([]any, error) {
	args := make([]any, len(q.Params))
	for i, p := range q.Params {
		v := p.Value
		if tr := c.transformers[p.Type]; tr.ToDB != nil && v != nil {
			var err error
			if v, err = tr.ToDB(p); err != nil {
				return nil, fmt.Errorf("session: parameter %d (%s): %w", i+1, p.Type, err)
			}
		}
		args[i] = v
	}
	return args, nil
}

// convert turns a raw cell into a value of category t.
func (c *Connection) convert(v any, t field.Type) (any, error) {
	if tr := c.transformers[t]; tr.FromDB != nil {
		return tr.FromDB(v)
	}
	return v, nil
}
