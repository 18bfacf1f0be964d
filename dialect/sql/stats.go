package sql

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/quarry/dialect"
)

// QueryStats holds query execution statistics.
type QueryStats struct {
	// TotalQueries is the total number of row-returning statements executed.
	TotalQueries atomic.Int64
	// TotalExecs is the total number of statements executed for their
	// affected row count.
	TotalExecs atomic.Int64
	// TotalDuration is the total time spent executing statements.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of failed statements.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the average statement duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is a function called when a slow statement is detected.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsRunner wraps a Runner with statistics collection. Durations are
// measured until the runner's future resolves, so asynchronous runners are
// measured as well.
type StatsRunner struct {
	dialect.Runner
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsRunner.
type StatsOption func(*StatsRunner)

// WithSlowThreshold sets the threshold for slow statement detection.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsRunner) {
		s.slowThreshold = d
	}
}

// WithSlowQueryHook sets a callback function for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsRunner) {
		s.slowHook = hook
	}
}

// WithSlowQueryLog logs slow statements to the given logger, or to the
// default logger when l is nil.
func WithSlowQueryLog(l *slog.Logger) StatsOption {
	if l == nil {
		l = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		l.WarnContext(ctx, "slow query detected", "duration", duration, "query", query, "args", args)
	})
}

// NewStatsRunner wraps r with statistics collection.
//
// Example:
//
//	r, _ := sql.Open(dialect.Postgres, dsn)
//	stats := sql.NewStatsRunner(r,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(nil),
//	)
//	conn := session.New(stats)
//
//	// Later, check statistics:
//	fmt.Println(stats.QueryStats().Stats())
func NewStatsRunner(r dialect.Runner, opts ...StatsOption) *StatsRunner {
	s := &StatsRunner{
		Runner:        r,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the underlying QueryStats for reading statistics.
func (r *StatsRunner) QueryStats() *QueryStats {
	return r.stats
}

// SlowThreshold returns the current slow statement threshold.
func (r *StatsRunner) SlowThreshold() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.slowThreshold
}

// SetSlowThreshold updates the slow statement threshold.
func (r *StatsRunner) SetSlowThreshold(threshold time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slowThreshold = threshold
}

// ExecuteSelect executes a query and records statistics.
func (r *StatsRunner) ExecuteSelect(ctx context.Context, query string, args []any) *dialect.Future[*dialect.ResultSet] {
	return measure(ctx, r, query, args, true, func() *dialect.Future[*dialect.ResultSet] { return r.Runner.ExecuteSelect(ctx, query, args) })
}

// ExecuteReturning executes a mutation returning rows and records statistics.
func (r *StatsRunner) ExecuteReturning(ctx context.Context, query string, args []any) *dialect.Future[*dialect.ResultSet] {
	return measure(ctx, r, query, args, true, func() *dialect.Future[*dialect.ResultSet] { return r.Runner.ExecuteReturning(ctx, query, args) })
}

// ExecuteMutation executes a mutation and records statistics.
func (r *StatsRunner) ExecuteMutation(ctx context.Context, query string, args []any) *dialect.Future[int64] {
	return measure(ctx, r, query, args, false, func() *dialect.Future[int64] { return r.Runner.ExecuteMutation(ctx, query, args) })
}

// ExecuteInsertLastID executes an insert and records statistics.
func (r *StatsRunner) ExecuteInsertLastID(ctx context.Context, query string, args []any) *dialect.Future[dialect.InsertResult] {
	return measure(ctx, r, query, args, false, func() *dialect.Future[dialect.InsertResult] { return r.Runner.ExecuteInsertLastID(ctx, query, args) })
}

// ExecuteSchemaModification executes a DDL statement and records statistics.
func (r *StatsRunner) ExecuteSchemaModification(ctx context.Context, query string) *dialect.Future[struct{}] {
	return measure(ctx, r, query, nil, false, func() *dialect.Future[struct{}] { return r.Runner.ExecuteSchemaModification(ctx, query) })
}

func measure[T any](ctx context.Context, r *StatsRunner, query string, args []any, isQuery bool, run func() *dialect.Future[T]) *dialect.Future[T] {
	start := time.Now()
	return dialect.Observe(run(), func(v T, err error) (T, error) {
		r.record(ctx, query, args, start, err, isQuery)
		return v, err
	})
}

func (r *StatsRunner) record(ctx context.Context, query string, args []any, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	if isQuery {
		r.stats.TotalQueries.Add(1)
	} else {
		r.stats.TotalExecs.Add(1)
	}
	r.stats.TotalDuration.Add(int64(duration))
	if err != nil {
		r.stats.Errors.Add(1)
	}

	r.mu.RLock()
	threshold := r.slowThreshold
	hook := r.slowHook
	r.mu.RUnlock()

	if duration > threshold {
		r.stats.SlowQueries.Add(1)
		if hook != nil {
			hook(ctx, query, args, duration)
		}
	}
}

// DebugRunner wraps a Runner with debug logging.
type DebugRunner struct {
	dialect.Runner
	log *slog.Logger
}

// NewDebugRunner wraps r with debug logging to l, or to the default logger
// when l is nil.
//
// Example:
//
//	r, _ := sql.Open(dialect.SQLite, "file:app.db")
//	conn := session.New(sql.NewDebugRunner(r, slog.New(slog.NewTextHandler(os.Stderr, nil))))
func NewDebugRunner(r dialect.Runner, l *slog.Logger) *DebugRunner {
	if l == nil {
		l = slog.Default()
	}
	return &DebugRunner{Runner: r, log: l}
}

// ExecuteSelect logs and executes a query.
func (r *DebugRunner) ExecuteSelect(ctx context.Context, query string, args []any) *dialect.Future[*dialect.ResultSet] {
	r.log.InfoContext(ctx, "select", "query", query, "args", args)
	return r.Runner.ExecuteSelect(ctx, query, args)
}

// ExecuteReturning logs and executes a mutation returning rows.
func (r *DebugRunner) ExecuteReturning(ctx context.Context, query string, args []any) *dialect.Future[*dialect.ResultSet] {
	r.log.InfoContext(ctx, "returning", "query", query, "args", args)
	return r.Runner.ExecuteReturning(ctx, query, args)
}

// ExecuteMutation logs and executes a mutation.
func (r *DebugRunner) ExecuteMutation(ctx context.Context, query string, args []any) *dialect.Future[int64] {
	r.log.InfoContext(ctx, "exec", "query", query, "args", args)
	return r.Runner.ExecuteMutation(ctx, query, args)
}

// ExecuteInsertLastID logs and executes an insert.
func (r *DebugRunner) ExecuteInsertLastID(ctx context.Context, query string, args []any) *dialect.Future[dialect.InsertResult] {
	r.log.InfoContext(ctx, "insert", "query", query, "args", args)
	return r.Runner.ExecuteInsertLastID(ctx, query, args)
}

// ExecuteSchemaModification logs and executes a DDL statement.
func (r *DebugRunner) ExecuteSchemaModification(ctx context.Context, query string) *dialect.Future[struct{}] {
	r.log.InfoContext(ctx, "schema", "query", query)
	return r.Runner.ExecuteSchemaModification(ctx, query)
}

// BeginTransaction logs and starts a transaction.
func (r *DebugRunner) BeginTransaction(ctx context.Context, opts *dialect.TxOptions) *dialect.Future[struct{}] {
	r.log.InfoContext(ctx, "begin transaction")
	return r.Runner.BeginTransaction(ctx, opts)
}

// Commit logs and commits the transaction.
func (r *DebugRunner) Commit(ctx context.Context) *dialect.Future[struct{}] {
	r.log.InfoContext(ctx, "commit transaction")
	return r.Runner.Commit(ctx)
}

// Rollback logs and rolls back the transaction.
func (r *DebugRunner) Rollback(ctx context.Context) *dialect.Future[struct{}] {
	r.log.InfoContext(ctx, "rollback transaction")
	return r.Runner.Rollback(ctx)
}

// closeRunner closes r when it holds a resource.
func closeRunner(r dialect.Runner) error {
	if c, ok := r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Close closes the wrapped runner, if it can be closed.
func (r *StatsRunner) Close() error { return closeRunner(r.Runner) }

// Close closes the wrapped runner, if it can be closed.
func (r *DebugRunner) Close() error { return closeRunner(r.Runner) }

var (
	_ dialect.Runner = (*StatsRunner)(nil)
	_ dialect.Runner = (*DebugRunner)(nil)
	_ io.Closer      = (*StatsRunner)(nil)
	_ io.Closer      = (*DebugRunner)(nil)
)

// OpenWithStats opens a database with statistics collection enabled.
func OpenWithStats(name, source string, opts ...StatsOption) (*StatsRunner, *QueryStats, error) {
	r, err := Open(name, source)
	if err != nil {
		return nil, nil, err
	}
	s := NewStatsRunner(r, opts...)
	return s, s.QueryStats(), nil
}
