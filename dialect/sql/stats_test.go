package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry/dialect"
)

func TestStatsRunner(t *testing.T) {
	r, mock := mockRunner(t, dialect.SQLite)
	var slow atomic.Int64
	s := NewStatsRunner(r,
		WithSlowThreshold(time.Hour),
		WithSlowQueryHook(func(context.Context, string, []any, time.Duration) { slow.Add(1) }),
	)
	ctx := context.Background()

	mock.ExpectQuery("SELECT name FROM company").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("ACME"))
	mock.ExpectExec("UPDATE company").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM company").WillReturnError(errors.New("locked"))

	set, err := s.ExecuteSelect(ctx, "SELECT name FROM company", nil).Wait()
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"ACME"}}, set.Rows)
	n, err := s.ExecuteMutation(ctx, "UPDATE company SET name = ?", []any{"FOO"}).Wait()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	_, err = s.ExecuteMutation(ctx, "DELETE FROM company", nil).Wait()
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	snap := s.QueryStats().Stats()
	assert.Equal(t, int64(1), snap.TotalQueries)
	assert.Equal(t, int64(2), snap.TotalExecs)
	assert.Equal(t, int64(1), snap.Errors)
	assert.Zero(t, snap.SlowQueries)
	assert.Zero(t, slow.Load())
	assert.Contains(t, snap.String(), "queries=1 execs=2")

	s.SetSlowThreshold(-1)
	assert.Equal(t, time.Duration(-1), s.SlowThreshold())
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(int64(1)))
	_, err = s.ExecuteSelect(ctx, "SELECT 1", nil).Wait()
	require.NoError(t, err)
	assert.Equal(t, int64(1), s.QueryStats().Stats().SlowQueries)
	assert.Equal(t, int64(1), slow.Load())

	s.QueryStats().Reset()
	assert.Equal(t, StatsSnapshot{}, s.QueryStats().Stats())
	assert.Zero(t, StatsSnapshot{}.AvgQueryDuration())
}

func TestStatsRunnerPending(t *testing.T) {
	f, resolve := dialect.Pending[int64]()
	s := NewStatsRunner(pendingRunner{f})
	got := s.ExecuteMutation(context.Background(), "UPDATE company SET name = 'x'", nil)
	assert.False(t, got.Ready())
	assert.Zero(t, s.QueryStats().Stats().TotalExecs)

	resolve(3, nil)
	n, err := got.Wait()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int64(1), s.QueryStats().Stats().TotalExecs)
}

type pendingRunner struct {
	f *dialect.Future[int64]
}

func (pendingRunner) Capabilities() *dialect.Capabilities { return dialect.MustProfile(dialect.Postgres) }
func (pendingRunner) Mode() dialect.Mode                  { return dialect.Asynchronous }
func (r pendingRunner) ExecuteMutation(context.Context, string, []any) *dialect.Future[int64] {
	return r.f
}
func (pendingRunner) ExecuteSelect(context.Context, string, []any) *dialect.Future[*dialect.ResultSet] {
	return dialect.Done[*dialect.ResultSet](nil, errors.New("unexpected"))
}
func (pendingRunner) ExecuteReturning(context.Context, string, []any) *dialect.Future[*dialect.ResultSet] {
	return dialect.Done[*dialect.ResultSet](nil, errors.New("unexpected"))
}
func (pendingRunner) ExecuteInsertLastID(context.Context, string, []any) *dialect.Future[dialect.InsertResult] {
	return dialect.Done(dialect.InsertResult{}, errors.New("unexpected"))
}
func (pendingRunner) ExecuteSchemaModification(context.Context, string) *dialect.Future[struct{}] {
	return dialect.Done(struct{}{}, errors.New("unexpected"))
}
func (pendingRunner) BeginTransaction(context.Context, *dialect.TxOptions) *dialect.Future[struct{}] {
	return dialect.Done(struct{}{}, nil)
}
func (pendingRunner) Commit(context.Context) *dialect.Future[struct{}] {
	return dialect.Done(struct{}{}, nil)
}
func (pendingRunner) Rollback(context.Context) *dialect.Future[struct{}] {
	return dialect.Done(struct{}{}, nil)
}

func TestDebugRunner(t *testing.T) {
	r, mock := mockRunner(t, dialect.SQLite)
	var buf bytes.Buffer
	d := NewDebugRunner(r, slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO company").WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectRollback()
	_, err := d.BeginTransaction(ctx, nil).Wait()
	require.NoError(t, err)
	res, err := d.ExecuteInsertLastID(ctx, "INSERT INTO company (name) VALUES (?)", []any{"ACME"}).Wait()
	require.NoError(t, err)
	assert.Equal(t, dialect.InsertResult{Affected: 1, LastInsertID: 7}, res)
	_, err = d.Rollback(ctx).Wait()
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	out := buf.String()
	assert.Contains(t, out, "begin transaction")
	assert.Contains(t, out, "INSERT INTO company (name) VALUES (?)")
	assert.Contains(t, out, "ACME")
	assert.Contains(t, out, "rollback transaction")
}

func TestWrappedRunnerClose(t *testing.T) {
	r, mock := mockRunner(t, dialect.SQLite)
	mock.ExpectClose()
	require.NoError(t, NewDebugRunner(NewStatsRunner(r), nil).Close())
	require.NoError(t, mock.ExpectationsWereMet())

	assert.NoError(t, NewStatsRunner(pendingRunner{}).Close())
}
