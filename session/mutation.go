package session

import (
	"context"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/query"
	"github.com/syssam/quarry/resolve"
)

// mutate runs a compiled insert, update or delete and returns the number
// of affected rows. Statements with a returning clause count the rows
// they return.
func (c *Connection) mutate(ctx context.Context, q *compiler.Query) (int64, error) {
	if q.Shape != nil {
		rows, err := c.returning(ctx, q)
		if err != nil {
			return 0, err
		}
		return int64(len(rows)), nil
	}
	args, err := c.args(q)
	if err != nil {
		return 0, err
	}
	op := q.Op.String()
	c.log.DebugContext(ctx, op, "sql", q.SQL, "args", args)
	if q.IDs == compiler.IDsFromLastInsertID {
		res, err := await(c, op, q.SQL, c.runner.ExecuteInsertLastID(ctx, q.SQL, args))
		return res.Affected, err
	}
	return await(c, op, q.SQL, c.runner.ExecuteMutation(ctx, q.SQL, args))
}

// returning runs a compiled mutation with a returning clause.
func (c *Connection) returning(ctx context.Context, q *compiler.Query) ([][]any, error) {
	args, err := c.args(q)
	if err != nil {
		return nil, err
	}
	op := q.Op.String()
	c.log.DebugContext(ctx, op+" returning", "sql", q.SQL, "args", args)
	set, err := await(c, op, q.SQL, c.runner.ExecuteReturning(ctx, q.SQL, args))
	if err != nil {
		return nil, err
	}
	return set.Rows, nil
}

func (c *Connection) exec(ctx context.Context, stmt query.Statement) (int64, error) {
	release, err := c.acquire()
	if err != nil {
		return 0, err
	}
	defer release()
	q, err := c.compile(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return c.mutate(ctx, q)
}

func (c *Connection) execReturning(ctx context.Context, op string, stmt query.Statement) ([]Row, error) {
	release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	q, err := c.compile(ctx, stmt)
	if err != nil {
		return nil, err
	}
	if q.Shape == nil {
		return nil, quarry.Validationf(op, "statement has no returning clause")
	}
	raw, err := c.returning(ctx, q)
	if err != nil {
		return nil, err
	}
	return resolve.DecodeRows(raw, q.Shape, c.convert)
}

// Insert executes s and returns the number of inserted rows.
func (c *Connection) Insert(ctx context.Context, s *query.InsertStmt) (int64, error) {
	return c.exec(ctx, s)
}

// InsertIDs executes s and returns the generated ids of the inserted rows
// in insertion order. Dialects without RETURNING derive them from the
// driver's last insert id.
func (c *Connection) InsertIDs(ctx context.Context, s *query.InsertStmt) ([]any, error) {
	release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	q, err := c.compile(ctx, s.ReturningLastInsertedID())
	if err != nil {
		return nil, err
	}
	if q.IDs == compiler.IDsFromReturning {
		raw, err := c.returning(ctx, q)
		if err != nil {
			return nil, err
		}
		return resolve.DecodeValues(raw, q.Shape, c.convert)
	}
	args, err := c.args(q)
	if err != nil {
		return nil, err
	}
	c.log.DebugContext(ctx, "insert", "sql", q.SQL, "args", args)
	res, err := await(c, "insert", q.SQL, c.runner.ExecuteInsertLastID(ctx, q.SQL, args))
	if err != nil {
		return nil, err
	}
	n := res.Affected
	if q.Rows > 0 && n > int64(q.Rows) {
		// Upserts count updated rows twice.
		n = int64(q.Rows)
	}
	first := res.LastInsertID
	if !c.compiler.Capabilities().LastInsertIDIsFirst {
		first -= n - 1
	}
	ids := make([]any, n)
	for i := range ids {
		ids[i] = first + int64(i)
	}
	return ids, nil
}

// InsertID executes an insert of one row and returns its generated id.
func (c *Connection) InsertID(ctx context.Context, s *query.InsertStmt) (any, error) {
	ids, err := c.InsertIDs(ctx, s)
	if err != nil {
		return nil, err
	}
	return one(ids, "insert", true)
}

// InsertReturning executes s and returns the rows of its returning clause.
func (c *Connection) InsertReturning(ctx context.Context, s *query.InsertStmt) ([]Row, error) {
	return c.execReturning(ctx, "insert", s)
}

// Update executes s and returns the number of updated rows.
func (c *Connection) Update(ctx context.Context, s *query.UpdateStmt) (int64, error) {
	return c.exec(ctx, s)
}

// UpdateReturning executes s and returns the rows of its returning clause.
func (c *Connection) UpdateReturning(ctx context.Context, s *query.UpdateStmt) ([]Row, error) {
	return c.execReturning(ctx, "update", s)
}

// Delete executes s and returns the number of deleted rows.
func (c *Connection) Delete(ctx context.Context, s *query.DeleteStmt) (int64, error) {
	return c.exec(ctx, s)
}

// DeleteReturning executes s and returns the rows of its returning clause.
func (c *Connection) DeleteReturning(ctx context.Context, s *query.DeleteStmt) ([]Row, error) {
	return c.execReturning(ctx, "delete", s)
}
