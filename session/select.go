package session

import (
	"context"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/query"
	"github.com/syssam/quarry/resolve"
)

// Page is one page of a paged select and the number of rows of the
// unpaged select.
type Page struct {
	Data  []Row
	Count int64
}

// fetch runs a compiled select.
func (c *Connection) fetch(ctx context.Context, q *compiler.Query) (*dialect.ResultSet, error) {
	args, err := c.args(q)
	if err != nil {
		return nil, err
	}
	c.log.DebugContext(ctx, "select", "sql", q.SQL, "args", args)
	return await(c, "select", q.SQL, c.runner.ExecuteSelect(ctx, q.SQL, args))
}

func (c *Connection) selectRows(ctx context.Context, s query.Selectable) ([]Row, error) {
	q, err := c.compile(ctx, s)
	if err != nil {
		return nil, err
	}
	set, err := c.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	return resolve.DecodeRows(set.Rows, q.Shape, c.convert)
}

func (c *Connection) selectValues(ctx context.Context, s query.Selectable) ([]any, error) {
	q, err := c.compile(ctx, s)
	if err != nil {
		return nil, err
	}
	set, err := c.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	return resolve.DecodeValues(set.Rows, q.Shape, c.convert)
}

// SelectMany returns every row of s. The single field of a one-column
// select is named "result".
func (c *Connection) SelectMany(ctx context.Context, s query.Selectable) ([]Row, error) {
	release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return c.selectRows(ctx, s)
}

// SelectOne returns the only row of s. It fails with a NotFoundError when
// there is none and with a NotSingularError when there are more.
func (c *Connection) SelectOne(ctx context.Context, s query.Selectable) (Row, error) {
	rows, err := c.SelectMany(ctx, s)
	if err != nil {
		return nil, err
	}
	return one(rows, "select one", true)
}

// SelectNoneOrOne is like SelectOne but returns nil when s yields no row.
func (c *Connection) SelectNoneOrOne(ctx context.Context, s query.Selectable) (Row, error) {
	rows, err := c.SelectMany(ctx, s)
	if err != nil {
		return nil, err
	}
	return one(rows, "select none or one", false)
}

// SelectValues returns the first column of every row of s. Nulls are kept
// as nil.
func (c *Connection) SelectValues(ctx context.Context, s query.Selectable) ([]any, error) {
	release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return c.selectValues(ctx, s)
}

// SelectValue returns the first column of the only row of s.
func (c *Connection) SelectValue(ctx context.Context, s query.Selectable) (any, error) {
	values, err := c.SelectValues(ctx, s)
	if err != nil {
		return nil, err
	}
	return one(values, "select value", true)
}

// SelectNoneOrOneValue is like SelectValue but returns nil when s yields
// no row.
func (c *Connection) SelectNoneOrOneValue(ctx context.Context, s query.Selectable) (any, error) {
	values, err := c.SelectValues(ctx, s)
	if err != nil {
		return nil, err
	}
	return one(values, "select none or one value", false)
}

// SelectPage returns the rows of s along with the number of rows s yields
// without its ordering and paging.
func (c *Connection) SelectPage(ctx context.Context, s query.Selectable) (*Page, error) {
	release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	// Both statements compile before anything runs.
	q, err := c.compile(ctx, s)
	if err != nil {
		return nil, err
	}
	cq, err := c.compiler.CompileCount(s)
	if err != nil {
		return nil, err
	}
	set, err := c.fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	data, err := resolve.DecodeRows(set.Rows, q.Shape, c.convert)
	if err != nil {
		return nil, err
	}
	set, err = c.fetch(ctx, cq)
	if err != nil {
		return nil, err
	}
	counts, err := resolve.DecodeValues(set.Rows, cq.Shape, c.convert)
	if err != nil {
		return nil, err
	}
	n, err := one(counts, "select page count", true)
	if err != nil {
		return nil, err
	}
	p := &Page{Data: data}
	p.Count, _ = n.(int64)
	return p, nil
}

// SelectManyComposed runs s, then fetches the rows composed into its rows
// with a single statement built by fetch from the distinct values of
// comp.External, and attaches them per comp. fetch is not called when
// there is no seed.
func (c *Connection) SelectManyComposed(ctx context.Context, s query.Selectable, comp resolve.Compose, fetch func(seeds []any) query.Selectable) ([]Row, error) {
	release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	rows, err := c.selectRows(ctx, s)
	if err != nil {
		return nil, err
	}
	var fetched []Row
	if seeds := resolve.Seeds(rows, comp.External); len(seeds) > 0 {
		if fetched, err = c.selectRows(ctx, fetch(seeds)); err != nil {
			return nil, err
		}
	}
	if err := comp.Attach(rows, fetched); err != nil {
		return nil, err
	}
	return rows, nil
}

// SelectOneComposed is SelectManyComposed for a select yielding exactly
// one row.
func (c *Connection) SelectOneComposed(ctx context.Context, s query.Selectable, comp resolve.Compose, fetch func(seeds []any) query.Selectable) (Row, error) {
	rows, err := c.SelectManyComposed(ctx, s, comp, fetch)
	if err != nil {
		return nil, err
	}
	return one(rows, "select one composed", true)
}

// one returns the only element of xs. With required unset, no element
// yields the zero value.
func one[T any](xs []T, label string, required bool) (T, error) {
	var zero T
	switch {
	case len(xs) == 1:
		return xs[0], nil
	case len(xs) > 1:
		return zero, quarry.NewNotSingularError(label, len(xs))
	case required:
		return zero, quarry.NewNotFoundError(label)
	default:
		return zero, nil
	}
}
