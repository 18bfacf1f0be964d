package query

import (
	"slices"

	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema"
)

// CompoundStmt chains selects with set operations. Ordering and paging
// apply to the combined rows and may only name projected fields.
type CompoundStmt struct {
	n CompoundNode
}

func compound(s *SelectStmt, op SetOp, o *SelectStmt) *CompoundStmt {
	return &CompoundStmt{n: CompoundNode{Members: []*SelectStmt{s, o}, Ops: []SetOp{op}}}
}

func (c *CompoundStmt) then(op SetOp, o *SelectStmt) *CompoundStmt {
	n := c.n
	n.Members = with(n.Members, o)
	n.Ops = with(n.Ops, op)
	return &CompoundStmt{n: n}
}

// Union appends o without duplicates.
func (c *CompoundStmt) Union(o *SelectStmt) *CompoundStmt { return c.then(Union, o) }

// UnionAll appends o.
func (c *CompoundStmt) UnionAll(o *SelectStmt) *CompoundStmt { return c.then(UnionAll, o) }

// Intersect keeps the rows also present in o.
func (c *CompoundStmt) Intersect(o *SelectStmt) *CompoundStmt { return c.then(Intersect, o) }

// Except removes the rows present in o.
func (c *CompoundStmt) Except(o *SelectStmt) *CompoundStmt { return c.then(Except, o) }

// OrderBy appends an ascending ordering term over a projected field.
func (c *CompoundStmt) OrderBy(e expr.Expr) *CompoundStmt {
	n := c.n
	n.Order = with(n.Order, Order{Expr: e})
	return &CompoundStmt{n: n}
}

// OrderByDesc appends a descending ordering term over a projected field.
func (c *CompoundStmt) OrderByDesc(e expr.Expr) *CompoundStmt {
	n := c.n
	n.Order = with(n.Order, Order{Expr: e, Desc: true})
	return &CompoundStmt{n: n}
}

// Limit sets the maximum number of rows.
func (c *CompoundStmt) Limit(v int) *CompoundStmt {
	n := c.n
	n.Paging.Limit = &v
	return &CompoundStmt{n: n}
}

// Offset sets the number of rows to skip.
func (c *CompoundStmt) Offset(v int) *CompoundStmt {
	n := c.n
	n.Paging.Offset = &v
	return &CompoundStmt{n: n}
}

// AsValue embeds the statement as a scalar subquery.
func (c *CompoundStmt) AsValue() *expr.Subquery { return asValue(c) }

// Exists embeds the statement as an EXISTS predicate.
func (c *CompoundStmt) Exists() *expr.Subquery { return exists(c) }

// AsArray embeds the statement as an aggregated array value.
func (c *CompoundStmt) AsArray() *expr.Subquery { return asArray(c) }

// As returns a derived table over the statement.
func (c *CompoundStmt) As(alias string) *schema.Descriptor { return derived(alias, c) }

// Fields returns the projection of the first member.
func (c *CompoundStmt) Fields() []expr.Field { return c.n.Members[0].Fields() }

// SingleColumn reports if the members were ended with SelectOne.
func (c *CompoundStmt) SingleColumn() bool { return c.n.Members[0].SingleColumn() }

// Node returns the statement tree. It must not be modified.
func (c *CompoundStmt) Node() CompoundNode {
	n := c.n
	n.Members = slices.Clip(n.Members)
	return n
}

func (*CompoundStmt) selectable() {}
