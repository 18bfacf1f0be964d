package query

import (
	"cmp"
	"maps"
	"slices"

	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema"
)

// UpdateBuilder is an update waiting for its assignments.
type UpdateBuilder struct {
	table   *schema.Descriptor
	noWhere bool
}

// Update starts an update of t. The statement must be given a filter.
func Update(t *schema.Descriptor) *UpdateBuilder {
	return &UpdateBuilder{table: t}
}

// UpdateAllowingNoWhere starts an update of t that may touch every row.
func UpdateAllowingNoWhere(t *schema.Descriptor) *UpdateBuilder {
	return &UpdateBuilder{table: t, noWhere: true}
}

// Set assigns column values.
func (b *UpdateBuilder) Set(v Values) *UpdateStmt {
	return &UpdateStmt{n: UpdateNode{Table: b.table, AllowNoWhere: b.noWhere, Set: assignments(b.table, v)}}
}

// UpdateStmt is an update statement.
type UpdateStmt struct {
	n UpdateNode
}

func (s *UpdateStmt) clone() *UpdateStmt {
	c := *s
	return &c
}

// Set assigns more column values.
func (s *UpdateStmt) Set(v Values) *UpdateStmt {
	c := s.clone()
	set := make(map[string]Assignment)
	for _, a := range c.n.Set {
		set[a.Column] = a
	}
	for _, a := range assignments(c.n.Table, v) {
		set[a.Column] = a
	}
	c.n.Set = slices.SortedFunc(maps.Values(set), func(a, b Assignment) int {
		if d := columnIndex(c.n.Table, a.Column) - columnIndex(c.n.Table, b.Column); d != 0 {
			return d
		}
		return cmp.Compare(a.Column, b.Column)
	})
	return c
}

// From adds sources the assignments and the filter may reference.
func (s *UpdateStmt) From(srcs ...*schema.Descriptor) *UpdateStmt {
	c := s.clone()
	c.n.From = with(c.n.From, srcs...)
	return c
}

// Where sets the filter, or narrows it when one is already set.
func (s *UpdateStmt) Where(pred expr.Expr) *UpdateStmt {
	c := s.clone()
	c.n.Where = and(c.n.Where, pred)
	return c
}

// Returning makes the update return objects built from the updated rows.
func (s *UpdateStmt) Returning(fields ...expr.Field) *UpdateStmt {
	c := s.clone()
	c.n.Returning = Returning{Kind: ReturnFields, Fields: slices.Clone(fields)}
	return c
}

// ReturningOne makes the update return one value per updated row.
func (s *UpdateStmt) ReturningOne(e expr.Expr) *UpdateStmt {
	c := s.clone()
	c.n.Returning = Returning{Kind: ReturnOne, Fields: []expr.Field{expr.F("result", e)}}
	return c
}

// Node returns the statement tree. It must not be modified.
func (s *UpdateStmt) Node() UpdateNode { return s.n }

// DeleteStmt is a delete statement.
type DeleteStmt struct {
	n DeleteNode
}

// DeleteFrom starts a delete from t. The statement must be given a filter.
func DeleteFrom(t *schema.Descriptor) *DeleteStmt {
	return &DeleteStmt{n: DeleteNode{Table: t}}
}

// DeleteAllowingNoWhere starts a delete from t that may remove every row.
func DeleteAllowingNoWhere(t *schema.Descriptor) *DeleteStmt {
	return &DeleteStmt{n: DeleteNode{Table: t, AllowNoWhere: true}}
}

func (s *DeleteStmt) clone() *DeleteStmt {
	c := *s
	return &c
}

// Using adds sources the filter may reference.
func (s *DeleteStmt) Using(srcs ...*schema.Descriptor) *DeleteStmt {
	c := s.clone()
	c.n.Using = with(c.n.Using, srcs...)
	return c
}

// Where sets the filter, or narrows it when one is already set.
func (s *DeleteStmt) Where(pred expr.Expr) *DeleteStmt {
	c := s.clone()
	c.n.Where = and(c.n.Where, pred)
	return c
}

// Returning makes the delete return objects built from the deleted rows.
func (s *DeleteStmt) Returning(fields ...expr.Field) *DeleteStmt {
	c := s.clone()
	c.n.Returning = Returning{Kind: ReturnFields, Fields: slices.Clone(fields)}
	return c
}

// ReturningOne makes the delete return one value per deleted row.
func (s *DeleteStmt) ReturningOne(e expr.Expr) *DeleteStmt {
	c := s.clone()
	c.n.Returning = Returning{Kind: ReturnOne, Fields: []expr.Field{expr.F("result", e)}}
	return c
}

// Node returns the statement tree. It must not be modified.
func (s *DeleteStmt) Node() DeleteNode { return s.n }

func and(x, y expr.Expr) expr.Expr {
	if x == nil {
		return y
	}
	return expr.And(x, y)
}
