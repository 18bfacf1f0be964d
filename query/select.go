package query

import (
	"slices"

	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema"
)

// SelectStmt is a complete select statement. Every method returns a new
// statement and leaves the receiver untouched.
type SelectStmt struct {
	n    SelectNode
	errs []error
}

// From starts a select over the given sources. Sources are cross joined.
func From(srcs ...*schema.Descriptor) *SelectFrom {
	return &SelectFrom{stage{&SelectStmt{n: SelectNode{From: slices.Clone(srcs)}}}}
}

// FromNoTable starts a select without sources, such as SELECT 1.
func FromNoTable() *SelectFrom {
	return &SelectFrom{stage{&SelectStmt{}}}
}

func (s *SelectStmt) clone() *SelectStmt {
	c := *s
	return &c
}

func (s *SelectStmt) fail(err error) *SelectStmt {
	c := s.clone()
	c.errs = with(c.errs, err)
	return c
}

func with[T any](xs []T, x ...T) []T {
	return append(slices.Clip(xs), x...)
}

// stage holds the statement under construction and the projection steps
// shared by every builder stage.
type stage struct{ s *SelectStmt }

// Select ends the statement with named fields.
func (st stage) Select(fields ...expr.Field) *SelectStmt {
	s := st.s.clone()
	s.n.Fields = slices.Clone(fields)
	return s
}

// SelectOne ends the statement with a single unnamed value. Executing it
// yields scalars instead of objects.
func (st stage) SelectOne(e expr.Expr) *SelectStmt {
	s := st.s.clone()
	s.n.Fields = []expr.Field{expr.F("result", e)}
	s.n.Single = true
	return s
}

// SelectAll ends the statement with every column of src, named after the
// columns.
func (st stage) SelectAll(src *schema.Descriptor) *SelectStmt {
	s := st.s.clone()
	s.n.Fields = src.Fields()
	return s
}

// SelectFrom is the stage after From and joins.
type SelectFrom struct{ stage }

// JoinOn is a join waiting for its predicate.
type JoinOn struct {
	from *SelectFrom
	kind JoinKind
	src  *schema.Descriptor
}

// Join is InnerJoin.
func (f *SelectFrom) Join(src *schema.Descriptor) *JoinOn {
	return f.InnerJoin(src)
}

// InnerJoin joins src with the predicate given to On.
func (f *SelectFrom) InnerJoin(src *schema.Descriptor) *JoinOn {
	return &JoinOn{from: f, kind: InnerJoin, src: src}
}

// LeftJoin left joins src with the predicate given to On. Use a descriptor
// returned by ForLeftJoin so that its columns are nullable.
func (f *SelectFrom) LeftJoin(src *schema.Descriptor) *JoinOn {
	return &JoinOn{from: f, kind: LeftJoin, src: src}
}

// CrossJoin joins src without predicate.
func (f *SelectFrom) CrossJoin(src *schema.Descriptor) *SelectFrom {
	s := f.s.clone()
	s.n.Joins = with(s.n.Joins, Join{Kind: CrossJoin, Source: src})
	return &SelectFrom{stage{s}}
}

// On sets the join predicate.
func (j *JoinOn) On(pred expr.Expr) *SelectFrom {
	s := j.from.s.clone()
	s.n.Joins = with(s.n.Joins, Join{Kind: j.kind, Source: j.src, On: pred})
	return &SelectFrom{stage{s}}
}

// Where sets the filter of the statement.
func (f *SelectFrom) Where(pred expr.Expr) *SelectWhere {
	s := f.s.clone()
	s.n.Where = pred
	return &SelectWhere{stage{s}}
}

// GroupBy groups rows by the given keys.
func (f *SelectFrom) GroupBy(keys ...expr.Expr) *SelectGrouped {
	return groupBy(f.s, keys)
}

// SelectWhere is the stage after Where.
type SelectWhere struct{ stage }

// And narrows the filter.
func (w *SelectWhere) And(pred expr.Expr) *SelectWhere {
	s := w.s.clone()
	s.n.Where = expr.And(s.n.Where, pred)
	return &SelectWhere{stage{s}}
}

// Or widens the filter.
func (w *SelectWhere) Or(pred expr.Expr) *SelectWhere {
	s := w.s.clone()
	s.n.Where = expr.Or(s.n.Where, pred)
	return &SelectWhere{stage{s}}
}

// GroupBy groups rows by the given keys.
func (w *SelectWhere) GroupBy(keys ...expr.Expr) *SelectGrouped {
	return groupBy(w.s, keys)
}

func groupBy(s *SelectStmt, keys []expr.Expr) *SelectGrouped {
	s = s.clone()
	s.n.GroupBy = slices.Clone(keys)
	return &SelectGrouped{stage{s}}
}

// SelectGrouped is the stage after GroupBy.
type SelectGrouped struct{ stage }

// Having filters groups.
func (g *SelectGrouped) Having(pred expr.Expr) *SelectHaving {
	s := g.s.clone()
	s.n.Having = pred
	return &SelectHaving{stage{s}}
}

// SelectHaving is the stage after Having.
type SelectHaving struct{ stage }

// And narrows the group filter.
func (h *SelectHaving) And(pred expr.Expr) *SelectHaving {
	s := h.s.clone()
	s.n.Having = expr.And(s.n.Having, pred)
	return &SelectHaving{stage{s}}
}

// Distinct removes duplicate rows.
func (s *SelectStmt) Distinct() *SelectStmt {
	c := s.clone()
	c.n.Distinct = true
	return c
}

// OrderBy appends an ascending ordering term.
func (s *SelectStmt) OrderBy(e expr.Expr) *SelectStmt {
	c := s.clone()
	c.n.Order = with(c.n.Order, Order{Expr: e})
	return c
}

// OrderByDesc appends a descending ordering term.
func (s *SelectStmt) OrderByDesc(e expr.Expr) *SelectStmt {
	c := s.clone()
	c.n.Order = with(c.n.Order, Order{Expr: e, Desc: true})
	return c
}

// Limit sets the maximum number of rows.
func (s *SelectStmt) Limit(n int) *SelectStmt {
	c := s.clone()
	c.n.Paging.Limit = &n
	return c
}

// Offset sets the number of rows to skip.
func (s *SelectStmt) Offset(n int) *SelectStmt {
	c := s.clone()
	c.n.Paging.Offset = &n
	return c
}

// Union combines the rows of s and o without duplicates.
func (s *SelectStmt) Union(o *SelectStmt) *CompoundStmt { return compound(s, Union, o) }

// UnionAll combines the rows of s and o.
func (s *SelectStmt) UnionAll(o *SelectStmt) *CompoundStmt { return compound(s, UnionAll, o) }

// Intersect keeps the rows present in both s and o.
func (s *SelectStmt) Intersect(o *SelectStmt) *CompoundStmt { return compound(s, Intersect, o) }

// Except keeps the rows of s missing from o.
func (s *SelectStmt) Except(o *SelectStmt) *CompoundStmt { return compound(s, Except, o) }

// AsValue embeds a single-value statement as a scalar subquery.
func (s *SelectStmt) AsValue() *expr.Subquery { return asValue(s) }

// Exists embeds the statement as an EXISTS predicate.
func (s *SelectStmt) Exists() *expr.Subquery { return exists(s) }

// AsArray embeds the statement as an aggregated array value: all of its
// rows collapsed into one array on the outer row.
func (s *SelectStmt) AsArray() *expr.Subquery { return asArray(s) }

// As returns a derived table over the statement. It panics if the alias
// is empty or field names collide.
func (s *SelectStmt) As(alias string) *schema.Descriptor { return derived(alias, s) }

// Fields returns the projection.
func (s *SelectStmt) Fields() []expr.Field { return s.n.Fields }

// SingleColumn reports if the statement was ended with SelectOne.
func (s *SelectStmt) SingleColumn() bool { return s.n.Single }

// Node returns the statement tree. It must not be modified.
func (s *SelectStmt) Node() SelectNode { return s.n }

func (*SelectStmt) selectable() {}

func asValue(s Selectable) *expr.Subquery {
	return &expr.Subquery{Stmt: s, Mode: expr.SubqueryScalar}
}

func exists(s Selectable) *expr.Subquery {
	return &expr.Subquery{Stmt: s, Mode: expr.SubqueryExists}
}

func asArray(s Selectable) *expr.Subquery {
	return &expr.Subquery{Stmt: s, Mode: expr.SubqueryArray}
}

func derived(alias string, s Selectable) *schema.Descriptor {
	d, err := schema.NewDerived(alias, s)
	if err != nil {
		panic(err)
	}
	return d
}
