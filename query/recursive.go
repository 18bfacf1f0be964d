package query

import (
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema"
)

// RecursiveStmt is a recursive query: an anchor select unioned with a
// branch that joins the rows found so far, through a self-handle, until
// no new rows appear.
type RecursiveStmt struct {
	n    RecursiveNode
	errs []error
}

// RecursiveUnionAll turns s into the anchor of a recursive query. The
// branch callback receives the self-handle, whose columns are the anchor's
// fields, and must return a select joining it exactly once.
//
//	query.From(Company).
//	    Where(expr.EQ(Company.C("id"), 10)).
//	    Select(fields...).
//	    RecursiveUnionAll(func(child *schema.Descriptor) *query.SelectStmt {
//	        return query.From(Company).
//	            Join(child).On(expr.EQ(child.C("parent_id"), Company.C("id"))).
//	            Select(fields...)
//	    })
func (s *SelectStmt) RecursiveUnionAll(branch func(child *schema.Descriptor) *SelectStmt) *RecursiveStmt {
	return recursive(s, false, branch)
}

// RecursiveUnion is RecursiveUnionAll with duplicate rows removed.
func (s *SelectStmt) RecursiveUnion(branch func(child *schema.Descriptor) *SelectStmt) *RecursiveStmt {
	return recursive(s, true, branch)
}

// RecursiveUnionAllOn builds the branch from the anchor itself: the same
// sources and fields, without the anchor filter, joined with the
// self-handle on the returned predicate.
func (s *SelectStmt) RecursiveUnionAllOn(on func(child *schema.Descriptor) expr.Expr) *RecursiveStmt {
	return recursive(s, false, branchOn(s, on))
}

// RecursiveUnionOn is RecursiveUnionAllOn with duplicate rows removed.
func (s *SelectStmt) RecursiveUnionOn(on func(child *schema.Descriptor) expr.Expr) *RecursiveStmt {
	return recursive(s, true, branchOn(s, on))
}

func branchOn(s *SelectStmt, on func(child *schema.Descriptor) expr.Expr) func(*schema.Descriptor) *SelectStmt {
	return func(child *schema.Descriptor) *SelectStmt {
		b := &SelectStmt{n: SelectNode{From: s.n.From, Joins: s.n.Joins, Fields: s.n.Fields, Single: s.n.Single}}
		return (&SelectFrom{stage{b}}).Join(child).On(on(child)).Select(s.n.Fields...)
	}
}

func recursive(s *SelectStmt, distinct bool, branch func(*schema.Descriptor) *SelectStmt) *RecursiveStmt {
	r := &RecursiveStmt{n: RecursiveNode{Anchor: s, Distinct: distinct}}
	h, err := schema.NewCTE(s.n.Fields)
	if err != nil {
		r.errs = append(r.errs, err)
		return r
	}
	r.n.Handle = h
	r.n.Branch = branch(h)
	return r
}

// RecursiveFromSeeds builds the batched form of a hierarchy fetch: one
// recursive query walking from every seed at once. The anchor selects the
// rows of src whose key is one of seeds, and link joins src to the rows
// found so far. Every row carries the seed it originates from in an extra
// field named tag, so results can be regrouped per seed.
func RecursiveFromSeeds[T any](src *schema.Descriptor, key expr.Expr, seeds []T, fields []expr.Field, tag string, link func(child *schema.Descriptor) expr.Expr) *RecursiveStmt {
	anchor := From(src).
		Where(expr.In(key, seeds...)).
		Select(with(fields, expr.F(tag, key))...)
	return anchor.RecursiveUnionAll(func(child *schema.Descriptor) *SelectStmt {
		return From(src).
			Join(child).On(link(child)).
			Select(with(fields, expr.F(tag, child.C(tag)))...)
	})
}

// OrderBy appends an ascending ordering term over a projected field.
func (r *RecursiveStmt) OrderBy(e expr.Expr) *RecursiveStmt {
	c := *r
	c.n.Order = with(c.n.Order, Order{Expr: e})
	return &c
}

// OrderByDesc appends a descending ordering term over a projected field.
func (r *RecursiveStmt) OrderByDesc(e expr.Expr) *RecursiveStmt {
	c := *r
	c.n.Order = with(c.n.Order, Order{Expr: e, Desc: true})
	return &c
}

// Limit sets the maximum number of rows.
func (r *RecursiveStmt) Limit(v int) *RecursiveStmt {
	c := *r
	c.n.Paging.Limit = &v
	return &c
}

// Offset sets the number of rows to skip.
func (r *RecursiveStmt) Offset(v int) *RecursiveStmt {
	c := *r
	c.n.Paging.Offset = &v
	return &c
}

// AsValue embeds the statement as a scalar subquery.
func (r *RecursiveStmt) AsValue() *expr.Subquery { return asValue(r) }

// Exists embeds the statement as an EXISTS predicate.
func (r *RecursiveStmt) Exists() *expr.Subquery { return exists(r) }

// AsArray embeds the statement as an aggregated array value.
func (r *RecursiveStmt) AsArray() *expr.Subquery { return asArray(r) }

// As returns a derived table over the statement.
func (r *RecursiveStmt) As(alias string) *schema.Descriptor { return derived(alias, r) }

// Fields returns the anchor's projection.
func (r *RecursiveStmt) Fields() []expr.Field { return r.n.Anchor.Fields() }

// SingleColumn reports if the anchor was ended with SelectOne.
func (r *RecursiveStmt) SingleColumn() bool { return r.n.Anchor.SingleColumn() }

// Node returns the statement tree. It must not be modified.
func (r *RecursiveStmt) Node() RecursiveNode { return r.n }

func (*RecursiveStmt) selectable() {}
