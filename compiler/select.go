package compiler

import (
	"fmt"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/query"
)

// top writes a statement compiled on its own. A recursive query moves its
// entry into the leading WITH next to the hoisted value sets.
func (b *builder) top(s query.Selectable) {
	r, ok := s.(*query.RecursiveStmt)
	if !ok {
		b.selectable(s)
		return
	}
	n := r.Node()
	b.entries = append(b.entries, b.recursiveEntry(n))
	b.withRecursive = true
	b.recursiveTail(n)
}

func (b *builder) selectable(s query.Selectable) {
	switch s := s.(type) {
	case *query.SelectStmt:
		b.selectNode(s.Node())
	case *query.CompoundStmt:
		b.compound(s.Node())
	case *query.RecursiveStmt:
		b.recursive(s.Node())
	default:
		b.fail(fmt.Errorf("compiler: unexpected statement %T", s))
	}
}

func (b *builder) selectNode(n query.SelectNode) {
	b.WriteString("SELECT ")
	if n.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.fields(n.Fields)
	switch {
	case len(n.From) > 0:
		b.WriteString(" FROM ")
		for i, src := range n.From {
			if i > 0 {
				b.WriteString(", ")
			}
			b.source(src)
		}
	case b.caps.DummyTable != "":
		b.WriteString(" FROM " + b.caps.DummyTable)
	}
	for _, j := range n.Joins {
		switch j.Kind {
		case query.LeftJoin:
			b.WriteString(" LEFT JOIN ")
		case query.CrossJoin:
			b.WriteString(" CROSS JOIN ")
		default:
			b.WriteString(" INNER JOIN ")
		}
		b.source(j.Source)
		if j.Kind != query.CrossJoin {
			b.WriteString(" ON ")
			b.pred(j.On)
		}
	}
	if n.Where != nil {
		b.WriteString(" WHERE ")
		b.pred(n.Where)
	}
	if len(n.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, k := range n.GroupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			b.value(k)
		}
	}
	if n.Having != nil {
		b.WriteString(" HAVING ")
		b.pred(n.Having)
	}
	if len(n.Order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range n.Order {
			if i > 0 {
				b.WriteString(", ")
			}
			b.value(o.Expr)
			if o.Desc {
				b.WriteString(" DESC")
			}
		}
	}
	b.paging(n.Paging, len(n.Order) > 0)
}

// fields writes a projection list.
func (b *builder) fields(fs []expr.Field) {
	for i, f := range fs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.value(f.Expr)
		b.WriteString(" AS ")
		b.ident(f.Name)
	}
}

func (b *builder) compound(n query.CompoundNode) {
	for i, m := range n.Members {
		if i > 0 {
			b.WriteString(" " + n.Ops[i-1].String() + " ")
		}
		b.selectNode(m.Node())
	}
	b.orderByName(n.Order, n.Members[0].Fields())
	b.paging(n.Paging, len(n.Order) > 0)
}

// orderByName writes the ordering of a set operation or recursive query,
// whose terms refer to projected fields by name.
func (b *builder) orderByName(order []query.Order, fields []expr.Field) {
	if len(order) == 0 {
		return
	}
	b.WriteString(" ORDER BY ")
	for i, o := range order {
		if i > 0 {
			b.WriteString(", ")
		}
		j := query.FieldIndex(fields, o.Expr)
		if j < 0 {
			b.fail(fmt.Errorf("compiler: order term is not a projected field"))
			return
		}
		b.ident(fields[j].Name)
		if o.Desc {
			b.WriteString(" DESC")
		}
	}
}

func (b *builder) paging(p query.Paging, ordered bool) {
	if p.Limit == nil && p.Offset == nil {
		return
	}
	if b.caps.Paging == dialect.OffsetFetch {
		if !ordered && b.caps.PagingNeedsOrder {
			b.WriteString(" ORDER BY (SELECT NULL)")
		}
		b.WriteString(" OFFSET ")
		offset := 0
		if p.Offset != nil {
			offset = *p.Offset
		}
		b.intParam(offset)
		b.WriteString(" ROWS")
		if p.Limit != nil {
			b.WriteString(" FETCH NEXT ")
			b.intParam(*p.Limit)
			b.WriteString(" ROWS ONLY")
		}
		return
	}
	switch {
	case p.Limit != nil:
		b.WriteString(" LIMIT ")
		b.intParam(*p.Limit)
	case b.caps.OffsetOnlyLimit != "":
		b.WriteString(" LIMIT " + b.caps.OffsetOnlyLimit)
	}
	if p.Offset != nil {
		b.WriteString(" OFFSET ")
		b.intParam(*p.Offset)
	}
}

// recursive writes a recursive query nested in another statement.
func (b *builder) recursive(n query.RecursiveNode) {
	entry := b.recursiveEntry(n)
	b.WriteString("WITH ")
	if b.caps.RecursiveKeyword {
		b.WriteString("RECURSIVE ")
	}
	b.join(entry)
	b.WriteByte(' ')
	b.recursiveTail(n)
}

// recursiveEntry renders "recursive_n"("a", "b") AS (anchor UNION ALL branch).
func (b *builder) recursiveEntry(n query.RecursiveNode) *builder {
	e := b.sub()
	if !b.caps.SupportsRecursiveCTE {
		b.unsupported("recursive queries")
		return e
	}
	name := b.nextName("recursive")
	b.names[n.Handle] = name
	e.ident(name)
	e.columnList(n.Handle.Defs())
	e.WriteString(" AS (")
	e.selectNode(n.Anchor.Node())
	if n.Distinct {
		e.WriteString(" UNION ")
	} else {
		e.WriteString(" UNION ALL ")
	}
	e.selectNode(n.Branch.Node())
	e.WriteByte(')')
	return e
}

// recursiveTail selects the rows of a registered recursive entry.
func (b *builder) recursiveTail(n query.RecursiveNode) {
	fields := n.Anchor.Fields()
	b.WriteString("SELECT ")
	for i, f := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.ident(f.Name)
	}
	b.WriteString(" FROM ")
	b.ident(b.refName(n.Handle))
	b.orderByName(n.Order, fields)
	b.paging(n.Paging, len(n.Order) > 0)
}
