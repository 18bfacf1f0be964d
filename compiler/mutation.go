package compiler

import (
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/query"
	"github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/field"
)

func (b *builder) insert(n query.InsertNode, q *Query) {
	t := n.Table
	q.Rows = len(n.Rows)
	ignore := n.Conflict != nil && n.Conflict.DoNothing && b.caps.Upsert == dialect.UpsertOnDuplicateKey
	b.WriteString("INSERT ")
	if ignore {
		b.WriteString("IGNORE ")
	}
	b.WriteString("INTO ")
	b.ident(t.Name())
	switch {
	case n.DefaultValues:
		q.Rows = 1
		if b.caps.DefaultValues != "" {
			b.WriteString(" " + b.caps.DefaultValues)
		} else {
			b.WriteString(" DEFAULT VALUES")
		}
	case n.From != nil:
		b.WriteByte(' ')
		b.columnNames(n.Columns)
		b.WriteByte(' ')
		b.selectable(n.From)
	default:
		b.WriteByte(' ')
		b.columnNames(n.Columns)
		b.WriteString(" VALUES ")
		for i, row := range n.Rows {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('(')
			for j, v := range row {
				if j > 0 {
					b.WriteString(", ")
				}
				b.insertValue(t, n.Columns[j], v)
			}
			b.WriteByte(')')
		}
	}
	if n.Conflict != nil && !ignore {
		b.conflict(t, n.Conflict)
	}
	b.returning(t, n.Returning, q)
}

// columnNames writes a parenthesized column name list.
func (b *builder) columnNames(cols []string) {
	b.WriteByte('(')
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.ident(c)
	}
	b.WriteByte(')')
}

// insertValue writes one value of an insert row. A nil value stands for
// the column default.
func (b *builder) insertValue(t *schema.Descriptor, col string, v expr.Expr) {
	if v != nil {
		b.hinted(v, t.C(col))
		return
	}
	switch def, _ := t.Def(col); {
	case b.caps.SupportsDefaultKeyword:
		b.WriteString("DEFAULT")
	case def.Nullable:
		b.WriteString("NULL")
	default:
		b.unsupported("DEFAULT in insert rows")
	}
}

func (b *builder) conflict(t *schema.Descriptor, c *query.Conflict) {
	switch b.caps.Upsert {
	case dialect.UpsertOnConflict:
		b.WriteString(" ON CONFLICT ")
		if len(c.Columns) > 0 {
			b.columnNames(c.Columns)
			b.WriteByte(' ')
		}
		if c.DoNothing {
			b.WriteString("DO NOTHING")
			return
		}
		b.WriteString("DO UPDATE SET ")
		b.upsertSet(t, c, func(col string) {
			b.WriteString("EXCLUDED.")
			b.ident(col)
		})
	case dialect.UpsertOnDuplicateKey:
		b.WriteString(" ON DUPLICATE KEY UPDATE ")
		b.upsertSet(t, c, func(col string) {
			b.WriteString("VALUES(")
			b.ident(col)
			b.WriteByte(')')
		})
	default:
		b.unsupported("upsert")
	}
}

func (b *builder) upsertSet(t *schema.Descriptor, c *query.Conflict, proposed func(col string)) {
	for i, a := range c.Set {
		if i > 0 {
			b.WriteString(", ")
		}
		b.ident(a.Column)
		b.WriteString(" = ")
		b.hinted(a.Value, t.C(a.Column))
	}
	for i, col := range c.FromInsert {
		if i > 0 || len(c.Set) > 0 {
			b.WriteString(", ")
		}
		b.ident(col)
		b.WriteString(" = ")
		proposed(col)
	}
}

func (b *builder) update(n query.UpdateNode, q *Query) {
	t := n.Table
	if len(n.From) > 0 && b.caps.UpdateFrom == dialect.UpdateFromNone {
		b.unsupported("update with additional sources")
		return
	}
	multi := len(n.From) > 0 && b.caps.UpdateFrom == dialect.UpdateMultiTable
	b.WriteString("UPDATE ")
	b.source(t)
	if multi {
		for _, src := range n.From {
			b.WriteString(", ")
			b.source(src)
		}
	}
	b.WriteString(" SET ")
	for i, a := range n.Set {
		if i > 0 {
			b.WriteString(", ")
		}
		if multi {
			b.ident(t.Ref())
			b.WriteByte('.')
		}
		b.ident(a.Column)
		b.WriteString(" = ")
		b.hinted(a.Value, t.C(a.Column))
	}
	if len(n.From) > 0 && !multi {
		b.WriteString(" FROM ")
		for i, src := range n.From {
			if i > 0 {
				b.WriteString(", ")
			}
			b.source(src)
		}
	}
	if n.Where != nil {
		b.WriteString(" WHERE ")
		b.pred(n.Where)
	}
	b.returning(t, n.Returning, q)
}

func (b *builder) delete(n query.DeleteNode, q *Query) {
	t := n.Table
	b.WriteString("DELETE FROM ")
	b.source(t)
	if len(n.Using) > 0 {
		if !b.caps.DeleteUsing {
			b.unsupported("delete with additional sources")
			return
		}
		b.WriteString(" USING ")
		for i, src := range n.Using {
			if i > 0 {
				b.WriteString(", ")
			}
			b.source(src)
		}
	}
	if n.Where != nil {
		b.WriteString(" WHERE ")
		b.pred(n.Where)
	}
	b.returning(t, n.Returning, q)
}

// returning writes the returning clause of a mutation. Generated ids fall
// back to the driver's last insert id where RETURNING is unavailable.
func (b *builder) returning(t *schema.Descriptor, r query.Returning, q *Query) {
	switch r.Kind {
	case query.ReturnNone:
		return
	case query.ReturnLastID:
		if !b.caps.SupportsReturning {
			q.IDs = IDsFromLastInsertID
			return
		}
		id := autoID(t)
		q.IDs = IDsFromReturning
		q.Shape = &Shape{Single: true, Fields: []ShapeField{{Name: "result", Type: id.Type}}}
		b.WriteString(" RETURNING ")
		b.ident(id.Name)
		return
	}
	if !b.caps.SupportsReturning {
		b.unsupported("returning")
		return
	}
	saved := b.bare
	b.bare = t
	b.WriteString(" RETURNING ")
	b.fields(r.Fields)
	b.bare = saved
	q.Shape = shapeOf(r.Fields, r.Kind == query.ReturnOne)
}

func autoID(t *schema.Descriptor) schema.ColumnDef {
	for _, d := range t.Defs() {
		if d.Role == field.RoleAutogeneratedPrimaryKey {
			return d
		}
	}
	return schema.ColumnDef{}
}
