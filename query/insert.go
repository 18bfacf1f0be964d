package query

import (
	"maps"
	"slices"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema"
)

// InsertBuilder is an insert waiting for its rows.
type InsertBuilder struct {
	table *schema.Descriptor
}

// InsertInto starts an insert into t.
func InsertInto(t *schema.Descriptor) *InsertBuilder {
	return &InsertBuilder{table: t}
}

// InsertStmt is a complete insert statement.
type InsertStmt struct {
	n    InsertNode
	errs []error
}

// Values inserts one row.
func (b *InsertBuilder) Values(v Values) *InsertStmt {
	return b.ValuesMany([]Values{v})
}

// ValuesMany inserts several rows with one statement. Columns are written
// in declaration order; a column missing from some rows takes its default
// there.
func (b *InsertBuilder) ValuesMany(vs []Values) *InsertStmt {
	s := &InsertStmt{n: InsertNode{Table: b.table}}
	if len(vs) == 0 {
		s.errs = append(s.errs, quarry.Validationf("insert", "%s: no rows", b.table.Ref()))
		return s
	}
	present := make(map[string]bool)
	for _, v := range vs {
		for _, name := range slices.Sorted(maps.Keys(v)) {
			if _, ok := b.table.Def(name); !ok {
				s.errs = append(s.errs, quarry.Validationf("insert", "%s has no column %q", b.table.Ref(), name))
				continue
			}
			present[name] = true
		}
	}
	for _, d := range b.table.Defs() {
		if present[d.Name] {
			s.n.Columns = append(s.n.Columns, d.Name)
		}
	}
	for _, v := range vs {
		row := make([]expr.Expr, len(s.n.Columns))
		for i, name := range s.n.Columns {
			if x, ok := v[name]; ok {
				row[i] = columnValue(b.table, name, x)
			}
		}
		s.n.Rows = append(s.n.Rows, row)
	}
	return s
}

// DefaultValues inserts one row made of column defaults.
func (b *InsertBuilder) DefaultValues() *InsertStmt {
	return &InsertStmt{n: InsertNode{Table: b.table, DefaultValues: true}}
}

// FromSelect inserts the rows of a select. Field names are the target
// columns.
func (b *InsertBuilder) FromSelect(src Selectable) *InsertStmt {
	s := &InsertStmt{n: InsertNode{Table: b.table, From: src}}
	for _, f := range src.Fields() {
		s.n.Columns = append(s.n.Columns, f.Name)
	}
	return s
}

// columnValue wraps a host value as a literal of the column's category.
func columnValue(t *schema.Descriptor, name string, v any) expr.Expr {
	if e, ok := v.(expr.Expr); ok {
		return e
	}
	d, _ := t.Def(name)
	if v == nil {
		return expr.Null(d.Type)
	}
	return expr.Const(v, d.Type)
}

func (s *InsertStmt) clone() *InsertStmt {
	c := *s
	return &c
}

// ReturningLastInsertedID makes the insert return the generated ids of the
// inserted rows, in insertion order. Dialects without RETURNING fall back
// to the driver's last insert id.
func (s *InsertStmt) ReturningLastInsertedID() *InsertStmt {
	c := s.clone()
	c.n.Returning = Returning{Kind: ReturnLastID}
	return c
}

// Returning makes the insert return objects built from fields of the
// inserted rows.
func (s *InsertStmt) Returning(fields ...expr.Field) *InsertStmt {
	c := s.clone()
	c.n.Returning = Returning{Kind: ReturnFields, Fields: slices.Clone(fields)}
	return c
}

// ReturningOne makes the insert return one value per inserted row.
func (s *InsertStmt) ReturningOne(e expr.Expr) *InsertStmt {
	c := s.clone()
	c.n.Returning = Returning{Kind: ReturnOne, Fields: []expr.Field{expr.F("result", e)}}
	return c
}

// OnConflictDoNothing ignores rows conflicting on the given columns, or on
// any unique constraint when no column is given.
func (s *InsertStmt) OnConflictDoNothing(cols ...string) *InsertStmt {
	c := s.clone()
	c.n.Conflict = &Conflict{Columns: cols, DoNothing: true}
	return c
}

// ConflictBuilder is an upsert waiting for its update.
type ConflictBuilder struct {
	s    *InsertStmt
	cols []string
}

// OnConflict starts an upsert on the given conflict columns.
func (s *InsertStmt) OnConflict(cols ...string) *ConflictBuilder {
	return &ConflictBuilder{s: s, cols: cols}
}

// DoUpdate updates conflicting rows with the given values.
func (b *ConflictBuilder) DoUpdate(v Values) *InsertStmt {
	c := b.s.clone()
	c.n.Conflict = &Conflict{Columns: b.cols, Set: assignments(b.s.n.Table, v)}
	return c
}

// DoUpdateFromInsert updates the given columns of conflicting rows with the
// values the insert proposed.
func (b *ConflictBuilder) DoUpdateFromInsert(cols ...string) *InsertStmt {
	c := b.s.clone()
	c.n.Conflict = &Conflict{Columns: b.cols, FromInsert: cols}
	return c
}

func assignments(t *schema.Descriptor, v Values) []Assignment {
	var as []Assignment
	for _, name := range slices.Sorted(maps.Keys(v)) {
		var val expr.Expr
		if _, ok := t.Def(name); ok {
			val = columnValue(t, name, v[name])
		}
		as = append(as, Assignment{Column: name, Value: val})
	}
	// Declaration order keeps the SQL independent from map iteration.
	slices.SortStableFunc(as, func(a, b Assignment) int {
		return columnIndex(t, a.Column) - columnIndex(t, b.Column)
	})
	return as
}

func columnIndex(t *schema.Descriptor, name string) int {
	for i, d := range t.Defs() {
		if d.Name == name {
			return i
		}
	}
	return len(t.Defs())
}

// Node returns the statement tree. It must not be modified.
func (s *InsertStmt) Node() InsertNode { return s.n }
