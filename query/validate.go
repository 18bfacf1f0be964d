package query

import (
	"github.com/syssam/quarry"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/field"
)

// checker collects the validation errors of one statement.
type checker struct {
	op   string
	errs []error
}

func (c *checker) addf(format string, args ...any) {
	c.errs = append(c.errs, quarry.Validationf(c.op, format, args...))
}

func (c *checker) add(err error) {
	if err != nil {
		c.errs = append(c.errs, err)
	}
}

func (c *checker) err() error {
	return quarry.NewAggregateError(c.errs...)
}

// expr type checks e and validates the statements embedded in it.
func (c *checker) expr(e expr.Expr) {
	if e == nil {
		c.addf("missing expression")
		return
	}
	c.add(expr.Check(e))
	expr.Walk(e, func(n expr.Expr) bool {
		if sq, ok := n.(*expr.Subquery); ok {
			if st, ok := sq.Stmt.(Statement); ok {
				c.add(st.Validate())
			}
		}
		return true
	})
}

func (c *checker) pred(clause string, e expr.Expr) {
	if e == nil {
		c.addf("%s: missing predicate", clause)
		return
	}
	c.expr(e)
	if t := e.Type(); t != field.TypeBool {
		c.addf("%s: predicate of category %s", clause, t)
	}
}

func (c *checker) fields(fs []expr.Field) {
	if len(fs) == 0 {
		c.addf("empty projection")
	}
	seen := make(map[string]bool, len(fs))
	for _, f := range fs {
		switch {
		case f.Name == "":
			c.addf("unnamed field")
		case seen[f.Name]:
			c.addf("duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		c.expr(f.Expr)
	}
}

func (c *checker) sources(srcs []*schema.Descriptor) {
	seen := make(map[*schema.Descriptor]bool, len(srcs))
	for _, s := range srcs {
		switch {
		case s == nil:
			c.addf("nil source")
			continue
		case seen[s]:
			c.addf("%s is used twice; declare an aliased instance with As", s.Ref())
		}
		seen[s] = true
		if st, ok := s.Statement().(Statement); ok {
			c.add(st.Validate())
		}
	}
}

func (c *checker) paging(p Paging) {
	if p.Limit != nil && *p.Limit < 0 {
		c.addf("negative limit %d", *p.Limit)
	}
	if p.Offset != nil && *p.Offset < 0 {
		c.addf("negative offset %d", *p.Offset)
	}
}

// Validate checks the statement tree.
func (s *SelectStmt) Validate() error {
	c := &checker{op: "select", errs: append([]error(nil), s.errs...)}
	n := s.n
	srcs := append([]*schema.Descriptor(nil), n.From...)
	for _, j := range n.Joins {
		srcs = append(srcs, j.Source)
		if j.Kind != CrossJoin {
			c.pred("join", j.On)
		}
	}
	c.sources(srcs)
	if n.Where != nil {
		c.pred("where", n.Where)
		if expr.IsAggregate(n.Where) {
			c.addf("where: aggregates are only allowed in having and the projection")
		}
	}
	c.fields(n.Fields)
	for _, g := range n.GroupBy {
		c.expr(g)
		if g != nil && expr.IsAggregate(g) {
			c.addf("group by: aggregate key")
		}
	}
	if n.Having != nil {
		c.pred("having", n.Having)
	}
	for _, o := range n.Order {
		c.expr(o.Expr)
	}
	c.paging(n.Paging)
	if s.grouped() {
		keys := make(map[string]bool, len(n.GroupBy))
		for _, g := range n.GroupBy {
			if g != nil {
				keys[expr.Key(g)] = true
			}
		}
		for _, f := range n.Fields {
			if f.Expr != nil && !groupedOK(f.Expr, keys) {
				c.addf("field %q is neither aggregated nor a grouping key", f.Name)
			}
		}
		for _, o := range n.Order {
			if o.Expr != nil && !groupedOK(o.Expr, keys) {
				c.addf("order by: term is neither aggregated nor a grouping key")
			}
		}
	}
	return c.err()
}

func (s *SelectStmt) grouped() bool {
	if len(s.n.GroupBy) > 0 || s.n.Having != nil {
		return true
	}
	for _, f := range s.n.Fields {
		if f.Expr != nil && expr.IsAggregate(f.Expr) {
			return true
		}
	}
	return false
}

// groupedOK reports if e has a single value per group: it is a grouping
// key, an aggregate, a constant, or built only from such expressions.
func groupedOK(e expr.Expr, keys map[string]bool) bool {
	if keys[expr.Key(e)] {
		return true
	}
	switch n := e.(type) {
	case *expr.Aggregate, *expr.ArrayAgg, *expr.Literal, *expr.Subquery:
		return true
	case *expr.Unary:
		return groupedOK(n.X, keys)
	case *expr.Binary:
		return groupedOK(n.X, keys) && groupedOK(n.Y, keys)
	case *expr.Func:
		for _, a := range n.Args {
			if !groupedOK(a, keys) {
				return false
			}
		}
		return true
	case *expr.List:
		for _, a := range n.Items {
			if !groupedOK(a, keys) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// sameShape reports the differences between the projection of a member
// and the projection it must match.
func sameShape(c *checker, what string, want, got []expr.Field) {
	if len(want) != len(got) {
		c.addf("%s projects %d fields, want %d", what, len(got), len(want))
		return
	}
	for i := range want {
		if want[i].Name != got[i].Name {
			c.addf("%s field %d is %q, want %q", what, i, got[i].Name, want[i].Name)
			continue
		}
		if want[i].Expr == nil || got[i].Expr == nil {
			continue
		}
		if !field.Comparable(want[i].Expr.Type(), got[i].Expr.Type()) && want[i].Expr.Type() != got[i].Expr.Type() {
			c.addf("%s field %q is %s, want %s", what, got[i].Name, got[i].Expr.Type(), want[i].Expr.Type())
		}
	}
}

// projected checks that ordering terms of a set operation or recursive
// query name projected fields.
func projected(c *checker, order []Order, fields []expr.Field) {
	for _, o := range order {
		if o.Expr == nil {
			c.addf("order by: missing expression")
			continue
		}
		if FieldIndex(fields, o.Expr) < 0 {
			c.addf("order by: term is not a projected field")
		}
	}
}

// FieldIndex returns the index of the field whose expression is
// structurally equal to e, or -1.
func FieldIndex(fields []expr.Field, e expr.Expr) int {
	k := expr.Key(e)
	for i, f := range fields {
		if f.Expr != nil && expr.Key(f.Expr) == k {
			return i
		}
	}
	return -1
}

// Validate checks the statement tree.
func (s *CompoundStmt) Validate() error {
	c := &checker{op: "set operation"}
	first := s.n.Members[0]
	for i, m := range s.n.Members {
		c.add(m.Validate())
		if len(m.n.Order) > 0 || m.n.Paging.set() {
			c.addf("member %d is ordered or paged; order the combined statement instead", i)
		}
		if i > 0 {
			sameShape(c, "member", first.Fields(), m.Fields())
		}
	}
	projected(c, s.n.Order, first.Fields())
	c.paging(s.n.Paging)
	return c.err()
}

// Validate checks the statement tree.
func (r *RecursiveStmt) Validate() error {
	c := &checker{op: "recursive query", errs: append([]error(nil), r.errs...)}
	n := r.n
	c.add(n.Anchor.Validate())
	if len(n.Anchor.n.Order) > 0 || n.Anchor.n.Paging.set() {
		c.addf("anchor is ordered or paged")
	}
	if n.Handle == nil {
		return c.err()
	}
	if refs := references(n.Anchor, n.Handle); refs > 0 {
		c.addf("anchor references the recursive self-handle")
	}
	if n.Branch == nil {
		c.addf("missing recursive branch")
		return c.err()
	}
	c.add(n.Branch.Validate())
	if len(n.Branch.n.Order) > 0 || n.Branch.n.Paging.set() {
		c.addf("recursive branch is ordered or paged")
	}
	switch refs := references(n.Branch, n.Handle); refs {
	case 1:
	case 0:
		c.addf("recursive branch does not reference the self-handle")
	default:
		c.addf("recursive branch references the self-handle %d times, want 1", refs)
	}
	sameShape(c, "recursive branch", n.Anchor.Fields(), n.Branch.Fields())
	projected(c, n.Order, n.Anchor.Fields())
	c.paging(n.Paging)
	return c.err()
}

func references(s *SelectStmt, h *schema.Descriptor) int {
	refs := 0
	for _, src := range s.n.From {
		if src == h {
			refs++
		}
	}
	for _, j := range s.n.Joins {
		if j.Source == h {
			refs++
		}
	}
	return refs
}

// Validate checks the statement tree.
func (s *InsertStmt) Validate() error {
	c := &checker{op: "insert", errs: append([]error(nil), s.errs...)}
	n := s.n
	t := n.Table
	if !t.Mutable() {
		c.addf("%s is a %s", t.Ref(), t.Kind())
		return c.err()
	}
	provided := make(map[string]bool, len(n.Columns))
	for _, col := range n.Columns {
		if _, ok := t.Def(col); !ok {
			c.addf("%s has no column %q", t.Ref(), col)
		}
		provided[col] = true
	}
	for _, d := range t.Defs() {
		if d.Role.Required() && !provided[d.Name] {
			c.addf("missing value for required column %q", d.Name)
		}
	}
	for i, row := range n.Rows {
		for j, v := range row {
			d, _ := t.Def(n.Columns[j])
			if v == nil {
				if d.Role.Required() {
					c.addf("row %d: missing value for required column %q", i, d.Name)
				}
				continue
			}
			c.assign(t, d, v)
		}
	}
	if n.From != nil {
		c.add(n.From.Validate())
		for _, f := range n.From.Fields() {
			if d, ok := t.Def(f.Name); ok && f.Expr != nil {
				c.assign(t, d, f.Expr)
			}
		}
	}
	c.returning(t, n.Returning)
	if cf := n.Conflict; cf != nil {
		for _, col := range cf.Columns {
			if _, ok := t.Def(col); !ok {
				c.addf("on conflict: %s has no column %q", t.Ref(), col)
			}
		}
		for _, a := range cf.Set {
			c.assignment(t, a)
		}
		for _, col := range cf.FromInsert {
			if !provided[col] {
				c.addf("on conflict: column %q is not inserted", col)
			}
		}
		if !cf.DoNothing && len(cf.Set) == 0 && len(cf.FromInsert) == 0 {
			c.addf("on conflict: empty update")
		}
	}
	return c.err()
}

// assign checks a value written to a column.
func (c *checker) assign(t *schema.Descriptor, d schema.ColumnDef, v expr.Expr) {
	c.expr(v)
	if l, ok := v.(*expr.Literal); ok && l.Value == nil {
		if !d.Nullable {
			c.addf("column %q is not nullable", d.Name)
		}
		return
	}
	col, _ := t.Lookup(d.Name)
	c.add(expr.Check(expr.EQ(col, v)))
}

func (c *checker) assignment(t *schema.Descriptor, a Assignment) {
	d, ok := t.Def(a.Column)
	if !ok || a.Value == nil {
		c.addf("%s has no column %q", t.Ref(), a.Column)
		return
	}
	c.assign(t, d, a.Value)
}

func (c *checker) returning(t *schema.Descriptor, r Returning) {
	switch r.Kind {
	case ReturnLastID:
		for _, d := range t.Defs() {
			if d.Role == field.RoleAutogeneratedPrimaryKey {
				return
			}
		}
		c.addf("%s has no autogenerated primary key", t.Ref())
	case ReturnFields, ReturnOne:
		c.fields(r.Fields)
	}
}

// Validate checks the statement tree.
func (s *UpdateStmt) Validate() error {
	c := &checker{op: "update"}
	n := s.n
	t := n.Table
	if !t.Mutable() {
		c.addf("%s is a %s", t.Ref(), t.Kind())
		return c.err()
	}
	if len(n.Set) == 0 {
		c.addf("no assignments")
	}
	for _, a := range n.Set {
		c.assignment(t, a)
	}
	c.sources(append([]*schema.Descriptor{t}, n.From...))
	c.filter(n.Where, n.AllowNoWhere, "UpdateAllowingNoWhere")
	c.returning(t, n.Returning)
	return c.err()
}

// Validate checks the statement tree.
func (s *DeleteStmt) Validate() error {
	c := &checker{op: "delete"}
	n := s.n
	t := n.Table
	if !t.Mutable() {
		c.addf("%s is a %s", t.Ref(), t.Kind())
		return c.err()
	}
	c.sources(append([]*schema.Descriptor{t}, n.Using...))
	c.filter(n.Where, n.AllowNoWhere, "DeleteAllowingNoWhere")
	c.returning(t, n.Returning)
	return c.err()
}

func (c *checker) filter(where expr.Expr, allowNone bool, optIn string) {
	if where == nil {
		if !allowNone {
			c.addf("missing where clause; use %s to affect every row", optIn)
		}
		return
	}
	c.pred("where", where)
	if expr.IsAggregate(where) {
		c.addf("where: aggregate in filter")
	}
}
