package schema

import (
	"fmt"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema/field"
)

// Kind is the kind of relation a descriptor stands for.
type Kind uint8

// Descriptor kinds.
const (
	KindTable Kind = iota + 1
	KindView
	KindValues
	KindDerived
	KindCTE
)

func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindView:
		return "view"
	case KindValues:
		return "values"
	case KindDerived:
		return "derived"
	case KindCTE:
		return "cte"
	default:
		return "unknown"
	}
}

// ColumnDef declares a column.
type ColumnDef struct {
	Name     string
	Type     field.Type
	Role     field.Role
	Nullable bool
}

// Column declares a required, non-null column.
func Column(name string, t field.Type) ColumnDef {
	return ColumnDef{Name: name, Type: t, Role: field.RolePlain}
}

// Optional declares a nullable column that inserts may omit.
func Optional(name string, t field.Type) ColumnDef {
	return ColumnDef{Name: name, Type: t, Role: field.RoleOptional, Nullable: true}
}

// PrimaryKey declares a primary key column that inserts must provide.
func PrimaryKey(name string, t field.Type) ColumnDef {
	return ColumnDef{Name: name, Type: t, Role: field.RolePrimaryKey}
}

// AutoID declares a primary key generated by the database.
func AutoID(name string, t field.Type) ColumnDef {
	return ColumnDef{Name: name, Type: t, Role: field.RoleAutogeneratedPrimaryKey}
}

// WithDefault declares a non-null column with a database default.
func WithDefault(name string, t field.Type) ColumnDef {
	return ColumnDef{Name: name, Type: t, Role: field.RoleHasDefault}
}

// Option configures a descriptor.
type Option func(*Descriptor)

// WithUUIDStrategy sets how the uuid columns of the relation are stored.
// Without it the dialect default applies.
func WithUUIDStrategy(s dialect.UUIDStrategy) Option {
	return func(d *Descriptor) {
		d.uuid = s
	}
}

// Descriptor is an immutable relation: a table, view, inline value set,
// derived table or recursive self-handle. Column nodes returned by C are
// bound to the descriptor instance.
type Descriptor struct {
	kind  Kind
	name  string
	alias string
	uuid  dialect.UUIDStrategy
	defs  []ColumnDef
	cols  []expr.Expr
	index map[string]int
	rows  [][]any
	stmt  expr.Statement
}

// NewTable declares a table.
func NewTable(name string, cols []ColumnDef, opts ...Option) (*Descriptor, error) {
	return newDescriptor(KindTable, name, cols, opts)
}

// MustTable is like NewTable but panics on invalid declarations.
func MustTable(name string, cols []ColumnDef, opts ...Option) *Descriptor {
	d, err := NewTable(name, cols, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// NewView declares a view. Views can be selected from but not mutated.
func NewView(name string, cols []ColumnDef, opts ...Option) (*Descriptor, error) {
	return newDescriptor(KindView, name, cols, opts)
}

// MustView is like NewView but panics on invalid declarations.
func MustView(name string, cols []ColumnDef, opts ...Option) *Descriptor {
	d, err := NewView(name, cols, opts...)
	if err != nil {
		panic(err)
	}
	return d
}

// NewValues declares an inline value set. Statements using it compile it
// into a leading WITH entry.
func NewValues(name string, cols []ColumnDef, rows [][]any, opts ...Option) (*Descriptor, error) {
	if len(rows) == 0 {
		return nil, quarry.Validationf("values", "%s: no rows", name)
	}
	d, err := newDescriptor(KindValues, name, cols, opts)
	if err != nil {
		return nil, err
	}
	d.rows = make([][]any, len(rows))
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, quarry.Validationf("values", "%s: row %d has %d values, want %d", name, i, len(r), len(cols))
		}
		d.rows[i] = append([]any(nil), r...)
	}
	return d, nil
}

func newDescriptor(kind Kind, name string, cols []ColumnDef, opts []Option) (*Descriptor, error) {
	op := kind.String()
	if name == "" {
		return nil, quarry.Validationf(op, "missing name")
	}
	if len(cols) == 0 {
		return nil, quarry.Validationf(op, "%s: no columns", name)
	}
	autos := 0
	for _, c := range cols {
		if c.Name == "" {
			return nil, quarry.Validationf(op, "%s: column without name", name)
		}
		if !c.Type.Valid() || c.Type == field.TypeArray {
			return nil, quarry.Validationf(op, "%s.%s: invalid category %s", name, c.Name, c.Type)
		}
		if c.Role == field.RoleAutogeneratedPrimaryKey {
			autos++
		}
	}
	if autos > 1 {
		return nil, quarry.Validationf(op, "%s: %d autogenerated primary keys, at most one is allowed", name, autos)
	}
	d := &Descriptor{kind: kind, name: name, defs: append([]ColumnDef(nil), cols...)}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.bind(false); err != nil {
		return nil, err
	}
	return d, nil
}

// NewDerived returns a derived table over an embedded select statement.
// Its columns are the statement's fields.
func NewDerived(alias string, stmt expr.Statement) (*Descriptor, error) {
	if alias == "" {
		return nil, quarry.Validationf("derived", "missing alias")
	}
	d := &Descriptor{kind: KindDerived, alias: alias, stmt: stmt}
	for _, f := range stmt.Fields() {
		d.defs = append(d.defs, ColumnDef{Name: f.Name, Type: f.Expr.Type(), Nullable: f.Expr.Nullable(), Role: field.RolePlain})
	}
	if err := d.bind(false); err != nil {
		return nil, err
	}
	return d, nil
}

// NewCTE returns the self-handle of a recursive query whose rows have the
// given fields. Its accessors return *expr.CTERef nodes. The compiler
// names the handle.
func NewCTE(fields []expr.Field) (*Descriptor, error) {
	d := &Descriptor{kind: KindCTE}
	for _, f := range fields {
		d.defs = append(d.defs, ColumnDef{Name: f.Name, Type: f.Expr.Type(), Nullable: f.Expr.Nullable()})
	}
	if err := d.bind(false); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Descriptor) bind(nullable bool) error {
	d.cols = make([]expr.Expr, len(d.defs))
	d.index = make(map[string]int, len(d.defs))
	for i, c := range d.defs {
		if _, ok := d.index[c.Name]; ok {
			return quarry.Validationf(d.kind.String(), "%s: duplicate column %q", d.Ref(), c.Name)
		}
		d.index[c.Name] = i
		null := c.Nullable || nullable
		if d.kind == KindCTE {
			d.cols[i] = &expr.CTERef{CTE: d, Name: c.Name, T: c.Type, Null: null}
		} else {
			d.cols[i] = &expr.Column{Source: d, Name: c.Name, T: c.Type, Null: null, Role: c.Role}
		}
	}
	return nil
}

// Kind returns the descriptor kind.
func (d *Descriptor) Kind() Kind { return d.kind }

// Name returns the relation name in the database. It is empty for derived
// tables and recursive self-handles.
func (d *Descriptor) Name() string { return d.name }

// Alias returns the alias of the relation, or "".
func (d *Descriptor) Alias() string { return d.alias }

// Ref returns the name the relation is referenced by in a statement.
func (d *Descriptor) Ref() string {
	if d.alias != "" {
		return d.alias
	}
	return d.name
}

// UUIDStrategy returns the uuid strategy of the relation, or 0 when the
// dialect default applies.
func (d *Descriptor) UUIDStrategy() dialect.UUIDStrategy { return d.uuid }

// C returns the column node of the given name. It panics if the
// descriptor has no such column.
func (d *Descriptor) C(name string) expr.Expr {
	c, ok := d.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("schema: %s has no column %q", d.Ref(), name))
	}
	return c
}

// Lookup returns the column node of the given name.
func (d *Descriptor) Lookup(name string) (expr.Expr, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.cols[i], true
}

// Columns returns the column nodes in declaration order.
func (d *Descriptor) Columns() []expr.Expr {
	return append([]expr.Expr(nil), d.cols...)
}

// Defs returns the column declarations in declaration order.
func (d *Descriptor) Defs() []ColumnDef {
	return append([]ColumnDef(nil), d.defs...)
}

// Def returns the declaration of the given column.
func (d *Descriptor) Def(name string) (ColumnDef, bool) {
	i, ok := d.index[name]
	if !ok {
		return ColumnDef{}, false
	}
	return d.defs[i], true
}

// Fields returns every column as a field named after it.
func (d *Descriptor) Fields() []expr.Field {
	fs := make([]expr.Field, len(d.cols))
	for i, c := range d.cols {
		fs[i] = expr.F(d.defs[i].Name, c)
	}
	return fs
}

// Rows returns the rows of an inline value set.
func (d *Descriptor) Rows() [][]any { return d.rows }

// Statement returns the embedded statement of a derived table.
func (d *Descriptor) Statement() expr.Statement { return d.stmt }

// Mutable reports if inserts, updates and deletes may target the relation.
func (d *Descriptor) Mutable() bool { return d.kind == KindTable }

// As returns a copy of the descriptor under a new alias. Columns of the
// copy are bound to it, so both can appear in one statement.
func (d *Descriptor) As(alias string) *Descriptor {
	return d.copy(alias, false)
}

// ForLeftJoin returns a copy of the descriptor whose columns are all
// nullable, for use as the right side of a left join.
func (d *Descriptor) ForLeftJoin() *Descriptor {
	return d.copy(d.alias, true)
}

// ForLeftJoinAs is ForLeftJoin under a new alias.
func (d *Descriptor) ForLeftJoinAs(alias string) *Descriptor {
	return d.copy(alias, true)
}

func (d *Descriptor) copy(alias string, nullable bool) *Descriptor {
	c := *d
	c.alias = alias
	// Names are already known to be unique.
	_ = c.bind(nullable)
	return &c
}
