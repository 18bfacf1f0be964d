package compiler

import (
	"fmt"
	"strings"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/query"
	"github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/field"
)

// marker stands for a placeholder until the statement is complete.
const marker = '\x00'

// state is shared by every builder of one compilation.
type state struct {
	caps   *dialect.Capabilities
	names  map[*schema.Descriptor]string
	counts map[string]int
	// values are the inline value sets hoisted into the leading WITH.
	values []*schema.Descriptor
	// entries are WITH entries of the top-level recursive query.
	entries       []*builder
	withRecursive bool
	err           error
}

// builder writes SQL text and collects the parameters in text order.
type builder struct {
	*state
	strings.Builder
	params []Param
	// bare renders the columns of this source unqualified.
	bare *schema.Descriptor
	// hint is the uuid strategy of the operand a literal is compared with.
	hint dialect.UUIDStrategy
}

func newBuilder(caps *dialect.Capabilities) *builder {
	return &builder{state: &state{
		caps:   caps,
		names:  make(map[*schema.Descriptor]string),
		counts: make(map[string]int),
	}}
}

// sub returns an empty builder sharing the compilation state.
func (b *builder) sub() *builder {
	return &builder{state: b.state, bare: b.bare}
}

// join appends the text and parameters of o.
func (b *builder) join(o *builder) {
	b.WriteString(o.String())
	b.params = append(b.params, o.params...)
}

func (b *builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *builder) unsupported(feature string) {
	b.fail(quarry.NewCompilationError(b.caps.Name, feature))
}

func (b *builder) nextName(prefix string) string {
	b.counts[prefix]++
	return fmt.Sprintf("%s_%d", prefix, b.counts[prefix])
}

func (b *builder) quote(s string) string {
	q := b.caps.Quote
	return q + strings.ReplaceAll(s, q, q+q) + q
}

func (b *builder) ident(s string) {
	b.WriteString(b.quote(s))
}

// alias writes the alias of a relation.
func (b *builder) alias(name string) {
	if b.caps.NoTableAliasAs {
		b.WriteByte(' ')
	} else {
		b.WriteString(" AS ")
	}
	b.ident(name)
}

// str writes a SQL string constant.
func (b *builder) str(s string) {
	b.WriteString("'" + strings.ReplaceAll(s, "'", "''") + "'")
}

// param binds a host value.
func (b *builder) param(v any, t field.Type, uuid dialect.UUIDStrategy) {
	if v == nil {
		b.WriteString("NULL")
		return
	}
	if bv, ok := v.(bool); ok && !b.caps.SupportsNativeBoolean {
		v = int64(0)
		if bv {
			v = int64(1)
		}
	}
	if uuid == 0 {
		uuid = b.caps.UUID
	}
	if t != field.TypeUUID {
		uuid = 0
	}
	b.WriteByte(marker)
	b.params = append(b.params, Param{Value: v, Type: t, UUID: uuid})
}

// intParam binds a paging value.
func (b *builder) intParam(n int) {
	b.WriteByte(marker)
	b.params = append(b.params, Param{Value: int64(n), Type: field.TypeInt})
}

// refName returns the name a source is referenced by.
func (b *builder) refName(src expr.Source) string {
	if d, ok := src.(*schema.Descriptor); ok && d.Kind() == schema.KindCTE {
		name, ok := b.names[d]
		if !ok {
			b.fail(fmt.Errorf("compiler: recursive handle used outside its query"))
		}
		return name
	}
	if src.Alias() != "" {
		return src.Alias()
	}
	return src.Name()
}

// source writes a relation of a FROM, JOIN, USING or UPDATE list.
func (b *builder) source(d *schema.Descriptor) {
	switch d.Kind() {
	case schema.KindDerived:
		s, ok := d.Statement().(query.Selectable)
		if !ok {
			b.fail(fmt.Errorf("compiler: derived table %s over %T", d.Alias(), d.Statement()))
			return
		}
		b.WriteByte('(')
		b.selectable(s)
		b.WriteByte(')')
		b.alias(d.Alias())
	case schema.KindCTE:
		b.ident(b.refName(d))
	case schema.KindValues:
		b.hoist(d)
		fallthrough
	default:
		b.ident(d.Name())
		if d.Alias() != "" {
			b.alias(d.Alias())
		}
	}
}

// hoist registers an inline value set for the leading WITH.
func (b *builder) hoist(d *schema.Descriptor) {
	for _, v := range b.values {
		if v.Name() == d.Name() {
			return
		}
	}
	b.values = append(b.values, d)
}

// withClause renders the leading WITH of the statement, if any.
func (b *builder) withClause() *builder {
	head := b.sub()
	if len(b.values) == 0 && len(b.entries) == 0 {
		return head
	}
	if !b.caps.SupportsCTE {
		b.unsupported("inline values")
		return head
	}
	head.WriteString("WITH ")
	if b.withRecursive && b.caps.RecursiveKeyword {
		head.WriteString("RECURSIVE ")
	}
	for i, d := range b.values {
		if i > 0 {
			head.WriteString(", ")
		}
		head.valuesEntry(d)
	}
	for i, e := range b.entries {
		if i > 0 || len(b.values) > 0 {
			head.WriteString(", ")
		}
		head.join(e)
	}
	head.WriteByte(' ')
	return head
}

// valuesEntry writes "name"("a", "b") AS (VALUES (...), (...)).
func (b *builder) valuesEntry(d *schema.Descriptor) {
	defs := d.Defs()
	b.ident(d.Name())
	b.columnList(defs)
	b.WriteString(" AS (")
	switch {
	case b.caps.DummyTable != "":
		for i, row := range d.Rows() {
			if i > 0 {
				b.WriteString(" UNION ALL ")
			}
			b.WriteString("SELECT ")
			b.valuesRow(d, defs, row, true)
			b.WriteString(" FROM " + b.caps.DummyTable)
		}
	default:
		b.WriteString("VALUES ")
		for i, row := range d.Rows() {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(b.caps.ValuesRowKeyword)
			b.WriteByte('(')
			b.valuesRow(d, defs, row, false)
			b.WriteByte(')')
		}
	}
	b.WriteByte(')')
}

func (b *builder) valuesRow(d *schema.Descriptor, defs []schema.ColumnDef, row []any, named bool) {
	for j, v := range row {
		if j > 0 {
			b.WriteString(", ")
		}
		b.param(v, defs[j].Type, d.UUIDStrategy())
		if named {
			b.WriteString(" AS ")
			b.ident(defs[j].Name)
		}
	}
}

func (b *builder) columnList(defs []schema.ColumnDef) {
	b.WriteByte('(')
	for i, c := range defs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.ident(c.Name)
	}
	b.WriteByte(')')
}

// strategyOf returns the uuid strategy of the relation e reads from.
func (b *builder) strategyOf(e expr.Expr) dialect.UUIDStrategy {
	switch e := e.(type) {
	case *expr.Column:
		if d, ok := e.Source.(*schema.Descriptor); ok && d.UUIDStrategy() != 0 {
			return d.UUIDStrategy()
		}
	case *expr.Func:
		if e.Name == expr.FuncCoalesce && len(e.Args) > 0 {
			return b.strategyOf(e.Args[0])
		}
	case *expr.Aggregate:
		if e.Arg != nil {
			return b.strategyOf(e.Arg)
		}
	}
	return b.caps.UUID
}
