package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/query"
	"github.com/syssam/quarry/schema/field"
)

// Op is the kind of a compiled statement.
type Op uint8

// Statement kinds.
const (
	OpSelect Op = iota + 1
	OpInsert
	OpUpdate
	OpDelete
)

func (op Op) String() string {
	switch op {
	case OpSelect:
		return "select"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// IDStrategy is how an insert hands back generated ids.
type IDStrategy uint8

// Id strategies.
const (
	IDsNone IDStrategy = iota
	// IDsFromReturning reads the ids from a RETURNING clause.
	IDsFromReturning
	// IDsFromLastInsertID derives the ids from the driver's last insert id
	// and the number of inserted rows.
	IDsFromLastInsertID
)

// Param is a bound parameter.
type Param struct {
	Value any
	Type  field.Type
	// UUID is the storage strategy of a uuid parameter.
	UUID dialect.UUIDStrategy
}

// Query is a compiled statement. It holds no reference to the tree it was
// compiled from.
type Query struct {
	SQL    string
	Params []Param
	Op     Op
	// Shape describes the rows of a select or of a returning clause. It is
	// nil when the statement yields an affected row count.
	Shape *Shape
	IDs   IDStrategy
	// Rows is the number of rows an insert writes, or 0 when unknown.
	Rows int
}

// Args returns the parameter values.
func (q *Query) Args() []any {
	args := make([]any, len(q.Params))
	for i, p := range q.Params {
		args[i] = p.Value
	}
	return args
}

// Compiler compiles statement trees for one dialect. It is safe for
// concurrent use.
type Compiler struct {
	caps *dialect.Capabilities
}

// New returns a compiler for the given capabilities.
func New(caps *dialect.Capabilities) *Compiler {
	return &Compiler{caps: caps.Clone()}
}

// Capabilities returns the profile the compiler targets.
func (c *Compiler) Capabilities() *dialect.Capabilities {
	return c.caps
}

// Compile validates stmt and compiles it. Compiling the same tree twice
// yields byte-identical SQL and parameters.
func (c *Compiler) Compile(stmt query.Statement) (*Query, error) {
	if err := stmt.Validate(); err != nil {
		return nil, err
	}
	b := newBuilder(c.caps)
	q := &Query{}
	switch s := stmt.(type) {
	case query.Selectable:
		q.Op = OpSelect
		q.Shape = shapeOf(s.Fields(), s.SingleColumn())
		b.top(s)
	case *query.InsertStmt:
		q.Op = OpInsert
		b.insert(s.Node(), q)
	case *query.UpdateStmt:
		q.Op = OpUpdate
		b.update(s.Node(), q)
	case *query.DeleteStmt:
		q.Op = OpDelete
		b.delete(s.Node(), q)
	default:
		return nil, fmt.Errorf("compiler: unsupported statement %T", stmt)
	}
	if err := b.finish(q); err != nil {
		return nil, err
	}
	return q, nil
}

// CompileCount compiles a statement counting the rows s yields without
// its ordering and paging.
func (c *Compiler) CompileCount(s query.Selectable) (*Query, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	b := newBuilder(c.caps)
	inner := b.sub()
	switch s := s.(type) {
	case *query.SelectStmt:
		n := s.Node()
		n.Order, n.Paging = nil, query.Paging{}
		inner.selectNode(n)
	case *query.CompoundStmt:
		n := s.Node()
		n.Order, n.Paging = nil, query.Paging{}
		inner.compound(n)
	case *query.RecursiveStmt:
		n := s.Node()
		n.Order, n.Paging = nil, query.Paging{}
		inner.recursive(n)
	}
	b.WriteString("SELECT count(*) AS ")
	b.ident("count")
	b.WriteString(" FROM (")
	b.join(inner)
	b.WriteByte(')')
	b.alias(b.nextName("count"))
	q := &Query{
		Op:    OpSelect,
		Shape: &Shape{Single: true, Fields: []ShapeField{{Name: "count", Type: field.TypeInt}}},
	}
	if err := b.finish(q); err != nil {
		return nil, err
	}
	return q, nil
}

// finish prepends the hoisted WITH entries and numbers the placeholders.
func (b *builder) finish(q *Query) error {
	head := b.withClause()
	if b.err != nil {
		return b.err
	}
	text := head.String() + b.String()
	q.Params = append(head.params, b.params...)
	var sb strings.Builder
	sb.Grow(len(text))
	n := 0
	for i := 0; i < len(text); i++ {
		if text[i] != marker {
			sb.WriteByte(text[i])
			continue
		}
		n++
		switch b.caps.Placeholder {
		case dialect.Dollar:
			sb.WriteString("$" + strconv.Itoa(n))
		case dialect.AtP:
			sb.WriteString("@p" + strconv.Itoa(n))
		case dialect.Colon:
			sb.WriteString(":" + strconv.Itoa(n))
		default:
			sb.WriteByte('?')
		}
	}
	q.SQL = sb.String()
	return nil
}
