// Package expr is the expression model: immutable typed nodes that the
// statement builder combines and the compiler renders.
//
// Every node carries a value category (field.Type) and a nullability flag.
// Combinators build new nodes from existing ones and never modify their
// inputs:
//
//	name := company.C("name")
//	expr.And(
//	    expr.ContainsFold(name, "acme"),
//	    expr.GT(expr.Length(name), 3),
//	)
//
// Plain Go values passed to a combinator become literals typed after the
// other operand, so expr.EQ(company.C("id"), 1) compares an int column with
// an int literal.
package expr

import (
	"github.com/syssam/quarry/schema/field"
)

// Kind is the discriminator of an expression node.
type Kind uint8

// Node kinds.
const (
	KindColumn Kind = iota + 1
	KindLiteral
	KindList
	KindUnary
	KindBinary
	KindFunc
	KindAggregate
	KindArrayAgg
	KindSubquery
	KindCTERef
)

var kindNames = [...]string{
	KindColumn:    "column",
	KindLiteral:   "literal",
	KindList:      "list",
	KindUnary:     "unary",
	KindBinary:    "binary",
	KindFunc:      "func",
	KindAggregate: "aggregate",
	KindArrayAgg:  "arrayAgg",
	KindSubquery:  "subquery",
	KindCTERef:    "cteRef",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// Expr is implemented by every expression node.
type Expr interface {
	Kind() Kind
	Type() field.Type
	Nullable() bool
}

// Source is a relation that columns are bound to: a table, view, inline
// value set, derived table or recursive self-handle. Column nodes keep the
// source instance, not its name, so two aliases of the same table are
// always told apart.
type Source interface {
	// Name is the relation name in the database (or the CTE name).
	Name() string
	// Alias is the alias the relation is referenced by, or "".
	Alias() string
}

// Statement is implemented by select statements that can be embedded in
// an expression (scalar values, arrays, derived tables).
type Statement interface {
	// Fields returns the projection in declaration order.
	Fields() []Field
	// SingleColumn reports if the projection is a single unnamed value.
	SingleColumn() bool
}

// Field is a named projected expression.
type Field struct {
	Name string
	Expr Expr
}

// F returns a named field.
func F(name string, e Expr) Field {
	return Field{Name: name, Expr: e}
}

// Column references a column of a source.
type Column struct {
	Source Source
	Name   string
	T      field.Type
	Null   bool
	Role   field.Role
}

func (c *Column) Kind() Kind       { return KindColumn }
func (c *Column) Type() field.Type { return c.T }
func (c *Column) Nullable() bool   { return c.Null }

// Literal is a host value. The compiler always binds it as a parameter.
type Literal struct {
	Value any
	T     field.Type
	Null  bool
}

func (l *Literal) Kind() Kind       { return KindLiteral }
func (l *Literal) Type() field.Type { return l.T }
func (l *Literal) Nullable() bool   { return l.Null || l.Value == nil }

// List is the candidate set of an IN predicate.
type List struct {
	Items []Expr
	T     field.Type
}

func (l *List) Kind() Kind       { return KindList }
func (l *List) Type() field.Type { return l.T }
func (l *List) Nullable() bool {
	for _, x := range l.Items {
		if x.Nullable() {
			return true
		}
	}
	return false
}

// UnaryOp is a unary operator.
type UnaryOp uint8

// Unary operators.
const (
	OpNot UnaryOp = iota + 1
	OpNeg
	OpIsNull
	OpNotNull
)

// Unary applies a unary operator.
type Unary struct {
	Op UnaryOp
	X  Expr
}

func (u *Unary) Kind() Kind { return KindUnary }

func (u *Unary) Type() field.Type {
	if u.Op == OpNeg {
		return u.X.Type()
	}
	return field.TypeBool
}

func (u *Unary) Nullable() bool {
	if u.Op == OpIsNull || u.Op == OpNotNull {
		return false
	}
	return u.X.Nullable()
}

// BinaryOp is a binary operator.
type BinaryOp uint8

// Binary operators.
const (
	OpEQ BinaryOp = iota + 1
	OpNEQ
	OpLT
	OpLTE
	OpGT
	OpGTE
	OpAnd
	OpOr
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpConcat
	OpIn
	OpNotIn
	OpContains
	OpHasPrefix
	OpHasSuffix
	OpEqualFold
)

var binaryNames = [...]string{
	OpEQ:        "=",
	OpNEQ:       "<>",
	OpLT:        "<",
	OpLTE:       "<=",
	OpGT:        ">",
	OpGTE:       ">=",
	OpAnd:       "AND",
	OpOr:        "OR",
	OpAdd:       "+",
	OpSub:       "-",
	OpMul:       "*",
	OpDiv:       "/",
	OpConcat:    "||",
	OpIn:        "IN",
	OpNotIn:     "NOT IN",
	OpContains:  "contains",
	OpHasPrefix: "hasPrefix",
	OpHasSuffix: "hasSuffix",
	OpEqualFold: "equalFold",
}

// String returns the operator token.
func (op BinaryOp) String() string {
	if int(op) < len(binaryNames) {
		return binaryNames[op]
	}
	return "?"
}

// Comparison reports if the operator compares its operands.
func (op BinaryOp) Comparison() bool {
	return op >= OpEQ && op <= OpGTE
}

// Logical reports if the operator is AND or OR.
func (op BinaryOp) Logical() bool {
	return op == OpAnd || op == OpOr
}

// Arithmetic reports if the operator is +, -, * or /.
func (op BinaryOp) Arithmetic() bool {
	return op >= OpAdd && op <= OpDiv
}

// Match reports if the operator is one of the LIKE based string matches.
func (op BinaryOp) Match() bool {
	return op >= OpContains && op <= OpEqualFold
}

// Binary applies a binary operator. Fold marks case-insensitive string
// matching.
type Binary struct {
	Op   BinaryOp
	X, Y Expr
	Fold bool
}

func (b *Binary) Kind() Kind { return KindBinary }

func (b *Binary) Type() field.Type {
	switch {
	case b.Op.Arithmetic():
		if b.X.Type() == field.TypeDouble || b.Y.Type() == field.TypeDouble {
			return field.TypeDouble
		}
		return b.X.Type()
	case b.Op == OpConcat:
		return field.TypeString
	default:
		return field.TypeBool
	}
}

func (b *Binary) Nullable() bool {
	if (b.Op == OpIn || b.Op == OpNotIn) && len(b.Y.(*List).Items) == 0 {
		return false
	}
	return b.X.Nullable() || b.Y.Nullable()
}

// FuncName names a scalar function.
type FuncName string

// Scalar functions. The compiler maps them to the dialect's spelling.
const (
	FuncLength     FuncName = "length"
	FuncLower      FuncName = "lower"
	FuncUpper      FuncName = "upper"
	FuncAbs        FuncName = "abs"
	FuncCoalesce   FuncName = "coalesce"
	FuncUUIDString FuncName = "uuidString"
)

// Func is a scalar function call.
type Func struct {
	Name FuncName
	Args []Expr
	T    field.Type
	Null bool
}

func (f *Func) Kind() Kind       { return KindFunc }
func (f *Func) Type() field.Type { return f.T }
func (f *Func) Nullable() bool   { return f.Null }

// AggFunc names an aggregate function.
type AggFunc string

// Aggregate functions.
const (
	AggCount    AggFunc = "count"
	AggCountAll AggFunc = "countAll"
	AggSum      AggFunc = "sum"
	AggAvg      AggFunc = "avg"
	AggMin      AggFunc = "min"
	AggMax      AggFunc = "max"
)

// Aggregate is an aggregate function call. Arg is nil for AggCountAll.
type Aggregate struct {
	Fn       AggFunc
	Arg      Expr
	Distinct bool
}

func (a *Aggregate) Kind() Kind { return KindAggregate }

func (a *Aggregate) Type() field.Type {
	switch a.Fn {
	case AggCount, AggCountAll:
		return field.TypeInt
	case AggAvg:
		return field.TypeDouble
	default:
		return a.Arg.Type()
	}
}

func (a *Aggregate) Nullable() bool {
	return a.Fn != AggCount && a.Fn != AggCountAll
}

// ArrayAgg aggregates the rows of a group into an array value. Either
// Fields (array of objects) or Single (array of values) is set.
type ArrayAgg struct {
	Fields   []Field
	Single   Expr
	UseEmpty bool
}

func (a *ArrayAgg) Kind() Kind       { return KindArrayAgg }
func (a *ArrayAgg) Type() field.Type { return field.TypeArray }
func (a *ArrayAgg) Nullable() bool   { return !a.UseEmpty }

// UseEmptyArray returns a copy that yields an empty array instead of null
// when the group has no values.
func (a *ArrayAgg) UseEmptyArray() *ArrayAgg {
	c := *a
	c.UseEmpty = true
	return &c
}

// SubqueryMode is how a subquery is used as a value.
type SubqueryMode uint8

// Subquery modes.
const (
	// SubqueryScalar yields the single value of a one-row, one-column query.
	SubqueryScalar SubqueryMode = iota + 1
	// SubqueryExists yields whether the query returns rows.
	SubqueryExists
	// SubqueryArray yields all rows collapsed into one array value.
	SubqueryArray
)

// Subquery embeds a select statement as a value.
type Subquery struct {
	Stmt     Statement
	Mode     SubqueryMode
	UseEmpty bool
}

func (s *Subquery) Kind() Kind { return KindSubquery }

func (s *Subquery) Type() field.Type {
	switch s.Mode {
	case SubqueryExists:
		return field.TypeBool
	case SubqueryArray:
		return field.TypeArray
	}
	if fs := s.Stmt.Fields(); len(fs) == 1 {
		return fs[0].Expr.Type()
	}
	return field.TypeInvalid
}

func (s *Subquery) Nullable() bool {
	switch s.Mode {
	case SubqueryExists:
		return false
	case SubqueryArray:
		return !s.UseEmpty
	}
	return true
}

// UseEmptyArray returns a copy of an array subquery that yields an empty
// array instead of null when no rows match.
func (s *Subquery) UseEmptyArray() *Subquery {
	c := *s
	c.UseEmpty = true
	return &c
}

// CTERef references a column of a named common table expression, such as
// the self-handle of a recursive query.
type CTERef struct {
	CTE  Source
	Name string
	T    field.Type
	Null bool
}

func (r *CTERef) Kind() Kind       { return KindCTERef }
func (r *CTERef) Type() field.Type { return r.T }
func (r *CTERef) Nullable() bool   { return r.Null }
