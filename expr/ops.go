package expr

import (
	"time"

	"github.com/google/uuid"

	"github.com/syssam/quarry/schema/field"
)

// Const returns a literal of the given category.
func Const(v any, t field.Type) *Literal {
	return &Literal{Value: v, T: t, Null: v == nil}
}

// Null returns a null literal of the given category.
func Null(t field.Type) *Literal {
	return &Literal{T: t, Null: true}
}

// Value returns a literal whose category is inferred from the Go type of
// v. Values of unknown types become TypeCustom literals.
func Value(v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	return Const(v, TypeOf(v))
}

// TypeOf returns the value category of a Go value.
func TypeOf(v any) field.Type {
	switch v.(type) {
	case bool, *bool:
		return field.TypeBool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return field.TypeInt
	case float32, float64:
		return field.TypeDouble
	case string:
		return field.TypeString
	case uuid.UUID:
		return field.TypeUUID
	case time.Time:
		return field.TypeLocalDateTime
	default:
		return field.TypeCustom
	}
}

// valueOf wraps v as a literal typed after its partner operand.
func valueOf(partner Expr, v any) Expr {
	if e, ok := v.(Expr); ok {
		return e
	}
	t := partner.Type()
	if t == field.TypeArray || t == field.TypeInvalid {
		t = TypeOf(v)
	}
	return Const(v, t)
}

func binary(op BinaryOp, x Expr, y any) *Binary {
	return &Binary{Op: op, X: x, Y: valueOf(x, y)}
}

// EQ returns x = y.
func EQ(x Expr, y any) *Binary { return binary(OpEQ, x, y) }

// NEQ returns x <> y.
func NEQ(x Expr, y any) *Binary { return binary(OpNEQ, x, y) }

// LT returns x < y.
func LT(x Expr, y any) *Binary { return binary(OpLT, x, y) }

// LTE returns x <= y.
func LTE(x Expr, y any) *Binary { return binary(OpLTE, x, y) }

// GT returns x > y.
func GT(x Expr, y any) *Binary { return binary(OpGT, x, y) }

// GTE returns x >= y.
func GTE(x Expr, y any) *Binary { return binary(OpGTE, x, y) }

// And joins predicates with AND. A single predicate is returned as is.
func And(preds ...Expr) Expr {
	return logical(OpAnd, preds)
}

// Or joins predicates with OR. A single predicate is returned as is.
func Or(preds ...Expr) Expr {
	return logical(OpOr, preds)
}

func logical(op BinaryOp, preds []Expr) Expr {
	if len(preds) == 0 {
		return nil
	}
	e := preds[0]
	for _, p := range preds[1:] {
		e = &Binary{Op: op, X: e, Y: p}
	}
	return e
}

// Not negates a predicate.
func Not(x Expr) *Unary { return &Unary{Op: OpNot, X: x} }

// Neg returns -x.
func Neg(x Expr) *Unary { return &Unary{Op: OpNeg, X: x} }

// IsNull returns x IS NULL.
func IsNull(x Expr) *Unary { return &Unary{Op: OpIsNull, X: x} }

// NotNull returns x IS NOT NULL.
func NotNull(x Expr) *Unary { return &Unary{Op: OpNotNull, X: x} }

// In returns x IN (vs...). With no candidates the predicate is statically
// false.
func In[T any](x Expr, vs ...T) *Binary {
	return &Binary{Op: OpIn, X: x, Y: list(x, vs)}
}

// NotIn returns x NOT IN (vs...). With no candidates the predicate is
// statically true.
func NotIn[T any](x Expr, vs ...T) *Binary {
	return &Binary{Op: OpNotIn, X: x, Y: list(x, vs)}
}

func list[T any](x Expr, vs []T) *List {
	l := &List{T: x.Type(), Items: make([]Expr, len(vs))}
	for i, v := range vs {
		l.Items[i] = valueOf(x, v)
	}
	return l
}

// Add returns x + y.
func Add(x Expr, y any) *Binary { return binary(OpAdd, x, y) }

// Sub returns x - y.
func Sub(x Expr, y any) *Binary { return binary(OpSub, x, y) }

// Mul returns x * y.
func Mul(x Expr, y any) *Binary { return binary(OpMul, x, y) }

// Div returns x / y.
func Div(x Expr, y any) *Binary { return binary(OpDiv, x, y) }

// Concat concatenates strings.
func Concat(x Expr, ys ...any) Expr {
	e := x
	for _, y := range ys {
		e = &Binary{Op: OpConcat, X: e, Y: valueOf(x, y)}
	}
	return e
}

// Contains reports if x contains the substring y.
func Contains(x Expr, y any) *Binary { return binary(OpContains, x, y) }

// ContainsFold is Contains ignoring case.
func ContainsFold(x Expr, y any) *Binary {
	b := binary(OpContains, x, y)
	b.Fold = true
	return b
}

// HasPrefix reports if x starts with y.
func HasPrefix(x Expr, y any) *Binary { return binary(OpHasPrefix, x, y) }

// HasPrefixFold is HasPrefix ignoring case.
func HasPrefixFold(x Expr, y any) *Binary {
	b := binary(OpHasPrefix, x, y)
	b.Fold = true
	return b
}

// HasSuffix reports if x ends with y.
func HasSuffix(x Expr, y any) *Binary { return binary(OpHasSuffix, x, y) }

// HasSuffixFold is HasSuffix ignoring case.
func HasSuffixFold(x Expr, y any) *Binary {
	b := binary(OpHasSuffix, x, y)
	b.Fold = true
	return b
}

// EqualFold reports if x equals y ignoring case.
func EqualFold(x Expr, y any) *Binary {
	b := binary(OpEqualFold, x, y)
	b.Fold = true
	return b
}

// Length returns the character length of a string.
func Length(x Expr) *Func {
	return &Func{Name: FuncLength, Args: []Expr{x}, T: field.TypeInt, Null: x.Nullable()}
}

// Lower lower-cases a string.
func Lower(x Expr) *Func {
	return &Func{Name: FuncLower, Args: []Expr{x}, T: field.TypeString, Null: x.Nullable()}
}

// Upper upper-cases a string.
func Upper(x Expr) *Func {
	return &Func{Name: FuncUpper, Args: []Expr{x}, T: field.TypeString, Null: x.Nullable()}
}

// Abs returns the absolute value of a number.
func Abs(x Expr) *Func {
	return &Func{Name: FuncAbs, Args: []Expr{x}, T: x.Type(), Null: x.Nullable()}
}

// Coalesce returns x, or fallback when x is null. The result is nullable
// only if the fallback is.
func Coalesce(x Expr, fallback any) *Func {
	y := valueOf(x, fallback)
	return &Func{Name: FuncCoalesce, Args: []Expr{x, y}, T: x.Type(), Null: y.Nullable()}
}

// UUIDString renders a uuid as its canonical string form, so that string
// operators can be applied to it.
func UUIDString(x Expr) *Func {
	return &Func{Name: FuncUUIDString, Args: []Expr{x}, T: field.TypeString, Null: x.Nullable()}
}

// Count returns count(x).
func Count(x Expr) *Aggregate { return &Aggregate{Fn: AggCount, Arg: x} }

// CountDistinct returns count(DISTINCT x).
func CountDistinct(x Expr) *Aggregate { return &Aggregate{Fn: AggCount, Arg: x, Distinct: true} }

// CountAll returns count(*).
func CountAll() *Aggregate { return &Aggregate{Fn: AggCountAll} }

// Sum returns sum(x).
func Sum(x Expr) *Aggregate { return &Aggregate{Fn: AggSum, Arg: x} }

// Avg returns avg(x).
func Avg(x Expr) *Aggregate { return &Aggregate{Fn: AggAvg, Arg: x} }

// Min returns min(x).
func Min(x Expr) *Aggregate { return &Aggregate{Fn: AggMin, Arg: x} }

// Max returns max(x).
func Max(x Expr) *Aggregate { return &Aggregate{Fn: AggMax, Arg: x} }

// ArrayOf aggregates the rows of each group into an array of objects.
func ArrayOf(fields ...Field) *ArrayAgg {
	return &ArrayAgg{Fields: fields}
}

// ArrayOfOne aggregates one value per row of each group into an array.
func ArrayOfOne(x Expr) *ArrayAgg {
	return &ArrayAgg{Single: x}
}
