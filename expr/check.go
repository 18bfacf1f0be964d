package expr

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/schema/field"
)

// Check walks e and reports the first value category mismatch as a
// *quarry.ValidationError. Embedded statements are not entered; they are
// validated on their own by the statement that embeds them.
func Check(e Expr) error {
	var err error
	Walk(e, func(n Expr) bool {
		if err == nil {
			err = checkNode(n)
		}
		return err == nil
	})
	return err
}

func mismatch(format string, args ...any) error {
	return quarry.Validationf("expression", format, args...)
}

func checkNode(n Expr) error {
	switch n := n.(type) {
	case nil:
		return mismatch("nil expression")
	case *Column:
		if !n.T.Valid() || n.T == field.TypeArray {
			return mismatch("column %q has invalid category %s", n.Name, n.T)
		}
	case *Literal:
		if !literalFits(n.Value, n.T) {
			return mismatch("value %v (%T) is not a %s", n.Value, n.Value, n.T)
		}
	case *List:
		for _, x := range n.Items {
			if !field.Comparable(n.T, x.Type()) {
				return mismatch("list item of category %s in a %s list", x.Type(), n.T)
			}
		}
	case *Unary:
		switch n.Op {
		case OpNot:
			if n.X.Type() != field.TypeBool {
				return mismatch("NOT applied to %s", n.X.Type())
			}
		case OpNeg:
			if !n.X.Type().Numeric() {
				return mismatch("negation applied to %s", n.X.Type())
			}
		}
	case *Binary:
		return checkBinary(n)
	case *Func:
		return checkFunc(n)
	case *Aggregate:
		switch n.Fn {
		case AggCountAll:
		case AggCount:
			if n.Arg == nil {
				return mismatch("count without argument")
			}
		case AggSum, AggAvg:
			if !n.Arg.Type().Numeric() {
				return mismatch("%s over %s", n.Fn, n.Arg.Type())
			}
		case AggMin, AggMax:
			if !n.Arg.Type().Ordered() {
				return mismatch("%s over %s", n.Fn, n.Arg.Type())
			}
		default:
			return mismatch("unknown aggregate %q", n.Fn)
		}
	case *ArrayAgg:
		if (n.Single == nil) == (len(n.Fields) == 0) {
			return mismatch("aggregated array needs either fields or a single value")
		}
	case *Subquery:
		if n.Mode == SubqueryScalar && len(n.Stmt.Fields()) != 1 {
			return mismatch("scalar subquery projects %d columns", len(n.Stmt.Fields()))
		}
	}
	return nil
}

func checkBinary(b *Binary) error {
	x, y := b.X.Type(), b.Y.Type()
	switch {
	case b.Op.Comparison():
		if !field.Comparable(x, y) {
			return mismatch("cannot compare %s %s %s", x, b.Op, y)
		}
		if b.Op != OpEQ && b.Op != OpNEQ && !x.Ordered() {
			return mismatch("%s values are not ordered", x)
		}
	case b.Op.Logical():
		if x != field.TypeBool || y != field.TypeBool {
			return mismatch("%s needs boolean operands, got %s and %s", b.Op, x, y)
		}
	case b.Op.Arithmetic():
		if !x.Numeric() || !y.Numeric() {
			return mismatch("cannot apply %s to %s and %s", b.Op, x, y)
		}
	case b.Op == OpConcat || b.Op.Match():
		if !stringish(x) || !stringish(y) {
			return mismatch("%s needs string operands, got %s and %s", b.Op, x, y)
		}
	case b.Op == OpIn || b.Op == OpNotIn:
		if _, ok := b.Y.(*List); !ok {
			return mismatch("%s needs a candidate list", b.Op)
		}
		if !field.Comparable(x, y) && len(b.Y.(*List).Items) > 0 {
			return mismatch("cannot test %s membership in a %s list", x, y)
		}
	default:
		return mismatch("unknown operator %d", b.Op)
	}
	return nil
}

func checkFunc(f *Func) error {
	want := func(ok bool) error {
		if ok {
			return nil
		}
		types := make([]string, len(f.Args))
		for i, a := range f.Args {
			types[i] = a.Type().String()
		}
		return mismatch("cannot apply %s to (%s)", f.Name, strings.Join(types, ", "))
	}
	switch f.Name {
	case FuncLength, FuncLower, FuncUpper:
		return want(len(f.Args) == 1 && stringish(f.Args[0].Type()))
	case FuncAbs:
		return want(len(f.Args) == 1 && f.Args[0].Type().Numeric())
	case FuncCoalesce:
		return want(len(f.Args) == 2 && field.Comparable(f.Args[0].Type(), f.Args[1].Type()))
	case FuncUUIDString:
		return want(len(f.Args) == 1 && f.Args[0].Type() == field.TypeUUID)
	}
	return mismatch("unknown function %q", f.Name)
}

func stringish(t field.Type) bool {
	return t == field.TypeString || t == field.TypeCustom
}

// literalFits reports if a host value may be bound as a parameter of the
// given category.
func literalFits(v any, t field.Type) bool {
	if v == nil || t == field.TypeCustom {
		return true
	}
	switch v.(type) {
	case uuid.UUID:
		return t == field.TypeUUID
	case time.Time:
		return t.Temporal()
	case string:
		return t == field.TypeString || t == field.TypeUUID || t.Temporal()
	}
	vt := TypeOf(v)
	switch {
	case vt == field.TypeCustom:
		return true
	case t == field.TypeDouble:
		return vt.Numeric()
	default:
		return vt == t
	}
}

// Walk visits e and its operands depth-first. Visiting stops below a node
// for which fn returns false. Embedded statements are not entered.
func Walk(e Expr, fn func(Expr) bool) {
	if !fn(e) {
		return
	}
	switch n := e.(type) {
	case *List:
		for _, x := range n.Items {
			Walk(x, fn)
		}
	case *Unary:
		Walk(n.X, fn)
	case *Binary:
		Walk(n.X, fn)
		Walk(n.Y, fn)
	case *Func:
		for _, x := range n.Args {
			Walk(x, fn)
		}
	case *Aggregate:
		if n.Arg != nil {
			Walk(n.Arg, fn)
		}
	case *ArrayAgg:
		if n.Single != nil {
			Walk(n.Single, fn)
		}
		for _, f := range n.Fields {
			Walk(f.Expr, fn)
		}
	}
}

// IsAggregate reports if e contains an aggregate outside of embedded
// statements.
func IsAggregate(e Expr) bool {
	found := false
	Walk(e, func(n Expr) bool {
		switch n.(type) {
		case *Aggregate, *ArrayAgg:
			found = true
		}
		return !found
	})
	return found
}

// Columns returns the column and CTE references of e in visiting order.
func Columns(e Expr) []Expr {
	var cols []Expr
	Walk(e, func(n Expr) bool {
		switch n.(type) {
		case *Column, *CTERef:
			cols = append(cols, n)
		case *Aggregate, *ArrayAgg:
			return false
		}
		return true
	})
	return cols
}

// Key returns a structural fingerprint of e. Two expressions with the same
// key render the same SQL for the same source bindings.
func Key(e Expr) string {
	var sb strings.Builder
	writeKey(&sb, e)
	return sb.String()
}

func writeKey(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Column:
		fmt.Fprintf(sb, "col(%p.%s)", n.Source, n.Name)
	case *CTERef:
		fmt.Fprintf(sb, "cte(%p.%s)", n.CTE, n.Name)
	case *Literal:
		fmt.Fprintf(sb, "lit(%s:%T:%v)", n.T, n.Value, n.Value)
	case *List:
		sb.WriteString("list(")
		for i, x := range n.Items {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeKey(sb, x)
		}
		sb.WriteByte(')')
	case *Unary:
		fmt.Fprintf(sb, "u%d(", n.Op)
		writeKey(sb, n.X)
		sb.WriteByte(')')
	case *Binary:
		fmt.Fprintf(sb, "b%d:%t(", n.Op, n.Fold)
		writeKey(sb, n.X)
		sb.WriteByte(',')
		writeKey(sb, n.Y)
		sb.WriteByte(')')
	case *Func:
		fmt.Fprintf(sb, "%s(", n.Name)
		for i, x := range n.Args {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeKey(sb, x)
		}
		sb.WriteByte(')')
	case *Aggregate:
		fmt.Fprintf(sb, "agg:%s:%t(", n.Fn, n.Distinct)
		if n.Arg != nil {
			writeKey(sb, n.Arg)
		}
		sb.WriteByte(')')
	default:
		fmt.Fprintf(sb, "%T(%p)", e, e)
	}
}
