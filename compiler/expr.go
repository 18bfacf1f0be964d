package compiler

import (
	"fmt"
	"strings"

	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/query"
	"github.com/syssam/quarry/schema/field"
)

// likeEscape is the escape character of LIKE patterns built from values.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// isPredicate reports if e is rendered as a SQL predicate rather than a
// value.
func isPredicate(e expr.Expr) bool {
	switch e := e.(type) {
	case *expr.Binary:
		return e.Op.Comparison() || e.Op.Logical() || e.Op.Match() || e.Op == expr.OpIn || e.Op == expr.OpNotIn
	case *expr.Unary:
		return e.Op != expr.OpNeg
	case *expr.Subquery:
		return e.Mode == expr.SubqueryExists
	}
	return false
}

// pred writes e in a position expecting a condition. Boolean values are
// compared with 1 on dialects without a native boolean.
func (b *builder) pred(e expr.Expr) {
	switch {
	case isPredicate(e):
		b.predicate(e)
	case b.caps.SupportsNativeBoolean:
		b.value(e)
	default:
		b.WriteByte('(')
		b.value(e)
		b.WriteString(" = 1)")
	}
}

// value writes e in a position expecting a value. Predicates become 0/1
// on dialects that cannot project them.
func (b *builder) value(e expr.Expr) {
	if isPredicate(e) {
		if b.caps.PredicateAsValue {
			b.WriteByte('(')
			b.predicate(e)
			b.WriteByte(')')
			return
		}
		b.WriteString("CASE WHEN ")
		b.predicate(e)
		b.WriteString(" THEN 1 ELSE 0 END")
		return
	}
	switch e := e.(type) {
	case *expr.Column:
		if b.bare == nil || e.Source != b.bare {
			b.ident(b.refName(e.Source))
			b.WriteByte('.')
		}
		b.ident(e.Name)
	case *expr.CTERef:
		b.ident(b.refName(e.CTE))
		b.WriteByte('.')
		b.ident(e.Name)
	case *expr.Literal:
		b.param(e.Value, e.T, b.hint)
	case *expr.List:
		for i, x := range e.Items {
			if i > 0 {
				b.WriteString(", ")
			}
			b.value(x)
		}
	case *expr.Unary:
		b.WriteByte('-')
		b.operand(e.X)
	case *expr.Binary:
		b.binaryValue(e)
	case *expr.Func:
		b.function(e)
	case *expr.Aggregate:
		b.aggregate(e)
	case *expr.ArrayAgg:
		b.arrayAgg(e)
	case *expr.Subquery:
		b.subquery(e)
	default:
		b.fail(fmt.Errorf("compiler: unexpected expression %T", e))
	}
}

// operand writes an arithmetic operand, parenthesized when composite.
func (b *builder) operand(e expr.Expr) {
	if x, ok := e.(*expr.Binary); ok && !isPredicate(x) {
		b.WriteByte('(')
		b.value(e)
		b.WriteByte(')')
		return
	}
	b.value(e)
}

// hinted writes e binding its literals with the uuid strategy of other.
func (b *builder) hinted(e, other expr.Expr) {
	saved := b.hint
	b.hint = b.strategyOf(other)
	b.value(e)
	b.hint = saved
}

func (b *builder) predicate(e expr.Expr) {
	switch e := e.(type) {
	case *expr.Binary:
		switch {
		case e.Op.Logical():
			b.logical(e.Op, e.X)
			b.WriteString(" " + e.Op.String() + " ")
			b.logical(e.Op, e.Y)
		case e.Op.Comparison():
			b.hinted(e.X, e.Y)
			b.WriteString(" " + e.Op.String() + " ")
			b.hinted(e.Y, e.X)
		case e.Op == expr.OpIn || e.Op == expr.OpNotIn:
			b.in(e)
		default:
			b.match(e)
		}
	case *expr.Unary:
		switch e.Op {
		case expr.OpNot:
			b.WriteString("NOT (")
			b.pred(e.X)
			b.WriteByte(')')
		case expr.OpIsNull:
			b.value(e.X)
			b.WriteString(" IS NULL")
		case expr.OpNotNull:
			b.value(e.X)
			b.WriteString(" IS NOT NULL")
		}
	case *expr.Subquery:
		b.WriteString("EXISTS (")
		b.embedded(e.Stmt)
		b.WriteByte(')')
	}
}

// logical writes an operand of AND or OR.
func (b *builder) logical(op expr.BinaryOp, e expr.Expr) {
	if x, ok := e.(*expr.Binary); ok && x.Op.Logical() && x.Op != op {
		b.WriteByte('(')
		b.pred(e)
		b.WriteByte(')')
		return
	}
	b.pred(e)
}

func (b *builder) in(e *expr.Binary) {
	list := e.Y.(*expr.List)
	if len(list.Items) == 0 {
		if e.Op == expr.OpIn {
			b.WriteString("1 = 0")
		} else {
			b.WriteString("1 = 1")
		}
		return
	}
	b.value(e.X)
	b.WriteString(" " + e.Op.String() + " (")
	saved := b.hint
	b.hint = b.strategyOf(e.X)
	b.value(list)
	b.hint = saved
	b.WriteByte(')')
}

func (b *builder) match(e *expr.Binary) {
	if e.Op == expr.OpEqualFold {
		b.WriteString("lower(")
		b.value(e.X)
		b.WriteString(") = lower(")
		b.value(e.Y)
		b.WriteByte(')')
		return
	}
	b.fold(e.Fold, func() { b.value(e.X) })
	b.WriteString(" LIKE ")
	if lit, ok := e.Y.(*expr.Literal); ok && lit.Value != nil {
		s := likeReplacer.Replace(fmt.Sprint(lit.Value))
		switch e.Op {
		case expr.OpContains:
			s = "%" + s + "%"
		case expr.OpHasPrefix:
			s += "%"
		case expr.OpHasSuffix:
			s = "%" + s
		}
		b.fold(e.Fold, func() { b.param(s, field.TypeString, 0) })
		b.WriteString(" ESCAPE '" + likeEscape + "'")
		return
	}
	var parts []func()
	pct := func() { b.str("%") }
	if e.Op != expr.OpHasPrefix {
		parts = append(parts, pct)
	}
	parts = append(parts, func() { b.value(e.Y) })
	if e.Op != expr.OpHasSuffix {
		parts = append(parts, pct)
	}
	b.fold(e.Fold, func() { b.concat(parts) })
}

func (b *builder) fold(fold bool, f func()) {
	if !fold {
		f()
		return
	}
	b.WriteString("lower(")
	f()
	b.WriteByte(')')
}

// concat writes a string concatenation in the dialect's style.
func (b *builder) concat(parts []func()) {
	switch b.caps.Concat {
	case dialect.ConcatFunc:
		b.WriteString("concat(")
		for i, p := range parts {
			if i > 0 {
				b.WriteString(", ")
			}
			p()
		}
		b.WriteByte(')')
	default:
		sep := " || "
		if b.caps.Concat == dialect.ConcatPlus {
			sep = " + "
		}
		for i, p := range parts {
			if i > 0 {
				b.WriteString(sep)
			}
			p()
		}
	}
}

func (b *builder) binaryValue(e *expr.Binary) {
	if e.Op == expr.OpConcat {
		var parts []func()
		for _, x := range concatOperands(e) {
			parts = append(parts, func() { b.operand(x) })
		}
		b.concat(parts)
		return
	}
	b.operand(e.X)
	b.WriteString(" " + e.Op.String() + " ")
	b.operand(e.Y)
}

// concatOperands flattens a left-leaning chain of concatenations.
func concatOperands(e *expr.Binary) []expr.Expr {
	var xs []expr.Expr
	if x, ok := e.X.(*expr.Binary); ok && x.Op == expr.OpConcat {
		xs = concatOperands(x)
	} else {
		xs = []expr.Expr{e.X}
	}
	return append(xs, e.Y)
}

func (b *builder) function(e *expr.Func) {
	if e.Name == expr.FuncUUIDString {
		b.uuidString(e.Args[0])
		return
	}
	b.WriteString(b.caps.Func(string(e.Name)) + "(")
	for i, x := range e.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.value(x)
	}
	b.WriteByte(')')
}

// uuidString writes the canonical text of a uuid value.
func (b *builder) uuidString(x expr.Expr) {
	tmpl := b.caps.UUIDToString
	if b.strategyOf(x) == dialect.UUIDBinary {
		tmpl = b.caps.BinaryUUIDToString
	}
	if tmpl == "" {
		b.unsupported("uuid to string conversion")
		return
	}
	arg := b.sub()
	arg.hint = b.hint
	arg.value(x)
	b.WriteString(fmt.Sprintf(tmpl, arg.String()))
	b.params = append(b.params, arg.params...)
}

func (b *builder) aggregate(e *expr.Aggregate) {
	if e.Fn == expr.AggCountAll {
		b.WriteString("count(*)")
		return
	}
	b.WriteString(string(e.Fn) + "(")
	if e.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.value(e.Arg)
	b.WriteByte(')')
}

// jsonValue writes a value embedded in a JSON document. Binary uuids are
// converted to text first.
func (b *builder) jsonValue(e expr.Expr) {
	if e.Type() == field.TypeUUID && b.strategyOf(e) == dialect.UUIDBinary {
		b.uuidString(e)
		return
	}
	b.value(e)
}

func (b *builder) jsonObject(keys []string, values []func()) {
	agg := b.caps.Aggregation
	b.WriteString(agg.JSONObject + "(")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.str(k)
		if agg.Style == dialect.JSONKeyValue {
			b.WriteString(" VALUE ")
		} else {
			b.WriteString(", ")
		}
		values[i]()
	}
	b.WriteByte(')')
}

// arrayAgg writes an aggregated array over the rows of a group.
func (b *builder) arrayAgg(e *expr.ArrayAgg) {
	agg := b.caps.Aggregation
	if !agg.Supported() {
		b.unsupported("aggregated arrays")
		return
	}
	b.WriteString(agg.ArrayAgg + "(")
	if e.Single != nil {
		b.jsonValue(e.Single)
	} else {
		keys := make([]string, len(e.Fields))
		values := make([]func(), len(e.Fields))
		for i, f := range e.Fields {
			keys[i], values[i] = f.Name, func() { b.jsonValue(f.Expr) }
		}
		b.jsonObject(keys, values)
	}
	b.WriteByte(')')
}

func (b *builder) subquery(e *expr.Subquery) {
	if e.Mode == expr.SubqueryArray {
		b.arraySubquery(e)
		return
	}
	b.WriteByte('(')
	b.embedded(e.Stmt)
	b.WriteByte(')')
}

// arraySubquery collapses the rows of a statement into one array:
//
//	(SELECT agg(obj('k', "agg_1"."k")) FROM (inner) AS "agg_1")
func (b *builder) arraySubquery(e *expr.Subquery) {
	agg := b.caps.Aggregation
	if !agg.Supported() {
		b.unsupported("aggregated arrays")
		return
	}
	name := b.nextName("agg")
	fields := e.Stmt.Fields()
	col := func(f expr.Field) func() {
		return func() {
			if f.Expr.Type() == field.TypeUUID && b.strategyOf(f.Expr) == dialect.UUIDBinary {
				tmpl := b.caps.BinaryUUIDToString
				if tmpl == "" {
					b.unsupported("uuid to string conversion")
					return
				}
				b.WriteString(fmt.Sprintf(tmpl, b.quote(name)+"."+b.quote(f.Name)))
				return
			}
			b.ident(name)
			b.WriteByte('.')
			b.ident(f.Name)
		}
	}
	b.WriteString("(SELECT " + agg.ArrayAgg + "(")
	if e.Stmt.SingleColumn() {
		col(fields[0])()
	} else {
		keys := make([]string, len(fields))
		values := make([]func(), len(fields))
		for i, f := range fields {
			keys[i], values[i] = f.Name, col(f)
		}
		b.jsonObject(keys, values)
	}
	b.WriteString(") FROM (")
	b.embedded(e.Stmt)
	b.WriteByte(')')
	b.alias(name)
	b.WriteByte(')')
}

// embedded writes a statement nested in an expression.
func (b *builder) embedded(s expr.Statement) {
	sel, ok := s.(query.Selectable)
	if !ok {
		b.fail(fmt.Errorf("compiler: unexpected embedded statement %T", s))
		return
	}
	inner := b.sub()
	inner.bare = nil
	inner.selectable(sel)
	b.join(inner)
}
