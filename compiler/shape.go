package compiler

import (
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema/field"
)

// Shape describes the rows a statement yields, so that raw rows can be
// turned back into values of the declared categories.
type Shape struct {
	// Single reports that each row is one unnamed value.
	Single bool
	Fields []ShapeField
}

// ShapeField is one projected field.
type ShapeField struct {
	Name     string
	Type     field.Type
	Nullable bool
	// Array is the element shape of an aggregated array field.
	Array *Shape
	// UseEmpty yields an empty array instead of null when no element
	// remains.
	UseEmpty bool
	// DropNulls removes elements whose values are all null, as produced
	// by aggregating the unmatched side of a left join.
	DropNulls bool
}

func shapeOf(fields []expr.Field, single bool) *Shape {
	s := &Shape{Single: single, Fields: make([]ShapeField, len(fields))}
	for i, f := range fields {
		s.Fields[i] = shapeField(f)
	}
	return s
}

func shapeField(f expr.Field) ShapeField {
	sf := ShapeField{Name: f.Name, Type: f.Expr.Type(), Nullable: f.Expr.Nullable()}
	switch e := f.Expr.(type) {
	case *expr.ArrayAgg:
		if e.Single != nil {
			sf.Array = shapeOf([]expr.Field{expr.F("result", e.Single)}, true)
		} else {
			sf.Array = shapeOf(e.Fields, false)
		}
		sf.UseEmpty, sf.DropNulls = e.UseEmpty, true
	case *expr.Subquery:
		if e.Mode == expr.SubqueryArray {
			sf.Array = shapeOf(e.Stmt.Fields(), e.Stmt.SingleColumn())
			sf.UseEmpty = e.UseEmpty
		}
	}
	return sf
}
