package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/query"
	"github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/field"
)

var (
	company = schema.MustTable("company", []schema.ColumnDef{
		schema.AutoID("id", field.TypeInt),
		schema.Column("name", field.TypeString),
		schema.Optional("parent_id", field.TypeInt),
	})
	customer = schema.MustTable("customer", []schema.ColumnDef{
		schema.AutoID("id", field.TypeInt),
		schema.Column("first_name", field.TypeString),
		schema.Column("last_name", field.TypeString),
		schema.Optional("birthday", field.TypeLocalDate),
		schema.Column("company_id", field.TypeInt),
		schema.WithDefault("active", field.TypeBool),
	})
	noAuto = schema.MustTable("setting", []schema.ColumnDef{
		schema.PrimaryKey("key", field.TypeString),
		schema.Column("value", field.TypeString),
	})
)

func companyFields() []expr.Field {
	return []expr.Field{
		expr.F("id", company.C("id")),
		expr.F("name", company.C("name")),
		expr.F("parent_id", company.C("parent_id")),
	}
}

func requireValidation(t *testing.T, err error, contains string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, quarry.IsValidationError(err), "got %T: %v", err, err)
	assert.ErrorIs(t, err, quarry.ErrValidation)
	assert.Contains(t, err.Error(), contains)
}

func TestSelectImmutable(t *testing.T) {
	base := query.From(company).Where(expr.EQ(company.C("id"), 1))
	a := base.Select(expr.F("id", company.C("id")))
	b := base.And(expr.GT(company.C("id"), 0)).Select(expr.F("name", company.C("name")))
	a2 := a.OrderBy(company.C("id")).Limit(3)

	assert.Len(t, a.Node().Order, 0)
	assert.Nil(t, a.Node().Paging.Limit)
	assert.Len(t, a2.Node().Order, 1)
	assert.Equal(t, 3, *a2.Node().Paging.Limit)
	assert.IsType(t, &expr.Binary{}, a.Node().Where)
	assert.Equal(t, expr.OpAnd, b.Node().Where.(*expr.Binary).Op)
	assert.Equal(t, expr.OpEQ, a.Node().Where.(*expr.Binary).Op)
}

func TestSelectValidate(t *testing.T) {
	c := company
	parent := company.As("parent")
	tests := []struct {
		name    string
		stmt    query.Statement
		wantErr string
	}{
		{
			name: "plain",
			stmt: query.From(c).Where(expr.EQ(c.C("id"), 1)).Select(companyFields()...),
		},
		{
			name: "self join with alias",
			stmt: query.From(c).Join(parent).On(expr.EQ(c.C("parent_id"), parent.C("id"))).
				Select(expr.F("name", c.C("name")), expr.F("parent", parent.C("name"))),
		},
		{
			name:    "self join without alias",
			stmt:    query.From(c).Join(c).On(expr.EQ(c.C("parent_id"), c.C("id"))).Select(expr.F("name", c.C("name"))),
			wantErr: "used twice",
		},
		{
			name: "grouped",
			stmt: query.From(c).GroupBy(c.C("parent_id")).
				Select(expr.F("parent_id", c.C("parent_id")), expr.F("count", expr.CountAll())),
		},
		{
			name: "grouped by expression",
			stmt: query.From(c).GroupBy(expr.Lower(c.C("name"))).
				Select(expr.F("name", expr.Upper(expr.Lower(c.C("name")))), expr.F("count", expr.Count(c.C("id")))),
		},
		{
			name:    "ungrouped column next to aggregate",
			stmt:    query.From(c).Select(expr.F("name", c.C("name")), expr.F("count", expr.CountAll())),
			wantErr: `field "name" is neither aggregated nor a grouping key`,
		},
		{
			name:    "ungrouped column with group by",
			stmt:    query.From(c).GroupBy(c.C("parent_id")).Select(expr.F("name", c.C("name"))),
			wantErr: "neither aggregated nor a grouping key",
		},
		{
			name:    "aggregate in where",
			stmt:    query.From(c).Where(expr.GT(expr.CountAll(), 1)).Select(expr.F("count", expr.CountAll())),
			wantErr: "aggregates are only allowed",
		},
		{
			name:    "non boolean filter",
			stmt:    query.From(c).Where(c.C("name")).Select(companyFields()...),
			wantErr: "predicate of category string",
		},
		{
			name:    "duplicate field",
			stmt:    query.From(c).Select(expr.F("id", c.C("id")), expr.F("id", c.C("name"))),
			wantErr: "duplicate field",
		},
		{
			name:    "category mismatch",
			stmt:    query.From(c).Where(expr.EQ(c.C("name"), c.C("id"))).Select(companyFields()...),
			wantErr: "cannot compare",
		},
		{
			name:    "invalid nested statement",
			stmt:    query.From(c).Select(expr.F("n", query.From(customer).Select(expr.F("a", customer.C("id")), expr.F("b", expr.CountAll())).AsArray())),
			wantErr: "neither aggregated",
		},
		{
			name:    "negative limit",
			stmt:    query.From(c).Select(companyFields()...).Limit(-1),
			wantErr: "negative limit",
		},
		{
			name: "select without table",
			stmt: query.FromNoTable().SelectOne(expr.Const(1, field.TypeInt)),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stmt.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			requireValidation(t, err, tt.wantErr)
		})
	}
}

func TestCompoundValidate(t *testing.T) {
	a := query.From(company).Select(expr.F("id", company.C("id")), expr.F("name", company.C("name")))
	b := query.From(customer).Select(expr.F("id", customer.C("id")), expr.F("name", customer.C("first_name")))

	ok := a.UnionAll(b).OrderBy(company.C("name")).Limit(5)
	require.NoError(t, ok.Validate())
	assert.Len(t, ok.Node().Members, 2)
	assert.Equal(t, []query.SetOp{query.UnionAll}, ok.Node().Ops)

	three := a.Union(b).Except(b)
	assert.Len(t, three.Node().Members, 3)
	assert.Len(t, a.Union(b).Node().Members, 2, "chaining does not modify the receiver")

	requireValidation(t, a.Union(b.OrderBy(customer.C("id"))).Validate(), "ordered or paged")
	requireValidation(t, a.Union(query.From(customer).Select(expr.F("id", customer.C("id")))).Validate(), "projects 1 fields, want 2")
	requireValidation(t, a.Union(query.From(customer).Select(expr.F("id", customer.C("id")), expr.F("first", customer.C("first_name")))).Validate(), `"first", want "name"`)
	requireValidation(t, a.Union(query.From(customer).Select(expr.F("id", customer.C("first_name")), expr.F("name", customer.C("last_name")))).Validate(), "is string, want int")
	requireValidation(t, a.Union(b).OrderBy(customer.C("last_name")).Validate(), "not a projected field")
}

func TestRecursiveValidate(t *testing.T) {
	anchor := query.From(company).Where(expr.EQ(company.C("id"), 10)).Select(companyFields()...)

	r := anchor.RecursiveUnionAll(func(child *schema.Descriptor) *query.SelectStmt {
		return query.From(company).
			Join(child).On(expr.EQ(child.C("parent_id"), company.C("id"))).
			Select(companyFields()...)
	})
	require.NoError(t, r.Validate())
	n := r.Node()
	require.NotNil(t, n.Handle)
	assert.Equal(t, schema.KindCTE, n.Handle.Kind())
	assert.False(t, n.Distinct)

	on := anchor.RecursiveUnionOn(func(child *schema.Descriptor) expr.Expr {
		return expr.EQ(company.C("id"), child.C("parent_id"))
	})
	require.NoError(t, on.Validate())
	assert.True(t, on.Node().Distinct)
	assert.Nil(t, on.Node().Branch.Node().Where, "branch drops the anchor filter")
	assert.Len(t, on.Node().Branch.Node().Joins, 1)

	missing := anchor.RecursiveUnionAll(func(*schema.Descriptor) *query.SelectStmt {
		return query.From(company).Select(companyFields()...)
	})
	requireValidation(t, missing.Validate(), "does not reference the self-handle")

	twice := anchor.RecursiveUnionAll(func(child *schema.Descriptor) *query.SelectStmt {
		return query.From(company, child).CrossJoin(child).Select(companyFields()...)
	})
	requireValidation(t, twice.Validate(), "used twice")

	shape := anchor.RecursiveUnionAll(func(child *schema.Descriptor) *query.SelectStmt {
		return query.From(company).Join(child).On(expr.EQ(child.C("parent_id"), company.C("id"))).
			Select(expr.F("id", company.C("id")))
	})
	requireValidation(t, shape.Validate(), "recursive branch projects 1 fields, want 3")

	ordered := anchor.OrderBy(company.C("id")).RecursiveUnionAllOn(func(child *schema.Descriptor) expr.Expr {
		return expr.EQ(company.C("id"), child.C("parent_id"))
	})
	requireValidation(t, ordered.Validate(), "anchor is ordered")

	require.NoError(t, r.OrderBy(company.C("name")).Validate())
	requireValidation(t, r.OrderBy(company.C("parent_id")).OrderBy(customer.C("id")).Validate(), "not a projected field")
}

func TestRecursiveFromSeeds(t *testing.T) {
	fields := []expr.Field{expr.F("id", company.C("id")), expr.F("name", company.C("name")), expr.F("parent_id", company.C("parent_id"))}
	r := query.RecursiveFromSeeds(company, company.C("id"), []int{3, 5}, fields, "seed", func(child *schema.Descriptor) expr.Expr {
		return expr.EQ(company.C("id"), child.C("parent_id"))
	})
	require.NoError(t, r.Validate())
	got := r.Fields()
	require.Len(t, got, 4)
	assert.Equal(t, "seed", got[3].Name)
	branch := r.Node().Branch.Fields()
	assert.IsType(t, &expr.CTERef{}, branch[3].Expr, "the branch carries the tag of the row it came from")
	in := r.Node().Anchor.Node().Where.(*expr.Binary)
	assert.Equal(t, expr.OpIn, in.Op)
	assert.Len(t, in.Y.(*expr.List).Items, 2)
}

func TestInsertValidate(t *testing.T) {
	tests := []struct {
		name    string
		stmt    query.Statement
		wantErr string
	}{
		{
			name: "single row",
			stmt: query.InsertInto(customer).Values(query.Values{"first_name": "John", "last_name": "Smith", "company_id": 1}),
		},
		{
			name: "many rows with defaults",
			stmt: query.InsertInto(customer).ValuesMany([]query.Values{
				{"first_name": "A", "last_name": "B", "company_id": 1, "active": true},
				{"first_name": "C", "last_name": "D", "company_id": 1},
			}).ReturningLastInsertedID(),
		},
		{
			name:    "missing required column",
			stmt:    query.InsertInto(customer).Values(query.Values{"first_name": "John", "company_id": 1}),
			wantErr: `required column "last_name"`,
		},
		{
			name: "missing required column in one row",
			stmt: query.InsertInto(customer).ValuesMany([]query.Values{
				{"first_name": "A", "last_name": "B", "company_id": 1},
				{"first_name": "C", "company_id": 1},
			}),
			wantErr: `row 1: missing value for required column "last_name"`,
		},
		{
			name:    "unknown column",
			stmt:    query.InsertInto(customer).Values(query.Values{"first_name": "A", "last_name": "B", "company_id": 1, "age": 3}),
			wantErr: `no column "age"`,
		},
		{
			name:    "wrong category",
			stmt:    query.InsertInto(customer).Values(query.Values{"first_name": "A", "last_name": "B", "company_id": "x"}),
			wantErr: "is not a int",
		},
		{
			name:    "null into non nullable",
			stmt:    query.InsertInto(customer).Values(query.Values{"first_name": nil, "last_name": "B", "company_id": 1}),
			wantErr: `"first_name" is not nullable`,
		},
		{
			name:    "last id without autogenerated key",
			stmt:    query.InsertInto(noAuto).Values(query.Values{"key": "a", "value": "b"}).ReturningLastInsertedID(),
			wantErr: "no autogenerated primary key",
		},
		{
			name: "from select",
			stmt: query.InsertInto(company).FromSelect(query.From(customer).Select(
				expr.F("name", customer.C("first_name")),
				expr.F("parent_id", customer.C("company_id")),
			)).ReturningLastInsertedID(),
		},
		{
			name:    "default values with required columns",
			stmt:    query.InsertInto(customer).DefaultValues(),
			wantErr: "required column",
		},
		{
			name: "upsert",
			stmt: query.InsertInto(noAuto).Values(query.Values{"key": "a", "value": "b"}).
				OnConflict("key").DoUpdateFromInsert("value"),
		},
		{
			name: "upsert with unknown column",
			stmt: query.InsertInto(noAuto).Values(query.Values{"key": "a", "value": "b"}).
				OnConflict("nope").DoUpdate(query.Values{"value": "c"}),
			wantErr: `no column "nope"`,
		},
		{
			name:    "no rows",
			stmt:    query.InsertInto(company).ValuesMany(nil),
			wantErr: "no rows",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stmt.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			requireValidation(t, err, tt.wantErr)
		})
	}
}

func TestInsertColumnOrder(t *testing.T) {
	s := query.InsertInto(customer).ValuesMany([]query.Values{
		{"company_id": 1, "last_name": "B", "first_name": "A"},
		{"first_name": "C", "last_name": "D", "company_id": 2, "active": false},
	})
	n := s.Node()
	assert.Equal(t, []string{"first_name", "last_name", "company_id", "active"}, n.Columns)
	require.Len(t, n.Rows, 2)
	assert.Nil(t, n.Rows[0][3], "missing value takes the default")
	assert.Equal(t, field.TypeBool, n.Rows[1][3].Type())
}

func TestUnsafeMutationGuard(t *testing.T) {
	requireValidation(t, query.Update(company).Set(query.Values{"name": "x"}).Validate(), "UpdateAllowingNoWhere")
	requireValidation(t, query.DeleteFrom(company).Validate(), "DeleteAllowingNoWhere")

	require.NoError(t, query.UpdateAllowingNoWhere(company).Set(query.Values{"name": "x"}).Validate())
	require.NoError(t, query.DeleteAllowingNoWhere(company).Validate())
	require.NoError(t, query.Update(company).Set(query.Values{"name": "x"}).Where(expr.EQ(company.C("id"), 1)).Validate())
	require.NoError(t, query.DeleteFrom(company).Where(expr.EQ(company.C("id"), 1)).Validate())
}

func TestUpdate(t *testing.T) {
	s := query.Update(customer).
		Set(query.Values{"last_name": "X", "first_name": "Y"}).
		Set(query.Values{"first_name": "Z"}).
		Where(expr.EQ(customer.C("id"), 1)).
		Where(expr.EQ(customer.C("active"), true))
	n := s.Node()
	require.Len(t, n.Set, 2)
	assert.Equal(t, "first_name", n.Set[0].Column)
	assert.Equal(t, "Z", n.Set[0].Value.(*expr.Literal).Value)
	assert.Equal(t, expr.OpAnd, n.Where.(*expr.Binary).Op)
	require.NoError(t, s.Validate())

	requireValidation(t, query.Update(customer).Set(query.Values{"age": 1}).Where(expr.EQ(customer.C("id"), 1)).Validate(), `no column "age"`)
	view := schema.MustView("v", []schema.ColumnDef{schema.Column("a", field.TypeInt)})
	requireValidation(t, query.UpdateAllowingNoWhere(view).Set(query.Values{"a": 1}).Validate(), "v is a view")
}

func TestDerivedTable(t *testing.T) {
	counts := query.From(customer).GroupBy(customer.C("company_id")).
		Select(expr.F("company_id", customer.C("company_id")), expr.F("total", expr.CountAll())).
		As("counts")
	assert.Equal(t, schema.KindDerived, counts.Kind())
	assert.Equal(t, field.TypeInt, counts.C("total").Type())

	s := query.From(company).Join(counts).On(expr.EQ(counts.C("company_id"), company.C("id"))).
		Select(expr.F("name", company.C("name")), expr.F("total", counts.C("total")))
	require.NoError(t, s.Validate())

	assert.Panics(t, func() { query.From(company).Select(companyFields()...).As("") })
}
