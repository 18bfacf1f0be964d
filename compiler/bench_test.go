package compiler_test

import (
	"testing"

	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/query"
	"github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/field"
)

var benchDialects = []string{dialect.SQLite, dialect.MySQL, dialect.Postgres, dialect.SQLServer}

var users = schema.MustTable("users", []schema.ColumnDef{
	schema.AutoID("id", field.TypeInt),
	schema.Column("name", field.TypeString),
	schema.Optional("email", field.TypeString),
	schema.Column("age", field.TypeInt),
	schema.Column("status", field.TypeString),
	schema.Column("role", field.TypeString),
	schema.Column("department", field.TypeString),
	schema.WithDefault("created_at", field.TypeLocalDateTime),
})

func benchCompile(b *testing.B, stmt query.Statement) {
	for _, d := range benchDialects {
		b.Run(d, func(b *testing.B) {
			c := compiler.New(dialect.MustProfile(d))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := c.Compile(stmt); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkCompileInsert(b *testing.B) {
	benchCompile(b, query.InsertInto(users).Values(query.Values{
		"name": "Ariel", "email": "a8m@example.com", "age": 30,
		"status": "active", "role": "admin", "department": "engineering",
	}))
}

func BenchmarkCompileSelectSimple(b *testing.B) {
	benchCompile(b, query.From(users).Select(
		expr.F("id", users.C("id")),
		expr.F("name", users.C("name")),
		expr.F("email", users.C("email")),
	))
}

func BenchmarkCompileSelectComplex(b *testing.B) {
	benchCompile(b, query.From(users).
		Where(expr.And(
			expr.EQ(users.C("status"), "active"),
			expr.Or(expr.GT(users.C("age"), 18), expr.EQ(users.C("role"), "admin")),
			expr.In(users.C("department"), "engineering", "product", "design"),
			expr.NotNull(users.C("email")),
		)).
		Select(expr.F("id", users.C("id")), expr.F("name", users.C("name"))).
		OrderBy(users.C("name")).
		Limit(100).
		Offset(50))
}

func BenchmarkCompileUpdate(b *testing.B) {
	benchCompile(b, query.Update(users).
		Set(query.Values{"name": "John", "status": "active", "age": 31}).
		Where(expr.In(users.C("id"), 1, 2, 3, 4, 5)))
}

func BenchmarkCompileDelete(b *testing.B) {
	benchCompile(b, query.DeleteFrom(users).
		Where(expr.And(
			expr.EQ(users.C("status"), "deleted"),
			expr.NotIn(users.C("role"), "admin", "moderator"),
		)))
}

func BenchmarkCompileArrayAgg(b *testing.B) {
	member := users.As("member")
	team := query.From(member).
		Where(expr.EQ(member.C("department"), users.C("department"))).
		Select(expr.F("id", member.C("id")), expr.F("name", member.C("name"))).
		AsArray()
	stmt := query.From(users).Select(expr.F("id", users.C("id")), expr.F("team", team))
	for _, d := range []string{dialect.SQLite, dialect.MySQL, dialect.Postgres} {
		b.Run(d, func(b *testing.B) {
			c := compiler.New(dialect.MustProfile(d))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := c.Compile(stmt); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
