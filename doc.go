// Package quarry builds SQL statements as typed trees and compiles them
// for PostgreSQL, SQLite, MySQL, SQL Server and Oracle.
//
// Tables and views are described once with schema.MustTable. Statements
// are assembled with the staged builders of package query, compiled by
// package compiler for a dialect's capability profile and executed by a
// session.Connection over any dialect.Runner:
//
//	company := schema.MustTable("company", []schema.ColumnDef{
//	    schema.AutoID("id", field.TypeInt),
//	    schema.Column("name", field.TypeString),
//	})
//	conn := session.New(runner)
//	rows, err := conn.SelectMany(ctx, query.From(company).
//	    Where(expr.Contains(company.C("name"), "ACME")).
//	    Select(expr.F("id", company.C("id")), expr.F("name", company.C("name"))))
//
// This package holds the error types shared by every layer. Failures are
// classified as validation, compilation, execution or transaction state
// errors and each kind matches its sentinel through errors.Is.
package quarry
