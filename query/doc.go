// Package query builds statement trees.
//
// Selects are assembled through stages, each a distinct type, so that
// clauses can only be given in SQL order:
//
//	query.From(Company).                      // *SelectFrom
//	    LeftJoin(parent).On(pred).            // *SelectFrom
//	    Where(expr.EQ(Company.C("id"), 1)).   // *SelectWhere
//	    GroupBy(Company.C("name")).           // *SelectGrouped
//	    Having(expr.GT(expr.CountAll(), 1)).  // *SelectHaving
//	    Select(expr.F("name", Company.C("name"))). // *SelectStmt
//	    OrderBy(Company.C("name")).
//	    Limit(10)
//
// A *SelectStmt can be combined with set operations, turned into a
// recursive query, embedded as a scalar value, an EXISTS predicate or an
// aggregated array, or used as a derived table.
//
// Mutations start with InsertInto, Update, DeleteFrom and their
// AllowingNoWhere variants. Updates and deletes without a filter are
// rejected unless started with UpdateAllowingNoWhere or
// DeleteAllowingNoWhere.
//
// Every statement is immutable: each call returns a new statement. Validate
// reports grouping errors, missing filters, malformed recursion, unknown
// columns and category mismatches as *quarry.ValidationError values before
// anything is compiled.
package query
