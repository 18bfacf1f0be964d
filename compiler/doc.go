// Package compiler turns statement trees into SQL text and ordered
// parameters for one dialect.
//
// A Compiler is built from a capability profile:
//
//	c := compiler.New(dialect.MustProfile(dialect.Postgres))
//	q, err := c.Compile(stmt)
//	// q.SQL, q.Args()
//
// Literals are always bound as parameters and placeholders are numbered
// left to right. Features the profile lacks, such as aggregated arrays on
// SQL Server or RETURNING on MySQL, fail with a *quarry.CompilationError.
// Generated ids fall back to the driver's last insert id instead.
//
// Compile validates the tree first, so a compiled Query always comes from
// a well-formed statement. Each Query carries the Shape of its rows, which
// the session package uses to decode aggregated arrays and to convert
// values back to their categories.
package compiler
