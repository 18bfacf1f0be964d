package sql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// constraint describes how each driver reports one kind of violation.
type constraint struct {
	pgCode    pq.ErrorCode
	mysqlNums []uint16
	sqliteRC  []int
	fallback  []string
}

var (
	uniqueViolation = constraint{
		pgCode:    "23505",
		mysqlNums: []uint16{1062},
		sqliteRC:  []int{sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY},
		fallback:  []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed"},
	}
	foreignKeyViolation = constraint{
		pgCode: "23503",
		// Cannot delete or update a parent row, cannot add or update a child row.
		mysqlNums: []uint16{1451, 1452},
		sqliteRC:  []int{sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY},
		fallback:  []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"},
	}
	checkViolation = constraint{
		pgCode:    "23514",
		mysqlNums: []uint16{3819},
		sqliteRC:  []int{sqlite3.SQLITE_CONSTRAINT_CHECK},
		fallback:  []string{"Error 3819", "violates check constraint", "CHECK constraint failed"},
	}
)

// IsConstraintError reports if the error resulted from a database
// constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness
// constraint violation, e.g. a duplicate value in a unique index.
func IsUniqueConstraintError(err error) bool {
	return uniqueViolation.match(err)
}

// IsForeignKeyConstraintError reports if the error resulted from a database
// foreign-key constraint violation, e.g. the parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return foreignKeyViolation.match(err)
}

// IsCheckConstraintError reports if the error resulted from a database
// check constraint violation.
func IsCheckConstraintError(err error) bool {
	return checkViolation.match(err)
}

func (c constraint) match(err error) bool {
	if err == nil {
		return false
	}
	var (
		pe *pq.Error
		me *mysql.MySQLError
		se *sqlite.Error
	)
	switch {
	case errors.As(err, &pe):
		return pe.Code == c.pgCode
	case errors.As(err, &me):
		for _, n := range c.mysqlNums {
			if me.Number == n {
				return true
			}
		}
		return false
	case errors.As(err, &se):
		for _, rc := range c.sqliteRC {
			if se.Code() == rc {
				return true
			}
		}
		return false
	}
	// Drivers without typed errors, or errors flattened to text.
	s := err.Error()
	for _, sub := range c.fallback {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
