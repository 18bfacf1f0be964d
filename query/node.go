package query

import (
	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/schema"
)

// Statement is implemented by every statement tree.
type Statement interface {
	// Validate checks the tree and returns a *quarry.ValidationError (or
	// an aggregate of them) describing every problem found.
	Validate() error
}

// Selectable is a statement producing rows: a select, a set operation or
// a recursive query. Selectables can be executed, embedded as values and
// used as derived tables.
type Selectable interface {
	Statement
	expr.Statement
	selectable()
}

// JoinKind is the kind of a join.
type JoinKind uint8

// Join kinds.
const (
	InnerJoin JoinKind = iota + 1
	LeftJoin
	CrossJoin
)

// Join is a joined source.
type Join struct {
	Kind   JoinKind
	Source *schema.Descriptor
	On     expr.Expr
}

// Order is an ordering term.
type Order struct {
	Expr expr.Expr
	Desc bool
}

// Paging holds the limit and offset of a statement. Nil means unset.
type Paging struct {
	Limit  *int
	Offset *int
}

func (p Paging) set() bool { return p.Limit != nil || p.Offset != nil }

// SetOp is a set operation joining selects.
type SetOp uint8

// Set operations.
const (
	Union SetOp = iota + 1
	UnionAll
	Intersect
	Except
)

func (op SetOp) String() string {
	switch op {
	case Union:
		return "UNION"
	case UnionAll:
		return "UNION ALL"
	case Intersect:
		return "INTERSECT"
	case Except:
		return "EXCEPT"
	default:
		return "?"
	}
}

// ReturnKind is what a mutation hands back.
type ReturnKind uint8

// Returning kinds.
const (
	ReturnNone ReturnKind = iota
	// ReturnLastID returns the generated ids of inserted rows, through
	// RETURNING or the driver's last insert id.
	ReturnLastID
	// ReturnFields returns objects built from the given fields.
	ReturnFields
	// ReturnOne returns the single value of one field.
	ReturnOne
)

// Returning is the returning clause of a mutation.
type Returning struct {
	Kind   ReturnKind
	Fields []expr.Field
}

// Assignment sets a column.
type Assignment struct {
	Column string
	Value  expr.Expr
}

// Values holds column values keyed by column name. A value is either an
// expression or a host value bound as a parameter of the column's
// category.
type Values map[string]any

// SelectNode is the tree of a select statement.
type SelectNode struct {
	From     []*schema.Descriptor
	Joins    []Join
	Where    expr.Expr
	GroupBy  []expr.Expr
	Having   expr.Expr
	Fields   []expr.Field
	Single   bool
	Distinct bool
	Order    []Order
	Paging   Paging
}

// CompoundNode is the tree of a set operation chain. Ops[i] joins
// Members[i] and Members[i+1].
type CompoundNode struct {
	Members []*SelectStmt
	Ops     []SetOp
	Order   []Order
	Paging  Paging
}

// RecursiveNode is the tree of a recursive query.
type RecursiveNode struct {
	Anchor *SelectStmt
	Handle *schema.Descriptor
	Branch *SelectStmt
	// Distinct joins anchor and branch with UNION instead of UNION ALL.
	Distinct bool
	Order    []Order
	Paging   Paging
}

// InsertNode is the tree of an insert. A nil value in a row stands for
// the column default.
type InsertNode struct {
	Table         *schema.Descriptor
	Columns       []string
	Rows          [][]expr.Expr
	DefaultValues bool
	From          Selectable
	Returning     Returning
	Conflict      *Conflict
}

// Conflict is the upsert clause of an insert.
type Conflict struct {
	Columns   []string
	DoNothing bool
	Set       []Assignment
	// FromInsert lists columns set to the value the insert proposed.
	FromInsert []string
}

// UpdateNode is the tree of an update.
type UpdateNode struct {
	Table        *schema.Descriptor
	Set          []Assignment
	From         []*schema.Descriptor
	Where        expr.Expr
	AllowNoWhere bool
	Returning    Returning
}

// DeleteNode is the tree of a delete.
type DeleteNode struct {
	Table        *schema.Descriptor
	Using        []*schema.Descriptor
	Where        expr.Expr
	AllowNoWhere bool
	Returning    Returning
}
