package field

// Type is the semantic value category of an expression or column. It
// drives type checking in expressions, SQL emission in the compiler and
// value conversion at the execution boundary.
type Type uint8

// Value categories.
const (
	TypeInvalid Type = iota
	TypeBool
	TypeInt
	TypeDouble
	TypeString
	TypeUUID
	TypeLocalDate
	TypeLocalTime
	TypeLocalDateTime
	TypeCustom
	// TypeArray is the category of aggregated-array values. It never
	// appears on a column.
	TypeArray
)

var typeNames = [...]string{
	TypeInvalid:       "invalid",
	TypeBool:          "boolean",
	TypeInt:           "int",
	TypeDouble:        "double",
	TypeString:        "string",
	TypeUUID:          "uuid",
	TypeLocalDate:     "localDate",
	TypeLocalTime:     "localTime",
	TypeLocalDateTime: "localDateTime",
	TypeCustom:        "custom",
	TypeArray:         "array",
}

// String returns the category name.
func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "invalid"
}

// Valid reports if the type is a known category.
func (t Type) Valid() bool {
	return t > TypeInvalid && t <= TypeArray
}

// Numeric reports if the type supports arithmetic.
func (t Type) Numeric() bool {
	return t == TypeInt || t == TypeDouble
}

// Temporal reports if the type is one of the local date/time categories.
func (t Type) Temporal() bool {
	return t == TypeLocalDate || t == TypeLocalTime || t == TypeLocalDateTime
}

// Ordered reports if values of the type can be compared with <, <=, > and >=.
func (t Type) Ordered() bool {
	switch t {
	case TypeInt, TypeDouble, TypeString, TypeLocalDate, TypeLocalTime, TypeLocalDateTime, TypeCustom:
		return true
	default:
		return false
	}
}

// Comparable reports if two categories may be compared with each other.
// Identical categories are comparable, int and double coerce to each
// other, and custom values are opaque to the checker.
func Comparable(a, b Type) bool {
	switch {
	case a == TypeArray || b == TypeArray:
		return false
	case a == b:
		return true
	case a.Numeric() && b.Numeric():
		return true
	case a == TypeCustom || b == TypeCustom:
		return true
	default:
		return false
	}
}

// Role is the role a column plays in its table.
type Role uint8

// Column roles.
const (
	RolePlain Role = iota
	RoleOptional
	RolePrimaryKey
	RoleAutogeneratedPrimaryKey
	RoleHasDefault
)

var roleNames = [...]string{
	RolePlain:                   "plain",
	RoleOptional:                "optional",
	RolePrimaryKey:              "primaryKey",
	RoleAutogeneratedPrimaryKey: "autogeneratedPrimaryKey",
	RoleHasDefault:              "hasDefault",
}

// String returns the role name.
func (r Role) String() string {
	if int(r) < len(roleNames) {
		return roleNames[r]
	}
	return "invalid"
}

// Required reports if an insert must provide a value for the column.
func (r Role) Required() bool {
	return r == RolePlain || r == RolePrimaryKey
}

// PrimaryKey reports if the role marks a primary key column.
func (r Role) PrimaryKey() bool {
	return r == RolePrimaryKey || r == RoleAutogeneratedPrimaryKey
}
