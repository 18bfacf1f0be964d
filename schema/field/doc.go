// Package field defines value categories and column roles.
//
// A value category (Type) is attached to every expression node and column.
// It drives type checking when expressions are combined, SQL emission in the
// compiler and value conversion at the execution boundary:
//
//	field.TypeBool          // true/false, 0/1 on dialects without booleans
//	field.TypeInt           // int64
//	field.TypeDouble        // float64
//	field.TypeString        // string
//	field.TypeUUID          // uuid.UUID, text or 16-byte blob
//	field.TypeLocalDate     // time.Time, date part only
//	field.TypeLocalTime     // time.Time, time part only
//	field.TypeLocalDateTime // time.Time
//	field.TypeCustom        // passed through untouched
//
// Int and double compare with each other; custom values are opaque and
// compare with anything.
//
// # Roles
//
// A Role tags a column of a table:
//
//	field.RolePlain                   // required on insert
//	field.RoleOptional                // may be omitted, nullable
//	field.RolePrimaryKey              // required on insert
//	field.RoleAutogeneratedPrimaryKey // generated by the database
//	field.RoleHasDefault              // may be omitted, database default
package field
