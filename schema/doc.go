// Package schema declares the relations statements are built from.
//
// A Descriptor is declared once with NewTable, NewView or NewValues and is
// immutable afterwards. Every column accessor returns an expression node
// bound to that descriptor instance:
//
//	var Company = schema.MustTable("company", []schema.ColumnDef{
//	    schema.AutoID("id", field.TypeInt),
//	    schema.Column("name", field.TypeString),
//	    schema.Optional("parent_id", field.TypeInt),
//	    schema.WithDefault("active", field.TypeBool),
//	})
//
//	Company.C("name") // *expr.Column bound to Company
//
// # Column Roles
//
//	schema.Column("name", t)       // required on insert, NOT NULL
//	schema.Optional("bio", t)      // may be omitted on insert, nullable
//	schema.PrimaryKey("code", t)   // primary key provided by the caller
//	schema.AutoID("id", t)         // primary key generated by the database
//	schema.WithDefault("active", t) // may be omitted on insert, NOT NULL
//
// At most one AutoID column is allowed per descriptor.
//
// # Aliases and Left Joins
//
// The same table used twice in one statement needs two instances:
//
//	parent := Company.As("parent")
//
// ForLeftJoin and ForLeftJoinAs return instances whose columns are all
// nullable, reflecting rows that may be missing on the right side of a
// left join.
//
// # UUID Storage
//
// WithUUIDStrategy selects between native/text and 16-byte binary storage of
// the uuid columns of a relation. The compiler consults it when it needs the
// text form of a uuid, and when it binds uuid parameters.
package schema
