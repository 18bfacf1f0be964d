// Package mixin provides reusable column sets for table descriptors and
// the statement helpers that go with them.
//
//	var Document = mixin.Table("document", []schema.ColumnDef{
//	    schema.Column("title", field.TypeString),
//	}, mixin.ID{}, mixin.TenantID{}, mixin.TimeSoftDelete{})
//
//	query.From(Document).Where(expr.And(mixin.Alive(Document), mixin.OfTenant(Document, "acme")))
//
// Available mixins:
//   - CreateTime: created_at
//   - UpdateTime: updated_at
//   - Time: CreateTime and UpdateTime
//   - ID: uuid primary key
//   - SoftDelete: deleted_at
//   - TenantID: tenant_id
//   - TimeSoftDelete: Time and SoftDelete
package mixin

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/quarry/expr"
	"github.com/syssam/quarry/query"
	"github.com/syssam/quarry/schema"
	"github.com/syssam/quarry/schema/field"
)

// Column names written by the mixins.
const (
	CreatedAt = "created_at"
	UpdatedAt = "updated_at"
	DeletedAt = "deleted_at"
	TenantCol = "tenant_id"
	IDCol     = "id"
)

// Mixin is a reusable set of columns.
type Mixin interface {
	Columns() []schema.ColumnDef
}

// Table declares a table whose columns are those of the mixins, in order,
// followed by cols.
func Table(name string, cols []schema.ColumnDef, mixins ...Mixin) *schema.Descriptor {
	var all []schema.ColumnDef
	for _, m := range mixins {
		all = append(all, m.Columns()...)
	}
	return schema.MustTable(name, append(all, cols...))
}

// CreateTime adds a created_at column filled by the database default.
type CreateTime struct{}

// Columns of the create time mixin.
func (CreateTime) Columns() []schema.ColumnDef {
	return []schema.ColumnDef{schema.WithDefault(CreatedAt, field.TypeLocalDateTime)}
}

// UpdateTime adds an updated_at column. Touch sets it on updates.
type UpdateTime struct{}

// Columns of the update time mixin.
func (UpdateTime) Columns() []schema.ColumnDef {
	return []schema.ColumnDef{schema.WithDefault(UpdatedAt, field.TypeLocalDateTime)}
}

// Time composes CreateTime and UpdateTime.
type Time struct{}

// Columns of the time mixin.
func (Time) Columns() []schema.ColumnDef {
	return slices.Concat(CreateTime{}.Columns(), UpdateTime{}.Columns())
}

// ID adds a uuid primary key. WithID generates its values.
type ID struct{}

// Columns of the ID mixin.
func (ID) Columns() []schema.ColumnDef {
	return []schema.ColumnDef{schema.PrimaryKey(IDCol, field.TypeUUID)}
}

// SoftDelete adds a nullable deleted_at column. Rows are marked deleted
// by Delete and filtered with Alive.
type SoftDelete struct{}

// Columns of the soft delete mixin.
func (SoftDelete) Columns() []schema.ColumnDef {
	return []schema.ColumnDef{schema.Optional(DeletedAt, field.TypeLocalDateTime)}
}

// TenantID adds a tenant_id column for row-level tenant isolation.
type TenantID struct{}

// Columns of the tenant mixin.
func (TenantID) Columns() []schema.ColumnDef {
	return []schema.ColumnDef{schema.Column(TenantCol, field.TypeString)}
}

// TimeSoftDelete composes Time and SoftDelete.
type TimeSoftDelete struct{}

// Columns of the time soft delete mixin.
func (TimeSoftDelete) Columns() []schema.ColumnDef {
	return slices.Concat(Time{}.Columns(), SoftDelete{}.Columns())
}

var (
	_ Mixin = CreateTime{}
	_ Mixin = UpdateTime{}
	_ Mixin = Time{}
	_ Mixin = ID{}
	_ Mixin = SoftDelete{}
	_ Mixin = TenantID{}
	_ Mixin = TimeSoftDelete{}
)

// WithID returns a copy of v with a new uuid as id, unless v has one.
func WithID(v query.Values) query.Values {
	c := make(query.Values, len(v)+1)
	for k, x := range v {
		c[k] = x
	}
	if _, ok := c[IDCol]; !ok {
		c[IDCol] = uuid.New()
	}
	return c
}

// Touch returns a copy of v setting updated_at to now.
func Touch(v query.Values, now time.Time) query.Values {
	c := make(query.Values, len(v)+1)
	for k, x := range v {
		c[k] = x
	}
	c[UpdatedAt] = now
	return c
}

// Alive matches the rows of d that are not soft-deleted.
func Alive(d *schema.Descriptor) expr.Expr {
	return expr.IsNull(d.C(DeletedAt))
}

// OfTenant matches the rows of d belonging to tenant.
func OfTenant(d *schema.Descriptor, tenant string) expr.Expr {
	return expr.EQ(d.C(TenantCol), tenant)
}

// Delete soft-deletes the live rows of d matching pred.
func Delete(d *schema.Descriptor, pred expr.Expr, now time.Time) *query.UpdateStmt {
	return query.Update(d).
		Set(query.Values{DeletedAt: now}).
		Where(expr.And(pred, Alive(d)))
}
