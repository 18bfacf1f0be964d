package field_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/quarry/schema/field"
)

func TestTypeString(t *testing.T) {
	assert.Equal(t, "boolean", field.TypeBool.String())
	assert.Equal(t, "localDateTime", field.TypeLocalDateTime.String())
	assert.Equal(t, "invalid", field.Type(200).String())
	assert.False(t, field.TypeInvalid.Valid())
	assert.True(t, field.TypeCustom.Valid())
}

func TestComparable(t *testing.T) {
	tests := []struct {
		a, b field.Type
		want bool
	}{
		{field.TypeInt, field.TypeInt, true},
		{field.TypeInt, field.TypeDouble, true},
		{field.TypeString, field.TypeInt, false},
		{field.TypeUUID, field.TypeString, false},
		{field.TypeCustom, field.TypeLocalDate, true},
		{field.TypeArray, field.TypeArray, false},
		{field.TypeLocalDate, field.TypeLocalDateTime, false},
	}
	for _, tt := range tests {
		t.Run(tt.a.String()+"/"+tt.b.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, field.Comparable(tt.a, tt.b))
			assert.Equal(t, tt.want, field.Comparable(tt.b, tt.a))
		})
	}
}

func TestTypePredicates(t *testing.T) {
	assert.True(t, field.TypeDouble.Numeric())
	assert.False(t, field.TypeString.Numeric())
	assert.True(t, field.TypeLocalTime.Temporal())
	assert.True(t, field.TypeString.Ordered())
	assert.False(t, field.TypeBool.Ordered())
	assert.False(t, field.TypeUUID.Ordered())
}

func TestRole(t *testing.T) {
	assert.True(t, field.RolePlain.Required())
	assert.True(t, field.RolePrimaryKey.Required())
	assert.False(t, field.RoleOptional.Required())
	assert.False(t, field.RoleAutogeneratedPrimaryKey.Required())
	assert.False(t, field.RoleHasDefault.Required())
	assert.True(t, field.RoleAutogeneratedPrimaryKey.PrimaryKey())
	assert.False(t, field.RoleHasDefault.PrimaryKey())
	assert.Equal(t, "hasDefault", field.RoleHasDefault.String())
}
