package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/schema/field"
)

func TestFromDB(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	day := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)
	tr := defaultTransformers(dialect.MustProfile(dialect.SQLite))
	tests := []struct {
		name string
		typ  field.Type
		in   any
		want any
	}{
		{"bool from int", field.TypeBool, int64(1), true},
		{"bool from zero", field.TypeBool, int64(0), false},
		{"bool from text", field.TypeBool, []byte("true"), true},
		{"bool from numeric text", field.TypeBool, "0", false},
		{"int from bytes", field.TypeInt, []byte("42"), int64(42)},
		{"int from whole float", field.TypeInt, float64(7), int64(7)},
		{"int from int32", field.TypeInt, int32(-3), int64(-3)},
		{"double from int", field.TypeDouble, int64(2), float64(2)},
		{"double from text", field.TypeDouble, "1.5", 1.5},
		{"string from bytes", field.TypeString, []byte("ACME"), "ACME"},
		{"uuid from text", field.TypeUUID, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", id},
		{"uuid from blob", field.TypeUUID, id[:], id},
		{"date from text", field.TypeLocalDate, "1990-05-17", day},
		{"date from datetime text", field.TypeLocalDate, "1990-05-17 00:00:00", day},
		{"time from text", field.TypeLocalTime, "13:45:10", time.Date(0, 1, 1, 13, 45, 10, 0, time.UTC)},
		{"datetime from iso text", field.TypeLocalDateTime, "1990-05-17T08:30:00", day.Add(8*time.Hour + 30*time.Minute)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr[tt.typ].FromDB(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromDBErrors(t *testing.T) {
	tr := defaultTransformers(dialect.MustProfile(dialect.Postgres))
	tests := []struct {
		name string
		typ  field.Type
		in   any
	}{
		{"fractional int", field.TypeInt, 1.5},
		{"int from text", field.TypeInt, "ten"},
		{"bool from text", field.TypeBool, "maybe"},
		{"uuid from text", field.TypeUUID, "not-a-uuid"},
		{"date from text", field.TypeLocalDate, "17/05/1990"},
		{"date from int", field.TypeLocalDate, int64(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr[tt.typ].FromDB(tt.in)
			assert.Error(t, err)
		})
	}
}

func TestToDB(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	at := time.Date(2024, 2, 29, 23, 59, 1, 500, time.UTC)
	tests := []struct {
		name    string
		dialect string
		param   compiler.Param
		want    any
	}{
		{"bool as integer", dialect.MySQL, compiler.Param{Value: false, Type: field.TypeBool}, int64(0)},
		{"native bool", dialect.Postgres, compiler.Param{Value: true, Type: field.TypeBool}, true},
		{"uuid text", dialect.MySQL, compiler.Param{Value: id, Type: field.TypeUUID, UUID: dialect.UUIDString}, id.String()},
		{"uuid text from string", dialect.Postgres, compiler.Param{Value: id.String(), Type: field.TypeUUID, UUID: dialect.UUIDString}, id.String()},
		{"uuid binary", dialect.Oracle, compiler.Param{Value: id, Type: field.TypeUUID, UUID: dialect.UUIDBinary}, id[:]},
		{"date", dialect.SQLite, compiler.Param{Value: at, Type: field.TypeLocalDate}, "2024-02-29"},
		{"time", dialect.SQLite, compiler.Param{Value: at, Type: field.TypeLocalTime}, "23:59:01.0000005"},
		{"datetime", dialect.Postgres, compiler.Param{Value: at, Type: field.TypeLocalDateTime}, "2024-02-29 23:59:01.0000005"},
		{"date as text", dialect.SQLite, compiler.Param{Value: "2024-02-29", Type: field.TypeLocalDate}, "2024-02-29"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := defaultTransformers(dialect.MustProfile(tt.dialect))[tt.param.Type]
			require.NotNil(t, tr.ToDB)
			got, err := tr.ToDB(tt.param)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
