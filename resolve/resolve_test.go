package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/quarry"
	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/resolve"
	"github.com/syssam/quarry/schema/field"
)

func objects(dropNulls, useEmpty bool) compiler.ShapeField {
	return compiler.ShapeField{
		Name: "customers",
		Type: field.TypeArray,
		Array: &compiler.Shape{Fields: []compiler.ShapeField{
			{Name: "id", Type: field.TypeInt},
			{Name: "name", Type: field.TypeString, Nullable: true},
			{Name: "active", Type: field.TypeBool},
		}},
		DropNulls: dropNulls,
		UseEmpty:  useEmpty,
	}
}

func TestDecodeArrayObjects(t *testing.T) {
	v, err := resolve.DecodeArray(`[{"id":1,"name":"Ann","active":1},{"id":2,"name":null,"active":false}]`, objects(false, false), nil)
	require.NoError(t, err)
	assert.Equal(t, []resolve.Row{
		{"id": int64(1), "name": "Ann", "active": true},
		{"id": int64(2), "active": false},
	}, v)
}

func TestDecodeArrayPolicy(t *testing.T) {
	leftJoined := `[{"id":null,"name":null,"active":null}]`
	tests := []struct {
		name      string
		raw       any
		dropNulls bool
		useEmpty  bool
		want      any
	}{
		{"null without default", nil, false, false, nil},
		{"null with empty default", nil, false, true, []resolve.Row{}},
		{"empty document", "[]", false, false, nil},
		{"unmatched left join", leftJoined, true, false, nil},
		{"unmatched left join with empty default", []byte(leftJoined), true, true, []resolve.Row{}},
		{"null object kept", leftJoined, false, false, []resolve.Row{{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := resolve.DecodeArray(tt.raw, objects(tt.dropNulls, tt.useEmpty), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestDecodeArrayValues(t *testing.T) {
	f := compiler.ShapeField{
		Name:      "scores",
		Array:     &compiler.Shape{Single: true, Fields: []compiler.ShapeField{{Name: "result", Type: field.TypeDouble}}},
		DropNulls: true,
	}
	v, err := resolve.DecodeArray(`[1.5, null, 2]`, f, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{1.5, float64(2)}, v)

	_, err = resolve.DecodeArray(42, f, nil)
	assert.Error(t, err)
	_, err = resolve.DecodeArray(`{"not":"an array"}`, f, nil)
	assert.Error(t, err)
}

func TestDecodeArrayNested(t *testing.T) {
	inner := compiler.ShapeField{
		Name:  "tags",
		Array: &compiler.Shape{Single: true, Fields: []compiler.ShapeField{{Name: "result", Type: field.TypeString}}},
	}
	f := compiler.ShapeField{
		Name:  "items",
		Array: &compiler.Shape{Fields: []compiler.ShapeField{{Name: "id", Type: field.TypeInt}, inner}},
	}
	// Nested documents may arrive as JSON text.
	v, err := resolve.DecodeArray(`[{"id":1,"tags":"[\"a\",\"b\"]"},{"id":2,"tags":["c"]},{"id":3,"tags":null}]`, f, nil)
	require.NoError(t, err)
	assert.Equal(t, []resolve.Row{
		{"id": int64(1), "tags": []any{"a", "b"}},
		{"id": int64(2), "tags": []any{"c"}},
		{"id": int64(3)},
	}, v)
}

func TestDecodeRowsConverter(t *testing.T) {
	shape := &compiler.Shape{Fields: []compiler.ShapeField{
		{Name: "id", Type: field.TypeInt},
		{Name: "active", Type: field.TypeBool},
		{Name: "note", Type: field.TypeString, Nullable: true},
	}}
	conv := func(v any, t field.Type) (any, error) {
		if t == field.TypeBool {
			return v.(int64) == 1, nil
		}
		return v, nil
	}
	rows, err := resolve.DecodeRows([][]any{{int64(1), int64(1), "x"}, {int64(2), int64(0), nil}}, shape, conv)
	require.NoError(t, err)
	assert.Equal(t, []resolve.Row{
		{"id": int64(1), "active": true, "note": "x"},
		{"id": int64(2), "active": false},
	}, rows)

	_, err = resolve.DecodeRows([][]any{{int64(1)}}, shape, conv)
	assert.Error(t, err)

	values, err := resolve.DecodeValues([][]any{{int64(1), int64(0), nil}, {nil, nil, nil}}, shape, conv)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), nil}, values)
}

func TestCompose(t *testing.T) {
	outer := func() []resolve.Row {
		return []resolve.Row{{"id": int64(1)}, {"id": int64(2)}, {"id": int64(1)}, {"name": "orphan"}}
	}
	fetched := func() []resolve.Row {
		return []resolve.Row{
			{"companyId": int64(1), "name": "a"},
			{"companyId": int64(3), "name": "z"},
			{"companyId": int64(1), "name": "b"},
		}
	}

	assert.Equal(t, []any{int64(1), int64(2)}, resolve.Seeds(outer(), "id"))

	t.Run("many", func(t *testing.T) {
		rows := outer()
		c := resolve.Compose{External: "id", Internal: "companyId", Property: "customers"}
		require.NoError(t, c.Attach(rows, fetched()))
		assert.Equal(t, []resolve.Row{{"name": "a"}, {"name": "b"}}, rows[0]["customers"])
		assert.NotContains(t, rows[1], "customers")
		assert.Equal(t, rows[0]["customers"], rows[2]["customers"])
		assert.NotContains(t, rows[3], "customers")
	})

	t.Run("outer rows sharing a key get their own rows", func(t *testing.T) {
		rows := outer()
		c := resolve.Compose{External: "id", Internal: "companyId", Property: "customers"}
		require.NoError(t, c.Attach(rows, fetched()))
		rows[0]["customers"].([]resolve.Row)[0]["name"] = "changed"
		assert.Equal(t, []resolve.Row{{"name": "a"}, {"name": "b"}}, rows[2]["customers"])

		rows = []resolve.Row{{"id": int64(3)}, {"id": int64(3)}}
		c = resolve.Compose{External: "id", Internal: "companyId", Property: "first", Kind: resolve.ComposeOne}
		require.NoError(t, c.Attach(rows, fetched()))
		rows[0]["first"].(resolve.Row)["name"] = "changed"
		assert.Equal(t, resolve.Row{"name": "z"}, rows[1]["first"])
	})

	t.Run("rows without a key match nothing", func(t *testing.T) {
		rows := []resolve.Row{{"name": "orphan"}}
		c := resolve.Compose{External: "id", Internal: "companyId", Property: "customers", UseEmpty: true}
		require.NoError(t, c.Attach(rows, []resolve.Row{{"name": "untagged"}}))
		assert.Equal(t, []resolve.Row{}, rows[0]["customers"])
	})

	t.Run("many with empty default", func(t *testing.T) {
		rows := outer()
		c := resolve.Compose{External: "id", Internal: "companyId", Property: "customers", UseEmpty: true}
		require.NoError(t, c.Attach(rows, fetched()))
		assert.Equal(t, []resolve.Row{}, rows[1]["customers"])
	})

	t.Run("none or one", func(t *testing.T) {
		rows := []resolve.Row{{"id": int64(2)}, {"id": int64(3)}}
		c := resolve.Compose{External: "id", Internal: "companyId", Property: "first", Kind: resolve.ComposeNoneOrOne}
		require.NoError(t, c.Attach(rows, fetched()))
		assert.NotContains(t, rows[0], "first")
		assert.Equal(t, resolve.Row{"name": "z"}, rows[1]["first"])
	})

	t.Run("one", func(t *testing.T) {
		rows := []resolve.Row{{"id": int64(1)}, {"id": int64(2)}}
		c := resolve.Compose{External: "id", Internal: "companyId", Property: "first", Kind: resolve.ComposeOne}
		err := c.Attach(rows, fetched())
		require.Error(t, err)
		assert.True(t, quarry.IsNotSingular(err))
		assert.True(t, quarry.IsNotFound(err))
	})
}
