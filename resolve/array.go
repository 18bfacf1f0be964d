package resolve

import (
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/schema/field"
)

var jsonAPI = jsoniter.Config{UseNumber: true}.Froze()

// Row is an object built from a result row. Null fields are omitted.
type Row map[string]any

// Converter turns a database value into a value of the given category.
type Converter func(v any, t field.Type) (any, error)

// DecodeRows turns raw result rows into objects following shape. Columns
// are matched by position.
func DecodeRows(raw [][]any, shape *compiler.Shape, conv Converter) ([]Row, error) {
	rows := make([]Row, 0, len(raw))
	for i, r := range raw {
		if len(r) != len(shape.Fields) {
			return nil, fmt.Errorf("resolve: row %d has %d columns, want %d", i, len(r), len(shape.Fields))
		}
		row := make(Row, len(r))
		for j, f := range shape.Fields {
			v, err := decodeField(r[j], f, conv)
			if err != nil {
				return nil, err
			}
			if v != nil {
				row[f.Name] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DecodeValues returns the first column of each raw row following shape.
// Null values are kept as nil.
func DecodeValues(raw [][]any, shape *compiler.Shape, conv Converter) ([]any, error) {
	if len(shape.Fields) == 0 {
		return nil, fmt.Errorf("resolve: empty shape")
	}
	values := make([]any, 0, len(raw))
	for i, r := range raw {
		if len(r) == 0 {
			return nil, fmt.Errorf("resolve: row %d has no columns", i)
		}
		v, err := decodeField(r[0], shape.Fields[0], conv)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func decodeField(v any, f compiler.ShapeField, conv Converter) (any, error) {
	if f.Array != nil {
		return DecodeArray(v, f, conv)
	}
	if v == nil {
		return nil, nil
	}
	if conv == nil {
		return v, nil
	}
	cv, err := conv(v, f.Type)
	if err != nil {
		return nil, fmt.Errorf("resolve: field %q: %w", f.Name, err)
	}
	return cv, nil
}

// DecodeArray decodes the JSON document of an aggregated array field.
// Arrays of objects decode to []Row, arrays of values to []any. The result
// is nil when no element remains, or an empty slice when f.UseEmpty is
// set. With f.DropNulls, elements whose values are all null are removed.
func DecodeArray(raw any, f compiler.ShapeField, conv Converter) (any, error) {
	var elems []any
	switch v := raw.(type) {
	case nil:
	case string:
		if err := jsonAPI.UnmarshalFromString(v, &elems); err != nil {
			return nil, fmt.Errorf("resolve: field %q: %w", f.Name, err)
		}
	case []byte:
		if err := jsonAPI.Unmarshal(v, &elems); err != nil {
			return nil, fmt.Errorf("resolve: field %q: %w", f.Name, err)
		}
	case []any:
		elems = v
	default:
		return nil, fmt.Errorf("resolve: field %q: unexpected array value %T", f.Name, raw)
	}
	if f.Array.Single {
		return decodeValues(elems, f, conv)
	}
	return decodeObjects(elems, f, conv)
}

func decodeValues(elems []any, f compiler.ShapeField, conv Converter) (any, error) {
	out := make([]any, 0, len(elems))
	for _, e := range elems {
		v, err := element(e, f.Array.Fields[0], conv)
		if err != nil {
			return nil, err
		}
		if v == nil && f.DropNulls {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 && !f.UseEmpty {
		return nil, nil
	}
	return out, nil
}

func decodeObjects(elems []any, f compiler.ShapeField, conv Converter) (any, error) {
	out := make([]Row, 0, len(elems))
	for _, e := range elems {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("resolve: field %q: element %T is not an object", f.Name, e)
		}
		row := make(Row, len(f.Array.Fields))
		for _, sf := range f.Array.Fields {
			v, err := element(m[sf.Name], sf, conv)
			if err != nil {
				return nil, err
			}
			if v != nil {
				row[sf.Name] = v
			}
		}
		if len(row) == 0 && f.DropNulls {
			continue
		}
		out = append(out, row)
	}
	if len(out) == 0 && !f.UseEmpty {
		return nil, nil
	}
	return out, nil
}

// element converts a value read from a JSON document.
func element(v any, f compiler.ShapeField, conv Converter) (any, error) {
	if n, ok := v.(json.Number); ok {
		v = number(n, f.Type)
	}
	return decodeField(v, f, conv)
}

func number(n json.Number, t field.Type) any {
	switch t {
	case field.TypeDouble:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case field.TypeBool:
		if f, err := n.Float64(); err == nil {
			return f != 0
		}
	default:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return n.String()
}
