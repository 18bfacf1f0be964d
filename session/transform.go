package session

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/quarry/compiler"
	"github.com/syssam/quarry/dialect"
	"github.com/syssam/quarry/schema/field"
)

// Transformer converts the values of one category at the database
// boundary. Either function may be nil, in which case values pass
// through unchanged.
type Transformer struct {
	// ToDB converts a non-null bound parameter before it reaches the
	// runner.
	ToDB func(p compiler.Param) (any, error)
	// FromDB converts a non-null cell read from the runner.
	FromDB func(v any) (any, error)
}

// Layouts of the text form of local dates and times.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05.999999999"
	DateTimeLayout = "2006-01-02 15:04:05.999999999"
)

// defaultTransformers returns the conversions of a dialect. Booleans are
// 0/1 integers where the dialect lacks a native type, local dates and
// times travel as text, uuids as text or 16-byte blobs per the strategy
// the compiler attached to the parameter.
func defaultTransformers(caps *dialect.Capabilities) map[field.Type]Transformer {
	bool2DB := func(p compiler.Param) (any, error) { return p.Value, nil }
	if !caps.SupportsNativeBoolean {
		bool2DB = func(p compiler.Param) (any, error) {
			if b, ok := p.Value.(bool); ok {
				if b {
					return int64(1), nil
				}
				return int64(0), nil
			}
			return p.Value, nil
		}
	}
	return map[field.Type]Transformer{
		field.TypeBool:          {ToDB: bool2DB, FromDB: toBool},
		field.TypeInt:           {FromDB: toInt64},
		field.TypeDouble:        {FromDB: toFloat64},
		field.TypeString:        {FromDB: toString},
		field.TypeUUID:          {ToDB: uuidToDB, FromDB: toUUID},
		field.TypeLocalDate:     {ToDB: timeToDB(DateLayout), FromDB: toTime(DateLayout, DateTimeLayout, time.RFC3339Nano)},
		field.TypeLocalTime:     {ToDB: timeToDB(TimeLayout), FromDB: toTime(TimeLayout)},
		field.TypeLocalDateTime: {ToDB: timeToDB(DateTimeLayout), FromDB: toTime(DateTimeLayout, "2006-01-02T15:04:05.999999999", time.RFC3339Nano, DateLayout)},
	}
}

func toBool(v any) (any, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case []byte:
		return parseBool(string(v))
	case string:
		return parseBool(v)
	}
	n, err := toFloat64(v)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %T to boolean", v)
	}
	return n.(float64) != 0, nil
}

func parseBool(s string) (any, error) {
	if b, err := strconv.ParseBool(s); err == nil {
		return b, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %q to boolean", s)
	}
	return f != 0, nil
}

func toInt64(v any) (any, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", v)
		}
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("cannot convert %v to integer", v)
		}
		return int64(v), nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return nil, fmt.Errorf("cannot convert %T to integer", v)
	}
}

func toFloat64(v any) (any, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	}
	n, err := toInt64(v)
	if err != nil {
		return nil, fmt.Errorf("cannot convert %T to double", v)
	}
	return float64(n.(int64)), nil
}

func toString(v any) (any, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return fmt.Sprint(v), nil
	}
}

func asUUID(v any) (uuid.UUID, error) {
	switch v := v.(type) {
	case uuid.UUID:
		return v, nil
	case [16]byte:
		return uuid.UUID(v), nil
	case string:
		return uuid.Parse(v)
	case []byte:
		if len(v) == 16 {
			return uuid.FromBytes(v)
		}
		return uuid.ParseBytes(v)
	case fmt.Stringer:
		return uuid.Parse(v.String())
	default:
		return uuid.Nil, fmt.Errorf("cannot convert %T to uuid", v)
	}
}

func uuidToDB(p compiler.Param) (any, error) {
	u, err := asUUID(p.Value)
	if err != nil {
		return nil, err
	}
	if p.UUID == dialect.UUIDBinary {
		b := u
		return b[:], nil
	}
	return u.String(), nil
}

func toUUID(v any) (any, error) {
	return asUUID(v)
}

func timeToDB(layout string) func(compiler.Param) (any, error) {
	return func(p compiler.Param) (any, error) {
		if t, ok := p.Value.(time.Time); ok {
			return t.Format(layout), nil
		}
		return p.Value, nil
	}
}

func toTime(layouts ...string) func(any) (any, error) {
	return func(v any) (any, error) {
		var s string
		switch v := v.(type) {
		case time.Time:
			return v, nil
		case string:
			s = v
		case []byte:
			s = string(v)
		default:
			return nil, fmt.Errorf("cannot convert %T to time", v)
		}
		for _, l := range layouts {
			if t, err := time.Parse(l, s); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("cannot parse %q as time", s)
	}
}
