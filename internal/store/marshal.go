package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cast"

	"github.com/roach88/qwiq/internal/ir"
)

// dateLayout is the stored form of dates. Every stored date has the same
// width, so text order is chronological order.
const dateLayout = "2006-01-02T15:04:05Z"

// column returns the field_values column that holds values of kind.
func column(kind ir.Kind) string {
	switch kind {
	case ir.KindInt, ir.KindRef, ir.KindBool:
		return "int_value"
	case ir.KindDouble:
		return "real_value"
	default:
		return "text_value"
	}
}

// encodeValue converts a raw value to the storage form of kind. Null
// encodes to nil.
func encodeValue(kind ir.Kind, raw any) (any, error) {
	if v, ok := raw.(ir.Value); ok {
		raw = ir.Native(v)
	}
	if raw == nil {
		return nil, nil
	}
	switch kind {
	case ir.KindInt, ir.KindRef:
		return cast.ToInt64E(raw)
	case ir.KindBool:
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return nil, err
		}
		if b {
			return int64(1), nil
		}
		return int64(0), nil
	case ir.KindDouble:
		return cast.ToFloat64E(raw)
	case ir.KindDate:
		t, err := cast.ToTimeE(raw)
		if err != nil {
			return nil, err
		}
		return t.UTC().Format(dateLayout), nil
	case ir.KindString:
		return cast.ToStringE(raw)
	}
	return nil, fmt.Errorf("unsupported kind %s", kind)
}

// decodeValue converts a stored row back into a value of kind.
func decodeValue(kind ir.Kind, i sql.NullInt64, f sql.NullFloat64, s sql.NullString) (ir.Value, error) {
	switch kind {
	case ir.KindInt:
		if i.Valid {
			return ir.Int(i.Int64), nil
		}
	case ir.KindRef:
		if i.Valid {
			return ir.Ref(i.Int64), nil
		}
	case ir.KindBool:
		if i.Valid {
			return ir.Bool(i.Int64 != 0), nil
		}
	case ir.KindDouble:
		if f.Valid {
			return ir.Double(f.Float64), nil
		}
	case ir.KindDate:
		if s.Valid {
			t, err := time.Parse(time.RFC3339, s.String)
			if err != nil {
				return nil, fmt.Errorf("decode date %q: %w", s.String, err)
			}
			return ir.NewDate(t), nil
		}
	case ir.KindString:
		if s.Valid {
			return ir.String(s.String), nil
		}
	default:
		return nil, fmt.Errorf("unsupported kind %s", kind)
	}
	return ir.Null{}, nil
}
