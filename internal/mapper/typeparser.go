package mapper

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/roach88/qwiq/internal/ir"
)

// Bounds of int64 as float64. maxInt64 itself is 2^63 and does not fit.
const (
	minInt64 = float64(math.MinInt64)
	maxInt64 = -minInt64
)

// TypeParser converts raw store values to the native form of a declared
// kind: int64 for Int and Ref, float64, string, time.Time or bool.
//
// Conversions that would lose information are rejected: fractional doubles
// to integers, dates to numbers and numbers to dates.
type TypeParser struct{}

// Parse converts v. A null value yields (nil, nil); the caller leaves the
// property at its zero value.
func (TypeParser) Parse(v ir.Value, kind ir.Kind) (any, error) {
	if ir.IsNull(v) {
		return nil, nil
	}
	native := ir.Native(v)

	switch kind {
	case ir.KindInt, ir.KindRef:
		switch x := v.(type) {
		case ir.String:
			// Decimal only: cast would read "010" as octal.
			return strconv.ParseInt(strings.TrimSpace(string(x)), 10, 64)
		case ir.Double:
			f := float64(x)
			if f != math.Trunc(f) {
				return nil, fmt.Errorf("%v has a fractional part", f)
			}
			if f < minInt64 || f >= maxInt64 {
				return nil, fmt.Errorf("%v is out of range for %s", f, kind)
			}
		case ir.Date, ir.Bool:
			return nil, fmt.Errorf("cannot convert %s to %s", v.Kind(), kind)
		}
		return cast.ToInt64E(native)
	case ir.KindDouble:
		switch v.(type) {
		case ir.Date, ir.Bool:
			return nil, fmt.Errorf("cannot convert %s to %s", v.Kind(), kind)
		}
		f, err := cast.ToFloat64E(native)
		if err != nil {
			return nil, err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("%v is not a finite number", native)
		}
		return f, nil
	case ir.KindString:
		if d, ok := v.(ir.Date); ok {
			return d.UTC().Format(time.RFC3339), nil
		}
		return cast.ToStringE(native)
	case ir.KindDate:
		switch v.(type) {
		case ir.Date, ir.String:
		default:
			return nil, fmt.Errorf("cannot convert %s to %s", v.Kind(), kind)
		}
		t, err := cast.ToTimeE(native)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	case ir.KindBool:
		if _, ok := v.(ir.Date); ok {
			return nil, fmt.Errorf("cannot convert %s to %s", v.Kind(), kind)
		}
		return cast.ToBoolE(native)
	}
	return nil, fmt.Errorf("unsupported kind %s", kind)
}
