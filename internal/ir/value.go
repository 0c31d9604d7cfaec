package ir

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Value is a sealed interface representing a typed field value.
// Only Null, Int, Double, String, Date, Ref and Bool implement this.
type Value interface {
	irValue() // Sealed - only these types implement it
	Kind() Kind
}

// Kind identifies the declared type of a field or value.
type Kind int

const (
	KindNull Kind = iota
	KindInt
	KindDouble
	KindString
	KindDate
	KindRef
	KindBool
)

var kindNames = [...]string{
	KindNull:   "null",
	KindInt:    "int",
	KindDouble: "double",
	KindString: "string",
	KindDate:   "date",
	KindRef:    "ref",
	KindBool:   "bool",
}

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind returns the Kind named by s ("int", "string", ...).
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(name, s) {
			return Kind(k), nil
		}
	}
	return KindNull, fmt.Errorf("unknown kind %q", s)
}

// Null represents an absent field value.
type Null struct{}

func (Null) irValue()   {}
func (Null) Kind() Kind { return KindNull }

// Int represents an integer field value.
type Int int64

func (Int) irValue()   {}
func (Int) Kind() Kind { return KindInt }

// Double represents a floating point field value.
type Double float64

func (Double) irValue()   {}
func (Double) Kind() Kind { return KindDouble }

// String represents a text field value.
type String string

func (String) irValue()   {}
func (String) Kind() Kind { return KindString }

// Ref represents an identifier reference to another work item.
type Ref int64

func (Ref) irValue()   {}
func (Ref) Kind() Kind { return KindRef }

// Bool represents a boolean field value.
type Bool bool

func (Bool) irValue()   {}
func (Bool) Kind() Kind { return KindBool }

// Date represents a date-time field value. Always stored in UTC.
type Date struct {
	time.Time
}

func (Date) irValue()   {}
func (Date) Kind() Kind { return KindDate }

// NewDate creates a Date normalized to UTC.
func NewDate(t time.Time) Date {
	return Date{Time: t.UTC()}
}

// StartOfDay truncates a date to midnight UTC.
func (d Date) StartOfDay() Date {
	y, m, dd := d.Date()
	return Date{Time: time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)}
}

// ErrDivisionByZero is returned by Arith when the divisor of / or % is zero.
var ErrDivisionByZero = errors.New("division by zero")

// ErrNotFinite is returned by Arith when a Double result is infinite or NaN.
var ErrNotFinite = errors.New("result is not a finite number")

// ErrIncompatible is returned when two values cannot be compared or combined.
var ErrIncompatible = errors.New("incompatible values")

// Of converts a Go native value into a Value.
// Values that already implement Value are returned unchanged.
func Of(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case float32:
		return finite(float64(val))
	case float64:
		return finite(val)
	case bool:
		return Bool(val), nil
	case time.Time:
		return NewDate(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// MustOf is like Of but panics on unsupported types.
func MustOf(v any) Value {
	val, err := Of(v)
	if err != nil {
		panic(err)
	}
	return val
}

// Native returns the Go native form of v: nil, int64, float64, string,
// time.Time or bool.
func Native(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Int:
		return int64(val)
	case Ref:
		return int64(val)
	case Double:
		return float64(val)
	case String:
		return string(val)
	case Date:
		return val.Time
	case Bool:
		return bool(val)
	default:
		return nil
	}
}

// IsNull reports whether v is absent.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Compare orders a and b. Int, Ref and Double compare numerically with each
// other; String, Date and Bool only compare with their own kind.
// Null sorts before everything else.
func Compare(a, b Value) (int, error) {
	if IsNull(a) || IsNull(b) {
		switch {
		case IsNull(a) && IsNull(b):
			return 0, nil
		case IsNull(a):
			return -1, nil
		default:
			return 1, nil
		}
	}

	if an, ok := numeric(a); ok {
		bn, ok := numeric(b)
		if !ok {
			return 0, fmt.Errorf("%w: %s and %s", ErrIncompatible, a.Kind(), b.Kind())
		}
		if ai, aInt := integral(a); aInt {
			if bi, bInt := integral(b); bInt {
				return cmpInt(ai, bi), nil
			}
		}
		return cmpFloat(an, bn), nil
	}

	switch av := a.(type) {
	case String:
		if bv, ok := b.(String); ok {
			return strings.Compare(string(av), string(bv)), nil
		}
	case Date:
		if bv, ok := b.(Date); ok {
			return av.Compare(bv.Time), nil
		}
	case Bool:
		if bv, ok := b.(Bool); ok {
			switch {
			case av == bv:
				return 0, nil
			case !bool(av):
				return -1, nil
			default:
				return 1, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %s and %s", ErrIncompatible, a.Kind(), b.Kind())
}

// Equal reports whether a and b hold the same value.
// Incomparable values are never equal.
func Equal(a, b Value) bool {
	c, err := Compare(a, b)
	return err == nil && c == 0
}

// Arith applies a binary arithmetic operator (+ - * / %) to two values.
// Integer operands produce an Int; any Double operand produces a Double.
// String + String concatenates.
func Arith(op string, a, b Value) (Value, error) {
	if as, ok := a.(String); ok {
		if bs, ok := b.(String); ok && op == "+" {
			return as + bs, nil
		}
		return nil, fmt.Errorf("%w: %s %s %s", ErrIncompatible, a.Kind(), op, b.Kind())
	}

	ai, aInt := integral(a)
	bi, bInt := integral(b)
	if aInt && bInt {
		switch op {
		case "+":
			return Int(ai + bi), nil
		case "-":
			return Int(ai - bi), nil
		case "*":
			return Int(ai * bi), nil
		case "/":
			if bi == 0 {
				return nil, ErrDivisionByZero
			}
			return Int(ai / bi), nil
		case "%":
			if bi == 0 {
				return nil, ErrDivisionByZero
			}
			return Int(ai % bi), nil
		}
		return nil, fmt.Errorf("unknown operator %q", op)
	}

	af, aOK := numeric(a)
	bf, bOK := numeric(b)
	if !aOK || !bOK {
		return nil, fmt.Errorf("%w: %s %s %s", ErrIncompatible, kindOf(a), op, kindOf(b))
	}
	var r float64
	switch op {
	case "+":
		r = af + bf
	case "-":
		r = af - bf
	case "*":
		r = af * bf
	case "/", "%":
		if bf == 0 {
			return nil, ErrDivisionByZero
		}
		if op == "/" {
			r = af / bf
		} else {
			r = math.Mod(af, bf)
		}
	default:
		return nil, fmt.Errorf("unknown operator %q", op)
	}
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return nil, fmt.Errorf("%w: %v %s %v", ErrNotFinite, af, op, bf)
	}
	return Double(r), nil
}

func finite(f float64) (Value, error) {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("%w: %v", ErrNotFinite, f)
	}
	return Double(f), nil
}

func kindOf(v Value) Kind {
	if v == nil {
		return KindNull
	}
	return v.Kind()
}

func numeric(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Ref:
		return float64(val), true
	case Double:
		return float64(val), true
	}
	return 0, false
}

func integral(v Value) (int64, bool) {
	switch val := v.(type) {
	case Int:
		return int64(val), true
	case Ref:
		return int64(val), true
	}
	return 0, false
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
