package qwiq

import (
	"time"

	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/queryir"
)

// Predicate is a filter condition.
type Predicate = queryir.Predicate

// Operand is one side of a comparison: a property of the queried item, a
// constant, or arithmetic over those.
type Operand struct {
	expr queryir.Expr
}

// F refers to a property of the queried item.
func F(property string) Operand {
	return Operand{expr: queryir.Field{Property: property}}
}

// FieldRef refers to a store field by reference name, bypassing bindings.
func FieldRef(ref string) Operand {
	return Operand{expr: queryir.FieldRef{Ref: ref}}
}

// Const wraps a Go value. A value that cannot be represented fails the
// query when it is built.
func Const(v any) Operand {
	if op, ok := v.(Operand); ok {
		return op
	}
	val, err := ir.Of(v)
	if err != nil {
		return Operand{expr: queryir.Call{
			Name: "const",
			Fn:   func([]ir.Value) (ir.Value, error) { return nil, err },
		}}
	}
	return Operand{expr: queryir.Const{Value: val}}
}

// Today is midnight UTC of the day the query is built.
func Today() Operand {
	return Operand{expr: queryir.Call{
		Name: "Today",
		Fn: func([]ir.Value) (ir.Value, error) {
			return ir.NewDate(time.Now()).StartOfDay(), nil
		},
	}}
}

func arith(op string, a, b any) Operand {
	return Operand{expr: queryir.Arith{Op: op, L: Const(a).expr, R: Const(b).expr}}
}

// Add is a + b.
func Add(a, b any) Operand { return arith("+", a, b) }

// Sub is a - b.
func Sub(a, b any) Operand { return arith("-", a, b) }

// Mul is a * b.
func Mul(a, b any) Operand { return arith("*", a, b) }

// Div is a / b.
func Div(a, b any) Operand { return arith("/", a, b) }

func (o Operand) compare(op queryir.CompareOp, v any) Predicate {
	return queryir.Compare{L: o.expr, Op: op, R: Const(v).expr}
}

func (o Operand) Eq(v any) Predicate { return o.compare(queryir.OpEq, v) }
func (o Operand) Ne(v any) Predicate { return o.compare(queryir.OpNe, v) }
func (o Operand) Lt(v any) Predicate { return o.compare(queryir.OpLt, v) }
func (o Operand) Le(v any) Predicate { return o.compare(queryir.OpLe, v) }
func (o Operand) Gt(v any) Predicate { return o.compare(queryir.OpGt, v) }
func (o Operand) Ge(v any) Predicate { return o.compare(queryir.OpGe, v) }

// Contains matches text fields containing s, ignoring case.
func (o Operand) Contains(s string) Predicate { return o.compare(queryir.OpContains, s) }

// Under matches tree paths equal to path or below it.
func (o Operand) Under(path string) Predicate { return o.compare(queryir.OpUnder, path) }

// In matches any of vs. An empty list matches nothing.
func (o Operand) In(vs ...any) Predicate {
	values := make([]queryir.Expr, len(vs))
	for i, v := range vs {
		values[i] = Const(v).expr
	}
	return queryir.In{L: o.expr, Values: values}
}

// And matches when every predicate matches. With no predicates it is true.
func And(ps ...Predicate) Predicate {
	return queryir.And{Predicates: ps}
}

// Or matches when any predicate matches. With no predicates it is false.
func Or(ps ...Predicate) Predicate {
	return queryir.Or{Predicates: ps}
}

// Not negates p.
func Not(p Predicate) Predicate {
	return queryir.Not{Predicate: p}
}

// True and False are constant predicates.
var (
	True  Predicate = queryir.Bool{Value: true}
	False Predicate = queryir.Bool{Value: false}
)
