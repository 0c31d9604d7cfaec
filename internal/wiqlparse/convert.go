package wiqlparse

import (
	"fmt"

	"github.com/roach88/qwiq/internal/queryir"
)

// Predicate converts a parsed condition into a query predicate over raw
// field references.
func Predicate(c Cond) (queryir.Predicate, error) {
	switch x := c.(type) {
	case *And:
		ps, err := predicates(x.Terms)
		if err != nil {
			return nil, err
		}
		return queryir.And{Predicates: ps}, nil
	case *Or:
		ps, err := predicates(x.Terms)
		if err != nil {
			return nil, err
		}
		return queryir.Or{Predicates: ps}, nil
	case *Not:
		inner, err := Predicate(x.Cond)
		if err != nil {
			return nil, err
		}
		return queryir.Not{Predicate: inner}, nil
	case *Comparison:
		var rhs queryir.Expr = queryir.Const{Value: x.Operand.Value}
		if x.Operand.IsField() {
			rhs = queryir.FieldRef{Ref: x.Operand.Ref}
		}
		return queryir.Compare{L: queryir.FieldRef{Ref: x.Ref}, Op: queryir.CompareOp(x.Op), R: rhs}, nil
	case *In:
		values := make([]queryir.Expr, len(x.Values))
		for i, v := range x.Values {
			values[i] = queryir.Const{Value: v}
		}
		return queryir.In{L: queryir.FieldRef{Ref: x.Ref}, Values: values}, nil
	}
	return nil, fmt.Errorf("unsupported condition %T", c)
}

func predicates(cs []Cond) ([]queryir.Predicate, error) {
	out := make([]queryir.Predicate, len(cs))
	for i, c := range cs {
		p, err := Predicate(c)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
