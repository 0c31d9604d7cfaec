// Package eval folds every parameter-independent part of a query tree into a
// constant before translation.
package eval

import (
	"fmt"
	"strings"

	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/qerr"
	"github.com/roach88/qwiq/internal/queryir"
)

// Evaluator performs partial evaluation. It is stateless and safe for
// concurrent use.
type Evaluator struct{}

// New creates an Evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate returns a tree in which every expression that does not read the
// query parameter is a Const and every such predicate is a Bool.
// Evaluating an already evaluated tree returns an equal tree.
func (e *Evaluator) Evaluate(n queryir.Node) (queryir.Node, error) {
	switch x := n.(type) {
	case queryir.Source:
		return x, nil
	case queryir.Where:
		in, err := e.Evaluate(x.Input)
		if err != nil {
			return nil, err
		}
		p, err := e.Predicate(x.Predicate)
		if err != nil {
			return nil, err
		}
		return queryir.Where{Input: in, Predicate: p}, nil
	case queryir.OrderBy:
		in, err := e.Evaluate(x.Input)
		if err != nil {
			return nil, err
		}
		return queryir.OrderBy{Input: in, Keys: x.Keys}, nil
	case queryir.ThenBy:
		in, err := e.Evaluate(x.Input)
		if err != nil {
			return nil, err
		}
		return queryir.ThenBy{Input: in, Keys: x.Keys}, nil
	case queryir.ParentsOf:
		in, err := e.Evaluate(x.Input)
		if err != nil {
			return nil, err
		}
		return queryir.ParentsOf{Input: in, Related: x.Related}, nil
	case queryir.ChildrenOf:
		in, err := e.Evaluate(x.Input)
		if err != nil {
			return nil, err
		}
		return queryir.ChildrenOf{Input: in, Related: x.Related}, nil
	case queryir.LinkFetch:
		in, err := e.Evaluate(x.Input)
		if err != nil {
			return nil, err
		}
		return queryir.LinkFetch{Input: in, Direction: x.Direction, Related: x.Related}, nil
	default:
		return nil, qerr.NewInvalidOperationError("unsupported node %T", n)
	}
}

// Predicate folds a predicate. A predicate that does not read the parameter
// becomes a Bool.
func (e *Evaluator) Predicate(p queryir.Predicate) (queryir.Predicate, error) {
	if !queryir.PredicateUsesParameter(p) {
		b, err := e.truth(p)
		if err != nil {
			return nil, err
		}
		return queryir.Bool{Value: b}, nil
	}

	switch x := p.(type) {
	case queryir.Compare:
		l, err := e.Expr(x.L)
		if err != nil {
			return nil, err
		}
		r, err := e.Expr(x.R)
		if err != nil {
			return nil, err
		}
		return queryir.Compare{L: l, Op: x.Op, R: r}, nil
	case queryir.In:
		l, err := e.Expr(x.L)
		if err != nil {
			return nil, err
		}
		vals, err := e.exprs(x.Values)
		if err != nil {
			return nil, err
		}
		return queryir.In{L: l, Values: vals}, nil
	case queryir.And:
		ps, err := e.predicates(x.Predicates)
		if err != nil {
			return nil, err
		}
		return queryir.And{Predicates: ps}, nil
	case queryir.Or:
		ps, err := e.predicates(x.Predicates)
		if err != nil {
			return nil, err
		}
		return queryir.Or{Predicates: ps}, nil
	case queryir.Not:
		q, err := e.Predicate(x.Predicate)
		if err != nil {
			return nil, err
		}
		return queryir.Not{Predicate: q}, nil
	default:
		return nil, qerr.NewInvalidOperationError("unsupported predicate %T", p)
	}
}

// Expr folds an expression. An expression that does not read the parameter
// becomes a Const.
func (e *Evaluator) Expr(x queryir.Expr) (queryir.Expr, error) {
	if !queryir.ExprUsesParameter(x) {
		v, err := e.value(x)
		if err != nil {
			return nil, err
		}
		return queryir.Const{Value: v}, nil
	}

	switch y := x.(type) {
	case queryir.Field, queryir.FieldRef:
		return y, nil
	case queryir.Arith:
		l, err := e.Expr(y.L)
		if err != nil {
			return nil, err
		}
		r, err := e.Expr(y.R)
		if err != nil {
			return nil, err
		}
		return queryir.Arith{Op: y.Op, L: l, R: r}, nil
	case queryir.Call:
		args, err := e.exprs(y.Args)
		if err != nil {
			return nil, err
		}
		return queryir.Call{Name: y.Name, Fn: y.Fn, Args: args}, nil
	default:
		return nil, qerr.NewInvalidOperationError("unsupported expression %T", x)
	}
}

func (e *Evaluator) exprs(xs []queryir.Expr) ([]queryir.Expr, error) {
	out := make([]queryir.Expr, len(xs))
	for i, x := range xs {
		folded, err := e.Expr(x)
		if err != nil {
			return nil, err
		}
		out[i] = folded
	}
	return out, nil
}

func (e *Evaluator) predicates(ps []queryir.Predicate) ([]queryir.Predicate, error) {
	out := make([]queryir.Predicate, len(ps))
	for i, p := range ps {
		folded, err := e.Predicate(p)
		if err != nil {
			return nil, err
		}
		out[i] = folded
	}
	return out, nil
}

// value computes a parameter-free expression.
func (e *Evaluator) value(x queryir.Expr) (ir.Value, error) {
	switch y := x.(type) {
	case queryir.Const:
		if y.Value == nil {
			return ir.Null{}, nil
		}
		return y.Value, nil
	case queryir.Arith:
		l, err := e.value(y.L)
		if err != nil {
			return nil, err
		}
		r, err := e.value(y.R)
		if err != nil {
			return nil, err
		}
		v, err := ir.Arith(y.Op, l, r)
		if err != nil {
			return nil, qerr.NewEvaluationError(queryir.FormatExpr(x), err)
		}
		return v, nil
	case queryir.Call:
		if y.Fn == nil {
			return nil, qerr.NewEvaluationError(queryir.FormatExpr(x), fmt.Errorf("function %s is not defined", y.Name))
		}
		args := make([]ir.Value, len(y.Args))
		for i, a := range y.Args {
			v, err := e.value(a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		v, err := y.Fn(args)
		if err != nil {
			return nil, qerr.NewEvaluationError(queryir.FormatExpr(x), err)
		}
		if v == nil {
			return ir.Null{}, nil
		}
		return v, nil
	default:
		return nil, qerr.NewInvalidOperationError("unsupported expression %T", x)
	}
}

// truth computes a parameter-free predicate.
func (e *Evaluator) truth(p queryir.Predicate) (bool, error) {
	switch x := p.(type) {
	case queryir.Bool:
		return x.Value, nil
	case queryir.Compare:
		l, err := e.value(x.L)
		if err != nil {
			return false, err
		}
		r, err := e.value(x.R)
		if err != nil {
			return false, err
		}
		ok, err := Apply(x.Op, l, r)
		if err != nil {
			return false, qerr.NewEvaluationError(queryir.FormatPredicate(p), err)
		}
		return ok, nil
	case queryir.In:
		l, err := e.value(x.L)
		if err != nil {
			return false, err
		}
		for _, vx := range x.Values {
			v, err := e.value(vx)
			if err != nil {
				return false, err
			}
			if ir.Equal(l, v) {
				return true, nil
			}
		}
		return false, nil
	case queryir.And:
		for _, q := range x.Predicates {
			b, err := e.truth(q)
			if err != nil || !b {
				return false, err
			}
		}
		return true, nil
	case queryir.Or:
		for _, q := range x.Predicates {
			b, err := e.truth(q)
			if err != nil || b {
				return b, err
			}
		}
		return false, nil
	case queryir.Not:
		b, err := e.truth(x.Predicate)
		return !b && err == nil, err
	default:
		return false, qerr.NewInvalidOperationError("unsupported predicate %T", p)
	}
}

// Apply evaluates l op r. CONTAINS is a case-insensitive substring test and
// UNDER is a backslash-separated path prefix test, both on strings.
func Apply(op queryir.CompareOp, l, r ir.Value) (bool, error) {
	switch op {
	case queryir.OpContains, queryir.OpUnder:
		ls, lok := l.(ir.String)
		rs, rok := r.(ir.String)
		if !lok || !rok {
			return false, fmt.Errorf("%w: %s requires strings", ir.ErrIncompatible, op)
		}
		if op == queryir.OpContains {
			return strings.Contains(strings.ToLower(string(ls)), strings.ToLower(string(rs))), nil
		}
		return underPath(string(ls), string(rs)), nil
	}

	c, err := ir.Compare(l, r)
	if err != nil {
		return false, err
	}
	switch op {
	case queryir.OpEq:
		return c == 0, nil
	case queryir.OpNe:
		return c != 0, nil
	case queryir.OpLt:
		return c < 0, nil
	case queryir.OpLe:
		return c <= 0, nil
	case queryir.OpGt:
		return c > 0, nil
	case queryir.OpGe:
		return c >= 0, nil
	}
	return false, fmt.Errorf("unknown operator %q", op)
}

func underPath(path, root string) bool {
	path, root = strings.ToLower(path), strings.ToLower(root)
	return path == root || strings.HasPrefix(path, strings.TrimSuffix(root, `\`)+`\`)
}
