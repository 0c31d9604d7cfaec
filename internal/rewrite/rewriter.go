// Package rewrite canonicalizes evaluated query trees into the shape the WIQL
// translators expect.
package rewrite

import (
	"slices"

	"github.com/roach88/qwiq/internal/qerr"
	"github.com/roach88/qwiq/internal/queryir"
)

// Rewriter normalizes a traversal-free query to
//
//	OrderBy?(Where?(Source))
//
// Where predicates are AND-merged in application order, OrderBy resets the
// sort keys, ThenBy appends to them and boolean constants are simplified
// away. Rewrite is idempotent.
type Rewriter struct{}

// New creates a Rewriter.
func New() *Rewriter {
	return &Rewriter{}
}

// Rewrite returns the canonical form of n.
func (r *Rewriter) Rewrite(n queryir.Node) (queryir.Node, error) {
	var chain []queryir.Node
	for cur := n; ; cur = queryir.Input(cur) {
		if cur == nil {
			return nil, qerr.NewInvalidOperationError("query chain does not end in a source")
		}
		chain = append(chain, cur)
		if _, ok := cur.(queryir.Source); ok {
			break
		}
	}

	src := chain[len(chain)-1].(queryir.Source)
	var preds []queryir.Predicate
	var keys []queryir.SortKey

	// Walk from the source outwards so that application order is preserved.
	for i := len(chain) - 2; i >= 0; i-- {
		switch x := chain[i].(type) {
		case queryir.Where:
			preds = append(preds, x.Predicate)
		case queryir.OrderBy:
			keys = slices.Clone(x.Keys)
		case queryir.ThenBy:
			keys = append(keys, x.Keys...)
		case queryir.ParentsOf, queryir.ChildrenOf, queryir.LinkFetch:
			return nil, qerr.NewInvalidOperationError("relationship traversal %T requires the relatives rewriter", x)
		default:
			return nil, qerr.NewInvalidOperationError("unsupported node %T", x)
		}
	}

	var out queryir.Node = src
	if len(preds) > 0 {
		var p queryir.Predicate
		if len(preds) == 1 {
			p = Simplify(preds[0])
		} else {
			p = Simplify(queryir.And{Predicates: preds})
		}
		if b, ok := p.(queryir.Bool); !ok || !b.Value {
			out = queryir.Where{Input: out, Predicate: p}
		}
	}
	if len(keys) > 0 {
		out = queryir.OrderBy{Input: out, Keys: keys}
	}
	return out, nil
}

// Simplify removes boolean constants from junctions, flattens nested
// junctions of the same kind and folds double negation.
//
//	true AND x  → x        false AND x → false
//	false OR x  → x        true OR x   → true
//	NOT true    → false    NOT NOT x   → x
//	x IN ()     → false
func Simplify(p queryir.Predicate) queryir.Predicate {
	switch x := p.(type) {
	case queryir.And:
		var out []queryir.Predicate
		for _, q := range x.Predicates {
			q = Simplify(q)
			switch y := q.(type) {
			case queryir.Bool:
				if !y.Value {
					return queryir.Bool{Value: false}
				}
				continue
			case queryir.And:
				out = append(out, y.Predicates...)
				continue
			}
			out = append(out, q)
		}
		switch len(out) {
		case 0:
			return queryir.Bool{Value: true}
		case 1:
			return out[0]
		}
		return queryir.And{Predicates: out}
	case queryir.Or:
		var out []queryir.Predicate
		for _, q := range x.Predicates {
			q = Simplify(q)
			switch y := q.(type) {
			case queryir.Bool:
				if y.Value {
					return queryir.Bool{Value: true}
				}
				continue
			case queryir.Or:
				out = append(out, y.Predicates...)
				continue
			}
			out = append(out, q)
		}
		switch len(out) {
		case 0:
			return queryir.Bool{Value: false}
		case 1:
			return out[0]
		}
		return queryir.Or{Predicates: out}
	case queryir.Not:
		q := Simplify(x.Predicate)
		switch y := q.(type) {
		case queryir.Bool:
			return queryir.Bool{Value: !y.Value}
		case queryir.Not:
			return y.Predicate
		}
		return queryir.Not{Predicate: q}
	case queryir.In:
		if len(x.Values) == 0 {
			return queryir.Bool{Value: false}
		}
		return x
	}
	return p
}
