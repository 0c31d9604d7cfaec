package rewrite

import (
	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/qerr"
	"github.com/roach88/qwiq/internal/queryir"
)

// RelativesRewriter extends Rewriter with relationship traversal. A query
// containing ParentsOf or ChildrenOf is rewritten to
//
//	LinkFetch(OrderBy?(Where?(Source)))
//
// where the inner chain selects the root set. Every Where in the original
// chain filters the roots, regardless of where it sits relative to the
// traversal. Queries without a traversal are rewritten by the base
// Rewriter unchanged. Rewrite is idempotent.
type RelativesRewriter struct {
	base *Rewriter
}

// NewRelatives creates a RelativesRewriter.
func NewRelatives() *RelativesRewriter {
	return &RelativesRewriter{base: New()}
}

type traversal struct {
	direction ir.LinkEnd
	related   model.Entity
}

// Rewrite returns the canonical relatives form of n.
func (r *RelativesRewriter) Rewrite(n queryir.Node) (queryir.Node, error) {
	var found []traversal
	stripped, err := strip(n, &found)
	if err != nil {
		return nil, err
	}

	roots, err := r.base.Rewrite(stripped)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return roots, nil
	}

	t := found[0]
	for _, other := range found[1:] {
		if other.direction != t.direction || !sameEntity(other.related, t.related) {
			return nil, qerr.NewInvalidOperationError(
				"conflicting traversals: %s of %s and %s of %s",
				t.direction, entityName(t.related), other.direction, entityName(other.related))
		}
	}
	return queryir.LinkFetch{Input: roots, Direction: t.direction, Related: t.related}, nil
}

// strip removes traversal nodes from the chain and records them.
func strip(n queryir.Node, found *[]traversal) (queryir.Node, error) {
	switch x := n.(type) {
	case nil:
		return nil, qerr.NewInvalidOperationError("query chain does not end in a source")
	case queryir.Source:
		return x, nil
	case queryir.Where:
		in, err := strip(x.Input, found)
		if err != nil {
			return nil, err
		}
		return queryir.Where{Input: in, Predicate: x.Predicate}, nil
	case queryir.OrderBy:
		in, err := strip(x.Input, found)
		if err != nil {
			return nil, err
		}
		return queryir.OrderBy{Input: in, Keys: x.Keys}, nil
	case queryir.ThenBy:
		in, err := strip(x.Input, found)
		if err != nil {
			return nil, err
		}
		return queryir.ThenBy{Input: in, Keys: x.Keys}, nil
	case queryir.ParentsOf:
		*found = append(*found, traversal{direction: ir.EndParents, related: x.Related})
		return strip(x.Input, found)
	case queryir.ChildrenOf:
		*found = append(*found, traversal{direction: ir.EndChildren, related: x.Related})
		return strip(x.Input, found)
	case queryir.LinkFetch:
		*found = append(*found, traversal{direction: x.Direction, related: x.Related})
		return strip(x.Input, found)
	default:
		return nil, qerr.NewInvalidOperationError("unsupported node %T", n)
	}
}

func sameEntity(a, b model.Entity) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name() == b.Name()
}

func entityName(e model.Entity) string {
	if e == nil {
		return "<nil>"
	}
	return e.Name()
}
