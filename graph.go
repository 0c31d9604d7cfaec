package qwiq

import (
	"context"
	"iter"

	"github.com/roach88/qwiq/internal/queryir"
)

// Graph maps parent items to their children.
//
// A Children graph is keyed by the results of the query, in query order.
// A Parents graph is keyed by the parents of the results, plus any result
// that is itself of the parent type, in ascending id order; its values are
// query results.
type Graph[K, V any] struct {
	Entries []Entry[K, V]
}

// Entry is one parent and its children, ordered by id. Related is empty,
// not nil, when the parent has none.
type Entry[K, V any] struct {
	ID      int64
	Key     K
	Related []V
}

// Len returns the number of keys.
func (g *Graph[K, V]) Len() int { return len(g.Entries) }

// Lookup returns the entry of the key with the given id.
func (g *Graph[K, V]) Lookup(id int64) (Entry[K, V], bool) {
	for _, e := range g.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry[K, V]{}, false
}

// All iterates over keys and their related items.
func (g *Graph[K, V]) All() iter.Seq2[K, []V] {
	return func(yield func(K, []V) bool) {
		for _, e := range g.Entries {
			if !yield(e.Key, e.Related) {
				return
			}
		}
	}
}

// Children runs q and groups the children of each result.
//
// children must map to exactly one store type; otherwise the call fails
// with an ambiguous type error before the store is queried.
func Children[P, C any](ctx context.Context, q *Query[P], children *Descriptor[C]) (*Graph[P, C], error) {
	return traverse[P, C](ctx, q.client, queryir.ChildrenOf{Input: q.node, Related: children})
}

// Parents runs q and groups its results under their parents.
func Parents[C, P any](ctx context.Context, q *Query[C], parents *Descriptor[P]) (*Graph[P, C], error) {
	return traverse[P, C](ctx, q.client, queryir.ParentsOf{Input: q.node, Related: parents})
}

// ChildrenWiql returns the root query and link query Children would run.
func ChildrenWiql[P, C any](ctx context.Context, q *Query[P], children *Descriptor[C]) (root, links string, err error) {
	return explain(ctx, q.client, queryir.ChildrenOf{Input: q.node, Related: children})
}

// ParentsWiql returns the root query and link query Parents would run.
func ParentsWiql[C, P any](ctx context.Context, q *Query[C], parents *Descriptor[P]) (root, links string, err error) {
	return explain(ctx, q.client, queryir.ParentsOf{Input: q.node, Related: parents})
}

func explain(ctx context.Context, c *Client, n queryir.Node) (string, string, error) {
	exe, err := c.provider.Translate(ctx, n)
	if err != nil {
		return "", "", err
	}
	if exe.Link == nil {
		return exe.Wiql, "", nil
	}
	return exe.Wiql, exe.Link.Wiql, nil
}

func traverse[K, V any](ctx context.Context, c *Client, n queryir.Node) (*Graph[K, V], error) {
	g, err := c.provider.ExecuteRelatives(ctx, n)
	if err != nil {
		return nil, err
	}

	out := &Graph[K, V]{Entries: make([]Entry[K, V], len(g.Entries))}
	for i, e := range g.Entries {
		related := make([]V, len(e.Related))
		for j, r := range e.Related {
			related[j] = *r.(*V)
		}
		out.Entries[i] = Entry[K, V]{ID: e.ID, Key: *e.Key.(*K), Related: related}
	}
	return out, nil
}
