package qwiq

import (
	"context"
	"iter"

	"github.com/roach88/qwiq/internal/queryir"
)

// Query is an immutable query over items of type T. Every method returns a
// new Query; the receiver is never changed.
type Query[T any] struct {
	client *Client
	desc   *Descriptor[T]
	node   queryir.Node
}

// From starts a query over every item of d's store types.
func From[T any](c *Client, d *Descriptor[T]) *Query[T] {
	return &Query[T]{client: c, desc: d, node: queryir.Source{Entity: d}}
}

func (q *Query[T]) with(n queryir.Node) *Query[T] {
	return &Query[T]{client: q.client, desc: q.desc, node: n}
}

// Where narrows the query. Several calls are combined with AND.
func (q *Query[T]) Where(p Predicate) *Query[T] {
	return q.with(queryir.Where{Input: q.node, Predicate: p})
}

// OrderBy sorts ascending by property, replacing earlier sort keys.
func (q *Query[T]) OrderBy(property string) *Query[T] {
	return q.with(queryir.OrderBy{Input: q.node, Keys: []queryir.SortKey{{Property: property}}})
}

// OrderByDesc sorts descending by property, replacing earlier sort keys.
func (q *Query[T]) OrderByDesc(property string) *Query[T] {
	return q.with(queryir.OrderBy{Input: q.node, Keys: []queryir.SortKey{{Property: property, Desc: true}}})
}

// ThenBy adds an ascending sort key.
func (q *Query[T]) ThenBy(property string) *Query[T] {
	return q.with(queryir.ThenBy{Input: q.node, Keys: []queryir.SortKey{{Property: property}}})
}

// ThenByDesc adds a descending sort key.
func (q *Query[T]) ThenByDesc(property string) *Query[T] {
	return q.with(queryir.ThenBy{Input: q.node, Keys: []queryir.SortKey{{Property: property, Desc: true}}})
}

// DayPrecision makes date comparisons consider only the calendar day.
func (q *Query[T]) DayPrecision() *Query[T] {
	return q.with(queryir.WithDayPrecision(q.node))
}

// Wiql returns the WIQL the query compiles to.
func (q *Query[T]) Wiql(ctx context.Context) (string, error) {
	exe, err := q.client.provider.Translate(ctx, q.node)
	if err != nil {
		return "", err
	}
	return exe.Wiql, nil
}

// Items runs the query and returns the results as a lazy sequence.
//
// Errors that prevent the query from running are returned directly. A
// mapping error is yielded in place of the item that failed and ends the
// sequence.
func (q *Query[T]) Items(ctx context.Context) (iter.Seq2[T, error], error) {
	seq, err := q.client.provider.Execute(ctx, q.node)
	if err != nil {
		return nil, err
	}
	return func(yield func(T, error) bool) {
		for v, err := range seq {
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !yield(*v.(*T), nil) {
				return
			}
		}
	}, nil
}

// All runs the query and collects every result.
func (q *Query[T]) All(ctx context.Context) ([]T, error) {
	seq, err := q.Items(ctx)
	if err != nil {
		return nil, err
	}
	out := []T{}
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
