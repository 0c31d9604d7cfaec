package provider

import (
	"cmp"
	"context"
	"iter"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/mapper"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/qerr"
	"github.com/roach88/qwiq/internal/queryir"
)

// Graph is the result of a relationship query: one entry per parent item,
// each with its child items.
//
// For ChildrenOf the keys are the root items, in root query order. For
// ParentsOf the keys are the parents of the root items together with
// every root of the parent type, in ascending id order, and the values are
// root items.
type Graph struct {
	Direction ir.LinkEnd
	Entries   []Entry
}

// Entry pairs a parent with its children.
type Entry struct {
	ID  int64
	Key any

	// Related is ordered by ascending id and is empty, never nil, when
	// the key has no related items in the result.
	Related []any
}

// Len returns the number of keys.
func (g *Graph) Len() int { return len(g.Entries) }

// Lookup returns the entry of a key.
func (g *Graph) Lookup(id int64) (Entry, bool) {
	for _, e := range g.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// ExecuteRelatives runs a ParentsOf or ChildrenOf query.
//
// Type resolution of the related entity happens while building, so an
// ambiguous related type fails before the store is called. An empty root
// set returns an empty graph without fetching links.
func (p *Provider) ExecuteRelatives(ctx context.Context, n queryir.Node) (*Graph, error) {
	exe, err := p.relatives.Build(ctx, p.prepare(n))
	if err != nil {
		return nil, err
	}
	if !exe.RequiresLinks() {
		return nil, qerr.NewInvalidOperationError("query has no relationship traversal")
	}

	clause := exe.Link
	graph := &Graph{Direction: clause.Direction, Entries: []Entry{}}
	log := p.logger.With(
		zap.String("query_id", p.newQueryID()),
		zap.String("entity", exe.Entity.Name()),
		zap.String("related", clause.Related.Name()),
		zap.Stringer("direction", clause.Direction),
	)
	if exe.Unsatisfiable {
		log.DebugWithContext(ctx, "query can never match; store not called")
		return graph, nil
	}

	log.DebugWithContext(ctx, "executing root query", zap.String("wiql", exe.Wiql))
	roots, err := p.store.ExecuteQuery(ctx, exe.Wiql, exe.DayPrecision)
	if err != nil {
		return nil, qerr.FromStore("execute root query", err)
	}
	if len(roots) == 0 {
		log.DebugWithContext(ctx, "no roots; links not fetched")
		return graph, nil
	}

	rootIDs := make([]int64, len(roots))
	for i, r := range roots {
		rootIDs[i] = r.ID
	}
	links, err := p.store.FetchLinks(ctx, rootIDs)
	if err != nil {
		return nil, qerr.FromStore("fetch links", err)
	}
	log.DebugWithContext(ctx, "links fetched", zap.Int("roots", len(roots)), zap.Int("links", len(links)))

	relatedIDs := make([][]int64, len(roots))
	var all []int64
	for i, r := range roots {
		relatedIDs[i] = ir.RelatedIDs(r.ID, clause.Direction, links)
		all = append(all, relatedIDs[i]...)
	}
	if clause.Direction == ir.EndParents {
		all = append(all, rootIDs...)
	}
	slices.Sort(all)
	all = slices.Compact(all)

	related, err := p.fetchRelated(ctx, clause.Related, all, exe.DayPrecision)
	if err != nil {
		return nil, err
	}

	mapped, err := collect(p.mapper.MapAll(ctx, exe.Entity, roots, mapper.WithLinks(links)))
	if err != nil {
		return nil, err
	}

	if clause.Direction == ir.EndParents {
		graph.Entries = groupByParent(roots, mapped, relatedIDs, related)
	} else {
		graph.Entries = groupByRoot(roots, mapped, relatedIDs, related)
	}
	log.DebugWithContext(ctx, "graph assembled", zap.Int("keys", graph.Len()), zap.Int("related", len(related)))
	return graph, nil
}

// groupByRoot keys the graph by root item. Endpoints that are not in the
// store or not of the related type are skipped.
func groupByRoot(roots []*ir.WorkItem, mapped []any, relatedIDs [][]int64, related map[int64]any) []Entry {
	entries := make([]Entry, 0, len(roots))
	for i, r := range roots {
		entry := Entry{ID: r.ID, Key: mapped[i], Related: []any{}}
		for _, id := range relatedIDs[i] {
			if v, ok := related[id]; ok {
				entry.Related = append(entry.Related, v)
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// groupByParent keys the graph by the fetched parent items and lists the
// roots under each of their parents.
func groupByParent(roots []*ir.WorkItem, mapped []any, parentIDs [][]int64, parents map[int64]any) []Entry {
	keys := slices.Sorted(maps.Keys(parents))
	index := make(map[int64]int, len(keys))
	entries := make([]Entry, len(keys))
	for i, id := range keys {
		index[id] = i
		entries[i] = Entry{ID: id, Key: parents[id], Related: []any{}}
	}

	order := make([]int, len(roots))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(roots[a].ID, roots[b].ID) })
	for _, i := range order {
		for _, pid := range parentIDs[i] {
			if k, ok := index[pid]; ok {
				entries[k].Related = append(entries[k].Related, mapped[i])
			}
		}
	}
	return entries
}

// fetchRelated loads and maps the items with the given ids through the
// base pipeline, keyed by id.
func (p *Provider) fetchRelated(ctx context.Context, entity model.Entity, ids []int64, dayPrecision bool) (map[int64]any, error) {
	out := make(map[int64]any, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	values := make([]queryir.Expr, len(ids))
	for i, id := range ids {
		values[i] = queryir.Const{Value: ir.Int(id)}
	}
	q := queryir.Where{
		Input:     queryir.Source{Entity: entity, DayPrecision: dayPrecision},
		Predicate: queryir.In{L: queryir.FieldRef{Ref: ir.FieldID}, Values: values},
	}

	exe, err := p.base.Build(ctx, q)
	if err != nil {
		return nil, err
	}
	items, err := p.store.ExecuteQuery(ctx, exe.Wiql, exe.DayPrecision)
	if err != nil {
		return nil, qerr.FromStore("execute related query", err)
	}

	mapped, err := collect(p.mapper.MapAll(ctx, entity, items, mapper.WithFetcher(p.store)))
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		out[item.ID] = mapped[i]
	}
	return out, nil
}

func collect(seq iter.Seq2[any, error]) ([]any, error) {
	var out []any
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
