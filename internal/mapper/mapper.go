package mapper

import (
	"context"
	"iter"

	"github.com/roach88/qwiq/internal/fieldmap"
	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/qerr"
)

// LinkFetcher loads the links touching a set of items. The store
// implements it.
type LinkFetcher interface {
	FetchLinks(ctx context.Context, ids []int64) ([]ir.WorkItemLink, error)
}

// WorkItemMapper applies every strategy that can handle an entity, in
// registration order.
type WorkItemMapper struct {
	fields     fieldmap.Mapper
	strategies []Strategy
}

// New creates a WorkItemMapper. With no strategies the default chain is used.
func New(fields fieldmap.Mapper, strategies ...Strategy) *WorkItemMapper {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &WorkItemMapper{fields: fields, strategies: strategies}
}

type batchConfig struct {
	links    []ir.WorkItemLink
	prefetch bool
	fetcher  LinkFetcher
}

// BatchOption configures MapAll.
type BatchOption func(*batchConfig)

// WithLinks supplies links that were already fetched for the batch. No
// further link fetch happens.
func WithLinks(links []ir.WorkItemLink) BatchOption {
	return func(c *batchConfig) {
		c.links = links
		c.prefetch = true
	}
}

// WithFetcher fetches the batch's links on first use, in one call.
func WithFetcher(f LinkFetcher) BatchOption {
	return func(c *batchConfig) {
		c.fetcher = f
	}
}

// Map converts one item using links as its link source.
func (m *WorkItemMapper) Map(ctx context.Context, entity model.Entity, item *ir.WorkItem, links LinkSource) (any, error) {
	target := entity.New()
	env := Env{Fields: m.fields, Links: links}
	for _, s := range m.strategies {
		if !s.CanHandle(entity) {
			continue
		}
		if err := s.Map(ctx, env, entity, item, target); err != nil {
			return nil, err
		}
	}
	return target, nil
}

// NeedsLinks reports whether mapping entity consults links.
func (m *WorkItemMapper) NeedsLinks(entity model.Entity) bool {
	return len(entity.Links()) > 0 || hasParent(entity)
}

func hasParent(entity model.Entity) bool {
	_, ok := entity.ParentID()
	return ok
}

// MapAll lazily converts items in order. The sequence yields each mapped
// value (a pointer from entity.New) and stops after the first error.
// Links are shared by the whole batch: either supplied with WithLinks or
// fetched once with WithFetcher when the first item needs them.
func (m *WorkItemMapper) MapAll(ctx context.Context, entity model.Entity, items []*ir.WorkItem, opts ...BatchOption) iter.Seq2[any, error] {
	cfg := &batchConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(yield func(any, error) bool) {
		var source LinkSource = noLinks{}
		switch {
		case cfg.prefetch:
			source = NewLinkIndex(cfg.links)
		case cfg.fetcher != nil:
			source = &lazyIndex{fetcher: cfg.fetcher, ids: itemIDs(items)}
		}

		for _, item := range items {
			v, err := m.Map(ctx, entity, item, source)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

func itemIDs(items []*ir.WorkItem) []int64 {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

// LinkIndex serves links from memory, keyed by both endpoints.
type LinkIndex struct {
	byItem map[int64][]ir.WorkItemLink
}

// NewLinkIndex indexes links.
func NewLinkIndex(links []ir.WorkItemLink) *LinkIndex {
	idx := &LinkIndex{byItem: make(map[int64][]ir.WorkItemLink)}
	for _, l := range links {
		idx.byItem[l.SourceID] = append(idx.byItem[l.SourceID], l)
		if l.TargetID != l.SourceID {
			idx.byItem[l.TargetID] = append(idx.byItem[l.TargetID], l)
		}
	}
	return idx
}

// LinksFor implements LinkSource.
func (x *LinkIndex) LinksFor(_ context.Context, itemID int64) ([]ir.WorkItemLink, error) {
	return x.byItem[itemID], nil
}

type lazyIndex struct {
	fetcher LinkFetcher
	ids     []int64
	index   *LinkIndex
}

func (l *lazyIndex) LinksFor(ctx context.Context, itemID int64) ([]ir.WorkItemLink, error) {
	if l.index == nil {
		links, err := l.fetcher.FetchLinks(ctx, l.ids)
		if err != nil {
			return nil, qerr.FromStore("fetch links", err)
		}
		l.index = NewLinkIndex(links)
	}
	return l.index.LinksFor(ctx, itemID)
}

type noLinks struct{}

func (noLinks) LinksFor(context.Context, int64) ([]ir.WorkItemLink, error) {
	return nil, qerr.NewInvalidOperationError("links are not available for this batch")
}
