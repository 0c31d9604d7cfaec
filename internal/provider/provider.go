// Package provider executes query trees against a work item store and maps
// the results into domain values.
//
// Plain queries run once and are mapped lazily. Relationship queries run
// the root query, fetch the roots' links, fetch the related items with a
// generated id query and assemble a Graph.
package provider

import (
	"context"
	"iter"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roach88/qwiq/internal/builder"
	"github.com/roach88/qwiq/internal/fieldmap"
	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/logger"
	"github.com/roach88/qwiq/internal/mapper"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/qerr"
	"github.com/roach88/qwiq/internal/queryir"
)

// Store is the work item store contract.
type Store interface {
	// ExecuteQuery runs WIQL and returns the matching items in query order.
	ExecuteQuery(ctx context.Context, wiql string, dayPrecision bool) ([]*ir.WorkItem, error)

	// FetchLinks returns every link with an endpoint in ids.
	FetchLinks(ctx context.Context, ids []int64) ([]ir.WorkItemLink, error)

	fieldmap.Resolver

	// ResolveStoreTypeCandidates lists the store types an entity can map to.
	ResolveStoreTypeCandidates(ctx context.Context, entity model.Entity) ([]string, error)
}

// Provider runs queries. It is safe for concurrent use.
type Provider struct {
	store        Store
	fields       fieldmap.Mapper
	base         *builder.Builder
	relatives    *builder.Builder
	mapper       *mapper.WorkItemMapper
	logger       logger.Logger
	newQueryID   func() string
	dayPrecision bool
}

type config struct {
	logger       logger.Logger
	strategies   []mapper.Strategy
	fields       fieldmap.Mapper
	newQueryID   func() string
	dayPrecision bool
}

// Option configures a Provider.
type Option func(*config)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithDayPrecision makes every query compare dates by calendar day.
func WithDayPrecision(on bool) Option {
	return func(c *config) {
		c.dayPrecision = on
	}
}

// WithStrategies replaces the mapper's default strategy chain.
func WithStrategies(strategies ...mapper.Strategy) Option {
	return func(c *config) {
		c.strategies = strategies
	}
}

// WithFieldMapper replaces the default caching field mapper.
func WithFieldMapper(m fieldmap.Mapper) Option {
	return func(c *config) {
		c.fields = m
	}
}

// WithQueryIDs sets the generator of the per-execution query id that is
// attached to log entries. The default generates UUIDv7 strings.
func WithQueryIDs(gen func() string) Option {
	return func(c *config) {
		c.newQueryID = gen
	}
}

// New creates a Provider over store.
func New(store Store, opts ...Option) *Provider {
	cfg := &config{
		logger:     logger.NewNoopLogger(),
		newQueryID: newUUIDv7,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.fields == nil {
		cfg.fields = fieldmap.NewCaching(fieldmap.NewDirect(store))
	}

	return &Provider{
		store:        store,
		fields:       cfg.fields,
		base:         builder.New(cfg.fields),
		relatives:    builder.New(cfg.fields, builder.WithRelatives(store)),
		mapper:       mapper.New(cfg.fields, cfg.strategies...),
		logger:       cfg.logger,
		newQueryID:   cfg.newQueryID,
		dayPrecision: cfg.dayPrecision,
	}
}

func newUUIDv7() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Translate builds n and returns the executable form without running it.
// Relationship traversals are accepted.
func (p *Provider) Translate(ctx context.Context, n queryir.Node) (*builder.Executable, error) {
	return p.relatives.Build(ctx, p.prepare(n))
}

func (p *Provider) prepare(n queryir.Node) queryir.Node {
	if p.dayPrecision {
		return queryir.WithDayPrecision(n)
	}
	return n
}

// Execute runs a query without relationship traversal and returns its
// results as a lazy sequence of pointers to domain values.
//
// Build errors are returned before the store is called. A mapping error is
// yielded for the failing item and ends the sequence.
func (p *Provider) Execute(ctx context.Context, n queryir.Node) (iter.Seq2[any, error], error) {
	exe, err := p.base.Build(ctx, p.prepare(n))
	if err != nil {
		return nil, err
	}

	log := p.logger.With(
		zap.String("query_id", p.newQueryID()),
		zap.String("entity", exe.Entity.Name()),
	)
	if exe.Unsatisfiable {
		log.DebugWithContext(ctx, "query can never match; store not called")
		return empty, nil
	}

	log.DebugWithContext(ctx, "executing query", zap.String("wiql", exe.Wiql))
	items, err := p.store.ExecuteQuery(ctx, exe.Wiql, exe.DayPrecision)
	if err != nil {
		return nil, qerr.FromStore("execute query", err)
	}
	log.DebugWithContext(ctx, "query executed", zap.Int("items", len(items)))

	return p.mapper.MapAll(ctx, exe.Entity, items, mapper.WithFetcher(p.store)), nil
}

func empty(func(any, error) bool) {}
