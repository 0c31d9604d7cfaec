// Package qwiq lets Go code query a work item store with typed predicates
// instead of hand-written WIQL.
//
// A domain type is described once with Define. Queries are built with From
// and compiled to WIQL when they run:
//
//	type Bug struct {
//		ID       int64
//		Title    string
//		Priority int64
//	}
//
//	var Bugs = qwiq.Define[Bug]("Bug").
//		Int("ID", "System.Id", func(b *Bug) *int64 { return &b.ID }).
//		String("Title", "System.Title", func(b *Bug) *string { return &b.Title }).
//		Int("Priority", "Microsoft.VSTS.Common.Priority", func(b *Bug) *int64 { return &b.Priority })
//
//	bugs, err := qwiq.From(client, Bugs).
//		Where(qwiq.F("Priority").Le(2)).
//		OrderBy("Title").
//		All(ctx)
//
// Children and Parents run relationship queries and return a Graph with
// one entry per root item.
package qwiq

import (
	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/logger"
	"github.com/roach88/qwiq/internal/mapper"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/provider"
)

// Store is the work item store a Client queries.
type Store = provider.Store

// Descriptor is the binding table of a domain type.
type Descriptor[T any] = model.Descriptor[T]

// Record is the domain type of models declared at runtime.
type Record = model.Record

// NoParent is the parent id of items without a parent link.
const NoParent = model.NoParent

// LinkEnd selects which related ids of an item a link collection holds.
type LinkEnd = ir.LinkEnd

// Link ends for Descriptor.Related.
const (
	EndChildren = ir.EndChildren
	EndParents  = ir.EndParents
	EndRelated  = ir.EndRelated
)

// Define starts a binding table for T. With no store types the entity maps
// to the work item type named after the entity.
func Define[T any](name string, storeTypes ...string) *Descriptor[T] {
	return model.Define[T](name, storeTypes...)
}

// Client runs queries against a Store. It is safe for concurrent use.
type Client struct {
	provider *provider.Provider
}

// Option configures a Client.
type Option = provider.Option

// WithLogger sets the client's logger.
func WithLogger(l logger.Logger) Option { return provider.WithLogger(l) }

// WithDayPrecision makes every query compare dates by calendar day.
func WithDayPrecision(on bool) Option { return provider.WithDayPrecision(on) }

// WithStrategies replaces the default mapping strategies.
func WithStrategies(strategies ...mapper.Strategy) Option {
	return provider.WithStrategies(strategies...)
}

// WithQueryIDs sets the generator of query ids used in log entries.
func WithQueryIDs(gen func() string) Option { return provider.WithQueryIDs(gen) }

// New creates a Client.
func New(store Store, opts ...Option) *Client {
	return &Client{provider: provider.New(store, opts...)}
}
