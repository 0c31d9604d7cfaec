// Package mapper turns work items into domain values through an ordered
// chain of strategies.
package mapper

import (
	"context"

	"github.com/roach88/qwiq/internal/fieldmap"
	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/qerr"
)

// LinkSource returns the links touching one item.
type LinkSource interface {
	LinksFor(ctx context.Context, itemID int64) ([]ir.WorkItemLink, error)
}

// Env is the per-batch environment handed to strategies.
type Env struct {
	Fields fieldmap.Mapper
	Links  LinkSource
}

// Strategy fills part of a domain value from a work item.
type Strategy interface {
	// Name identifies the strategy in errors and logs.
	Name() string

	// CanHandle reports whether the strategy applies to entity.
	CanHandle(entity model.Entity) bool

	// Map populates target, a pointer returned by entity.New.
	Map(ctx context.Context, env Env, entity model.Entity, item *ir.WorkItem, target any) error
}

// DefaultStrategies returns the built-in chain in application order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		&AttributeStrategy{},
		&LinksStrategy{},
		&ParentIDStrategy{},
	}
}

// AttributeStrategy copies field values into attribute-bound properties.
type AttributeStrategy struct {
	Parser TypeParser
}

func (s *AttributeStrategy) Name() string { return "attribute" }

func (s *AttributeStrategy) CanHandle(entity model.Entity) bool {
	return len(entity.Fields()) > 0
}

func (s *AttributeStrategy) Map(ctx context.Context, env Env, entity model.Entity, item *ir.WorkItem, target any) error {
	for _, b := range entity.Fields() {
		ref, err := env.Fields.FieldRef(ctx, entity, b.Property)
		if err != nil {
			return err
		}
		raw, ok := item.Field(ref)
		if !ok {
			continue
		}
		v, err := s.Parser.Parse(raw, b.Kind)
		if err != nil {
			return qerr.NewTypeConversionError(entity.Name(), b.Property, err)
		}
		if v != nil {
			b.Set(target, v)
		}
	}
	return nil
}

// LinksStrategy fills link-collection properties with related ids.
type LinksStrategy struct{}

func (s *LinksStrategy) Name() string { return "links" }

func (s *LinksStrategy) CanHandle(entity model.Entity) bool {
	return len(entity.Links()) > 0
}

func (s *LinksStrategy) Map(ctx context.Context, env Env, entity model.Entity, item *ir.WorkItem, target any) error {
	links, err := env.Links.LinksFor(ctx, item.ID)
	if err != nil {
		return err
	}
	for _, b := range entity.Links() {
		b.Set(target, ir.RelatedIDs(item.ID, b.End, links))
	}
	return nil
}

// ParentIDStrategy fills the parent-id property. Items with no parent get
// model.NoParent; items with several parents are an error.
type ParentIDStrategy struct{}

func (s *ParentIDStrategy) Name() string { return "parent-id" }

func (s *ParentIDStrategy) CanHandle(entity model.Entity) bool {
	_, ok := entity.ParentID()
	return ok
}

func (s *ParentIDStrategy) Map(ctx context.Context, env Env, entity model.Entity, item *ir.WorkItem, target any) error {
	b, _ := entity.ParentID()
	links, err := env.Links.LinksFor(ctx, item.ID)
	if err != nil {
		return err
	}
	parents := ir.RelatedIDs(item.ID, ir.EndParents, links)
	switch len(parents) {
	case 0:
		b.Set(target, model.NoParent)
	case 1:
		b.Set(target, parents[0])
	default:
		return qerr.NewAmbiguousParentError(entity.Name(), item.ID, parents)
	}
	return nil
}
