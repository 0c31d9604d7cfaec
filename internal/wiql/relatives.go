package wiql

import (
	"context"

	"github.com/roach88/qwiq/internal/fieldmap"
	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/qerr"
	"github.com/roach88/qwiq/internal/queryir"
)

// TypeResolver lists the store work item types an entity can map to.
// The store implements it.
type TypeResolver interface {
	ResolveStoreTypeCandidates(ctx context.Context, entity model.Entity) ([]string, error)
}

// LinkClause describes the link fetch that follows a root query.
type LinkClause struct {
	// Direction selects parents or children of each root.
	Direction ir.LinkEnd

	// LinkType is the link type reference name for Direction.
	LinkType string

	// Related is the domain type of the related items.
	Related model.Entity

	// RelatedType is the single store type Related resolved to.
	RelatedType string

	// Wiql is the link query text, with @roots standing for the root ids.
	Wiql string
}

// RelativesTranslator translates LinkFetch trees. Anything else is passed
// to the base Translator.
type RelativesTranslator struct {
	base  *Translator
	types TypeResolver
}

// NewRelativesTranslator creates a RelativesTranslator.
func NewRelativesTranslator(fields fieldmap.Mapper, types TypeResolver) *RelativesTranslator {
	return &RelativesTranslator{base: NewTranslator(fields), types: types}
}

// Translate compiles a canonical relatives tree.
//
// The related entity must resolve to exactly one store type. Zero or
// several candidates fail with an ambiguous type error before any root
// query text is produced.
func (t *RelativesTranslator) Translate(ctx context.Context, n queryir.Node) (*Translation, error) {
	var input queryir.Node
	var direction ir.LinkEnd
	var related model.Entity

	switch x := n.(type) {
	case queryir.LinkFetch:
		input, direction, related = x.Input, x.Direction, x.Related
	case queryir.ParentsOf:
		input, direction, related = x.Input, ir.EndParents, x.Related
	case queryir.ChildrenOf:
		input, direction, related = x.Input, ir.EndChildren, x.Related
	default:
		return t.base.Translate(ctx, n)
	}

	relatedType, err := t.resolveType(ctx, related)
	if err != nil {
		return nil, err
	}

	tr, err := t.base.Translate(ctx, input)
	if err != nil {
		return nil, err
	}

	linkType := direction.LinkTypeName()
	tr.Link = &LinkClause{
		Direction:   direction,
		LinkType:    linkType,
		Related:     related,
		RelatedType: relatedType,
		Wiql:        LinkQuery(linkType, relatedType),
	}
	return tr, nil
}

func (t *RelativesTranslator) resolveType(ctx context.Context, related model.Entity) (string, error) {
	if related == nil {
		return "", qerr.NewInvalidOperationError("traversal has no related entity")
	}
	candidates, err := t.types.ResolveStoreTypeCandidates(ctx, related)
	if err != nil {
		return "", qerr.FromStore("resolve store types", err)
	}
	if len(candidates) != 1 {
		return "", qerr.NewAmbiguousTypeError(related.Name(), candidates)
	}
	return candidates[0], nil
}

// LinkQuery renders the link query for one link type and target store type.
func LinkQuery(linkType, targetType string) string {
	return "SELECT " + Field(ir.FieldID) + " FROM WorkItemLinks WHERE " +
		"([Source]." + Field(ir.FieldID) + " IN (@roots)) AND " +
		"(" + Field("System.Links.LinkType") + " = " + quote(linkType) + ") AND " +
		"([Target]." + Field(ir.FieldWorkItemType) + " = " + quote(targetType) + ") " +
		"MODE (MustContain)"
}
