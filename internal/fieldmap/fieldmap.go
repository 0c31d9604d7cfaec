// Package fieldmap resolves domain property names to work item field
// reference names.
package fieldmap

import (
	"context"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/qerr"
)

// Mapper resolves properties of an entity to field reference names.
type Mapper interface {
	// FieldRef returns the field reference bound to property.
	FieldRef(ctx context.Context, entity model.Entity, property string) (string, error)
}

// Resolver resolves a property whose binding declares no reference.
// The store implements it.
type Resolver interface {
	ResolveFieldReference(ctx context.Context, property string) (string, bool, error)
}

// Direct resolves properties from the entity's binding table, falling back
// to the store for bindings that leave the reference empty. Property names
// match exactly first and then case-insensitively.
type Direct struct {
	resolver Resolver
}

// NewDirect creates a Direct mapper. resolver may be nil, in which case
// bindings without a reference are unmapped.
func NewDirect(resolver Resolver) *Direct {
	return &Direct{resolver: resolver}
}

// FieldRef implements Mapper.
func (d *Direct) FieldRef(ctx context.Context, entity model.Entity, property string) (string, error) {
	binding, ok := lookup(entity, property)
	if !ok {
		return "", qerr.NewUnmappedFieldError(entity.Name(), property)
	}
	if binding.Ref != "" {
		return binding.Ref, nil
	}
	if d.resolver == nil {
		return "", qerr.NewUnmappedFieldError(entity.Name(), property)
	}

	ref, found, err := d.resolver.ResolveFieldReference(ctx, binding.Property)
	if err != nil {
		return "", qerr.FromStore("resolve field reference", err)
	}
	if !found || ref == "" {
		return "", qerr.NewUnmappedFieldError(entity.Name(), property)
	}
	return ref, nil
}

func lookup(entity model.Entity, property string) (model.FieldBinding, bool) {
	if b, ok := entity.Field(property); ok {
		return b, true
	}
	key := normalize(property)
	for _, b := range entity.Fields() {
		if normalize(b.Property) == key {
			return b, true
		}
	}
	return model.FieldBinding{}, false
}

// normalize returns the comparison form of a property name: NFC normalized
// and case folded. A cases.Caser is stateful, so one is built per call.
func normalize(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Refs resolves every attribute binding of entity in declaration order.
func Refs(ctx context.Context, m Mapper, entity model.Entity) ([]string, error) {
	fields := entity.Fields()
	refs := make([]string, 0, len(fields))
	for _, f := range fields {
		ref, err := m.FieldRef(ctx, entity, f.Property)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
