// Package model holds the binding tables that connect domain types to work
// item fields and links.
//
// A binding table is built once per domain type with Define and never
// changes afterwards. Every other package works with the type-erased Entity
// view so that the translator, mapper and provider never need reflection.
package model

import "github.com/roach88/qwiq/internal/ir"

// NoParent is the parent id assigned when an item has no parent link.
const NoParent int64 = -1

// Entity is the type-erased view of a domain type's binding table.
type Entity interface {
	// Name is the domain type token (e.g. "Bug").
	Name() string

	// StoreTypes lists the work item types the entity maps to.
	StoreTypes() []string

	// Fields returns the attribute bindings in declaration order.
	Fields() []FieldBinding

	// Field looks up an attribute binding by property name.
	Field(property string) (FieldBinding, bool)

	// Links returns the link-collection bindings in declaration order.
	Links() []LinkBinding

	// ParentID returns the parent-id binding, if declared.
	ParentID() (ParentIDBinding, bool)

	// New allocates a zero value of the domain type and returns a pointer to it.
	New() any
}

// FieldBinding binds a property to a field reference with a declared kind.
type FieldBinding struct {
	// Property is the domain property name.
	Property string

	// Ref is the field reference name. Empty means the reference is
	// resolved through the store.
	Ref string

	// Kind is the declared property kind.
	Kind ir.Kind

	// Set assigns a converted native value (int64, float64, string,
	// time.Time or bool) to the property of target.
	Set func(target any, v any)

	// Get reads the property of target as a native value.
	Get func(target any) any
}

// LinkBinding binds a property to the ids reachable through one link end.
type LinkBinding struct {
	Property string
	End      ir.LinkEnd
	Set      func(target any, ids []int64)
	Get      func(target any) []int64
}

// ParentIDBinding binds a property to the single parent id of an item.
type ParentIDBinding struct {
	Property string
	Set      func(target any, id int64)
	Get      func(target any) int64
}
