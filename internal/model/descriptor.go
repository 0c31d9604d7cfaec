package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/roach88/qwiq/internal/ir"
)

// Descriptor is the binding table for domain type T.
//
// Binding methods panic on duplicate properties: tables are declared once at
// package initialization and a duplicate is a programming error.
//
// Example:
//
//	var Bugs = model.Define[Bug]("Bug").
//	  Int("ID", ir.FieldID, func(b *Bug) *int64 { return &b.ID }).
//	  String("Title", ir.FieldTitle, func(b *Bug) *string { return &b.Title }).
//	  Related("Children", ir.EndChildren, func(b *Bug) *[]int64 { return &b.Children }).
//	  Parent("Parent", func(b *Bug) *int64 { return &b.Parent })
type Descriptor[T any] struct {
	name       string
	storeTypes []string
	fields     []FieldBinding
	byProperty map[string]int
	links      []LinkBinding
	parent     *ParentIDBinding
}

// Define starts a binding table for T. With no store types the entity maps
// to the work item type named after the entity.
func Define[T any](name string, storeTypes ...string) *Descriptor[T] {
	if len(storeTypes) == 0 {
		storeTypes = []string{name}
	}
	return &Descriptor[T]{
		name:       name,
		storeTypes: slices.Clone(storeTypes),
		byProperty: make(map[string]int),
	}
}

func (d *Descriptor[T]) Name() string { return d.name }

func (d *Descriptor[T]) StoreTypes() []string { return slices.Clone(d.storeTypes) }

func (d *Descriptor[T]) Fields() []FieldBinding { return slices.Clone(d.fields) }

func (d *Descriptor[T]) Field(property string) (FieldBinding, bool) {
	i, ok := d.byProperty[property]
	if !ok {
		return FieldBinding{}, false
	}
	return d.fields[i], true
}

func (d *Descriptor[T]) Links() []LinkBinding { return slices.Clone(d.links) }

func (d *Descriptor[T]) ParentID() (ParentIDBinding, bool) {
	if d.parent == nil {
		return ParentIDBinding{}, false
	}
	return *d.parent, true
}

// New returns a *T.
func (d *Descriptor[T]) New() any { return new(T) }

// Int binds an integer property.
func (d *Descriptor[T]) Int(property, ref string, field func(*T) *int64) *Descriptor[T] {
	return d.Custom(property, ref, ir.KindInt,
		func(t *T, v any) { *field(t) = v.(int64) },
		func(t *T) any { return *field(t) })
}

// Ref binds an identifier-reference property.
func (d *Descriptor[T]) Ref(property, ref string, field func(*T) *int64) *Descriptor[T] {
	return d.Custom(property, ref, ir.KindRef,
		func(t *T, v any) { *field(t) = v.(int64) },
		func(t *T) any { return *field(t) })
}

// Double binds a floating point property.
func (d *Descriptor[T]) Double(property, ref string, field func(*T) *float64) *Descriptor[T] {
	return d.Custom(property, ref, ir.KindDouble,
		func(t *T, v any) { *field(t) = v.(float64) },
		func(t *T) any { return *field(t) })
}

// String binds a text property.
func (d *Descriptor[T]) String(property, ref string, field func(*T) *string) *Descriptor[T] {
	return d.Custom(property, ref, ir.KindString,
		func(t *T, v any) { *field(t) = v.(string) },
		func(t *T) any { return *field(t) })
}

// Date binds a date-time property.
func (d *Descriptor[T]) Date(property, ref string, field func(*T) *time.Time) *Descriptor[T] {
	return d.Custom(property, ref, ir.KindDate,
		func(t *T, v any) { *field(t) = v.(time.Time) },
		func(t *T) any { return *field(t) })
}

// Bool binds a boolean property.
func (d *Descriptor[T]) Bool(property, ref string, field func(*T) *bool) *Descriptor[T] {
	return d.Custom(property, ref, ir.KindBool,
		func(t *T, v any) { *field(t) = v.(bool) },
		func(t *T) any { return *field(t) })
}

// Custom binds a property through caller-supplied accessors. set receives
// the native form of kind.
func (d *Descriptor[T]) Custom(property, ref string, kind ir.Kind, set func(*T, any), get func(*T) any) *Descriptor[T] {
	d.claim(property)
	d.byProperty[property] = len(d.fields)
	d.fields = append(d.fields, FieldBinding{
		Property: property,
		Ref:      ref,
		Kind:     kind,
		Set:      func(target any, v any) { set(target.(*T), v) },
		Get:      func(target any) any { return get(target.(*T)) },
	})
	return d
}

// Related binds a property to the ids reachable through end.
func (d *Descriptor[T]) Related(property string, end ir.LinkEnd, field func(*T) *[]int64) *Descriptor[T] {
	return d.CustomRelated(property, end,
		func(t *T, ids []int64) { *field(t) = ids },
		func(t *T) []int64 { return *field(t) })
}

// CustomRelated binds a link collection through caller-supplied accessors.
func (d *Descriptor[T]) CustomRelated(property string, end ir.LinkEnd, set func(*T, []int64), get func(*T) []int64) *Descriptor[T] {
	d.claim(property)
	d.links = append(d.links, LinkBinding{
		Property: property,
		End:      end,
		Set:      func(target any, ids []int64) { set(target.(*T), ids) },
		Get:      func(target any) []int64 { return get(target.(*T)) },
	})
	return d
}

// Parent binds a property to the item's single parent id.
func (d *Descriptor[T]) Parent(property string, field func(*T) *int64) *Descriptor[T] {
	d.claim(property)
	d.parent = &ParentIDBinding{
		Property: property,
		Set:      func(target any, id int64) { *field(target.(*T)) = id },
		Get:      func(target any) int64 { return *field(target.(*T)) },
	}
	return d
}

func (d *Descriptor[T]) claim(property string) {
	if property == "" {
		panic(fmt.Sprintf("model %s: empty property name", d.name))
	}
	if _, ok := d.byProperty[property]; ok {
		panic(fmt.Sprintf("model %s: duplicate property %q", d.name, property))
	}
	for _, l := range d.links {
		if l.Property == property {
			panic(fmt.Sprintf("model %s: duplicate property %q", d.name, property))
		}
	}
	if d.parent != nil && d.parent.Property == property {
		panic(fmt.Sprintf("model %s: duplicate property %q", d.name, property))
	}
}

var _ Entity = (*Descriptor[struct{}])(nil)
