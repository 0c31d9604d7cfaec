package model

import (
	"github.com/roach88/qwiq/internal/ir"
)

// Record is a schema-less domain value used for models declared at runtime
// (for example from CUE files). Attribute values are stored by property name
// in their native form.
type Record struct {
	Values   map[string]any     `json:"values"`
	Links    map[string][]int64 `json:"links,omitempty"`
	ParentID *int64             `json:"parent_id,omitempty"`
}

// Get returns the value of property, or nil.
func (r *Record) Get(property string) any {
	if r.Values == nil {
		return nil
	}
	return r.Values[property]
}

// RecordField describes one attribute of a runtime model.
type RecordField struct {
	Property string
	Ref      string
	Kind     ir.Kind
}

// RecordLink describes one link collection of a runtime model.
type RecordLink struct {
	Property string
	End      ir.LinkEnd
}

// RecordSchema describes a runtime model.
type RecordSchema struct {
	Name       string
	StoreTypes []string
	Fields     []RecordField
	Links      []RecordLink
	ParentID   string
}

// DefineRecord builds a binding table for Record from a runtime schema.
func DefineRecord(schema RecordSchema) *Descriptor[Record] {
	d := Define[Record](schema.Name, schema.StoreTypes...)
	for _, f := range schema.Fields {
		prop := f.Property
		d.Custom(prop, f.Ref, f.Kind,
			func(r *Record, v any) {
				if r.Values == nil {
					r.Values = make(map[string]any)
				}
				r.Values[prop] = v
			},
			func(r *Record) any { return r.Get(prop) })
	}
	for _, l := range schema.Links {
		prop := l.Property
		d.CustomRelated(prop, l.End,
			func(r *Record, ids []int64) {
				if r.Links == nil {
					r.Links = make(map[string][]int64)
				}
				r.Links[prop] = ids
			},
			func(r *Record) []int64 { return r.Links[prop] })
	}
	if schema.ParentID != "" {
		d.Parent(schema.ParentID, func(r *Record) *int64 {
			if r.ParentID == nil {
				r.ParentID = new(int64)
			}
			return r.ParentID
		})
	}
	return d
}
