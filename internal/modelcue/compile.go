// Package modelcue declares domain models in CUE so that work items can be
// queried without Go types.
//
// A model is a struct under the top-level "model" field:
//
//	model: Task: {
//		types: ["Task"]
//		fields: {
//			ID:       {ref: "System.Id", kind: "int"}
//			Title:    {ref: "System.Title", kind: "string"}
//			Priority: int
//			Due:      {ref: "Microsoft.VSTS.Scheduling.DueDate", kind: "date"}
//		}
//		links: Children: "children"
//		parent: "ParentID"
//	}
//
// A field given only as a CUE type takes its kind from the type and has its
// reference resolved by the store from the property name. types defaults to
// the model name.
package modelcue

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/model"
)

// CompileModel parses a CUE model struct into a RecordSchema. The model
// name is the last label of v's path.
func CompileModel(v cue.Value) (model.RecordSchema, error) {
	var schema model.RecordSchema
	if err := v.Err(); err != nil {
		return schema, formatCUEError(err)
	}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		schema.Name = labels[len(labels)-1].String()
	}

	types, err := parseTypes(v)
	if err != nil {
		return schema, err
	}
	schema.StoreTypes = types

	schema.Fields, err = parseFields(v)
	if err != nil {
		return schema, err
	}
	if len(schema.Fields) == 0 {
		return schema, &CompileError{
			Field:   "fields",
			Message: "at least one field is required",
			Pos:     v.Pos(),
		}
	}

	schema.Links, err = parseLinks(v)
	if err != nil {
		return schema, err
	}

	parentVal := v.LookupPath(cue.ParsePath("parent"))
	if parentVal.Exists() {
		parent, err := parentVal.String()
		if err != nil {
			return schema, formatCUEError(err)
		}
		schema.ParentID = parent
	}

	return schema, nil
}

func parseTypes(v cue.Value) ([]string, error) {
	typesVal := v.LookupPath(cue.ParsePath("types"))
	if !typesVal.Exists() {
		return nil, nil
	}
	iter, err := typesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var types []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		types = append(types, s)
	}
	return types, nil
}

// parseFields reads fields in declaration order.
func parseFields(v cue.Value) ([]model.RecordField, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, nil
	}
	iter, err := fieldsVal.Fields(cue.Optional(true))
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []model.RecordField
	for iter.Next() {
		field := model.RecordField{Property: iter.Label()}
		fv := iter.Value()

		if fv.IncompleteKind() != cue.StructKind {
			field.Kind, err = kindOf(fv)
			if err != nil {
				return nil, err
			}
			fields = append(fields, field)
			continue
		}

		if refVal := fv.LookupPath(cue.ParsePath("ref")); refVal.Exists() {
			if field.Ref, err = refVal.String(); err != nil {
				return nil, formatCUEError(err)
			}
		}
		kindVal := fv.LookupPath(cue.ParsePath("kind"))
		if !kindVal.Exists() {
			return nil, &CompileError{
				Field:   "fields." + field.Property,
				Message: "kind is required",
				Pos:     fv.Pos(),
			}
		}
		name, err := kindVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if field.Kind, err = ir.ParseKind(name); err != nil || field.Kind == ir.KindNull {
			return nil, &CompileError{
				Field:   "fields." + field.Property,
				Message: fmt.Sprintf("unknown kind %q", name),
				Pos:     kindVal.Pos(),
			}
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func parseLinks(v cue.Value) ([]model.RecordLink, error) {
	linksVal := v.LookupPath(cue.ParsePath("links"))
	if !linksVal.Exists() {
		return nil, nil
	}
	iter, err := linksVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var links []model.RecordLink
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		end, ok := linkEnds[s]
		if !ok {
			return nil, &CompileError{
				Field:   "links." + iter.Label(),
				Message: fmt.Sprintf("unknown link end %q (want children, parents or related)", s),
				Pos:     iter.Value().Pos(),
			}
		}
		links = append(links, model.RecordLink{Property: iter.Label(), End: end})
	}
	return links, nil
}

var linkEnds = map[string]ir.LinkEnd{
	"children": ir.EndChildren,
	"parents":  ir.EndParents,
	"related":  ir.EndRelated,
}

// kindOf converts a CUE type to a field kind.
func kindOf(v cue.Value) (ir.Kind, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		return ir.KindString, nil
	case cue.IntKind:
		return ir.KindInt, nil
	case cue.FloatKind, cue.NumberKind:
		return ir.KindDouble, nil
	case cue.BoolKind:
		return ir.KindBool, nil
	default:
		return ir.KindNull, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError is a model error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
