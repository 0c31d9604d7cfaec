// Package wiql compiles canonical query trees into WIQL text.
package wiql

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/qwiq/internal/fieldmap"
	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/qerr"
	"github.com/roach88/qwiq/internal/queryir"
)

// Translation is the output of a translator.
type Translation struct {
	// Wiql is the root query text.
	Wiql string

	// Entity is the domain type of the root items.
	Entity model.Entity

	// DayPrecision is passed through to the store with Wiql.
	DayPrecision bool

	// Unsatisfiable is set when the filter folded to false. The query still
	// translates but can never match.
	Unsatisfiable bool

	// Link describes the link fetch for relationship queries, nil otherwise.
	Link *LinkClause
}

// RequiresLinks reports whether executing the translation needs a link fetch.
func (t *Translation) RequiresLinks() bool {
	return t.Link != nil
}

// Translator compiles OrderBy?(Where?(Source)) trees to WIQL.
//
// Output shape:
//
//	SELECT [System.Id], [System.WorkItemType], <bound refs>
//	FROM WorkItems
//	WHERE (<type clause>) AND (<filter>)
//	ORDER BY <keys>
//
// The text is deterministic: the same tree and bindings always produce
// byte-identical output.
type Translator struct {
	fields fieldmap.Mapper
}

// NewTranslator creates a Translator that resolves properties through fields.
func NewTranslator(fields fieldmap.Mapper) *Translator {
	return &Translator{fields: fields}
}

// Translate compiles a canonical tree. Relationship traversal nodes are
// rejected; use RelativesTranslator for those.
func (t *Translator) Translate(ctx context.Context, n queryir.Node) (*Translation, error) {
	var keys []queryir.SortKey
	var filter queryir.Predicate

	if ob, ok := n.(queryir.OrderBy); ok {
		keys = ob.Keys
		n = ob.Input
	}
	if w, ok := n.(queryir.Where); ok {
		filter = w.Predicate
		n = w.Input
	}
	src, ok := n.(queryir.Source)
	if !ok {
		return nil, qerr.NewInvalidOperationError("cannot translate %T; expected a canonical query", n)
	}

	w := &writer{
		ctx:          ctx,
		fields:       t.fields,
		entity:       src.Entity,
		dayPrecision: src.DayPrecision,
	}

	columns, err := w.columns()
	if err != nil {
		return nil, err
	}

	var conditions []string
	if clause := TypeClause(src.Entity.StoreTypes()); clause != "" {
		conditions = append(conditions, clause)
	}

	unsatisfiable := false
	if filter != nil {
		if b, ok := filter.(queryir.Bool); ok {
			if !b.Value {
				unsatisfiable = true
				conditions = append(conditions, falseCondition)
			}
		} else {
			text, err := w.predicate(filter, true)
			if err != nil {
				return nil, err
			}
			conditions = append(conditions, text)
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(columns, ", "))
	sb.WriteString(" FROM WorkItems")
	if len(conditions) > 0 {
		sb.WriteString(" WHERE ")
		for i, c := range conditions {
			if i > 0 {
				sb.WriteString(" AND ")
			}
			sb.WriteString("(" + c + ")")
		}
	}
	if len(keys) > 0 {
		order, err := w.orderBy(keys)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(order)
	}

	return &Translation{
		Wiql:          sb.String(),
		Entity:        src.Entity,
		DayPrecision:  src.DayPrecision,
		Unsatisfiable: unsatisfiable,
	}, nil
}

const (
	falseCondition = "[System.Id] < 0"
	trueCondition  = "[System.Id] >= 0"
)

// TypeClause renders the work item type condition for storeTypes, without
// surrounding parentheses. It returns "" when storeTypes is empty.
func TypeClause(storeTypes []string) string {
	switch len(storeTypes) {
	case 0:
		return ""
	case 1:
		return Field(ir.FieldWorkItemType) + " = " + quote(storeTypes[0])
	}
	quoted := make([]string, len(storeTypes))
	for i, s := range storeTypes {
		quoted[i] = quote(s)
	}
	return Field(ir.FieldWorkItemType) + " IN (" + strings.Join(quoted, ", ") + ")"
}

// Field renders a field reference.
func Field(ref string) string {
	return "[" + ref + "]"
}

// Literal renders a constant. With dayPrecision dates render as
// 'YYYY-MM-DD'; otherwise as RFC 3339 in UTC.
func Literal(v ir.Value, dayPrecision bool) string {
	switch x := v.(type) {
	case nil, ir.Null:
		return "''"
	case ir.Int:
		return strconv.FormatInt(int64(x), 10)
	case ir.Ref:
		return strconv.FormatInt(int64(x), 10)
	case ir.Double:
		return strconv.FormatFloat(float64(x), 'g', -1, 64)
	case ir.String:
		return quote(string(x))
	case ir.Bool:
		if x {
			return "True"
		}
		return "False"
	case ir.Date:
		if dayPrecision {
			return quote(x.UTC().Format(time.DateOnly))
		}
		return quote(x.UTC().Format(time.RFC3339))
	}
	return quote(fmt.Sprint(v))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// writer carries per-translation state.
type writer struct {
	ctx          context.Context
	fields       fieldmap.Mapper
	entity       model.Entity
	dayPrecision bool
}

func (w *writer) columns() ([]string, error) {
	refs, err := fieldmap.Refs(w.ctx, w.fields, w.entity)
	if err != nil {
		return nil, err
	}
	seen := []string{ir.FieldID, ir.FieldWorkItemType}
	for _, ref := range refs {
		if !slices.Contains(seen, ref) {
			seen = append(seen, ref)
		}
	}
	cols := make([]string, len(seen))
	for i, ref := range seen {
		cols[i] = Field(ref)
	}
	return cols, nil
}

func (w *writer) orderBy(keys []queryir.SortKey) (string, error) {
	parts := make([]string, len(keys))
	for i, k := range keys {
		ref, err := w.fields.FieldRef(w.ctx, w.entity, k.Property)
		if err != nil {
			return "", err
		}
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		parts[i] = Field(ref) + " " + dir
	}
	return strings.Join(parts, ", "), nil
}

// predicate renders p. Top-level junctions rely on the clause parentheses
// added by Translate.
func (w *writer) predicate(p queryir.Predicate, top bool) (string, error) {
	switch x := p.(type) {
	case queryir.Compare:
		return w.compare(x)
	case queryir.In:
		return w.in(x)
	case queryir.And:
		return w.junction(x.Predicates, " AND ", top)
	case queryir.Or:
		return w.junction(x.Predicates, " OR ", top)
	case queryir.Not:
		inner, err := w.predicate(x.Predicate, true)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case queryir.Bool:
		if x.Value {
			return trueCondition, nil
		}
		return falseCondition, nil
	default:
		return "", qerr.NewInvalidOperationError("unsupported predicate %T", p)
	}
}

func (w *writer) junction(ps []queryir.Predicate, sep string, top bool) (string, error) {
	parts := make([]string, len(ps))
	for i, q := range ps {
		text, err := w.predicate(q, false)
		if err != nil {
			return "", err
		}
		parts[i] = text
	}
	text := strings.Join(parts, sep)
	if top {
		return text, nil
	}
	return "(" + text + ")", nil
}

func (w *writer) compare(c queryir.Compare) (string, error) {
	l, op, r := c.L, c.Op, c.R
	if isField(r) && !isField(l) {
		flipped, ok := op.Flip()
		if !ok {
			return "", qerr.NewInvalidOperationError("%s requires the field on the left: %s", op, queryir.FormatPredicate(c))
		}
		l, op, r = r, flipped, l
	}

	lhs, err := w.field(l)
	if err != nil {
		return "", err
	}
	var rhs string
	if isField(r) {
		rhs, err = w.field(r)
	} else {
		rhs, err = w.literal(r)
	}
	if err != nil {
		return "", err
	}
	return lhs + " " + string(op) + " " + rhs, nil
}

func (w *writer) in(p queryir.In) (string, error) {
	lhs, err := w.field(p.L)
	if err != nil {
		return "", err
	}
	vals := make([]string, len(p.Values))
	for i, v := range p.Values {
		vals[i], err = w.literal(v)
		if err != nil {
			return "", err
		}
	}
	return lhs + " IN (" + strings.Join(vals, ", ") + ")", nil
}

func isField(e queryir.Expr) bool {
	switch e.(type) {
	case queryir.Field, queryir.FieldRef:
		return true
	}
	return false
}

func (w *writer) field(e queryir.Expr) (string, error) {
	switch x := e.(type) {
	case queryir.Field:
		ref, err := w.fields.FieldRef(w.ctx, w.entity, x.Property)
		if err != nil {
			return "", err
		}
		return Field(ref), nil
	case queryir.FieldRef:
		return Field(x.Ref), nil
	}
	return "", qerr.NewInvalidOperationError("cannot translate expression %s; only fields can be compared", queryir.FormatExpr(e))
}

func (w *writer) literal(e queryir.Expr) (string, error) {
	c, ok := e.(queryir.Const)
	if !ok {
		return "", qerr.NewInvalidOperationError("cannot translate expression %s; operand must be constant", queryir.FormatExpr(e))
	}
	return Literal(c.Value, w.dayPrecision), nil
}
