package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/wiqlparse"
)

// ExecuteQuery runs a WIQL query and returns the matching items in query
// order, ties broken by ascending id. Each item carries the selected
// fields it has values for.
//
// With dayPrecision, date comparisons consider only the calendar day.
// Malformed queries and unknown fields fail with ErrInvalidOperation.
func (s *Store) ExecuteQuery(ctx context.Context, wiql string, dayPrecision bool) ([]*ir.WorkItem, error) {
	q, err := wiqlparse.Parse(wiql)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}

	c := &compiler{ctx: ctx, store: s, dayPrecision: dayPrecision, kinds: make(map[string]fieldInfo)}
	sel, err := c.compile(q)
	if err != nil {
		return nil, err
	}

	rows, err := sel.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	items := []*ir.WorkItem{}
	for rows.Next() {
		item := &ir.WorkItem{Fields: make(map[string]ir.Value)}
		if err := rows.Scan(&item.ID, &item.Type); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}

	var refs []string
	for _, col := range q.Columns {
		if col == ir.FieldID || col == ir.FieldWorkItemType {
			continue
		}
		if _, err := c.field(col); err != nil {
			return nil, err
		}
		refs = append(refs, col)
	}
	if err := s.loadFields(ctx, items, refs); err != nil {
		return nil, err
	}
	return items, nil
}

type fieldInfo struct {
	kind ir.Kind
	ref  string // stored spelling
}

// compiler turns a parsed query into a squirrel SELECT over work_items.
// Field values are read through correlated subqueries on field_values.
type compiler struct {
	ctx          context.Context
	store        *Store
	dayPrecision bool
	kinds        map[string]fieldInfo
}

func (c *compiler) compile(q *wiqlparse.Query) (sq.SelectBuilder, error) {
	sel := c.store.sb.Select("wi.id", "wi.type").From("work_items wi")

	if q.Where != nil {
		where, err := c.cond(q.Where)
		if err != nil {
			return sel, err
		}
		sel = sel.Where(where)
	}

	for _, key := range q.OrderBy {
		expr, info, args, err := c.value(key.Ref)
		if err != nil {
			return sel, err
		}
		if info.kind == ir.KindString {
			expr += " COLLATE NOCASE"
		}
		dir := " ASC"
		if key.Desc {
			dir = " DESC"
		}
		sel = sel.OrderByClause(expr+dir, args...)
	}
	return sel.OrderBy("wi.id ASC"), nil
}

func (c *compiler) field(ref string) (fieldInfo, error) {
	key := foldKey(ref)
	if info, ok := c.kinds[key]; ok {
		return info, nil
	}
	kind, canonical, err := c.store.fieldKind(c.ctx, c.store.db, ref)
	if errors.Is(err, ErrUnknownField) {
		return fieldInfo{}, fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}
	if err != nil {
		return fieldInfo{}, fmt.Errorf("look up field %s: %w", ref, err)
	}
	info := fieldInfo{kind: kind, ref: canonical}
	c.kinds[key] = info
	return info, nil
}

// value returns the SQL expression reading ref for the current row.
func (c *compiler) value(ref string) (string, fieldInfo, []any, error) {
	switch foldKey(ref) {
	case foldKey(ir.FieldID):
		return "wi.id", fieldInfo{kind: ir.KindInt, ref: ir.FieldID}, nil, nil
	case foldKey(ir.FieldWorkItemType):
		return "wi.type", fieldInfo{kind: ir.KindString, ref: ir.FieldWorkItemType}, nil, nil
	}
	info, err := c.field(ref)
	if err != nil {
		return "", info, nil, err
	}
	expr := fmt.Sprintf("(SELECT fv.%s FROM field_values fv WHERE fv.item_id = wi.id AND fv.ref_name = ?)", column(info.kind))
	return expr, info, []any{info.ref}, nil
}

func (c *compiler) cond(cond wiqlparse.Cond) (sq.Sqlizer, error) {
	switch x := cond.(type) {
	case *wiqlparse.And:
		parts, err := c.conds(x.Terms)
		if err != nil {
			return nil, err
		}
		return sq.And(parts), nil
	case *wiqlparse.Or:
		parts, err := c.conds(x.Terms)
		if err != nil {
			return nil, err
		}
		return sq.Or(parts), nil
	case *wiqlparse.Not:
		inner, err := c.cond(x.Cond)
		if err != nil {
			return nil, err
		}
		return not{inner}, nil
	case *wiqlparse.Comparison:
		return c.comparison(x)
	case *wiqlparse.In:
		return c.in(x)
	}
	return nil, fmt.Errorf("%w: unsupported condition %T", ErrInvalidOperation, cond)
}

func (c *compiler) conds(cs []wiqlparse.Cond) ([]sq.Sqlizer, error) {
	out := make([]sq.Sqlizer, len(cs))
	for i, x := range cs {
		part, err := c.cond(x)
		if err != nil {
			return nil, err
		}
		out[i] = part
	}
	return out, nil
}

func (c *compiler) comparison(cmp *wiqlparse.Comparison) (sq.Sqlizer, error) {
	lhs, info, args, err := c.value(cmp.Ref)
	if err != nil {
		return nil, err
	}

	if cmp.Operand.IsField() {
		rhs, _, rargs, err := c.value(cmp.Operand.Ref)
		if err != nil {
			return nil, err
		}
		if cmp.Op == "CONTAINS" || cmp.Op == "UNDER" {
			return nil, fmt.Errorf("%w: %s needs a literal operand", ErrInvalidOperation, cmp.Op)
		}
		return sq.Expr(lhs+" "+cmp.Op+" "+rhs, append(args, rargs...)...), nil
	}

	if s, ok := cmp.Operand.Value.(ir.String); ok && s == "" && info.kind != ir.KindString {
		switch cmp.Op {
		case "=":
			return sq.Expr(lhs+" IS NULL", args...), nil
		case "<>":
			return sq.Expr(lhs+" IS NOT NULL", args...), nil
		}
		return nil, fmt.Errorf("%w: cannot order %s against an empty value", ErrInvalidOperation, cmp.Ref)
	}

	arg, err := c.literal(info, cmp.Operand.Value)
	if err != nil {
		return nil, err
	}
	if info.kind == ir.KindDate && c.dayPrecision {
		lhs = "substr(" + lhs + ", 1, 10)"
	}

	switch cmp.Op {
	case "=", "<", "<=", ">", ">=":
		if info.kind == ir.KindString {
			return sq.Expr(lhs+" "+cmp.Op+" ? COLLATE NOCASE", append(args, arg)...), nil
		}
		return sq.Expr(lhs+" "+cmp.Op+" ?", append(args, arg)...), nil
	case "<>":
		// Items without a value differ from every literal.
		collate := ""
		if info.kind == ir.KindString {
			collate = " COLLATE NOCASE"
		}
		expr := "(" + lhs + " IS NULL OR " + lhs + " <> ?" + collate + ")"
		return sq.Expr(expr, append(append(args, args...), arg)...), nil
	case "CONTAINS":
		if info.kind != ir.KindString {
			return nil, fmt.Errorf("%w: CONTAINS needs a text field, %s is %s", ErrInvalidOperation, cmp.Ref, info.kind)
		}
		return sq.Expr("instr(lower("+lhs+"), lower(?)) > 0", append(args, arg)...), nil
	case "UNDER":
		if info.kind != ir.KindString {
			return nil, fmt.Errorf("%w: UNDER needs a text field, %s is %s", ErrInvalidOperation, cmp.Ref, info.kind)
		}
		expr := "(lower(" + lhs + ") = lower(?) OR substr(lower(" + lhs + "), 1, length(?) + 1) = lower(?) || '\\')"
		return sq.Expr(expr, append(append(append(append(args, arg), args...), arg), arg)...), nil
	}
	return nil, fmt.Errorf("%w: unsupported operator %s", ErrInvalidOperation, cmp.Op)
}

func (c *compiler) in(x *wiqlparse.In) (sq.Sqlizer, error) {
	lhs, info, args, err := c.value(x.Ref)
	if err != nil {
		return nil, err
	}
	if len(x.Values) == 0 {
		return sq.Expr("1 = 0"), nil
	}
	if info.kind == ir.KindDate && c.dayPrecision {
		lhs = "substr(" + lhs + ", 1, 10)"
	}
	if info.kind == ir.KindString {
		lhs += " COLLATE NOCASE"
	}
	placeholders := make([]string, len(x.Values))
	for i, v := range x.Values {
		arg, err := c.literal(info, v)
		if err != nil {
			return nil, err
		}
		placeholders[i] = "?"
		args = append(args, arg)
	}
	return sq.Expr(lhs+" IN ("+strings.Join(placeholders, ", ")+")", args...), nil
}

// literal converts a literal to the storage form of the field it is
// compared with. Numeric literals against numeric fields keep their value
// so that [Priority] < 2.5 compares numerically.
func (c *compiler) literal(info fieldInfo, v ir.Value) (any, error) {
	switch info.kind {
	case ir.KindInt, ir.KindRef, ir.KindDouble:
		switch x := v.(type) {
		case ir.Int:
			return int64(x), nil
		case ir.Ref:
			return int64(x), nil
		case ir.Double:
			return float64(x), nil
		}
	case ir.KindDate:
		if c.dayPrecision {
			t, err := encodeValue(ir.KindDate, v)
			if err != nil {
				return nil, c.literalError(info, v, err)
			}
			return t.(string)[:len(time.DateOnly)], nil
		}
	}
	if _, ok := v.(ir.Bool); ok && info.kind != ir.KindBool && info.kind != ir.KindString {
		return nil, c.literalError(info, v, errors.New("boolean literal"))
	}
	arg, err := encodeValue(info.kind, v)
	if err != nil {
		return nil, c.literalError(info, v, err)
	}
	return arg, nil
}

func (c *compiler) literalError(info fieldInfo, v ir.Value, err error) error {
	return fmt.Errorf("%w: cannot compare %s field %s with %s: %w",
		ErrInvalidOperation, info.kind, info.ref, v.Kind(), err)
}

// not negates a condition.
type not struct {
	inner sq.Sqlizer
}

func (n not) ToSql() (string, []any, error) {
	text, args, err := n.inner.ToSql()
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + text + ")", args, nil
}
