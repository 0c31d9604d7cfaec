package testutil

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/qerr"
	"github.com/roach88/qwiq/internal/wiqlparse"
)

// Store operation names recorded in Store.Calls.
const (
	OpExecuteQuery = "ExecuteQuery"
	OpFetchLinks   = "FetchLinks"
	OpResolveField = "ResolveFieldReference"
	OpResolveTypes = "ResolveStoreTypeCandidates"
)

// Store is an in-memory work item store. It evaluates the WIQL it receives
// with package wiqlparse and records every call in Calls.
//
// Text comparisons ignore case. A missing field matches only "<>" and
// "= ''".
type Store struct {
	Calls CallLog

	mu     sync.RWMutex
	types  []string
	fields map[string]string
	items  []*ir.WorkItem
	links  []ir.WorkItemLink
	faults map[string]error
}

// NewStore creates an empty store that knows the given work item types.
func NewStore(types ...string) *Store {
	s := &Store{
		fields: map[string]string{
			fold(ir.FieldID):           ir.FieldID,
			fold(ir.FieldWorkItemType): ir.FieldWorkItemType,
		},
		faults: make(map[string]error),
	}
	s.types = append(s.types, types...)
	return s
}

// AddField registers a field reference and the display names it resolves
// from.
func (s *Store) AddField(ref string, names ...string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fields[fold(ref)] = ref
	for _, n := range names {
		s.fields[fold(n)] = ref
	}
	return s
}

// AddItem stores an item. Field values are converted with ir.MustOf and
// unregistered references are registered.
func (s *Store) AddItem(id int64, typ string, fields map[string]any) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := &ir.WorkItem{ID: id, Type: typ, Fields: make(map[string]ir.Value, len(fields))}
	for ref, v := range fields {
		if _, ok := s.fields[fold(ref)]; !ok {
			s.fields[fold(ref)] = ref
		}
		item.Fields[ref] = ir.MustOf(v)
	}
	s.items = append(s.items, item)
	return s
}

// AddLink stores a link. An empty link type is a forward hierarchy link.
func (s *Store) AddLink(source, target int64, linkType string) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if linkType == "" {
		linkType = ir.LinkHierarchyForward
	}
	s.links = append(s.links, ir.WorkItemLink{SourceID: source, TargetID: target, LinkType: linkType})
	return s
}

// FailOn makes every later call of op return err.
func (s *Store) FailOn(op string, err error) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
	return s
}

func (s *Store) fault(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.faults[op]
}

// ExecuteQuery implements the store contract.
func (s *Store) ExecuteQuery(ctx context.Context, wiql string, dayPrecision bool) ([]*ir.WorkItem, error) {
	s.Calls.Record(OpExecuteQuery, wiql)
	if err := s.fault(ctx, OpExecuteQuery); err != nil {
		return nil, err
	}
	q, err := wiqlparse.Parse(wiql)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", qerr.ErrInvalidOperation, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*ir.WorkItem{}
	for _, item := range s.items {
		if q.Where != nil {
			ok, err := s.match(item, q.Where, dayPrecision)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		projected, err := s.project(item, q.Columns)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}

	keys := make([]string, len(q.OrderBy))
	for i, k := range q.OrderBy {
		if keys[i], err = s.ref(k.Ref); err != nil {
			return nil, err
		}
	}
	slices.SortStableFunc(out, func(a, b *ir.WorkItem) int {
		for i, k := range q.OrderBy {
			av, _ := a.Field(keys[i])
			bv, _ := b.Field(keys[i])
			c, err := ir.Compare(lower(av), lower(bv))
			if err != nil || c == 0 {
				continue
			}
			if k.Desc {
				return -c
			}
			return c
		}
		return compareInt(a.ID, b.ID)
	})
	return out, nil
}

// FetchLinks implements the store contract.
func (s *Store) FetchLinks(ctx context.Context, ids []int64) ([]ir.WorkItemLink, error) {
	s.Calls.Record(OpFetchLinks, slices.Clone(ids))
	if err := s.fault(ctx, OpFetchLinks); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []ir.WorkItemLink{}
	for _, l := range s.links {
		if slices.Contains(ids, l.SourceID) || slices.Contains(ids, l.TargetID) {
			out = append(out, l.Canonical())
		}
	}
	return out, nil
}

// ResolveFieldReference implements the store contract.
func (s *Store) ResolveFieldReference(ctx context.Context, property string) (string, bool, error) {
	s.Calls.Record(OpResolveField, property)
	if err := s.fault(ctx, OpResolveField); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.fields[fold(property)]
	return ref, ok, nil
}

// ResolveStoreTypeCandidates implements the store contract.
func (s *Store) ResolveStoreTypeCandidates(ctx context.Context, entity model.Entity) ([]string, error) {
	s.Calls.Record(OpResolveTypes, entity.Name())
	if err := s.fault(ctx, OpResolveTypes); err != nil {
		return nil, err
	}
	out := []string{}
	for _, want := range entity.StoreTypes() {
		for _, have := range s.types {
			if strings.EqualFold(want, have) && !slices.Contains(out, have) {
				out = append(out, have)
			}
		}
	}
	return out, nil
}

func (s *Store) ref(name string) (string, error) {
	ref, ok := s.fields[fold(name)]
	if !ok {
		return "", fmt.Errorf("%w: unknown field %s", qerr.ErrInvalidOperation, name)
	}
	return ref, nil
}

func (s *Store) project(item *ir.WorkItem, columns []string) (*ir.WorkItem, error) {
	out := &ir.WorkItem{ID: item.ID, Type: item.Type, Fields: make(map[string]ir.Value)}
	for _, col := range columns {
		ref, err := s.ref(col)
		if err != nil {
			return nil, err
		}
		if ref == ir.FieldID || ref == ir.FieldWorkItemType {
			continue
		}
		if v, ok := item.Fields[ref]; ok {
			out.Fields[col] = v
		}
	}
	return out, nil
}

// Items returns a copy of every stored item, keyed by id.
func (s *Store) Items() map[int64]*ir.WorkItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]*ir.WorkItem, len(s.items))
	for _, it := range s.items {
		out[it.ID] = &ir.WorkItem{ID: it.ID, Type: it.Type, Fields: maps.Clone(it.Fields)}
	}
	return out
}

func (s *Store) match(item *ir.WorkItem, c wiqlparse.Cond, day bool) (bool, error) {
	switch x := c.(type) {
	case *wiqlparse.And:
		for _, t := range x.Terms {
			ok, err := s.match(item, t, day)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case *wiqlparse.Or:
		for _, t := range x.Terms {
			ok, err := s.match(item, t, day)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case *wiqlparse.Not:
		ok, err := s.match(item, x.Cond, day)
		return !ok, err
	case *wiqlparse.Comparison:
		lhs, err := s.value(item, x.Ref)
		if err != nil {
			return false, err
		}
		rhs := x.Operand.Value
		if x.Operand.IsField() {
			if rhs, err = s.value(item, x.Operand.Ref); err != nil {
				return false, err
			}
		}
		return compare(lhs, x.Op, rhs, day)
	case *wiqlparse.In:
		lhs, err := s.value(item, x.Ref)
		if err != nil {
			return false, err
		}
		for _, v := range x.Values {
			ok, err := compare(lhs, "=", v, day)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("%w: unsupported condition %T", qerr.ErrInvalidOperation, c)
}

func (s *Store) value(item *ir.WorkItem, name string) (ir.Value, error) {
	ref, err := s.ref(name)
	if err != nil {
		return nil, err
	}
	v, _ := item.Field(ref)
	return v, nil
}

func compare(lhs ir.Value, op string, rhs ir.Value, day bool) (bool, error) {
	if ir.IsNull(lhs) {
		switch op {
		case "<>":
			return true, nil
		case "=":
			s, ok := rhs.(ir.String)
			return ok && s == "", nil
		}
		return false, nil
	}

	lhs, rhs = lower(lhs), lower(coerce(lhs, rhs))
	if day {
		lhs, rhs = startOfDay(lhs), startOfDay(rhs)
	}

	switch op {
	case "CONTAINS":
		return strings.Contains(fmt.Sprint(ir.Native(lhs)), fmt.Sprint(ir.Native(rhs))), nil
	case "UNDER":
		l, r := fmt.Sprint(ir.Native(lhs)), fmt.Sprint(ir.Native(rhs))
		return l == r || strings.HasPrefix(l, r+`\`), nil
	}

	c, err := ir.Compare(lhs, rhs)
	if err != nil {
		return false, fmt.Errorf("%w: %w", qerr.ErrInvalidOperation, err)
	}
	switch op {
	case "=":
		return c == 0, nil
	case "<>":
		return c != 0, nil
	case "<":
		return c < 0, nil
	case "<=":
		return c <= 0, nil
	case ">":
		return c > 0, nil
	case ">=":
		return c >= 0, nil
	}
	return false, fmt.Errorf("%w: unsupported operator %s", qerr.ErrInvalidOperation, op)
}

// coerce parses a text literal compared with a date.
func coerce(lhs, rhs ir.Value) ir.Value {
	if _, ok := lhs.(ir.Date); !ok {
		return rhs
	}
	s, ok := rhs.(ir.String)
	if !ok {
		return rhs
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, string(s)); err == nil {
			return ir.NewDate(t)
		}
	}
	return rhs
}

func startOfDay(v ir.Value) ir.Value {
	if d, ok := v.(ir.Date); ok {
		return d.StartOfDay()
	}
	return v
}

func lower(v ir.Value) ir.Value {
	if s, ok := v.(ir.String); ok {
		return ir.String(strings.ToLower(string(s)))
	}
	return v
}

func fold(s string) string { return strings.ToLower(s) }

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
