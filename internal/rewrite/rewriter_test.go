package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/qerr"
	"github.com/roach88/qwiq/internal/queryir"
)

type item struct {
	ID       int64
	Priority int64
}

var (
	epics = model.Define[item]("Epic").
		Int("ID", ir.FieldID, func(i *item) *int64 { return &i.ID })
	tasks = model.Define[item]("Task").
		Int("ID", ir.FieldID, func(i *item) *int64 { return &i.ID }).
		Int("Priority", "Microsoft.VSTS.Common.Priority", func(i *item) *int64 { return &i.Priority })
)

func eq(prop string, v int64) queryir.Compare {
	return queryir.Compare{L: queryir.Field{Property: prop}, Op: queryir.OpEq, R: queryir.Const{Value: ir.Int(v)}}
}

var (
	yes = queryir.Bool{Value: true}
	no  = queryir.Bool{Value: false}
)

func TestRewrite_Canonical(t *testing.T) {
	src := queryir.Source{Entity: tasks}

	tests := []struct {
		name string
		in   queryir.Node
		want queryir.Node
	}{
		{
			name: "source only",
			in:   src,
			want: src,
		},
		{
			name: "wheres merge in application order",
			in: queryir.Where{
				Input:     queryir.Where{Input: src, Predicate: eq("ID", 1)},
				Predicate: eq("Priority", 2),
			},
			want: queryir.Where{Input: src, Predicate: queryir.And{Predicates: []queryir.Predicate{eq("ID", 1), eq("Priority", 2)}}},
		},
		{
			name: "where moves under order by",
			in: queryir.Where{
				Input:     queryir.OrderBy{Input: src, Keys: []queryir.SortKey{{Property: "ID"}}},
				Predicate: eq("ID", 1),
			},
			want: queryir.OrderBy{
				Input: queryir.Where{Input: src, Predicate: eq("ID", 1)},
				Keys:  []queryir.SortKey{{Property: "ID"}},
			},
		},
		{
			name: "order by resets and then by appends",
			in: queryir.ThenBy{
				Input: queryir.OrderBy{
					Input: queryir.OrderBy{Input: src, Keys: []queryir.SortKey{{Property: "ID"}}},
					Keys:  []queryir.SortKey{{Property: "Priority", Desc: true}},
				},
				Keys: []queryir.SortKey{{Property: "ID"}},
			},
			want: queryir.OrderBy{Input: src, Keys: []queryir.SortKey{{Property: "Priority", Desc: true}, {Property: "ID"}}},
		},
		{
			name: "true filter disappears",
			in:   queryir.Where{Input: src, Predicate: queryir.And{Predicates: []queryir.Predicate{yes, yes}}},
			want: src,
		},
		{
			name: "false filter is kept",
			in:   queryir.Where{Input: src, Predicate: queryir.And{Predicates: []queryir.Predicate{eq("ID", 1), no}}},
			want: queryir.Where{Input: src, Predicate: no},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Rewrite(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := New().Rewrite(got)
			require.NoError(t, err)
			assert.Equal(t, got, again, "rewrite must be idempotent")
		})
	}
}

func TestRewrite_RejectsTraversal(t *testing.T) {
	_, err := New().Rewrite(queryir.ChildrenOf{Input: queryir.Source{Entity: epics}, Related: tasks})
	require.Error(t, err)
	assert.True(t, qerr.IsInvalidOperation(err))
}

func TestSimplify(t *testing.T) {
	a, b := eq("ID", 1), eq("ID", 2)

	tests := []struct {
		name string
		in   queryir.Predicate
		want queryir.Predicate
	}{
		{"and drops true", queryir.And{Predicates: []queryir.Predicate{yes, a}}, a},
		{"and short-circuits false", queryir.And{Predicates: []queryir.Predicate{a, no}}, no},
		{"or drops false", queryir.Or{Predicates: []queryir.Predicate{no, a}}, a},
		{"or short-circuits true", queryir.Or{Predicates: []queryir.Predicate{a, yes}}, yes},
		{"empty and", queryir.And{}, yes},
		{"empty or", queryir.Or{}, no},
		{"not constant", queryir.Not{Predicate: yes}, no},
		{"double negation", queryir.Not{Predicate: queryir.Not{Predicate: a}}, a},
		{"empty in", queryir.In{L: queryir.Field{Property: "ID"}}, no},
		{
			"flatten nested and",
			queryir.And{Predicates: []queryir.Predicate{a, queryir.And{Predicates: []queryir.Predicate{b, yes}}}},
			queryir.And{Predicates: []queryir.Predicate{a, b}},
		},
		{
			"flatten nested or",
			queryir.Or{Predicates: []queryir.Predicate{queryir.Or{Predicates: []queryir.Predicate{a, b}}, no}},
			queryir.Or{Predicates: []queryir.Predicate{a, b}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Simplify(tt.in))
		})
	}
}
