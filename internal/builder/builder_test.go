package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qwiq/internal/fieldmap"
	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/qerr"
	"github.com/roach88/qwiq/internal/queryir"
)

type feature struct {
	ID    int64
	Title string
	Rank  int64
}

var features = model.Define[feature]("Feature").
	Int("ID", ir.FieldID, func(f *feature) *int64 { return &f.ID }).
	String("Title", ir.FieldTitle, func(f *feature) *string { return &f.Title }).
	Int("Rank", "Microsoft.VSTS.Common.StackRank", func(f *feature) *int64 { return &f.Rank })

type fixedTypes map[string][]string

func (t fixedTypes) ResolveStoreTypeCandidates(_ context.Context, e model.Entity) ([]string, error) {
	return t[e.Name()], nil
}

func rank(op queryir.CompareOp, v queryir.Expr) queryir.Compare {
	return queryir.Compare{L: queryir.Field{Property: "Rank"}, Op: op, R: v}
}

func TestBuild_Pipeline(t *testing.T) {
	q := queryir.ThenBy{
		Input: queryir.OrderBy{
			Input: queryir.Where{
				Input: queryir.Where{
					Input:     queryir.Source{Entity: features},
					Predicate: rank(queryir.OpLt, queryir.Arith{Op: "*", L: queryir.Const{Value: ir.Int(5)}, R: queryir.Const{Value: ir.Int(10)}}),
				},
				Predicate: queryir.Or{Predicates: []queryir.Predicate{
					queryir.Compare{L: queryir.Const{Value: ir.Int(1)}, Op: queryir.OpEq, R: queryir.Const{Value: ir.Int(2)}},
					queryir.Compare{L: queryir.Field{Property: "Title"}, Op: queryir.OpContains, R: queryir.Const{Value: ir.String("api")}},
				}},
			},
			Keys: []queryir.SortKey{{Property: "Rank"}},
		},
		Keys: []queryir.SortKey{{Property: "ID", Desc: true}},
	}

	exec, err := New(fieldmap.NewDirect(nil)).Build(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, "SELECT [System.Id], [System.WorkItemType], [System.Title], [Microsoft.VSTS.Common.StackRank] "+
		"FROM WorkItems WHERE ([System.WorkItemType] = 'Feature') AND "+
		"([Microsoft.VSTS.Common.StackRank] < 50 AND [System.Title] CONTAINS 'api') "+
		"ORDER BY [Microsoft.VSTS.Common.StackRank] ASC, [System.Id] DESC", exec.Wiql)
	assert.False(t, exec.Unsatisfiable)

	_, isOrder := exec.Query.(queryir.OrderBy)
	assert.True(t, isOrder)
}

func TestBuild_ConstantFalseFilter(t *testing.T) {
	q := queryir.Where{
		Input:     queryir.Source{Entity: features},
		Predicate: queryir.Compare{L: queryir.Const{Value: ir.Int(1)}, Op: queryir.OpGt, R: queryir.Const{Value: ir.Int(2)}},
	}
	exec, err := New(fieldmap.NewDirect(nil)).Build(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, exec.Unsatisfiable)
}

func TestBuild_FailsFast(t *testing.T) {
	tests := []struct {
		name  string
		node  queryir.Node
		opts  []Option
		check func(error) bool
	}{
		{
			name:  "malformed tree",
			node:  queryir.Where{Input: queryir.Source{Entity: features}},
			check: qerr.IsInvalidOperation,
		},
		{
			name: "evaluation error",
			node: queryir.Where{
				Input:     queryir.Source{Entity: features},
				Predicate: rank(queryir.OpEq, queryir.Arith{Op: "%", L: queryir.Const{Value: ir.Int(1)}, R: queryir.Const{Value: ir.Int(0)}}),
			},
			check: qerr.IsEvaluationError,
		},
		{
			name:  "traversal without relatives",
			node:  queryir.ChildrenOf{Input: queryir.Source{Entity: features}, Related: features},
			check: qerr.IsInvalidOperation,
		},
		{
			name:  "ambiguous traversal type",
			node:  queryir.ChildrenOf{Input: queryir.Source{Entity: features}, Related: features},
			opts:  []Option{WithRelatives(fixedTypes{})},
			check: qerr.IsAmbiguousTypeError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(fieldmap.NewDirect(nil), tt.opts...).Build(context.Background(), tt.node)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestBuild_Relatives(t *testing.T) {
	q := queryir.ParentsOf{
		Input:   queryir.Where{Input: queryir.Source{Entity: features}, Predicate: rank(queryir.OpEq, queryir.Const{Value: ir.Int(1)})},
		Related: features,
	}
	exec, err := New(fieldmap.NewDirect(nil), WithRelatives(fixedTypes{"Feature": {"Feature"}})).Build(context.Background(), q)
	require.NoError(t, err)
	require.True(t, exec.RequiresLinks())
	assert.Equal(t, ir.EndParents, exec.Link.Direction)

	lf, ok := exec.Query.(queryir.LinkFetch)
	require.True(t, ok)
	assert.Equal(t, ir.EndParents, lf.Direction)
}
