package wiql

import (
	"context"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qwiq/internal/fieldmap"
	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/qerr"
	"github.com/roach88/qwiq/internal/queryir"
)

type bug struct {
	ID       int64
	Title    string
	Priority int64
	Created  time.Time
	Area     string
	Effort   float64
}

var bugs = model.Define[bug]("Bug").
	Int("ID", ir.FieldID, func(b *bug) *int64 { return &b.ID }).
	String("Title", ir.FieldTitle, func(b *bug) *string { return &b.Title }).
	Int("Priority", "Microsoft.VSTS.Common.Priority", func(b *bug) *int64 { return &b.Priority }).
	Date("Created", "System.CreatedDate", func(b *bug) *time.Time { return &b.Created }).
	String("Area", ir.FieldAreaPath, func(b *bug) *string { return &b.Area }).
	Double("Effort", "Microsoft.VSTS.Scheduling.Effort", func(b *bug) *float64 { return &b.Effort })

const selectBugs = "SELECT [System.Id], [System.WorkItemType], [System.Title], [Microsoft.VSTS.Common.Priority], " +
	"[System.CreatedDate], [System.AreaPath], [Microsoft.VSTS.Scheduling.Effort] FROM WorkItems"

func f(prop string) queryir.Field { return queryir.Field{Property: prop} }

func c(v any) queryir.Const { return queryir.Const{Value: ir.MustOf(v)} }

func cmp(l queryir.Expr, op queryir.CompareOp, r queryir.Expr) queryir.Compare {
	return queryir.Compare{L: l, Op: op, R: r}
}

func translate(t *testing.T, n queryir.Node) *Translation {
	t.Helper()
	tr, err := NewTranslator(fieldmap.NewDirect(nil)).Translate(context.Background(), n)
	require.NoError(t, err)
	return tr
}

func assertGolden(t *testing.T, name, text string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(text+"\n"))
}

func TestTranslate_Golden(t *testing.T) {
	src := queryir.Source{Entity: bugs}

	tests := []struct {
		name string
		node queryir.Node
	}{
		{
			name: "source_only",
			node: src,
		},
		{
			name: "ordered_filter",
			node: queryir.OrderBy{
				Input: queryir.Where{Input: src, Predicate: cmp(c(2), queryir.OpGe, f("Priority"))},
				Keys:  []queryir.SortKey{{Property: "Priority", Desc: true}, {Property: "ID"}},
			},
		},
		{
			name: "nested_junctions",
			node: queryir.Where{
				Input: src,
				Predicate: queryir.And{Predicates: []queryir.Predicate{
					queryir.Or{Predicates: []queryir.Predicate{
						cmp(f("Title"), queryir.OpContains, c("it's")),
						cmp(f("Area"), queryir.OpUnder, c(`Web\UI`)),
					}},
					queryir.Not{Predicate: queryir.In{L: f("Priority"), Values: []queryir.Expr{c(1), c(2)}}},
				}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := translate(t, tt.node)
			assertGolden(t, tt.name, tr.Wiql)
			assert.False(t, tr.RequiresLinks())
		})
	}
}

func TestTranslate_Deterministic(t *testing.T) {
	q := queryir.Where{Input: queryir.Source{Entity: bugs}, Predicate: cmp(f("Title"), queryir.OpEq, c("x"))}
	first := translate(t, q).Wiql
	for range 10 {
		assert.Equal(t, first, translate(t, q).Wiql)
	}
}

func TestTranslate_Dates(t *testing.T) {
	created := time.Date(2024, 3, 1, 15, 4, 5, 0, time.UTC)
	pred := queryir.And{Predicates: []queryir.Predicate{
		cmp(f("Created"), queryir.OpGe, c(created)),
		cmp(f("Effort"), queryir.OpGt, c(1.5)),
	}}

	day := translate(t, queryir.Where{Input: queryir.Source{Entity: bugs, DayPrecision: true}, Predicate: pred})
	assert.Equal(t, selectBugs+" WHERE ([System.WorkItemType] = 'Bug') AND "+
		"([System.CreatedDate] >= '2024-03-01' AND [Microsoft.VSTS.Scheduling.Effort] > 1.5)", day.Wiql)
	assert.True(t, day.DayPrecision)

	exact := translate(t, queryir.Where{Input: queryir.Source{Entity: bugs}, Predicate: pred})
	assert.Equal(t, selectBugs+" WHERE ([System.WorkItemType] = 'Bug') AND "+
		"([System.CreatedDate] >= '2024-03-01T15:04:05Z' AND [Microsoft.VSTS.Scheduling.Effort] > 1.5)", exact.Wiql)
}

func TestTranslate_StoreTypes(t *testing.T) {
	work := model.Define[bug]("Work", "Bug", "Task").
		Int("ID", ir.FieldID, func(b *bug) *int64 { return &b.ID })

	tr := translate(t, queryir.Source{Entity: work})
	assert.Equal(t, "SELECT [System.Id], [System.WorkItemType] FROM WorkItems WHERE ([System.WorkItemType] IN ('Bug', 'Task'))", tr.Wiql)
}

func TestTranslate_Unsatisfiable(t *testing.T) {
	tr := translate(t, queryir.Where{Input: queryir.Source{Entity: bugs}, Predicate: queryir.Bool{Value: false}})
	assert.True(t, tr.Unsatisfiable)
	assert.Equal(t, selectBugs+" WHERE ([System.WorkItemType] = 'Bug') AND ([System.Id] < 0)", tr.Wiql)
}

func TestTranslate_FieldRefAndFieldComparison(t *testing.T) {
	tr := translate(t, queryir.Where{
		Input: queryir.Source{Entity: bugs},
		Predicate: queryir.Or{Predicates: []queryir.Predicate{
			queryir.In{L: queryir.FieldRef{Ref: ir.FieldID}, Values: []queryir.Expr{c(4), c(5)}},
			cmp(f("Title"), queryir.OpNe, f("Area")),
		}},
	})
	assert.Equal(t, selectBugs+" WHERE ([System.WorkItemType] = 'Bug') AND "+
		"([System.Id] IN (4, 5) OR [System.Title] <> [System.AreaPath])", tr.Wiql)
}

func TestTranslate_Errors(t *testing.T) {
	src := queryir.Source{Entity: bugs}

	tests := []struct {
		name  string
		node  queryir.Node
		check func(error) bool
	}{
		{
			name:  "unmapped property",
			node:  queryir.Where{Input: src, Predicate: cmp(f("Severity"), queryir.OpEq, c(1))},
			check: qerr.IsUnmappedFieldError,
		},
		{
			name:  "unmapped sort key",
			node:  queryir.OrderBy{Input: src, Keys: []queryir.SortKey{{Property: "Severity"}}},
			check: qerr.IsUnmappedFieldError,
		},
		{
			name:  "computed field operand",
			node:  queryir.Where{Input: src, Predicate: cmp(queryir.Arith{Op: "+", L: f("Priority"), R: c(1)}, queryir.OpEq, c(3))},
			check: qerr.IsInvalidOperation,
		},
		{
			name:  "constant left of contains",
			node:  queryir.Where{Input: src, Predicate: cmp(c("x"), queryir.OpContains, f("Title"))},
			check: qerr.IsInvalidOperation,
		},
		{
			name:  "traversal",
			node:  queryir.ChildrenOf{Input: src, Related: bugs},
			check: qerr.IsInvalidOperation,
		},
		{
			name:  "not canonical",
			node:  queryir.Where{Input: queryir.OrderBy{Input: src, Keys: []queryir.SortKey{{Property: "ID"}}}, Predicate: queryir.Bool{Value: true}},
			check: qerr.IsInvalidOperation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTranslator(fieldmap.NewDirect(nil)).Translate(context.Background(), tt.node)
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
		})
	}
}

func TestLiteral(t *testing.T) {
	tests := []struct {
		v    ir.Value
		want string
	}{
		{ir.Null{}, "''"},
		{ir.Int(-3), "-3"},
		{ir.Ref(12), "12"},
		{ir.Double(0.25), "0.25"},
		{ir.String("O'Brien"), "'O''Brien'"},
		{ir.Bool(true), "True"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Literal(tt.v, false))
	}
}
