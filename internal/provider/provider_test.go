package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/logger"
	"github.com/roach88/qwiq/internal/qerr"
	"github.com/roach88/qwiq/internal/queryir"
	"github.com/roach88/qwiq/internal/testutil"
)

func newProvider(store *testutil.Store, opts ...Option) *Provider {
	ids := testutil.NewSequentialIDs("")
	return New(store, append([]Option{WithQueryIDs(ids.Next)}, opts...)...)
}

func source() queryir.Source {
	return queryir.Source{Entity: testutil.Tasks}
}

func priorityIs(n int64) queryir.Predicate {
	return queryir.Compare{L: queryir.Field{Property: "Priority"}, Op: queryir.OpEq, R: queryir.Const{Value: ir.Int(n)}}
}

func tasks(t *testing.T, seq func(func(any, error) bool)) []*testutil.Task {
	t.Helper()
	var out []*testutil.Task
	for v, err := range seq {
		require.NoError(t, err)
		out = append(out, v.(*testutil.Task))
	}
	return out
}

func relatedIDs(e Entry) []int64 {
	ids := []int64{}
	for _, v := range e.Related {
		ids = append(ids, v.(*testutil.Task).ID)
	}
	return ids
}

func TestExecute(t *testing.T) {
	store := testutil.Backlog()
	p := newProvider(store)

	q := queryir.OrderBy{
		Input: queryir.Where{Input: source(), Predicate: priorityIs(1)},
		Keys:  []queryir.SortKey{{Property: "ID", Desc: true}},
	}
	seq, err := p.Execute(context.Background(), q)
	require.NoError(t, err)

	got := tasks(t, seq)
	require.Len(t, got, 2)
	assert.Equal(t, testutil.Task{ID: 3, Title: "Release", Priority: 1, ParentID: 0, Children: []int64{1, 2}}, *got[0])
	assert.Equal(t, testutil.Task{ID: 2, Title: "Fix build", Priority: 1, ParentID: 3, Children: []int64{}}, *got[1])

	assert.Equal(t, 1, store.Calls.Count(testutil.OpExecuteQuery))
	assert.Equal(t, []any{[]int64{3, 2}}, store.Calls.Args(testutil.OpFetchLinks), "links are fetched once per batch")
}

func TestExecute_UnsatisfiableSkipsStore(t *testing.T) {
	store := testutil.Backlog()
	p := newProvider(store)

	seq, err := p.Execute(context.Background(), queryir.Where{Input: source(), Predicate: queryir.Bool{Value: false}})
	require.NoError(t, err)
	assert.Empty(t, tasks(t, seq))
	assert.Zero(t, store.Calls.Count(testutil.OpExecuteQuery))
}

func TestExecute_RejectsTraversal(t *testing.T) {
	p := newProvider(testutil.Backlog())

	_, err := p.Execute(context.Background(), queryir.ParentsOf{Input: source(), Related: testutil.Tasks})
	require.Error(t, err)
	assert.True(t, qerr.IsInvalidOperation(err))
}

func TestExecute_MappingErrorStopsSequence(t *testing.T) {
	store := testutil.Backlog().AddItem(6, "Task", map[string]any{testutil.RefPriority: "high"})
	p := newProvider(store)

	seq, err := p.Execute(context.Background(), source())
	require.NoError(t, err)

	var ok []int64
	var failures []error
	for v, err := range seq {
		if err != nil {
			failures = append(failures, err)
			continue
		}
		ok = append(ok, v.(*testutil.Task).ID)
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ok)
	require.Len(t, failures, 1)
	assert.True(t, qerr.IsTypeConversionError(failures[0]))
}

func TestExecuteRelatives_Parents(t *testing.T) {
	store := testutil.Backlog()
	p := newProvider(store)

	g, err := p.ExecuteRelatives(context.Background(), queryir.ParentsOf{Input: source(), Related: testutil.Tasks})
	require.NoError(t, err)

	assert.Equal(t, ir.EndParents, g.Direction)
	require.Equal(t, 5, g.Len())
	want := map[int64][]int64{1: {}, 2: {}, 3: {1, 2}, 4: {}, 5: {}}
	for i, e := range g.Entries {
		assert.Equal(t, int64(i+1), e.ID, "keys in ascending id order")
		assert.Equal(t, e.ID, e.Key.(*testutil.Task).ID)
		assert.NotNil(t, e.Related)
		assert.Equal(t, want[e.ID], relatedIDs(e), "parent %d", e.ID)
	}

	release, ok := g.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, "Release", release.Key.(*testutil.Task).Title)
	assert.Equal(t, int64(3), release.Related[0].(*testutil.Task).ParentID)

	queries := store.Calls.Args(testutil.OpExecuteQuery)
	require.Len(t, queries, 2)
	assert.Contains(t, queries[1], "[System.Id] IN (0, 1, 2, 3, 4, 5)")
}

func TestExecuteRelatives_ParentsOfOtherType(t *testing.T) {
	store := testutil.Backlog().
		AddItem(6, "Feature", map[string]any{testutil.RefTitle: "Checkout"}).
		AddItem(7, "Task", map[string]any{testutil.RefTitle: "Pay", testutil.RefPriority: int64(7)}).
		AddLink(6, 7, "")
	p := newProvider(store)

	q := queryir.ParentsOf{Input: queryir.Where{Input: source(), Predicate: priorityIs(7)}, Related: testutil.Features}
	g, err := p.ExecuteRelatives(context.Background(), q)
	require.NoError(t, err)

	require.Equal(t, 1, g.Len())
	e := g.Entries[0]
	assert.Equal(t, int64(6), e.ID)
	assert.Equal(t, "Checkout", e.Key.(*testutil.Note).Title)
	assert.Equal(t, []int64{7}, relatedIDs(e))
}

func TestExecuteRelatives_Children(t *testing.T) {
	store := testutil.Backlog()
	p := newProvider(store)

	g, err := p.ExecuteRelatives(context.Background(), queryir.ChildrenOf{Input: source(), Related: testutil.Tasks})
	require.NoError(t, err)

	got := map[int64][]int64{}
	for _, e := range g.Entries {
		got[e.ID] = relatedIDs(e)
	}
	assert.Equal(t, map[int64][]int64{1: {}, 2: {}, 3: {1, 2}, 4: {}, 5: {}}, got)

	queries := store.Calls.Args(testutil.OpExecuteQuery)
	require.Len(t, queries, 2)
	assert.Contains(t, queries[1], "[System.Id] IN (1, 2)")
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, store.Calls.Args(testutil.OpFetchLinks)[0])
}

func TestExecuteRelatives_EmptyRootsSkipLinks(t *testing.T) {
	store := testutil.Backlog()
	p := newProvider(store)

	q := queryir.ChildrenOf{Input: queryir.Where{Input: source(), Predicate: priorityIs(99)}, Related: testutil.Tasks}
	g, err := p.ExecuteRelatives(context.Background(), q)
	require.NoError(t, err)

	assert.Zero(t, g.Len())
	assert.NotNil(t, g.Entries)
	assert.Equal(t, 1, store.Calls.Count(testutil.OpExecuteQuery))
	assert.Zero(t, store.Calls.Count(testutil.OpFetchLinks))
}

func TestExecuteRelatives_AmbiguousTypeBeforeStoreCalls(t *testing.T) {
	for _, related := range []struct {
		name   string
		entity func() queryir.Node
	}{
		{"several candidates", func() queryir.Node {
			return queryir.ParentsOf{Input: source(), Related: testutil.Anything}
		}},
		{"no candidates", func() queryir.Node {
			return queryir.ChildrenOf{Input: source(), Related: testutil.Missing}
		}},
	} {
		t.Run(related.name, func(t *testing.T) {
			store := testutil.Backlog()
			p := newProvider(store)

			_, err := p.ExecuteRelatives(context.Background(), related.entity())
			require.Error(t, err)
			assert.True(t, qerr.IsAmbiguousTypeError(err))
			assert.ErrorIs(t, err, qerr.ErrInvalidOperation)
			assert.Zero(t, store.Calls.Count(testutil.OpExecuteQuery))
			assert.Zero(t, store.Calls.Count(testutil.OpFetchLinks))
		})
	}
}

func TestExecuteRelatives_RequiresTraversal(t *testing.T) {
	p := newProvider(testutil.Backlog())

	_, err := p.ExecuteRelatives(context.Background(), source())
	require.Error(t, err)
	assert.True(t, qerr.IsInvalidOperation(err))
}

func TestStoreFaults(t *testing.T) {
	boom := errors.New("disk on fire")
	tests := []struct {
		name  string
		op    string
		err   error
		check func(error) bool
	}{
		{"query fault", testutil.OpExecuteQuery, boom, qerr.IsStoreFault},
		{"link fault", testutil.OpFetchLinks, boom, qerr.IsStoreFault},
		{"invalid operation", testutil.OpExecuteQuery, fmt.Errorf("%w: bad text", qerr.ErrInvalidOperation), qerr.IsInvalidOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testutil.Backlog().FailOn(tt.op, tt.err)
			p := newProvider(store)

			_, err := p.ExecuteRelatives(context.Background(), queryir.ChildrenOf{Input: source(), Related: testutil.Tasks})
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestExecute_Cancelled(t *testing.T) {
	p := newProvider(testutil.Backlog())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Execute(ctx, queryir.Source{Entity: testutil.Notes})
	require.Error(t, err)
	assert.True(t, qerr.IsStoreFault(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDayPrecision(t *testing.T) {
	p := newProvider(testutil.Backlog(), WithDayPrecision(true))

	exe, err := p.Translate(context.Background(), source())
	require.NoError(t, err)
	assert.True(t, exe.DayPrecision)

	exe, err = newProvider(testutil.Backlog()).Translate(context.Background(), source())
	require.NoError(t, err)
	assert.False(t, exe.DayPrecision)
}

func TestLogging(t *testing.T) {
	log, logs := logger.NewObserverLogger("debug")
	p := newProvider(testutil.Backlog(), WithLogger(log))

	_, err := p.ExecuteRelatives(context.Background(), queryir.ChildrenOf{Input: source(), Related: testutil.Tasks})
	require.NoError(t, err)

	entries := logs.FilterMessage("links fetched").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "query-1", fields["query_id"])
	assert.Equal(t, "Task", fields["entity"])
	assert.Equal(t, "children", fields["direction"])
	assert.EqualValues(t, 5, fields["roots"])
	assert.EqualValues(t, 5, fields["links"])
}
