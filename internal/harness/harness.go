package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cast"

	"github.com/roach88/qwiq"
	"github.com/roach88/qwiq/internal/logger"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/modelcue"
	"github.com/roach88/qwiq/internal/store"
	"github.com/roach88/qwiq/internal/testutil"
	"github.com/roach88/qwiq/internal/wiqlparse"
)

// idProperty is the property result ids are read from.
const idProperty = "ID"

// Result is the outcome of a scenario run.
type Result struct {
	Pass   bool
	Steps  []StepResult
	Errors []string
}

// StepResult is what one step produced.
type StepResult struct {
	Name  string            `json:"name"`
	Wiql  string            `json:"wiql,omitempty"`
	Links string            `json:"links,omitempty"`
	IDs   []int64           `json:"ids,omitempty"`
	Graph map[int64][]int64 `json:"graph,omitempty"`
	Error string            `json:"error,omitempty"`
}

// AddError records an expectation failure.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Harness runs the steps of one scenario.
type Harness struct {
	models *modelcue.Models
	client *qwiq.Client
}

// Run executes a scenario on a fresh in-memory store and checks every
// step against its expectations.
//
// The returned error reports a scenario that could not run at all
// (unreadable fixture or models, unknown model, malformed filter).
// Expectation failures are collected in Result.Errors.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	fixture, err := store.LoadFixture(scenario.Fixture)
	if err != nil {
		return nil, err
	}
	if _, err := st.Seed(ctx, fixture); err != nil {
		return nil, fmt.Errorf("failed to seed store: %w", err)
	}

	models, err := modelcue.LoadDir(scenario.Models)
	if err != nil {
		return nil, err
	}

	ids := testutil.NewSequentialIDs(scenario.Name)
	h := &Harness{
		models: models,
		client: qwiq.New(st,
			qwiq.WithLogger(logger.NewNoopLogger()),
			qwiq.WithQueryIDs(ids.Next)),
	}

	result := &Result{Pass: true}
	for i, step := range scenario.Steps {
		sr, err := h.runStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("steps[%d] %q: %w", i, step.Name, err)
		}
		result.Steps = append(result.Steps, sr)
		check(result, step, sr)
	}
	return result, nil
}

func (h *Harness) model(name string) (*model.Descriptor[model.Record], error) {
	d, ok := h.models.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown model %q", name)
	}
	return d, nil
}

func (h *Harness) runStep(ctx context.Context, step Step) (StepResult, error) {
	sr := StepResult{Name: step.Name}

	root, err := h.model(step.Query)
	if err != nil {
		return sr, err
	}
	q, err := h.query(root, step)
	if err != nil {
		return sr, err
	}

	if step.Children == "" && step.Parents == "" {
		sr.Wiql, err = q.Wiql(ctx)
		if err == nil {
			sr.IDs, err = itemIDs(ctx, q)
		}
		return sr, queryError(&sr, err)
	}

	if step.Children != "" {
		related, err := h.model(step.Children)
		if err != nil {
			return sr, err
		}
		sr.Wiql, sr.Links, err = qwiq.ChildrenWiql(ctx, q, related)
		if err == nil {
			sr.Graph, err = graphIDs(qwiq.Children(ctx, q, related))
		}
		return sr, queryError(&sr, err)
	}

	related, err := h.model(step.Parents)
	if err != nil {
		return sr, err
	}
	sr.Wiql, sr.Links, err = qwiq.ParentsWiql(ctx, q, related)
	if err == nil {
		sr.Graph, err = graphIDs(qwiq.Parents(ctx, q, related))
	}
	return sr, queryError(&sr, err)
}

func (h *Harness) query(d *model.Descriptor[model.Record], step Step) (*qwiq.Query[model.Record], error) {
	q := qwiq.From(h.client, d)
	if step.Where != "" {
		p, err := wiqlparse.ParseFilter(step.Where, d)
		if err != nil {
			return nil, fmt.Errorf("where: %w", err)
		}
		q = q.Where(p)
	}
	keys, err := wiqlparse.ParseOrder(step.Order)
	if err != nil {
		return nil, fmt.Errorf("order: %w", err)
	}
	for i, k := range keys {
		switch {
		case i == 0 && k.Desc:
			q = q.OrderByDesc(k.Property)
		case i == 0:
			q = q.OrderBy(k.Property)
		case k.Desc:
			q = q.ThenByDesc(k.Property)
		default:
			q = q.ThenBy(k.Property)
		}
	}
	if step.DayPrecision {
		q = q.DayPrecision()
	}
	return q, nil
}

// queryError records the code of a query error on sr. Other errors are
// returned.
func queryError(sr *StepResult, err error) error {
	if err == nil {
		return nil
	}
	var qe *qwiq.Error
	if !errors.As(err, &qe) {
		return err
	}
	sr.Wiql, sr.Links, sr.IDs, sr.Graph = "", "", nil, nil
	sr.Error = string(qe.Code)
	return nil
}

func recordID(r model.Record) (int64, error) {
	id, err := cast.ToInt64E(r.Get(idProperty))
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", idProperty, err)
	}
	return id, nil
}

func itemIDs(ctx context.Context, q *qwiq.Query[model.Record]) ([]int64, error) {
	items, err := q.Items(ctx)
	if err != nil {
		return nil, err
	}
	ids := []int64{}
	for r, err := range items {
		if err != nil {
			return nil, err
		}
		id, err := recordID(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func graphIDs(g *qwiq.Graph[model.Record, model.Record], err error) (map[int64][]int64, error) {
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]int64, g.Len())
	for _, e := range g.Entries {
		related := []int64{}
		for _, r := range e.Related {
			id, err := recordID(r)
			if err != nil {
				return nil, err
			}
			related = append(related, id)
		}
		out[e.ID] = related
	}
	return out, nil
}

// check compares a step's result with its expectations.
func check(result *Result, step Step, sr StepResult) {
	want := step.Expect
	if want.Error != "" {
		if sr.Error != want.Error {
			result.AddError("%s: error = %q, want %q", step.Name, sr.Error, want.Error)
		}
		return
	}
	if sr.Error != "" {
		result.AddError("%s: unexpected error %s", step.Name, sr.Error)
		return
	}

	if want.IDs != nil && !slices.Equal(sr.IDs, want.IDs) {
		result.AddError("%s: ids = %v, want %v", step.Name, sr.IDs, want.IDs)
	}
	if want.Graph != nil {
		checkGraph(result, step.Name, sr.Graph, want.Graph)
	}
	for _, fragment := range want.Wiql {
		if !containsFragment(sr, fragment) {
			result.AddError("%s: wiql does not contain %q", step.Name, fragment)
		}
	}
}

func checkGraph(result *Result, name string, got, want map[int64][]int64) {
	if len(got) != len(want) {
		result.AddError("%s: %d root(s), want %d", name, len(got), len(want))
	}
	for root, ids := range want {
		g, ok := got[root]
		if !ok {
			result.AddError("%s: root %d missing", name, root)
			continue
		}
		if !slices.Equal(g, ids) {
			result.AddError("%s: root %d related = %v, want %v", name, root, g, ids)
		}
	}
}

func containsFragment(sr StepResult, fragment string) bool {
	return strings.Contains(sr.Wiql, fragment) || strings.Contains(sr.Links, fragment)
}
