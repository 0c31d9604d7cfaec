package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot is the part of a run kept in a golden file. WIQL text is left
// out; steps check it with expect.wiql fragments.
type Snapshot struct {
	Scenario string         `json:"scenario"`
	Steps    []StepSnapshot `json:"steps"`
}

// StepSnapshot is the outcome of one step.
type StepSnapshot struct {
	Name  string            `json:"name"`
	IDs   []int64           `json:"ids,omitempty"`
	Graph map[int64][]int64 `json:"graph,omitempty"`
	Error string            `json:"error,omitempty"`
}

// NewSnapshot builds the snapshot of a run.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{Scenario: name, Steps: make([]StepSnapshot, 0, len(result.Steps))}
	for _, sr := range result.Steps {
		s.Steps = append(s.Steps, StepSnapshot{Name: sr.Name, IDs: sr.IDs, Graph: sr.Graph, Error: sr.Error})
	}
	return s
}

// MarshalSnapshot encodes a snapshot as indented JSON. Graph keys are
// sorted as text.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RunWithGolden runs a scenario and compares its snapshot with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, ctx context.Context, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(ctx, scenario)
	if err != nil {
		return nil, err
	}
	data, err := MarshalSnapshot(NewSnapshot(scenario.Name, result))
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
