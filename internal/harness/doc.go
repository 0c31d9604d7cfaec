// Package harness runs query scenarios against a seeded store.
//
// A scenario names a YAML store fixture, a directory of CUE models and a
// list of query steps with their expected results:
//
//	name: feature_children
//	description: "Features group their tasks by hierarchy link"
//	fixture: ../backlog.yaml
//	models: ../models
//	steps:
//	  - name: all features
//	    query: Feature
//	    order: "Priority desc"
//	    expect:
//	      ids: [2, 3]
//	  - name: tasks per feature
//	    query: Feature
//	    children: Task
//	    expect:
//	      graph: {2: [4, 5], 3: []}
//	  - name: ambiguous target
//	    query: Feature
//	    children: Work
//	    expect:
//	      error: AMBIGUOUS_TYPE
//
// Paths are relative to the scenario file.
//
// # Expectations
//
//   - ids: the result ids, in order
//   - graph: parent id to child ids, for children or parents steps
//   - error: the code of the query error the step fails with
//   - wiql: substrings the generated WIQL must contain
//
// # Deterministic Runs
//
// Every scenario runs on a fresh in-memory SQLite store with sequential
// query ids, so the result snapshot of a run is stable and can be
// compared against a golden file with RunWithGolden.
package harness
