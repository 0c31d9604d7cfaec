package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// backlogYAML is a small backlog: one epic with two features, one feature
// with two tasks, and a loose task.
const backlogYAML = `
types: [Epic, Feature, Task]
fields:
  - {ref: System.Title, name: Title, kind: string}
  - {ref: System.State, name: State, kind: string}
  - {ref: System.AreaPath, name: Area Path, kind: string}
  - {ref: Microsoft.VSTS.Common.Priority, name: Priority, kind: int}
  - {ref: Microsoft.VSTS.Scheduling.Effort, name: Effort, kind: double}
  - {ref: Microsoft.VSTS.Scheduling.DueDate, name: Due Date, kind: date}
  - {ref: Custom.Blocked, name: Blocked, kind: bool}
items:
  - id: 1
    type: Epic
    fields: {System.Title: Checkout, System.State: Active, System.AreaPath: 'Shop\Web'}
  - id: 2
    type: Feature
    fields:
      System.Title: Cart
      System.State: Active
      System.AreaPath: 'Shop\Web\Cart'
      Microsoft.VSTS.Common.Priority: 2
      Microsoft.VSTS.Scheduling.Effort: 8.5
      Microsoft.VSTS.Scheduling.DueDate: "2024-03-01T15:30:00Z"
  - id: 3
    type: Feature
    fields:
      System.Title: Payments
      System.State: New
      System.AreaPath: 'Shop\Webhooks'
      Microsoft.VSTS.Common.Priority: 1
      Microsoft.VSTS.Scheduling.DueDate: "2024-03-02T09:00:00Z"
  - id: 4
    type: Task
    fields: {System.Title: Wire the cart API, Microsoft.VSTS.Common.Priority: 3, Custom.Blocked: true}
  - id: 5
    type: Task
    fields: {System.Title: "Cart's empty state", Microsoft.VSTS.Common.Priority: 1, Custom.Blocked: false}
  - id: 6
    type: Task
    fields: {System.Title: Loose end}
links:
  - {source: 1, target: 2}
  - {source: 1, target: 3}
  - {source: 2, target: 4}
  - {source: 5, target: 2, type: System.LinkTypes.Hierarchy-Reverse}
  - {source: 4, target: 6, type: System.LinkTypes.Related}
`

// createSeededStore returns a store loaded with backlogYAML.
func createSeededStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	f, err := ParseFixture([]byte(backlogYAML))
	if err != nil {
		t.Fatalf("ParseFixture() failed: %v", err)
	}
	if _, err := s.Seed(context.Background(), f); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	return s
}
