package testutil

import (
	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/model"
)

// Field references used by the fixture models.
const (
	RefTitle    = "System.Title"
	RefPriority = "Microsoft.VSTS.Common.Priority"
)

// Task is a fixture domain type. Priority has no declared reference and is
// resolved through the store.
type Task struct {
	ID       int64
	Title    string
	Priority int64
	ParentID int64
	Children []int64
}

// Tasks binds Task to the "Task" work item type.
var Tasks = model.Define[Task]("Task", "Task").
	Int("ID", ir.FieldID, func(t *Task) *int64 { return &t.ID }).
	String("Title", RefTitle, func(t *Task) *string { return &t.Title }).
	Int("Priority", "", func(t *Task) *int64 { return &t.Priority }).
	Parent("ParentID", func(t *Task) *int64 { return &t.ParentID }).
	Related("Children", ir.EndChildren, func(t *Task) *[]int64 { return &t.Children })

// Note is a fixture domain type without links.
type Note struct {
	ID    int64
	Title string
}

// Notes binds Note to the "Task" work item type.
var Notes = model.Define[Note]("Note", "Task").
	Int("ID", ir.FieldID, func(n *Note) *int64 { return &n.ID }).
	String("Title", RefTitle, func(n *Note) *string { return &n.Title })

// Features binds Note to the "Feature" work item type.
var Features = model.Define[Note]("Feature", "Feature").
	Int("ID", ir.FieldID, func(n *Note) *int64 { return &n.ID }).
	String("Title", RefTitle, func(n *Note) *string { return &n.Title })

// Anything maps to both fixture store types, so it can never be the
// related side of a traversal.
var Anything = model.Define[Note]("Anything", "Task", "Feature").
	Int("ID", ir.FieldID, func(n *Note) *int64 { return &n.ID })

// Missing maps to a type no fixture store knows.
var Missing = model.Define[Note]("Missing", "Bug").
	Int("ID", ir.FieldID, func(n *Note) *int64 { return &n.ID })

// Backlog returns a store with tasks 1 to 5 and hierarchy links
// 0→3, 3→1, 3→2, 0→4, 0→5. Item 0 does not exist.
func Backlog() *Store {
	s := NewStore("Task", "Feature").
		AddField(RefTitle, "Title").
		AddField(RefPriority, "Priority")
	titles := []string{"", "Write tests", "Fix build", "Release", "Docs", "Triage"}
	priorities := []int64{0, 2, 1, 1, 3, 2}
	for id := int64(1); id <= 5; id++ {
		s.AddItem(id, "Task", map[string]any{
			RefTitle:    titles[id],
			RefPriority: priorities[id],
		})
	}
	for _, l := range [][2]int64{{0, 3}, {3, 1}, {3, 2}, {0, 4}, {0, 5}} {
		s.AddLink(l[0], l[1], "")
	}
	return s
}
