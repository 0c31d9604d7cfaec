package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/model"
)

type task struct {
	ID int64
}

var tasks = model.Define[task]("Task").
	Int("ID", ir.FieldID, func(t *task) *int64 { return &t.ID })

func TestValidate_WellFormed(t *testing.T) {
	q := OrderBy{
		Input: Where{
			Input: Source{Entity: tasks},
			Predicate: And{Predicates: []Predicate{
				Compare{L: Field{Property: "ID"}, Op: OpGt, R: Const{Value: ir.Int(1)}},
				Not{Predicate: In{L: Field{Property: "ID"}, Values: []Expr{Const{Value: ir.Int(4)}}}},
			}},
		},
		Keys: []SortKey{{Property: "ID", Desc: true}},
	}

	result := Validate(q)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Problems)
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name    string
		node    Node
		problem string
	}{
		{"no source", Where{Predicate: Bool{Value: true}}, "query chain does not end in a source"},
		{"nil entity", Source{}, "source has no entity"},
		{"nil predicate", Where{Input: Source{Entity: tasks}}, "where has no predicate"},
		{"empty keys", OrderBy{Input: Source{Entity: tasks}}, "order by has no keys"},
		{"blank key", ThenBy{Input: Source{Entity: tasks}, Keys: []SortKey{{}}}, "then by key 0 has no property"},
		{"no related", ChildrenOf{Input: Source{Entity: tasks}}, "children-of has no related entity"},
		{
			"nil operand",
			Where{Input: Source{Entity: tasks}, Predicate: Compare{L: Field{Property: "ID"}, Op: OpEq}},
			"nil expression",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.node)
			assert.False(t, result.Valid)
			assert.Contains(t, result.Problems, tt.problem)
		})
	}
}

func TestSourceOf(t *testing.T) {
	q := ChildrenOf{
		Input:   OrderBy{Input: Source{Entity: tasks, DayPrecision: true}, Keys: []SortKey{{Property: "ID"}}},
		Related: tasks,
	}
	s, ok := SourceOf(q)
	assert.True(t, ok)
	assert.True(t, s.DayPrecision)
	assert.Equal(t, "Task", s.Entity.Name())

	_, ok = SourceOf(Where{})
	assert.False(t, ok)
}

func TestUsesParameter(t *testing.T) {
	assert.True(t, ExprUsesParameter(Arith{Op: "+", L: Const{Value: ir.Int(1)}, R: Field{Property: "ID"}}))
	assert.False(t, ExprUsesParameter(Arith{Op: "+", L: Const{Value: ir.Int(1)}, R: Const{Value: ir.Int(2)}}))
	assert.True(t, PredicateUsesParameter(Not{Predicate: Compare{L: Field{Property: "ID"}, Op: OpEq, R: Const{Value: ir.Int(1)}}}))
	assert.False(t, PredicateUsesParameter(Or{Predicates: []Predicate{Bool{Value: true}}}))
}

func TestCompareOp_Flip(t *testing.T) {
	op, ok := OpLt.Flip()
	assert.True(t, ok)
	assert.Equal(t, OpGt, op)

	_, ok = OpContains.Flip()
	assert.False(t, ok)
}

func TestFormatPredicate(t *testing.T) {
	p := And{Predicates: []Predicate{
		Compare{L: Field{Property: "Priority"}, Op: OpLe, R: Const{Value: ir.Int(2)}},
		Not{Predicate: Bool{Value: false}},
	}}
	assert.Equal(t, "(x.Priority <= 2 AND NOT (false))", FormatPredicate(p))
}
