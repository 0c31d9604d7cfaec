package queryir

import (
	"github.com/roach88/qwiq/internal/ir"
	"github.com/roach88/qwiq/internal/model"
)

// Node is a query operator.
//
// Node types:
//   - Source: the set of items of one entity
//   - Where: filter the input by a predicate
//   - OrderBy / ThenBy: reset or extend the sort keys
//   - ParentsOf / ChildrenOf: relationship traversal from the input roots
//   - LinkFetch: rewritten traversal marker understood by the relatives
//     translator
type Node interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate is a boolean condition over the query parameter.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Expr is a value-producing expression.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// Source selects all items of an entity.
type Source struct {
	Entity model.Entity

	// DayPrecision compares dates at day granularity.
	DayPrecision bool
}

func (Source) queryNode() {}

// Where filters Input by Predicate. Several Where nodes in a chain are
// conjunctive.
type Where struct {
	Input     Node
	Predicate Predicate
}

func (Where) queryNode() {}

// SortKey orders by one property.
type SortKey struct {
	Property string
	Desc     bool
}

// OrderBy replaces any previous sort keys of Input.
type OrderBy struct {
	Input Node
	Keys  []SortKey
}

func (OrderBy) queryNode() {}

// ThenBy appends secondary sort keys to Input's ordering.
type ThenBy struct {
	Input Node
	Keys  []SortKey
}

func (ThenBy) queryNode() {}

// ParentsOf maps each root item of Input to its parents of type Related.
type ParentsOf struct {
	Input   Node
	Related model.Entity
}

func (ParentsOf) queryNode() {}

// ChildrenOf maps each root item of Input to its children of type Related.
type ChildrenOf struct {
	Input   Node
	Related model.Entity
}

func (ChildrenOf) queryNode() {}

// LinkFetch marks a canonicalized root query whose results need their links
// fetched in Direction and resolved against items of type Related.
type LinkFetch struct {
	Input     Node
	Direction ir.LinkEnd
	Related   model.Entity
}

func (LinkFetch) queryNode() {}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpEq       CompareOp = "="
	OpNe       CompareOp = "<>"
	OpLt       CompareOp = "<"
	OpLe       CompareOp = "<="
	OpGt       CompareOp = ">"
	OpGe       CompareOp = ">="
	OpContains CompareOp = "CONTAINS"
	OpUnder    CompareOp = "UNDER"
)

// Flip returns the operator with its operands swapped (a < b ⇔ b > a).
// CONTAINS and UNDER are not symmetric and are returned unchanged with
// ok == false.
func (op CompareOp) Flip() (CompareOp, bool) {
	switch op {
	case OpEq, OpNe:
		return op, true
	case OpLt:
		return OpGt, true
	case OpLe:
		return OpGe, true
	case OpGt:
		return OpLt, true
	case OpGe:
		return OpLe, true
	}
	return op, false
}

// Compare is L Op R.
type Compare struct {
	L  Expr
	Op CompareOp
	R  Expr
}

func (Compare) predicateNode() {}

// In is true when L equals any of Values.
type In struct {
	L      Expr
	Values []Expr
}

func (In) predicateNode() {}

// And is true when every predicate is true. Empty And is true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is true when any predicate is true. Empty Or is false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates Predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// Bool is a constant predicate.
type Bool struct {
	Value bool
}

func (Bool) predicateNode() {}

// Field reads a property of the query parameter.
type Field struct {
	Property string
}

func (Field) exprNode() {}

// FieldRef reads a field of the query parameter by reference name,
// bypassing property bindings (e.g. FieldRef{Ref: "System.Id"}).
type FieldRef struct {
	Ref string
}

func (FieldRef) exprNode() {}

// Const is a literal value.
type Const struct {
	Value ir.Value
}

func (Const) exprNode() {}

// Arith is L Op R for Op in + - * / %.
type Arith struct {
	Op string
	L  Expr
	R  Expr
}

func (Arith) exprNode() {}

// Call invokes Fn with evaluated Args. Fn must be pure.
type Call struct {
	Name string
	Fn   func(args []ir.Value) (ir.Value, error)
	Args []Expr
}

func (Call) exprNode() {}
