// Package wiqlparse parses the WIQL dialect produced by the wiql package.
//
// Supported statements have the shape
//
//	SELECT [ref], ... FROM WorkItems [WHERE cond] [ORDER BY [ref] ASC|DESC, ...]
//
// where cond combines comparisons (=, <>, <, <=, >, >=, CONTAINS, UNDER,
// IN) with AND, OR, NOT and parentheses. Keywords are case-insensitive.
// Link queries (FROM WorkItemLinks) are not accepted.
package wiqlparse

import "github.com/roach88/qwiq/internal/ir"

// Query is a parsed SELECT statement.
type Query struct {
	Columns []string
	From    string
	Where   Cond // nil when there is no WHERE clause
	OrderBy []OrderKey
}

// OrderKey is one ORDER BY term.
type OrderKey struct {
	Ref  string
	Desc bool
}

// Cond is a condition node: *And, *Or, *Not, *Comparison or *In.
type Cond interface {
	cond()
}

// And is a conjunction with at least two terms.
type And struct{ Terms []Cond }

// Or is a disjunction with at least two terms.
type Or struct{ Terms []Cond }

// Not negates a condition.
type Not struct{ Cond Cond }

// Comparison compares a field against an operand.
type Comparison struct {
	Ref     string
	Op      string // "=", "<>", "<", "<=", ">", ">=", "CONTAINS" or "UNDER"
	Operand Operand
}

// In tests membership of a field in a literal list.
type In struct {
	Ref    string
	Values []ir.Value
}

func (*And) cond()        {}
func (*Or) cond()         {}
func (*Not) cond()        {}
func (*Comparison) cond() {}
func (*In) cond()         {}

// Operand is the right-hand side of a comparison: a literal value or
// another field.
type Operand struct {
	Value ir.Value // set for literals
	Ref   string   // set for field operands
}

// IsField reports whether the operand is a field reference.
func (o Operand) IsField() bool { return o.Ref != "" }
