package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/qwiq/internal/ir"
)

// ExprUsesParameter reports whether e reads the query parameter.
func ExprUsesParameter(e Expr) bool {
	switch x := e.(type) {
	case Field, FieldRef:
		return true
	case Arith:
		return ExprUsesParameter(x.L) || ExprUsesParameter(x.R)
	case Call:
		for _, a := range x.Args {
			if ExprUsesParameter(a) {
				return true
			}
		}
	}
	return false
}

// PredicateUsesParameter reports whether p reads the query parameter.
func PredicateUsesParameter(p Predicate) bool {
	switch x := p.(type) {
	case Compare:
		return ExprUsesParameter(x.L) || ExprUsesParameter(x.R)
	case In:
		if ExprUsesParameter(x.L) {
			return true
		}
		for _, v := range x.Values {
			if ExprUsesParameter(v) {
				return true
			}
		}
	case And:
		for _, q := range x.Predicates {
			if PredicateUsesParameter(q) {
				return true
			}
		}
	case Or:
		for _, q := range x.Predicates {
			if PredicateUsesParameter(q) {
				return true
			}
		}
	case Not:
		return PredicateUsesParameter(x.Predicate)
	}
	return false
}

// Input returns the input of an operator node, or nil for Source.
func Input(n Node) Node {
	switch x := n.(type) {
	case Where:
		return x.Input
	case OrderBy:
		return x.Input
	case ThenBy:
		return x.Input
	case ParentsOf:
		return x.Input
	case ChildrenOf:
		return x.Input
	case LinkFetch:
		return x.Input
	}
	return nil
}

// SourceOf walks the input chain and returns the Source at its end.
func SourceOf(n Node) (Source, bool) {
	for n != nil {
		if s, ok := n.(Source); ok {
			return s, true
		}
		n = Input(n)
	}
	return Source{}, false
}

// WithDayPrecision returns a copy of the chain whose Source compares dates
// at day granularity.
func WithDayPrecision(n Node) Node {
	switch x := n.(type) {
	case Source:
		x.DayPrecision = true
		return x
	case Where:
		x.Input = WithDayPrecision(x.Input)
		return x
	case OrderBy:
		x.Input = WithDayPrecision(x.Input)
		return x
	case ThenBy:
		x.Input = WithDayPrecision(x.Input)
		return x
	case ParentsOf:
		x.Input = WithDayPrecision(x.Input)
		return x
	case ChildrenOf:
		x.Input = WithDayPrecision(x.Input)
		return x
	case LinkFetch:
		x.Input = WithDayPrecision(x.Input)
		return x
	}
	return n
}

// FormatExpr renders e for diagnostics.
func FormatExpr(e Expr) string {
	switch x := e.(type) {
	case nil:
		return "<nil>"
	case Field:
		return "x." + x.Property
	case FieldRef:
		return "x[" + x.Ref + "]"
	case Const:
		return fmt.Sprintf("%v", ir.Native(x.Value))
	case Arith:
		return fmt.Sprintf("(%s %s %s)", FormatExpr(x.L), x.Op, FormatExpr(x.R))
	case Call:
		args := make([]string, len(x.Args))
		for i, a := range x.Args {
			args[i] = FormatExpr(a)
		}
		return fmt.Sprintf("%s(%s)", x.Name, strings.Join(args, ", "))
	}
	return fmt.Sprintf("%T", e)
}

// FormatPredicate renders p for diagnostics.
func FormatPredicate(p Predicate) string {
	switch x := p.(type) {
	case nil:
		return "<nil>"
	case Compare:
		return fmt.Sprintf("%s %s %s", FormatExpr(x.L), x.Op, FormatExpr(x.R))
	case In:
		vals := make([]string, len(x.Values))
		for i, v := range x.Values {
			vals[i] = FormatExpr(v)
		}
		return fmt.Sprintf("%s IN (%s)", FormatExpr(x.L), strings.Join(vals, ", "))
	case And:
		return joinPredicates(x.Predicates, " AND ")
	case Or:
		return joinPredicates(x.Predicates, " OR ")
	case Not:
		return "NOT (" + FormatPredicate(x.Predicate) + ")"
	case Bool:
		if x.Value {
			return "true"
		}
		return "false"
	}
	return fmt.Sprintf("%T", p)
}

func joinPredicates(ps []Predicate, sep string) string {
	parts := make([]string, len(ps))
	for i, q := range ps {
		parts[i] = FormatPredicate(q)
	}
	return "(" + strings.Join(parts, sep) + ")"
}
