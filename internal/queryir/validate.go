package queryir

import (
	"fmt"
	"strings"
)

// ValidationResult lists structural problems found in a query tree.
type ValidationResult struct {
	// Valid is true when Problems is empty.
	Valid bool

	// Problems describes each structural defect, outermost node first.
	Problems []string
}

// String joins the problems into one line.
func (r ValidationResult) String() string {
	return strings.Join(r.Problems, "; ")
}

// Validate checks that a query tree is well formed:
//  1. The operator chain ends in a Source with a non-nil Entity
//  2. Where nodes carry a predicate and every expression slot is filled
//  3. OrderBy / ThenBy carry at least one key with a property name
//  4. Traversal nodes name a related entity
//
// Validate does not check property names against the entity; that is the
// translator's job. It is a pure function with no side effects.
func Validate(n Node) ValidationResult {
	v := &validator{problems: []string{}}
	v.validateNode(n)
	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateNode(n Node) {
	for {
		switch x := n.(type) {
		case nil:
			v.addProblem("query chain does not end in a source")
			return
		case Source:
			if x.Entity == nil {
				v.addProblem("source has no entity")
			}
			return
		case Where:
			if x.Predicate == nil {
				v.addProblem("where has no predicate")
			} else {
				v.validatePredicate(x.Predicate)
			}
		case OrderBy:
			v.validateKeys("order by", x.Keys)
		case ThenBy:
			v.validateKeys("then by", x.Keys)
		case ParentsOf:
			if x.Related == nil {
				v.addProblem("parents-of has no related entity")
			}
		case ChildrenOf:
			if x.Related == nil {
				v.addProblem("children-of has no related entity")
			}
		case LinkFetch:
			if x.Related == nil {
				v.addProblem("link fetch has no related entity")
			}
		default:
			v.addProblem("unsupported node %T", n)
			return
		}
		n = Input(n)
	}
}

func (v *validator) validateKeys(op string, keys []SortKey) {
	if len(keys) == 0 {
		v.addProblem("%s has no keys", op)
	}
	for i, k := range keys {
		if k.Property == "" {
			v.addProblem("%s key %d has no property", op, i)
		}
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch x := p.(type) {
	case nil:
		v.addProblem("nil predicate")
	case Compare:
		v.validateExpr(x.L)
		v.validateExpr(x.R)
		if x.Op == "" {
			v.addProblem("comparison has no operator")
		}
	case In:
		v.validateExpr(x.L)
		for _, e := range x.Values {
			v.validateExpr(e)
		}
	case And:
		for _, q := range x.Predicates {
			v.validatePredicate(q)
		}
	case Or:
		for _, q := range x.Predicates {
			v.validatePredicate(q)
		}
	case Not:
		v.validatePredicate(x.Predicate)
	case Bool:
	default:
		v.addProblem("unsupported predicate %T", p)
	}
}

func (v *validator) validateExpr(e Expr) {
	switch x := e.(type) {
	case nil:
		v.addProblem("nil expression")
	case Field:
		if x.Property == "" {
			v.addProblem("field has no property")
		}
	case FieldRef:
		if x.Ref == "" {
			v.addProblem("field reference is empty")
		}
	case Const:
		if x.Value == nil {
			v.addProblem("constant has no value")
		}
	case Arith:
		v.validateExpr(x.L)
		v.validateExpr(x.R)
	case Call:
		if x.Fn == nil {
			v.addProblem("call %s has no function", x.Name)
		}
		for _, a := range x.Args {
			v.validateExpr(a)
		}
	default:
		v.addProblem("unsupported expression %T", e)
	}
}
