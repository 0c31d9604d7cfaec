package wiqlparse

import (
	"fmt"
	"strings"

	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/queryir"
)

// ParseFilter parses a WIQL condition over items of e. Bracketed names
// that are properties of e become property reads, so "[Priority] <= 2"
// goes through e's binding for Priority; any other name stays a field
// reference.
func ParseFilter(where string, e model.Entity) (queryir.Predicate, error) {
	cond, err := ParseCondition(where)
	if err != nil {
		return nil, err
	}
	p, err := Predicate(cond)
	if err != nil {
		return nil, err
	}
	return bindPredicate(p, e), nil
}

func bindPredicate(p queryir.Predicate, e model.Entity) queryir.Predicate {
	switch x := p.(type) {
	case queryir.Compare:
		return queryir.Compare{L: bindExpr(x.L, e), Op: x.Op, R: bindExpr(x.R, e)}
	case queryir.In:
		return queryir.In{L: bindExpr(x.L, e), Values: x.Values}
	case queryir.And:
		return queryir.And{Predicates: bindPredicates(x.Predicates, e)}
	case queryir.Or:
		return queryir.Or{Predicates: bindPredicates(x.Predicates, e)}
	case queryir.Not:
		return queryir.Not{Predicate: bindPredicate(x.Predicate, e)}
	}
	return p
}

func bindPredicates(ps []queryir.Predicate, e model.Entity) []queryir.Predicate {
	out := make([]queryir.Predicate, len(ps))
	for i, p := range ps {
		out[i] = bindPredicate(p, e)
	}
	return out
}

func bindExpr(x queryir.Expr, e model.Entity) queryir.Expr {
	if ref, ok := x.(queryir.FieldRef); ok {
		if _, bound := e.Field(ref.Ref); bound {
			return queryir.Field{Property: ref.Ref}
		}
	}
	return x
}

// ParseOrder reads a comma separated list of properties, each optionally
// followed by asc or desc: "Priority desc, Title".
func ParseOrder(s string) ([]queryir.SortKey, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var keys []queryir.SortKey
	for _, part := range strings.Split(s, ",") {
		words := strings.Fields(part)
		switch {
		case len(words) == 1:
			keys = append(keys, queryir.SortKey{Property: words[0]})
		case len(words) == 2 && strings.EqualFold(words[1], "asc"):
			keys = append(keys, queryir.SortKey{Property: words[0]})
		case len(words) == 2 && strings.EqualFold(words[1], "desc"):
			keys = append(keys, queryir.SortKey{Property: words[0], Desc: true})
		default:
			return nil, fmt.Errorf("bad order key %q: want <property> [asc|desc]", strings.TrimSpace(part))
		}
	}
	return keys, nil
}
