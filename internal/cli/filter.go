package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/qwiq"
	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/wiqlparse"
)

// FilterOptions are the flags shared by translate and query.
type FilterOptions struct {
	Where    string // WIQL condition
	Order    string // "Priority desc, Title"
	Children string // related model for a children traversal
	Parents  string // related model for a parents traversal
}

// build applies the filter and ordering flags to a query over d.
func (o *FilterOptions) build(c *qwiq.Client, d *model.Descriptor[model.Record]) (*qwiq.Query[model.Record], error) {
	q := qwiq.From(c, d)

	if strings.TrimSpace(o.Where) != "" {
		p, err := wiqlparse.ParseFilter(o.Where, d)
		if err != nil {
			return nil, fmt.Errorf("--where: %w", err)
		}
		q = q.Where(p)
	}

	keys, err := wiqlparse.ParseOrder(o.Order)
	if err != nil {
		return nil, fmt.Errorf("--order: %w", err)
	}
	for i, k := range keys {
		switch {
		case i == 0 && k.Desc:
			q = q.OrderByDesc(k.Property)
		case i == 0:
			q = q.OrderBy(k.Property)
		case k.Desc:
			q = q.ThenByDesc(k.Property)
		default:
			q = q.ThenBy(k.Property)
		}
	}
	return q, nil
}

// traversal returns the related model named by --children or --parents
// and which of the two was given. At most one may be set.
func (o *FilterOptions) traversal() (name string, end qwiq.LinkEnd, ok bool, err error) {
	switch {
	case o.Children != "" && o.Parents != "":
		return "", 0, false, fmt.Errorf("--children and --parents cannot be combined")
	case o.Children != "":
		return o.Children, qwiq.EndChildren, true, nil
	case o.Parents != "":
		return o.Parents, qwiq.EndParents, true, nil
	}
	return "", 0, false, nil
}
