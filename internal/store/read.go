package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/qwiq/internal/ir"
)

// FetchLinks returns every link with an endpoint in ids, hierarchy links in
// forward orientation. Results are ordered by source, target and link type.
//
// Returns an empty slice (not nil) when no links match.
func (s *Store) FetchLinks(ctx context.Context, ids []int64) ([]ir.WorkItemLink, error) {
	links := []ir.WorkItemLink{}
	if len(ids) == 0 {
		return links, nil
	}

	rows, err := s.sb.Select("source_id", "target_id", "link_type").
		From("links").
		Where(sq.Or{sq.Eq{"source_id": ids}, sq.Eq{"target_id": ids}}).
		OrderBy("source_id ASC", "target_id ASC", "link_type ASC").
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l ir.WorkItemLink
		if err := rows.Scan(&l.SourceID, &l.TargetID, &l.LinkType); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}

// loadFields fills the requested field values of items, keyed by the
// requested spelling of each reference. System.Id and
// System.WorkItemType are always present and are not read from
// field_values.
func (s *Store) loadFields(ctx context.Context, items []*ir.WorkItem, refs []string) error {
	if len(items) == 0 || len(refs) == 0 {
		return nil
	}

	requested := make(map[string]string, len(refs))
	for _, ref := range refs {
		requested[foldKey(ref)] = ref
	}
	byID := make(map[int64]*ir.WorkItem, len(items))
	ids := make([]int64, len(items))
	for i, item := range items {
		byID[item.ID] = item
		ids[i] = item.ID
	}

	rows, err := s.sb.Select("fv.item_id", "f.ref_name", "f.kind", "fv.int_value", "fv.real_value", "fv.text_value").
		From("field_values fv").
		Join("fields f ON f.ref_name = fv.ref_name").
		Where(sq.Eq{"fv.item_id": ids, "f.ref_name": refs}).
		QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("query field values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       int64
			ref      string
			kindName string
			i        sql.NullInt64
			f        sql.NullFloat64
			t        sql.NullString
		)
		if err := rows.Scan(&id, &ref, &kindName, &i, &f, &t); err != nil {
			return fmt.Errorf("scan field value: %w", err)
		}
		kind, err := ir.ParseKind(kindName)
		if err != nil {
			return fmt.Errorf("field %s: %w", ref, err)
		}
		v, err := decodeValue(kind, i, f, t)
		if err != nil {
			return fmt.Errorf("field %s of item %d: %w", ref, id, err)
		}
		if item, ok := byID[id]; ok && !ir.IsNull(v) {
			item.Fields[requested[foldKey(ref)]] = v
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate field values: %w", err)
	}
	return nil
}
