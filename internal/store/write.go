package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/roach88/qwiq/internal/ir"
)

// FieldDef defines a field: its reference name, display name and kind.
type FieldDef struct {
	Ref  string
	Name string
	Kind ir.Kind
}

// Item is a work item to write. Fields are keyed by field reference and
// hold Go natives or ir values; they are converted to the field's kind.
type Item struct {
	ID     int64
	Type   string
	Fields map[string]any
}

// PutType defines a work item type. Existing types are left unchanged.
func (s *Store) PutType(ctx context.Context, name string) error {
	_, err := s.sb.Insert("work_item_types").
		Columns("name").
		Values(name).
		Suffix("ON CONFLICT(name) DO NOTHING").
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("put type %q: %w", name, err)
	}
	return nil
}

// PutField defines a field, or updates the display name and kind of an
// existing one.
func (s *Store) PutField(ctx context.Context, f FieldDef) error {
	if f.Ref == "" {
		return fmt.Errorf("put field: %w: empty reference name", ErrInvalidOperation)
	}
	name := f.Name
	if name == "" {
		name = f.Ref
	}
	_, err := s.sb.Insert("fields").
		Columns("ref_name", "name", "kind").
		Values(f.Ref, name, f.Kind.String()).
		Suffix("ON CONFLICT(ref_name) DO UPDATE SET name = excluded.name, kind = excluded.kind").
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("put field %q: %w", f.Ref, err)
	}
	return nil
}

// PutItem writes an item and its field values in one transaction. Writing
// an existing id replaces the given fields and keeps the others.
func (s *Store) PutItem(ctx context.Context, item Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put item %d: %w", item.ID, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := s.checkType(ctx, tx, item.Type); err != nil {
		return fmt.Errorf("put item %d: %w", item.ID, err)
	}

	var existing string
	err = s.sb.Select("type").From("work_items").Where(sq.Eq{"id": item.ID}).
		RunWith(tx).QueryRowContext(ctx).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.sb.Insert("work_items").Columns("id", "type").Values(item.ID, item.Type).
			RunWith(tx).ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("put item %d: %w", item.ID, err)
		}
	case err != nil:
		return fmt.Errorf("put item %d: %w", item.ID, err)
	case foldKey(existing) != foldKey(item.Type):
		return fmt.Errorf("put item %d: %w: already stored as %s", item.ID, ErrDuplicateItem, existing)
	}

	for ref, raw := range item.Fields {
		if ref == ir.FieldID || ref == ir.FieldWorkItemType {
			continue
		}
		kind, canonical, err := s.fieldKind(ctx, tx, ref)
		if err != nil {
			return fmt.Errorf("put item %d: %w", item.ID, err)
		}
		v, err := encodeValue(kind, raw)
		if err != nil {
			return fmt.Errorf("put item %d: field %s: %w", item.ID, ref, err)
		}
		col := column(kind)
		_, err = s.sb.Insert("field_values").
			Columns("item_id", "ref_name", col).
			Values(item.ID, canonical, v).
			Suffix(fmt.Sprintf("ON CONFLICT(item_id, ref_name) DO UPDATE SET %s = excluded.%s", col, col)).
			RunWith(tx).ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("put item %d: field %s: %w", item.ID, ref, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put item %d: %w", item.ID, err)
	}
	return nil
}

// PutLink stores a link between two existing items. Reverse hierarchy
// links are stored as the equivalent forward link. Duplicates are ignored.
func (s *Store) PutLink(ctx context.Context, link ir.WorkItemLink) error {
	l := link.Canonical()
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("put link: %w", err)
	}
	_, err = s.sb.Insert("links").
		Columns("id", "source_id", "target_id", "link_type").
		Values(id.String(), l.SourceID, l.TargetID, l.LinkType).
		Suffix("ON CONFLICT(source_id, target_id, link_type) DO NOTHING").
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("put link %d->%d: %w", l.SourceID, l.TargetID, err)
	}
	return nil
}

func (s *Store) checkType(ctx context.Context, tx *sql.Tx, name string) error {
	var n int
	err := s.sb.Select("COUNT(*)").From("work_item_types").Where(sq.Eq{"name": name}).
		RunWith(tx).QueryRowContext(ctx).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return nil
}

// fieldKind returns the kind and stored spelling of a field reference.
func (s *Store) fieldKind(ctx context.Context, runner sq.BaseRunner, ref string) (ir.Kind, string, error) {
	var kindName, canonical string
	err := s.sb.Select("kind", "ref_name").From("fields").Where(sq.Eq{"ref_name": ref}).
		RunWith(runner).QueryRowContext(ctx).Scan(&kindName, &canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.KindNull, "", fmt.Errorf("%w: %s", ErrUnknownField, ref)
	}
	if err != nil {
		return ir.KindNull, "", err
	}
	kind, err := ir.ParseKind(kindName)
	if err != nil {
		return ir.KindNull, "", err
	}
	return kind, canonical, nil
}
