package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/qwiq/internal/model"
	"github.com/roach88/qwiq/internal/qerr"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on fields(name) for display-name lookups
const currentSchemaVersion = 1

var (
	// ErrInvalidOperation marks requests the store rejects as malformed.
	// It is the same sentinel as qerr.ErrInvalidOperation so provider
	// callers see an invalid operation instead of a store fault.
	ErrInvalidOperation = qerr.ErrInvalidOperation

	// ErrUnknownField is returned when a field reference is not defined.
	ErrUnknownField = errors.New("unknown field")

	// ErrUnknownType is returned when a work item type is not defined.
	ErrUnknownType = errors.New("unknown work item type")

	// ErrDuplicateItem is returned when an item id is already taken by an
	// item of a different type.
	ErrDuplicateItem = errors.New("duplicate work item")
)

// Store is a SQLite-backed work item store.
// Uses WAL mode for concurrent read access.
type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// Open is idempotent.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question).RunWith(db),
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ResolveFieldReference maps a property name to a field reference by
// matching the field's display name or its reference name, ignoring case.
func (s *Store) ResolveFieldReference(ctx context.Context, property string) (string, bool, error) {
	var ref string
	err := s.sb.Select("ref_name").
		From("fields").
		Where(sq.Or{sq.Eq{"name": property}, sq.Eq{"ref_name": property}}).
		OrderByClause("ref_name = ? DESC", property).
		Limit(1).
		QueryRowContext(ctx).
		Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve field %q: %w", property, err)
	}
	return ref, true, nil
}

// ResolveStoreTypeCandidates returns the entity's declared store types that
// exist in the store, in declaration order and with the store's spelling.
func (s *Store) ResolveStoreTypeCandidates(ctx context.Context, entity model.Entity) ([]string, error) {
	declared := entity.StoreTypes()
	if len(declared) == 0 {
		return []string{}, nil
	}

	rows, err := s.sb.Select("name").
		From("work_item_types").
		Where(sq.Eq{"name": declared}).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve types for %s: %w", entity.Name(), err)
	}
	defer rows.Close()

	found := make(map[string]string)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		found[foldKey(name)] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate types: %w", err)
	}

	candidates := []string{}
	for _, t := range declared {
		if name, ok := found[foldKey(t)]; ok {
			candidates = append(candidates, name)
			delete(found, foldKey(t))
		}
	}
	return candidates, nil
}

func foldKey(s string) string { return strings.ToLower(s) }

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the display-name index for databases created before it
// was part of schema.sql.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_fields_name ON fields(name)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
