// Package store provides a SQLite-backed work item store that executes
// WIQL.
//
// The store holds:
//   - Work item types: the type names items may have
//   - Fields: reference name, display name and kind of every field
//   - Work items: id and type, with field values one row per field
//   - Links: typed edges between items, hierarchy links stored forward
//
// # Query Execution
//
// ExecuteQuery parses WIQL with package wiqlparse and compiles it with
// squirrel into a single SELECT over work_items. Field values are read
// through correlated subqueries, so a missing value behaves as NULL.
// Results are ordered by the query's ORDER BY keys, then by id ascending.
// Text comparisons ignore case.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
