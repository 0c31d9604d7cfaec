// Package queryir provides the immutable query tree that the typed query API
// builds and the translation pipeline consumes.
//
// ARCHITECTURE:
//
//	[typed API] → [Node tree] → eval → rewrite → wiql → [WIQL text]
//
// A tree is a chain of Node values ending in a Source. Operators wrap their
// input:
//
//	OrderBy{Input: Where{Input: Source{Entity: bugs}, Predicate: p}, Keys: k}
//
// SEALED INTERFACES:
//
// Node, Predicate and Expr are sealed interfaces using the marker method
// pattern. Only types in this package implement them, so every pass can use
// exhaustive type switches and reject anything else as unsupported.
//
// IMMUTABILITY:
//
// Nodes are plain values. No pass mutates its input; every rewrite returns
// a new tree. Slices held by nodes are never appended to in place.
//
// PARAMETER:
//
// A query has one implicit parameter, the work item being tested. Field is
// the only expression that references it. Everything else is a constant or
// derived from constants and can be folded before translation.
package queryir
