// Package ir provides the value and work-item types shared by every qwiq
// package.
//
// This package contains type definitions and value arithmetic only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is sealed; the closed set of kinds is Null, Int, Double, String,
//     Date, Ref and Bool
//   - Field values on a WorkItem are keyed by field reference name
//     (e.g. "Microsoft.VSTS.Common.Priority"), never by property name
//   - Hierarchy links are canonical in the forward direction: the parent is
//     the source and the child is the target
package ir
