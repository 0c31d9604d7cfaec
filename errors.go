package qwiq

import "github.com/roach88/qwiq/internal/qerr"

// Error is the error type of every failure qwiq reports itself. Store
// errors are wrapped in an Error with code STORE_FAULT.
type Error = qerr.Error

// ErrorCode classifies an Error.
type ErrorCode = qerr.Code

// ErrInvalidOperation is matched by errors.Is for unsupported query shapes
// and ambiguous related types.
var ErrInvalidOperation = qerr.ErrInvalidOperation

// IsEvaluationError reports whether a constant part of a query failed to
// evaluate.
func IsEvaluationError(err error) bool { return qerr.IsEvaluationError(err) }

// IsUnmappedFieldError reports whether a property has no field binding.
func IsUnmappedFieldError(err error) bool { return qerr.IsUnmappedFieldError(err) }

// IsAmbiguousTypeError reports whether a related type did not resolve to
// exactly one store type.
func IsAmbiguousTypeError(err error) bool { return qerr.IsAmbiguousTypeError(err) }

// IsTypeConversionError reports whether a stored value did not fit its
// property.
func IsTypeConversionError(err error) bool { return qerr.IsTypeConversionError(err) }

// IsAmbiguousParentError reports whether an item had several parents.
func IsAmbiguousParentError(err error) bool { return qerr.IsAmbiguousParentError(err) }

// IsStoreFault reports whether the store failed.
func IsStoreFault(err error) bool { return qerr.IsStoreFault(err) }

// IsInvalidOperation reports whether a query shape is not supported.
func IsInvalidOperation(err error) bool { return qerr.IsInvalidOperation(err) }
