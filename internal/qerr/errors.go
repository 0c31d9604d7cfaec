// Package qerr defines the error taxonomy shared by the translation pipeline,
// the mapper and the query provider.
package qerr

import (
	"context"
	"errors"
	"fmt"
)

// Code categorizes query errors.
type Code string

const (
	// CodeEvaluation indicates a constant sub-expression failed to evaluate.
	CodeEvaluation Code = "EVALUATION"

	// CodeUnmappedField indicates a property has no field reference.
	CodeUnmappedField Code = "UNMAPPED_FIELD"

	// CodeAmbiguousType indicates a traversal target resolved to zero or
	// several store types.
	CodeAmbiguousType Code = "AMBIGUOUS_TYPE"

	// CodeTypeConversion indicates a stored value could not be converted to
	// the declared property kind.
	CodeTypeConversion Code = "TYPE_CONVERSION"

	// CodeAmbiguousParent indicates an item has more than one parent link.
	CodeAmbiguousParent Code = "AMBIGUOUS_PARENT"

	// CodeStoreFault indicates the store failed while executing a call.
	CodeStoreFault Code = "STORE_FAULT"

	// CodeInvalidOperation indicates the query shape is not supported.
	CodeInvalidOperation Code = "INVALID_OPERATION"
)

// ErrInvalidOperation is matched by errors.Is for both CodeInvalidOperation
// and CodeAmbiguousType errors.
var ErrInvalidOperation = errors.New("invalid operation")

// Error is a query error with a code and optional context.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Entity names the domain type involved, if any.
	Entity string

	// Property names the property involved, if any.
	Property string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Entity != "" && e.Property != "":
		msg = fmt.Sprintf("%s (entity=%s, property=%s)", msg, e.Entity, e.Property)
	case e.Entity != "":
		msg = fmt.Sprintf("%s (entity=%s)", msg, e.Entity)
	case e.Property != "":
		msg = fmt.Sprintf("%s (property=%s)", msg, e.Property)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrInvalidOperation and e belongs to the
// invalid-operation family.
func (e *Error) Is(target error) bool {
	if target != ErrInvalidOperation {
		return false
	}
	return e.Code == CodeInvalidOperation || e.Code == CodeAmbiguousType
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

func hasCode(err error, code Code) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

// IsEvaluationError returns true if err is a constant evaluation failure.
func IsEvaluationError(err error) bool { return hasCode(err, CodeEvaluation) }

// IsUnmappedFieldError returns true if err is an unmapped property error.
func IsUnmappedFieldError(err error) bool { return hasCode(err, CodeUnmappedField) }

// IsAmbiguousTypeError returns true if err is a traversal type resolution error.
func IsAmbiguousTypeError(err error) bool { return hasCode(err, CodeAmbiguousType) }

// IsTypeConversionError returns true if err is a value conversion error.
func IsTypeConversionError(err error) bool { return hasCode(err, CodeTypeConversion) }

// IsAmbiguousParentError returns true if err reports multiple parents.
func IsAmbiguousParentError(err error) bool { return hasCode(err, CodeAmbiguousParent) }

// IsStoreFault returns true if err is a translated store failure.
func IsStoreFault(err error) bool { return hasCode(err, CodeStoreFault) }

// IsInvalidOperation returns true if err belongs to the invalid-operation
// family, including ambiguous traversal types.
func IsInvalidOperation(err error) bool { return errors.Is(err, ErrInvalidOperation) }

// NewEvaluationError creates an Error for a failing constant sub-expression.
func NewEvaluationError(expr string, err error) *Error {
	return &Error{
		Code:    CodeEvaluation,
		Message: fmt.Sprintf("cannot evaluate %s", expr),
		Err:     err,
	}
}

// NewUnmappedFieldError creates an Error for a property with no field reference.
func NewUnmappedFieldError(entity, property string) *Error {
	return &Error{
		Code:     CodeUnmappedField,
		Message:  "property has no field reference",
		Entity:   entity,
		Property: property,
	}
}

// NewAmbiguousTypeError creates an Error for a traversal target that does not
// resolve to exactly one store type.
func NewAmbiguousTypeError(entity string, candidates []string) *Error {
	msg := "traversal target has no store type"
	if len(candidates) > 1 {
		msg = fmt.Sprintf("traversal target maps to %d store types %v", len(candidates), candidates)
	}
	return &Error{
		Code:    CodeAmbiguousType,
		Message: msg,
		Entity:  entity,
	}
}

// NewTypeConversionError creates an Error for a stored value that cannot be
// converted to its declared kind.
func NewTypeConversionError(entity, property string, err error) *Error {
	return &Error{
		Code:     CodeTypeConversion,
		Message:  "cannot convert stored value",
		Entity:   entity,
		Property: property,
		Err:      err,
	}
}

// NewAmbiguousParentError creates an Error for an item with several parents.
func NewAmbiguousParentError(entity string, itemID int64, parents []int64) *Error {
	return &Error{
		Code:    CodeAmbiguousParent,
		Message: fmt.Sprintf("work item %d has %d parents %v", itemID, len(parents), parents),
		Entity:  entity,
	}
}

// NewInvalidOperationError creates an Error for an unsupported query shape.
func NewInvalidOperationError(format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidOperation,
		Message: fmt.Sprintf(format, args...),
	}
}

// FromStore translates an error returned by a store call. Errors that are
// already query errors pass through; context cancellation stays reachable
// through errors.Is.
func FromStore(op string, err error) error {
	if err == nil {
		return nil
	}
	var qe *Error
	if errors.As(err, &qe) {
		return err
	}
	if errors.Is(err, ErrInvalidOperation) {
		return &Error{Code: CodeInvalidOperation, Message: op, Err: err}
	}
	msg := op
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		msg = op + " interrupted"
	}
	return &Error{Code: CodeStoreFault, Message: msg, Err: err}
}
