package qerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmbiguousType_IsInvalidOperation(t *testing.T) {
	none := NewAmbiguousTypeError("Epic", nil)
	many := NewAmbiguousTypeError("Epic", []string{"Epic", "Feature"})

	for _, err := range []error{none, many, fmt.Errorf("build: %w", many)} {
		assert.True(t, IsAmbiguousTypeError(err))
		assert.True(t, errors.Is(err, ErrInvalidOperation))
		assert.True(t, IsInvalidOperation(err))
	}
	assert.Contains(t, many.Error(), "2 store types")
}

func TestIsHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"evaluation", NewEvaluationError("1 / 0", errors.New("division by zero")), IsEvaluationError},
		{"unmapped", NewUnmappedFieldError("Bug", "Severity"), IsUnmappedFieldError},
		{"conversion", NewTypeConversionError("Bug", "Priority", errors.New("bad")), IsTypeConversionError},
		{"parent", NewAmbiguousParentError("Task", 3, []int64{1, 2}), IsAmbiguousParentError},
		{"invalid", NewInvalidOperationError("unsupported node %T", 1), IsInvalidOperation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)))
			assert.False(t, IsStoreFault(tt.err))
		})
	}
}

func TestNotInvalidOperation(t *testing.T) {
	assert.False(t, errors.Is(NewUnmappedFieldError("Bug", "X"), ErrInvalidOperation))
	assert.False(t, IsInvalidOperation(errors.New("other")))
}

func TestError_Message(t *testing.T) {
	err := NewTypeConversionError("Bug", "Priority", errors.New("not a number"))
	assert.Equal(t, "TYPE_CONVERSION: cannot convert stored value (entity=Bug, property=Priority): not a number", err.Error())
}

func TestFromStore(t *testing.T) {
	assert.NoError(t, FromStore("execute query", nil))

	cause := errors.New("disk I/O error")
	err := FromStore("execute query", cause)
	assert.True(t, IsStoreFault(err))
	assert.ErrorIs(t, err, cause)

	err = FromStore("fetch links", context.Canceled)
	assert.True(t, IsStoreFault(err))
	assert.ErrorIs(t, err, context.Canceled)

	err = FromStore("execute query", fmt.Errorf("parse: %w", ErrInvalidOperation))
	assert.Equal(t, CodeInvalidOperation, CodeOf(err))

	original := NewUnmappedFieldError("Bug", "X")
	assert.Same(t, original, FromStore("resolve", original))
}
