package ir

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueSealed(t *testing.T) {
	var _ Value = Null{}
	var _ Value = Int(1)
	var _ Value = Double(1.5)
	var _ Value = String("x")
	var _ Value = NewDate(time.Now())
	var _ Value = Ref(7)
	var _ Value = Bool(true)
}

func TestOf(t *testing.T) {
	day := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"int", 3, Int(3)},
		{"int32", int32(3), Int(3)},
		{"float", 2.5, Double(2.5)},
		{"string", "a", String("a")},
		{"bool", true, Bool(true)},
		{"time normalized to UTC", day, NewDate(day)},
		{"value passthrough", Ref(4), Ref(4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Of(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Of(struct{}{})
	assert.Error(t, err)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"int less", Int(1), Int(2), -1},
		{"int vs double", Int(2), Double(1.5), 1},
		{"ref vs int", Ref(5), Int(5), 0},
		{"string", String("b"), String("a"), 1},
		{"bool", Bool(false), Bool(true), -1},
		{"date", NewDate(time.Unix(0, 0)), NewDate(time.Unix(10, 0)), -1},
		{"null first", Null{}, Int(0), -1},
		{"both null", Null{}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompare_Incompatible(t *testing.T) {
	_, err := Compare(String("1"), Int(1))
	assert.True(t, errors.Is(err, ErrIncompatible))
	assert.False(t, Equal(String("1"), Int(1)))
}

func TestArith(t *testing.T) {
	got, err := Arith("+", Int(2), Int(3))
	require.NoError(t, err)
	assert.Equal(t, Int(5), got)

	got, err = Arith("*", Int(2), Double(1.5))
	require.NoError(t, err)
	assert.Equal(t, Double(3), got)

	got, err = Arith("+", String("a"), String("b"))
	require.NoError(t, err)
	assert.Equal(t, String("ab"), got)

	_, err = Arith("/", Int(1), Int(0))
	assert.ErrorIs(t, err, ErrDivisionByZero)

	for _, op := range []string{"/", "%"} {
		_, err = Arith(op, Double(1), Double(0))
		assert.ErrorIs(t, err, ErrDivisionByZero, op)
		_, err = Arith(op, Int(1), Double(0))
		assert.ErrorIs(t, err, ErrDivisionByZero, op)
	}

	_, err = Arith("*", Double(math.MaxFloat64), Int(2))
	assert.ErrorIs(t, err, ErrNotFinite)

	_, err = Of(math.Inf(-1))
	assert.ErrorIs(t, err, ErrNotFinite)
	_, err = Of(math.NaN())
	assert.ErrorIs(t, err, ErrNotFinite)

	_, err = Arith("-", String("a"), Int(1))
	assert.ErrorIs(t, err, ErrIncompatible)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Date")
	require.NoError(t, err)
	assert.Equal(t, KindDate, k)
	assert.Equal(t, "date", k.String())

	_, err = ParseKind("float")
	assert.Error(t, err)
}

func TestDate_StartOfDay(t *testing.T) {
	d := NewDate(time.Date(2024, 5, 6, 23, 59, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), d.StartOfDay().Time)
}
