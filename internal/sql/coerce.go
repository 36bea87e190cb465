package sql

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IsFinite reports whether f can be stored: NaN and the infinities have no
// JSON encoding.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Coerce converts a literal to the given column type.
//
// Same-typed values pass through, INT widens to FLOAT, text parses into
// the numeric and boolean types, scalars format into TEXT and NULL is
// accepted for every type. Non-finite floats are rejected.
func Coerce(v Value, to DataType) (Value, error) {
	if v.Type == TypeFloat && !IsFinite(v.F64) {
		return Value{}, fmt.Errorf("cannot use %s as FLOAT", v.String())
	}
	if v.Type == to || v.Type == TypeNull {
		return v, nil
	}

	switch to {
	case TypeFloat:
		switch v.Type {
		case TypeInt:
			return FloatValue(float64(v.I64)), nil
		case TypeString:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.S), 64)
			if err != nil || !IsFinite(f) {
				return Value{}, fmt.Errorf("cannot use %q as FLOAT", v.S)
			}
			return FloatValue(f), nil
		}
	case TypeInt:
		if v.Type == TypeString {
			i, err := strconv.ParseInt(strings.TrimSpace(v.S), 10, 64)
			if err != nil {
				return Value{}, fmt.Errorf("cannot use %q as INT", v.S)
			}
			return IntValue(i), nil
		}
	case TypeBool:
		if v.Type == TypeString {
			b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v.S)))
			if err != nil {
				return Value{}, fmt.Errorf("cannot use %q as BOOL", v.S)
			}
			return BoolValue(b), nil
		}
	case TypeString:
		return StringValue(v.String()), nil
	}

	return Value{}, fmt.Errorf("cannot use %s value %s as %s", v.Type, v.String(), to)
}

// Assignable reports whether a value of type from may be stored in a
// column of type to without conversion other than INT→FLOAT widening.
func Assignable(from, to DataType) bool {
	return from == to || (from == TypeInt && to == TypeFloat)
}

// ValuesEqual compares two sql.Value for equality, considering their type.
func ValuesEqual(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TypeInt:
		return a.I64 == b.I64
	case TypeFloat:
		return a.F64 == b.F64
	case TypeString:
		return a.S == b.S
	case TypeBool:
		return a.B == b.B
	case TypeNull:
		return true
	default:
		return false
	}
}

// Matches reports whether a cell of the given column type equals lit once
// lit has been coerced to that type. Literals that cannot be coerced match
// nothing.
func Matches(cell Value, colType DataType, lit Value) bool {
	want, err := Coerce(lit, colType)
	if err != nil {
		return false
	}
	return ValuesEqual(cell, want)
}
