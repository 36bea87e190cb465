package sql

import (
	"fmt"
	"strconv"
	"strings"
)

// DataType represents the logical type of a value in a column.
type DataType int

const (
	TypeInt DataType = iota
	TypeFloat
	TypeString
	TypeBool
	// TypeNull is only ever carried by values, never declared by a column.
	TypeNull
)

// String returns the canonical name used in schema.json.
func (t DataType) String() string {
	switch t {
	case TypeInt:
		return "INT"
	case TypeFloat:
		return "FLOAT"
	case TypeString:
		return "TEXT"
	case TypeBool:
		return "BOOL"
	case TypeNull:
		return "NULL"
	default:
		return fmt.Sprintf("DataType(%d)", int(t))
	}
}

// ParseDataType maps a type name (including the usual aliases) to a DataType.
func ParseDataType(name string) (DataType, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "INT", "INTEGER":
		return TypeInt, nil
	case "FLOAT", "DOUBLE", "REAL":
		return TypeFloat, nil
	case "TEXT", "STRING", "VARCHAR":
		return TypeString, nil
	case "BOOL", "BOOLEAN":
		return TypeBool, nil
	default:
		return 0, fmt.Errorf("unknown column type %q", name)
	}
}

// Value represents a single cell in a table (one column in one row).
// Only the field matching Type should be read; other fields remain at their
// zero values to keep the struct compact and easy to inspect while debugging.
type Value struct {
	Type DataType

	I64 int64   // for TypeInt
	F64 float64 // for TypeFloat
	S   string  // for TypeString
	B   bool    // for TypeBool
}

func IntValue(i int64) Value     { return Value{Type: TypeInt, I64: i} }
func FloatValue(f float64) Value { return Value{Type: TypeFloat, F64: f} }
func StringValue(s string) Value { return Value{Type: TypeString, S: s} }
func BoolValue(b bool) Value     { return Value{Type: TypeBool, B: b} }
func NullValue() Value           { return Value{Type: TypeNull} }

// IsNull reports whether v is the NULL value.
func (v Value) IsNull() bool { return v.Type == TypeNull }

// String formats the value the way it is shown to users and compared
// against unquoted literals.
func (v Value) String() string {
	switch v.Type {
	case TypeInt:
		return strconv.FormatInt(v.I64, 10)
	case TypeFloat:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case TypeString:
		return v.S
	case TypeBool:
		return strconv.FormatBool(v.B)
	default:
		return "NULL"
	}
}

// Key returns a string that identifies the value together with its type.
// Two values have the same key iff they are equal.
func (v Value) Key() string {
	switch v.Type {
	case TypeInt:
		return "i:" + strconv.FormatInt(v.I64, 10)
	case TypeFloat:
		if v.F64 == 0 {
			// -0 and 0 compare equal.
			return "f:0"
		}
		return "f:" + strconv.FormatFloat(v.F64, 'g', -1, 64)
	case TypeString:
		return "s:" + v.S
	case TypeBool:
		return "b:" + strconv.FormatBool(v.B)
	default:
		return "n:"
	}
}

// Row represents one record in a table: a slice of Values, one per column.
type Row []Value

// Clone returns a copy of the row that shares no memory with r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Column describes metadata for a single column in a table.
type Column struct {
	Name    string
	Type    DataType
	Primary bool
}
