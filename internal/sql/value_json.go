package sql

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MarshalJSON encodes the value as a plain JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case TypeInt:
		return []byte(strconv.FormatInt(v.I64, 10)), nil
	case TypeFloat:
		return json.Marshal(v.F64)
	case TypeString:
		return json.Marshal(v.S)
	case TypeBool:
		return json.Marshal(v.B)
	default:
		return []byte("null"), nil
	}
}

// DecodeValue decodes a JSON scalar stored in a column of type t.
func DecodeValue(raw json.RawMessage, t DataType) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return NullValue(), nil
	}

	switch t {
	case TypeInt:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, fmt.Errorf("expected INT, got %s", raw)
		}
		i, err := n.Int64()
		if err != nil {
			return Value{}, fmt.Errorf("expected INT, got %s", raw)
		}
		return IntValue(i), nil
	case TypeFloat:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return Value{}, fmt.Errorf("expected FLOAT, got %s", raw)
		}
		f, err := n.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("expected FLOAT, got %s", raw)
		}
		return FloatValue(f), nil
	case TypeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, fmt.Errorf("expected TEXT, got %s", raw)
		}
		return StringValue(s), nil
	case TypeBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, fmt.Errorf("expected BOOL, got %s", raw)
		}
		return BoolValue(b), nil
	default:
		return Value{}, fmt.Errorf("cannot decode into %s", t)
	}
}

// EncodeRow writes row as a JSON object whose keys follow names, in order.
func EncodeRow(names []string, row Row) ([]byte, error) {
	if len(names) != len(row) {
		return nil, fmt.Errorf("row has %d values for %d columns", len(row), len(names))
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := row[i].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeRow decodes a JSON object into a row laid out in column order.
// The object's key set must equal the column names.
func DecodeRow(cols []Column, raw json.RawMessage) (Row, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("row is not a JSON object: %w", err)
	}
	if len(fields) != len(cols) {
		return nil, fmt.Errorf("row has %d fields, schema has %d columns", len(fields), len(cols))
	}

	row := make(Row, len(cols))
	for i, col := range cols {
		field, ok := fields[col.Name]
		if !ok {
			return nil, fmt.Errorf("row is missing column %q", col.Name)
		}
		v, err := DecodeValue(field, col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		row[i] = v
	}
	return row, nil
}

// ColumnNames returns the names of cols in order.
func ColumnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
