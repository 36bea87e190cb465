package engine

import (
	"bytes"
	"encoding/json"

	"minidb/internal/sql"
	"minidb/internal/storage"
)

// Result is the outcome of one statement. Exactly one of Success and Error
// is set. Queries also carry Columns and Rows.
type Result struct {
	Success string
	Columns []string
	Rows    []sql.Row

	Error string
	Kind  storage.Kind
	Code  storage.Code
}

// OK reports whether the statement succeeded.
func (r Result) OK() bool { return r.Error == "" }

func success(msg string) Result { return Result{Success: msg} }

func rowsResult(msg string, cols []string, rows []sql.Row) Result {
	if rows == nil {
		rows = []sql.Row{}
	}
	return Result{Success: msg, Columns: cols, Rows: rows}
}

func failure(err error) Result {
	res := Result{
		Error: err.Error(),
		Kind:  storage.KindOf(err),
		Code:  storage.CodeOf(err),
	}
	if res.Kind == "" {
		res.Kind = storage.KindStorage
	}
	return res
}

// MarshalJSON renders the wire form:
//
//	{"success":"..."}
//	{"success":"...","columns":["id","name"],"data":[{"id":1,"name":"a"}]}
//	{"error":"...","kind":"ConstraintViolation","code":"DuplicateKey"}
//
// Row objects keep column order.
func (r Result) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField := func(name string, v any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(name)
		buf.Write(k)
		buf.WriteByte(':')
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}

	if !r.OK() {
		if err := writeField("error", r.Error); err != nil {
			return nil, err
		}
		if r.Kind != "" {
			if err := writeField("kind", r.Kind); err != nil {
				return nil, err
			}
		}
		if r.Code != "" {
			if err := writeField("code", r.Code); err != nil {
				return nil, err
			}
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}

	if err := writeField("success", r.Success); err != nil {
		return nil, err
	}
	if r.Columns != nil {
		if err := writeField("columns", r.Columns); err != nil {
			return nil, err
		}
		buf.WriteString(`,"data":[`)
		for i, row := range r.Rows {
			if i > 0 {
				buf.WriteByte(',')
			}
			b, err := sql.EncodeRow(r.Columns, row)
			if err != nil {
				return nil, err
			}
			buf.Write(b)
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ErrorResult converts err into a failed Result for callers outside the
// executor, such as transports recovering from a panic.
func ErrorResult(err error) Result { return failure(err) }
