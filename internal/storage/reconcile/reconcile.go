// Package reconcile folds write-ahead log records into a table snapshot.
package reconcile

import (
	"minidb/internal/sql"
	"minidb/internal/storage"
	"minidb/internal/storage/schema"
	"minidb/internal/storage/wal"
)

// Warning describes a record that was skipped during replay.
type Warning struct {
	Line int
	Op   wal.Op
	Err  error
}

// Result is the outcome of folding a log into a snapshot.
type Result struct {
	Rows []sql.Row

	// Removed and Added are the primary-key values whose liveness changed
	// relative to snapshot plus logged inserts. Both are empty for tables
	// without a primary key.
	Removed []sql.Value
	Added   []sql.Value

	Inserted int
	Updated  int
	Deleted  int

	Warnings []Warning
}

// Apply replays records over snapshot strictly in log order and returns the
// new table contents. It never modifies its inputs, so replaying the same
// log over the same snapshot always yields the same result.
//
// Inserts are appended as logged. An update assigns its SET list on every
// row matching its WHERE predicate; a delete removes every matching row.
// A record whose clauses cannot be parsed, that names an unknown column,
// that assigns an incompatible value, or that would break primary-key
// uniqueness is skipped and reported as a Warning.
func Apply(sch *schema.Schema, snapshot []sql.Row, records []wal.Record) Result {
	rows := make([]sql.Row, 0, len(snapshot)+len(records))
	for _, r := range snapshot {
		rows = append(rows, r.Clone())
	}

	var res Result
	pk := sch.PrimaryIndex()

	before := make(map[string]sql.Value)
	if pk >= 0 {
		for _, r := range snapshot {
			before[r[pk].Key()] = r[pk]
		}
	}

	for _, rec := range records {
		switch rec.Op {
		case wal.OpInsert:
			rows = append(rows, rec.Row.Clone())
			res.Inserted++
			if pk >= 0 {
				before[rec.Row[pk].Key()] = rec.Row[pk]
			}

		case wal.OpUpdate:
			next, n, err := applyUpdate(sch, rows, rec)
			if err != nil {
				res.Warnings = append(res.Warnings, Warning{Line: rec.Line, Op: rec.Op, Err: err})
				continue
			}
			rows = next
			res.Updated += n

		case wal.OpDelete:
			next, n, err := applyDelete(sch, rows, rec)
			if err != nil {
				res.Warnings = append(res.Warnings, Warning{Line: rec.Line, Op: rec.Op, Err: err})
				continue
			}
			rows = next
			res.Deleted += n
		}
	}

	res.Rows = rows

	if pk >= 0 {
		after := make(map[string]sql.Value, len(rows))
		for _, r := range rows {
			after[r[pk].Key()] = r[pk]
		}
		for k, v := range before {
			if _, ok := after[k]; !ok {
				res.Removed = append(res.Removed, v)
			}
		}
		for k, v := range after {
			if _, ok := before[k]; !ok {
				res.Added = append(res.Added, v)
			}
		}
	}

	return res
}

// where parses and resolves a WHERE clause against the schema.
func where(sch *schema.Schema, clause string) (sql.Predicate, int, error) {
	pred, err := sql.ParsePredicate(clause)
	if err != nil {
		return sql.Predicate{}, -1, storage.Wrap(storage.CodeMalformedPredicate, err, "where %q", clause)
	}
	col := sch.ColumnIndex(pred.Column)
	if col < 0 {
		return sql.Predicate{}, -1, storage.Errorf(storage.CodeUnknownColumn, "where %q: unknown column %q", clause, pred.Column)
	}
	return pred, col, nil
}

type assignment struct {
	col int
	val sql.Value
}

func applyUpdate(sch *schema.Schema, rows []sql.Row, rec wal.Record) ([]sql.Row, int, error) {
	pred, whereCol, err := where(sch, rec.Where)
	if err != nil {
		return nil, 0, err
	}

	parsed, err := sql.ParseAssignments(rec.Set)
	if err != nil {
		return nil, 0, storage.Wrap(storage.CodeMalformedPredicate, err, "set %q", rec.Set)
	}

	pk := sch.PrimaryIndex()
	sets := make([]assignment, 0, len(parsed))
	touchesPK := false
	for _, a := range parsed {
		col := sch.ColumnIndex(a.Column)
		if col < 0 {
			return nil, 0, storage.Errorf(storage.CodeUnknownColumn, "set %q: unknown column %q", rec.Set, a.Column)
		}
		c := sch.Columns[col]
		v, err := sql.Coerce(a.Value, c.Type)
		if err != nil {
			return nil, 0, storage.TypeMismatch(c.Name, c.Type.String(), a.Value.Type.String())
		}
		if col == pk {
			if v.IsNull() {
				return nil, 0, storage.Errorf(storage.CodeNullPrimaryKey, "set %q: primary key %q cannot be NULL", rec.Set, c.Name)
			}
			touchesPK = true
		}
		sets = append(sets, assignment{col: col, val: v})
	}

	colType := sch.Columns[whereCol].Type
	next := make([]sql.Row, len(rows))
	n := 0
	for i, r := range rows {
		if !sql.Matches(r[whereCol], colType, pred.Literal) {
			next[i] = r
			continue
		}
		updated := r.Clone()
		for _, s := range sets {
			updated[s.col] = s.val
		}
		next[i] = updated
		n++
	}

	if touchesPK && n > 0 {
		seen := make(map[string]struct{}, len(next))
		for _, r := range next {
			k := r[pk].Key()
			if _, dup := seen[k]; dup {
				return nil, 0, storage.Errorf(storage.CodeDuplicateKey,
					"set %q: duplicate primary key %s", rec.Set, r[pk].String())
			}
			seen[k] = struct{}{}
		}
	}

	return next, n, nil
}

func applyDelete(sch *schema.Schema, rows []sql.Row, rec wal.Record) ([]sql.Row, int, error) {
	pred, whereCol, err := where(sch, rec.Where)
	if err != nil {
		return nil, 0, err
	}

	colType := sch.Columns[whereCol].Type
	next := make([]sql.Row, 0, len(rows))
	for _, r := range rows {
		if !sql.Matches(r[whereCol], colType, pred.Literal) {
			next = append(next, r)
		}
	}
	return next, len(rows) - len(next), nil
}
