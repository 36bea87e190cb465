// Package table is the per-table storage engine: it validates inserts,
// enforces primary-key uniqueness, logs every mutation to the write-ahead
// log and folds the log into the snapshot before each read.
package table

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"minidb/internal/sql"
	"minidb/internal/storage"
	"minidb/internal/storage/pkindex"
	"minidb/internal/storage/reconcile"
	"minidb/internal/storage/schema"
	"minidb/internal/storage/snapshot"
	"minidb/internal/storage/wal"
)

// Options configures an opened table.
type Options struct {
	// SyncWrites fsyncs the log after every append.
	SyncWrites bool
	Logger     *slog.Logger
}

// Table is one open table. All operations on a table are serialized by its
// mutex; distinct tables never block each other.
type Table struct {
	mu sync.Mutex

	db     string
	name   string
	dir    string
	schema *schema.Schema
	log    *wal.Log
	logger *slog.Logger

	// index is nil until the first uniqueness check.
	index *pkindex.Index
	// pending counts update and delete records appended since the last
	// fold. The index may be stale while it is non-zero.
	pending int
	closed  bool
}

// Open opens the table stored in dir. sch must be the table's schema.
func Open(db, name, dir string, sch *schema.Schema, opts Options) (*Table, error) {
	l, err := wal.Open(dir, sch.Columns, wal.Options{SyncWrites: opts.SyncWrites})
	if err != nil {
		return nil, fmt.Errorf("table %s.%s: %w", db, name, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Table{
		db:     db,
		name:   name,
		dir:    dir,
		schema: sch,
		log:    l,
		logger: logger.With("db", db, "table", name),
		// Unknown until the log is first read: it may hold records
		// written by an earlier process.
		pending: -1,
	}, nil
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Schema returns the table schema.
func (t *Table) Schema() *schema.Schema { return t.schema }

// Insert validates values against the schema, checks primary-key
// uniqueness, appends an insert record and records the key as live.
// Nothing is written when validation fails.
func (t *Table) Insert(values sql.Row) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return storage.TableNotFound(t.db, t.name)
	}

	row, err := t.validate(values)
	if err != nil {
		return err
	}

	pk := t.schema.PrimaryIndex()
	if pk >= 0 {
		if err := t.ensureIndex(); err != nil {
			return storage.Wrap(storage.CodeIndexUnavailable, err, "primary key index for %s", t.name)
		}
		if !t.index.Unique(row[pk]) {
			return storage.Errorf(storage.CodeDuplicateKey, "duplicate value %s for primary key %q", row[pk].String(), t.schema.PrimaryKey)
		}
	}

	if err := t.log.Append(wal.Insert(row)); err != nil {
		return err
	}

	if pk >= 0 {
		t.index.Add(row[pk])
	}
	return nil
}

func (t *Table) validate(values sql.Row) (sql.Row, error) {
	cols := t.schema.Columns
	if len(values) != len(cols) {
		return nil, storage.Errorf(storage.CodeColumnCountMismatch,
			"column count mismatch: table %q has %d columns, got %d values", t.name, len(cols), len(values))
	}

	row := make(sql.Row, len(values))
	for i, v := range values {
		c := cols[i]
		if v.IsNull() {
			row[i] = v
			continue
		}
		if !sql.Assignable(v.Type, c.Type) {
			return nil, storage.TypeMismatch(c.Name, c.Type.String(), v.Type.String())
		}
		if v.Type == sql.TypeInt && c.Type == sql.TypeFloat {
			v = sql.FloatValue(float64(v.I64))
		}
		if v.Type == sql.TypeFloat && !sql.IsFinite(v.F64) {
			return nil, storage.Errorf(storage.CodeTypeMismatch,
				"column %q: FLOAT value must be finite, got %s", c.Name, v.String())
		}
		row[i] = v
	}

	if pk := t.schema.PrimaryIndex(); pk >= 0 && row[pk].IsNull() {
		return nil, storage.Errorf(storage.CodeNullPrimaryKey, "primary key %q cannot be NULL", t.schema.PrimaryKey)
	}
	return row, nil
}

// Update logs an update intent. It is applied, and validated, when the log
// is next folded.
func (t *Table) Update(set []sql.Assignment, where sql.Predicate) error {
	return t.appendIntent(wal.Update(set, where))
}

// Delete logs a delete intent.
func (t *Table) Delete(where sql.Predicate) error {
	return t.appendIntent(wal.Delete(where))
}

func (t *Table) appendIntent(rec wal.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return storage.TableNotFound(t.db, t.name)
	}
	if err := t.log.Append(rec); err != nil {
		return err
	}
	if t.pending >= 0 {
		t.pending++
	}
	return nil
}

// Select folds the log into the snapshot, then returns the rows matching
// where (all rows when where is nil) projected onto columns (every column
// in schema order when columns is empty).
func (t *Table) Select(columns []string, where *sql.Predicate) ([]string, []sql.Row, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, nil, storage.TableNotFound(t.db, t.name)
	}

	proj, names, err := t.projection(columns)
	if err != nil {
		return nil, nil, err
	}

	rows, err := t.fold()
	if err != nil {
		return nil, nil, err
	}

	out := make([]sql.Row, 0, len(rows))
	var whereCol int
	var whereType sql.DataType
	if where != nil {
		whereCol = t.schema.ColumnIndex(where.Column)
		if whereCol < 0 {
			return names, out, nil
		}
		whereType = t.schema.Columns[whereCol].Type
	}

	for _, r := range rows {
		if where != nil && !sql.Matches(r[whereCol], whereType, where.Literal) {
			continue
		}
		p := make(sql.Row, len(proj))
		for i, c := range proj {
			p[i] = r[c]
		}
		out = append(out, p)
	}
	return names, out, nil
}

func (t *Table) projection(columns []string) ([]int, []string, error) {
	if len(columns) == 0 {
		idx := make([]int, len(t.schema.Columns))
		for i := range idx {
			idx[i] = i
		}
		return idx, t.schema.Names(), nil
	}

	idx := make([]int, len(columns))
	for i, name := range columns {
		c := t.schema.ColumnIndex(name)
		if c < 0 {
			return nil, nil, storage.Errorf(storage.CodeUnknownColumn, "unknown column %q in table %q", name, t.name)
		}
		idx[i] = c
	}
	names := make([]string, len(columns))
	copy(names, columns)
	return idx, names, nil
}

// fold replays the log over the snapshot, persists the result and empties
// the log. Read failures leave both files untouched.
func (t *Table) fold() ([]sql.Row, error) {
	base, recs, err := t.load()
	if err != nil {
		return nil, err
	}
	return t.apply(base, recs)
}

func (t *Table) load() ([]sql.Row, []wal.Record, error) {
	base, err := snapshot.Read(t.dir, t.schema.Columns)
	if err != nil {
		return nil, nil, err
	}
	recs, err := t.log.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return base, recs, nil
}

func (t *Table) apply(base []sql.Row, recs []wal.Record) ([]sql.Row, error) {
	res := reconcile.Apply(t.schema, base, recs)
	for _, w := range res.Warnings {
		t.logger.Warn("skipped log record during replay",
			"line", w.Line,
			"op", string(w.Op),
			"code", string(storage.CodeOf(w.Err)),
			"error", w.Err)
	}

	if len(recs) > 0 {
		if err := snapshot.Write(t.dir, t.schema.Columns, res.Rows); err != nil {
			return nil, err
		}
		if err := t.log.Truncate(); err != nil {
			return nil, err
		}
		t.logger.Debug("folded log into snapshot",
			"records", len(recs),
			"inserted", res.Inserted,
			"updated", res.Updated,
			"deleted", res.Deleted,
			"rows", len(res.Rows))
	}

	if t.index != nil {
		for _, v := range res.Removed {
			t.index.Remove(v)
		}
		for _, v := range res.Added {
			t.index.Add(v)
		}
	}
	t.pending = 0

	return res.Rows, nil
}

// ensureIndex makes t.index reflect every live key. The index is built
// from the snapshot plus logged inserts; when the log also holds updates
// or deletes it is folded first so that no removed key is reported live.
func (t *Table) ensureIndex() error {
	if t.index != nil && t.pending == 0 {
		return nil
	}

	base, recs, err := t.load()
	if err != nil {
		return err
	}

	inserts := make([]sql.Row, 0, len(recs))
	intents := 0
	for _, r := range recs {
		if r.Op == wal.OpInsert {
			inserts = append(inserts, r.Row)
		} else {
			intents++
		}
	}

	if intents > 0 {
		rows, err := t.apply(base, recs)
		if err != nil {
			return err
		}
		if t.index == nil {
			t.index = pkindex.Build(t.schema.PrimaryIndex(), rows)
		}
		return nil
	}

	if t.index == nil {
		t.index = pkindex.Build(t.schema.PrimaryIndex(), base, inserts)
	}
	t.pending = 0
	return nil
}

// Close closes the table's log. Later operations fail with TableNotFound.
func (t *Table) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	return t.log.Close()
}
