// Package wal implements the per-table write-ahead log: newline-delimited
// JSON mutation records appended in order and replayed by the reconciler.
//
// File layout (log.wal), one record per line:
//
//	{"operation":"insert","data":{"id":1,"name":"a"}}
//	{"operation":"update","set":"name='b'","where":"id=1"}
//	{"operation":"delete","where":"id=1"}
package wal

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"minidb/internal/sql"
	"minidb/internal/storage"
)

// FileName is the log file inside a table directory.
const FileName = "log.wal"

// maxLine bounds a single record; larger lines are reported as corrupt.
const maxLine = 16 << 20

// Op is the mutation kind of a record.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Record is one decoded log entry. Insert records carry Row in schema
// order; update records carry Set and Where; delete records carry Where.
// Set and Where keep their on-disk string form so that a malformed clause
// surfaces at replay rather than at read time.
type Record struct {
	Op    Op
	Row   sql.Row
	Set   string
	Where string
	// Line is the 1-based line number the record was read from.
	Line int
}

// Insert builds an insert record.
func Insert(row sql.Row) Record { return Record{Op: OpInsert, Row: row} }

// Update builds an update record from tagged clauses.
func Update(set []sql.Assignment, where sql.Predicate) Record {
	return Record{Op: OpUpdate, Set: sql.FormatAssignments(set), Where: where.String()}
}

// Delete builds a delete record from a tagged predicate.
func Delete(where sql.Predicate) Record {
	return Record{Op: OpDelete, Where: where.String()}
}

type fileRecord struct {
	Operation Op              `json:"operation"`
	Data      json.RawMessage `json:"data,omitempty"`
	Set       string          `json:"set,omitempty"`
	Where     string          `json:"where,omitempty"`
}

// Options controls durability of appends.
type Options struct {
	// SyncWrites fsyncs the file after every append.
	SyncWrites bool
}

// Log is an open write-ahead log. It is safe for concurrent use, but the
// table engine serializes access under its own lock anyway.
type Log struct {
	mu      sync.Mutex
	f       *os.File
	path    string
	columns []sql.Column
	names   []string
	opts    Options
}

// Path returns the log path of a table directory.
func Path(tableDir string) string {
	return filepath.Join(tableDir, FileName)
}

// Open opens or creates the log in tableDir. columns is the table schema,
// used to encode and decode insert rows.
func Open(tableDir string, columns []sql.Column, opts Options) (*Log, error) {
	path := Path(tableDir)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, storage.Wrap(storage.CodeIOFailure, err, "wal: open %s", path)
	}

	return &Log{
		f:       f,
		path:    path,
		columns: columns,
		names:   sql.ColumnNames(columns),
		opts:    opts,
	}, nil
}

// Append encodes rec as one line and writes it. When it returns nil the
// record is on disk (or in the OS page cache when SyncWrites is off) and
// visible to ReadAll.
func (l *Log) Append(rec Record) error {
	line, err := l.encode(rec)
	if err != nil {
		return storage.Wrap(storage.CodeWalWriteFailed, err, "wal: encode %s record", rec.Op)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return storage.Errorf(storage.CodeWalWriteFailed, "wal: closed")
	}

	if _, err := l.f.Write(line); err != nil {
		return storage.Wrap(storage.CodeWalWriteFailed, err, "wal: append to %s", l.path)
	}
	if l.opts.SyncWrites {
		if err := l.f.Sync(); err != nil {
			return storage.Wrap(storage.CodeWalWriteFailed, err, "wal: sync %s", l.path)
		}
	}
	return nil
}

func (l *Log) encode(rec Record) ([]byte, error) {
	fr := fileRecord{Operation: rec.Op}
	switch rec.Op {
	case OpInsert:
		data, err := sql.EncodeRow(l.names, rec.Row)
		if err != nil {
			return nil, err
		}
		fr.Data = data
	case OpUpdate:
		if rec.Set == "" || rec.Where == "" {
			return nil, fmt.Errorf("update record needs set and where")
		}
		fr.Set, fr.Where = rec.Set, rec.Where
	case OpDelete:
		if rec.Where == "" {
			return nil, fmt.Errorf("delete record needs where")
		}
		fr.Where = rec.Where
	default:
		return nil, fmt.Errorf("unknown operation %q", rec.Op)
	}

	b, err := json.Marshal(fr)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// ReadAll returns every record in append order. A line that cannot be
// decoded fails the whole read with CorruptRecord naming the line.
func (l *Log) ReadAll() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, storage.Wrap(storage.CodeIOFailure, err, "wal: open %s for read", l.path)
	}
	defer f.Close()

	var recs []Record
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		rec, err := l.decode(line)
		if err != nil {
			return nil, storage.Wrap(storage.CodeCorruptRecord, err, "wal: corrupt record at %s:%d", l.path, lineNo)
		}
		rec.Line = lineNo
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, storage.Wrap(storage.CodeCorruptRecord, err, "wal: corrupt record at %s:%d", l.path, lineNo+1)
	}
	return recs, nil
}

func (l *Log) decode(line []byte) (Record, error) {
	var fr fileRecord
	if err := json.Unmarshal(line, &fr); err != nil {
		return Record{}, err
	}

	switch fr.Operation {
	case OpInsert:
		if len(fr.Data) == 0 {
			return Record{}, fmt.Errorf("insert record without data")
		}
		row, err := sql.DecodeRow(l.columns, fr.Data)
		if err != nil {
			return Record{}, err
		}
		return Record{Op: OpInsert, Row: row}, nil
	case OpUpdate:
		return Record{Op: OpUpdate, Set: fr.Set, Where: fr.Where}, nil
	case OpDelete:
		return Record{Op: OpDelete, Where: fr.Where}, nil
	default:
		return Record{}, fmt.Errorf("unknown operation %q", fr.Operation)
	}
}

// Truncate empties the log. Only the reconciler calls it, right after the
// folded snapshot has been written.
func (l *Log) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return storage.Errorf(storage.CodeIOFailure, "wal: closed")
	}

	if err := l.f.Truncate(0); err != nil {
		return storage.Wrap(storage.CodeIOFailure, err, "wal: truncate %s", l.path)
	}
	if l.opts.SyncWrites {
		if err := l.f.Sync(); err != nil {
			return storage.Wrap(storage.CodeIOFailure, err, "wal: sync %s", l.path)
		}
	}
	return nil
}

// Close closes the log file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
