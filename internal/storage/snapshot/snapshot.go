// Package snapshot reads and writes data.json, the materialized contents of
// a table as a JSON array of row objects.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"minidb/internal/sql"
	"minidb/internal/storage"
)

// FileName is the snapshot file inside a table directory.
const FileName = "data.json"

// Path returns the snapshot path of a table directory.
func Path(tableDir string) string {
	return filepath.Join(tableDir, FileName)
}

// Read loads the snapshot in tableDir. A missing or empty file is an empty
// table.
func Read(tableDir string, columns []sql.Column) ([]sql.Row, error) {
	path := Path(tableDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, storage.Wrap(storage.CodeIOFailure, err, "snapshot: read %s", path)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, storage.Wrap(storage.CodeCorruptRecord, err, "snapshot: decode %s", path)
	}

	rows := make([]sql.Row, 0, len(raw))
	for i, r := range raw {
		row, err := sql.DecodeRow(columns, r)
		if err != nil {
			return nil, storage.Wrap(storage.CodeCorruptRecord, err, "snapshot: row %d of %s", i, path)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Write replaces the snapshot in tableDir with rows. The new contents go to
// a temporary file which is synced and renamed over data.json, so readers
// never observe a half-written snapshot.
func Write(tableDir string, columns []sql.Column, rows []sql.Row) error {
	names := sql.ColumnNames(columns)

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString("\n  ")
		b, err := sql.EncodeRow(names, row)
		if err != nil {
			return storage.Wrap(storage.CodeIOFailure, err, "snapshot: encode row %d", i)
		}
		buf.Write(b)
	}
	if len(rows) > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteString("]\n")

	path := Path(tableDir)
	tmp := path + ".tmp"

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return storage.Wrap(storage.CodeIOFailure, err, "snapshot: create %s", tmp)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return storage.Wrap(storage.CodeIOFailure, err, "snapshot: write %s", tmp)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return storage.Wrap(storage.CodeIOFailure, err, "snapshot: sync %s", tmp)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return storage.Wrap(storage.CodeIOFailure, err, "snapshot: close %s", tmp)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return storage.Wrap(storage.CodeIOFailure, err, "snapshot: rename %s", tmp)
	}
	return nil
}
