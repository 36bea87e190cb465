// Package pkindex keeps the set of live primary-key values of a table.
package pkindex

import "minidb/internal/sql"

// Index is an in-memory set of primary-key values. It is not safe for
// concurrent use; the owning table guards it with its lock.
type Index struct {
	keys map[string]struct{}
}

// Build creates an index over the key column of rows. Rows are expected to
// hold distinct keys; a repeated key is counted once.
func Build(keyCol int, rows ...[]sql.Row) *Index {
	n := 0
	for _, rs := range rows {
		n += len(rs)
	}
	idx := &Index{keys: make(map[string]struct{}, n)}
	for _, rs := range rows {
		for _, r := range rs {
			if keyCol < len(r) {
				idx.Add(r[keyCol])
			}
		}
	}
	return idx
}

// Unique reports whether v is not yet present.
func (i *Index) Unique(v sql.Value) bool {
	_, ok := i.keys[v.Key()]
	return !ok
}

// Add records v as live.
func (i *Index) Add(v sql.Value) { i.keys[v.Key()] = struct{}{} }

// Remove forgets v.
func (i *Index) Remove(v sql.Value) { delete(i.keys, v.Key()) }

// Len returns the number of live keys.
func (i *Index) Len() int { return len(i.keys) }
