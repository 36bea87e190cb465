// Package schema loads, validates and persists table schemas (schema.json).
package schema

import (
	"encoding/json"
	"strings"

	"minidb/internal/sql"
	"minidb/internal/storage"
)

// FileName is the schema file inside a table directory.
const FileName = "schema.json"

const constraintPrimary = "PRIMARY"

// Schema is the immutable column layout of one table.
type Schema struct {
	Columns []sql.Column
	// PrimaryKey is the primary key column name, or "" when the table has none.
	PrimaryKey string

	byName  map[string]int
	pkIndex int
}

// New validates cols and builds a Schema from them.
func New(cols []sql.Column) (*Schema, error) {
	if len(cols) == 0 {
		return nil, storage.Errorf(storage.CodeSchemaMissing, "schema has no columns")
	}

	s := &Schema{
		Columns: make([]sql.Column, len(cols)),
		byName:  make(map[string]int, len(cols)),
		pkIndex: -1,
	}
	copy(s.Columns, cols)

	for i, c := range s.Columns {
		if c.Name == "" {
			return nil, storage.Errorf(storage.CodeSchemaMissing, "column %d has no name", i)
		}
		if !sql.IsIdentifier(c.Name) {
			return nil, storage.Errorf(storage.CodeInvalidName, "invalid column name %q", c.Name)
		}
		if _, dup := s.byName[c.Name]; dup {
			return nil, storage.Errorf(storage.CodeSchemaDuplicate, "duplicate column name %q", c.Name)
		}
		switch c.Type {
		case sql.TypeInt, sql.TypeFloat, sql.TypeString, sql.TypeBool:
		default:
			return nil, storage.Errorf(storage.CodeSchemaInvalidType, "invalid type %s for column %q", c.Type, c.Name)
		}
		s.byName[c.Name] = i

		if c.Primary {
			if s.pkIndex != -1 {
				return nil, storage.Errorf(storage.CodeSchemaMultiplePrimaryKeys,
					"multiple primary keys (%q and %q); only one is allowed", s.PrimaryKey, c.Name)
			}
			s.pkIndex = i
			s.PrimaryKey = c.Name
		}
	}

	return s, nil
}

// ColumnIndex returns the position of the named column, or -1.
func (s *Schema) ColumnIndex(name string) int {
	if i, ok := s.byName[name]; ok {
		return i
	}
	return -1
}

// PrimaryIndex returns the position of the primary key column, or -1.
func (s *Schema) PrimaryIndex() int { return s.pkIndex }

// HasPrimaryKey reports whether the table declares a primary key.
func (s *Schema) HasPrimaryKey() bool { return s.pkIndex >= 0 }

// Names returns the column names in schema order.
func (s *Schema) Names() []string { return sql.ColumnNames(s.Columns) }

type fileColumn struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Constraints []string `json:"constraints"`
}

type fileSchema struct {
	Columns    []fileColumn `json:"columns"`
	PrimaryKey *string      `json:"primary_key"`
}

// MarshalJSON writes the schema.json form.
func (s *Schema) MarshalJSON() ([]byte, error) {
	fs := fileSchema{Columns: make([]fileColumn, len(s.Columns))}
	for i, c := range s.Columns {
		fc := fileColumn{Name: c.Name, Type: c.Type.String(), Constraints: []string{}}
		if c.Primary {
			fc.Constraints = append(fc.Constraints, constraintPrimary)
		}
		fs.Columns[i] = fc
	}
	if s.PrimaryKey != "" {
		pk := s.PrimaryKey
		fs.PrimaryKey = &pk
	}
	return json.MarshalIndent(fs, "", "  ")
}

// Decode parses and validates a schema.json document.
func Decode(data []byte) (*Schema, error) {
	var fs fileSchema
	if err := json.Unmarshal(data, &fs); err != nil {
		return nil, storage.Wrap(storage.CodeCorruptRecord, err, "corrupt schema")
	}
	if fs.Columns == nil {
		return nil, storage.Errorf(storage.CodeSchemaMissing, "schema must contain a columns list")
	}

	cols := make([]sql.Column, len(fs.Columns))
	for i, fc := range fs.Columns {
		if fc.Name == "" || fc.Type == "" {
			return nil, storage.Errorf(storage.CodeSchemaMissing, "column %d is missing name or type", i)
		}
		dt, err := sql.ParseDataType(fc.Type)
		if err != nil {
			return nil, storage.Errorf(storage.CodeSchemaInvalidType, "invalid type %q for column %q", fc.Type, fc.Name)
		}
		col := sql.Column{Name: fc.Name, Type: dt}
		for _, c := range fc.Constraints {
			if strings.EqualFold(c, constraintPrimary) {
				col.Primary = true
			}
		}
		cols[i] = col
	}

	if fs.PrimaryKey != nil && *fs.PrimaryKey != "" {
		if err := markPrimary(cols, *fs.PrimaryKey); err != nil {
			return nil, err
		}
	}

	return New(cols)
}

// markPrimary reconciles the primary_key field with the PRIMARY constraints.
func markPrimary(cols []sql.Column, pk string) error {
	found := false
	for i := range cols {
		switch {
		case cols[i].Name == pk:
			cols[i].Primary = true
			found = true
		case cols[i].Primary:
			return storage.Errorf(storage.CodeSchemaMultiplePrimaryKeys,
				"primary_key %q disagrees with PRIMARY column %q", pk, cols[i].Name)
		}
	}
	if !found {
		return storage.Errorf(storage.CodeSchemaMissing, "primary_key names unknown column %q", pk)
	}
	return nil
}
