package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgraph-io/ristretto/v2"

	"minidb/internal/storage"
)

// Store reads and writes schema.json files. Schemas never change after
// creation, so loaded schemas are kept in a ristretto cache keyed by the
// table directory; Forget must be called when a table is dropped.
type Store struct {
	cache *ristretto.Cache[string, *Schema]
}

// NewStore creates a Store caching up to maxSchemas parsed schemas.
// maxSchemas <= 0 disables caching.
func NewStore(maxSchemas int64) (*Store, error) {
	if maxSchemas <= 0 {
		return &Store{}, nil
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *Schema]{
		NumCounters: maxSchemas * 10,
		MaxCost:     maxSchemas,
		BufferItems: 64,

		// Every schema costs 1, so MaxCost is a schema count.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("schema: create cache: %w", err)
	}
	return &Store{cache: cache}, nil
}

// Path returns the schema file path of a table directory.
func Path(tableDir string) string {
	return filepath.Join(tableDir, FileName)
}

// Load returns the schema of the table stored in tableDir.
// A missing file is TableNotFound; an unreadable one is a validation or
// corruption error.
func (s *Store) Load(tableDir string) (*Schema, error) {
	if s.cache != nil {
		if sch, ok := s.cache.Get(tableDir); ok {
			return sch, nil
		}
	}

	data, err := os.ReadFile(Path(tableDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, storage.Errorf(storage.CodeTableNotFound, "table %q not found", filepath.Base(tableDir))
		}
		return nil, storage.Wrap(storage.CodeIOFailure, err, "schema: read %s", Path(tableDir))
	}

	sch, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("schema: load %s: %w", filepath.Base(tableDir), err)
	}

	if s.cache != nil {
		s.cache.Set(tableDir, sch, 1)
	}
	return sch, nil
}

// Create writes sch into tableDir. It fails with AlreadyExists if a schema
// file is already present.
func (s *Store) Create(tableDir string, sch *Schema) error {
	data, err := sch.MarshalJSON()
	if err != nil {
		return fmt.Errorf("schema: encode: %w", err)
	}

	f, err := os.OpenFile(Path(tableDir), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return storage.Errorf(storage.CodeAlreadyExists, "table %q already exists", filepath.Base(tableDir))
		}
		return storage.Wrap(storage.CodeIOFailure, err, "schema: create %s", Path(tableDir))
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		_ = os.Remove(Path(tableDir))
		return storage.Wrap(storage.CodeIOFailure, err, "schema: write %s", Path(tableDir))
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return storage.Wrap(storage.CodeIOFailure, err, "schema: sync %s", Path(tableDir))
	}
	if err := f.Close(); err != nil {
		return storage.Wrap(storage.CodeIOFailure, err, "schema: close %s", Path(tableDir))
	}

	if s.cache != nil {
		s.cache.Set(tableDir, sch, 1)
	}
	return nil
}

// Forget evicts tableDir from the cache.
func (s *Store) Forget(tableDir string) {
	if s.cache != nil {
		s.cache.Del(tableDir)
	}
}

// Close releases the cache.
func (s *Store) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}
