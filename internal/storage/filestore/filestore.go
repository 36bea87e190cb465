package filestore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"minidb/internal/sql"
	"minidb/internal/storage"
	"minidb/internal/storage/schema"
	"minidb/internal/storage/snapshot"
	"minidb/internal/storage/table"
	"minidb/internal/storage/wal"
)

// FileEngine is the on-disk catalog of databases and tables.
// It stores one directory per database and one directory per table.
//
// Layout:
//
//	<root>/
//	  <database>/
//	    <table>/
//	      schema.json   column definitions and primary key
//	      data.json     materialized rows
//	      log.wal       pending mutations, one JSON record per line
//
// Creating and dropping databases or tables takes the catalog lock
// exclusively. Open tables are cached; each serializes its own operations.
type FileEngine struct {
	dir     string
	schemas *schema.Store
	opts    Options
	logger  *slog.Logger

	mu     sync.RWMutex
	tables map[string]*table.Table
	closed bool
}

// Options configures a FileEngine.
type Options struct {
	// SyncWrites fsyncs every log append.
	SyncWrites bool
	// SchemaCacheSize bounds the number of cached schemas; 0 disables the cache.
	SchemaCacheSize int64
	Logger          *slog.Logger
}

// New creates a FileEngine storing all databases in dir.
func New(dir string, opts Options) (*FileEngine, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create dir: %w", err)
	}

	schemas, err := schema.NewStore(opts.SchemaCacheSize)
	if err != nil {
		return nil, fmt.Errorf("filestore: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &FileEngine{
		dir:     dir,
		schemas: schemas,
		opts:    opts,
		logger:  logger,
		tables:  make(map[string]*table.Table),
	}, nil
}

// Dir returns the root data directory.
func (e *FileEngine) Dir() string { return e.dir }

func (e *FileEngine) dbPath(db string) string {
	return filepath.Join(e.dir, db)
}

func (e *FileEngine) tablePath(db, name string) string {
	return filepath.Join(e.dir, db, name)
}

func tableKey(db, name string) string { return db + "/" + name }

func checkName(kind, name string) error {
	if !sql.IsIdentifier(name) {
		return storage.Errorf(storage.CodeInvalidName, "invalid %s name %q", kind, name)
	}
	return nil
}

func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// CreateDatabase creates an empty database directory.
func (e *FileEngine) CreateDatabase(name string) error {
	if err := checkName("database", name); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.Mkdir(e.dbPath(name), 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return storage.Errorf(storage.CodeAlreadyExists, "database %q already exists", name)
		}
		return storage.Wrap(storage.CodeIOFailure, err, "filestore: create database %q", name)
	}

	e.logger.Info("database created", "db", name)
	return nil
}

// DropDatabase closes every open table of the database and removes it.
func (e *FileEngine) DropDatabase(name string) error {
	if err := checkName("database", name); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ok, err := isDir(e.dbPath(name))
	if err != nil {
		return storage.Wrap(storage.CodeIOFailure, err, "filestore: stat database %q", name)
	}
	if !ok {
		return storage.DatabaseNotFound(name)
	}

	tables, err := e.listTables(name)
	if err != nil {
		return err
	}
	for _, t := range tables {
		e.closeTable(name, t)
	}

	if err := os.RemoveAll(e.dbPath(name)); err != nil {
		return storage.Wrap(storage.CodeIOFailure, err, "filestore: remove database %q", name)
	}

	e.logger.Info("database dropped", "db", name, "tables", len(tables))
	return nil
}

// DatabaseExists reports whether the database directory exists.
func (e *FileEngine) DatabaseExists(name string) (bool, error) {
	if !sql.IsIdentifier(name) {
		return false, nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	ok, err := isDir(e.dbPath(name))
	if err != nil {
		return false, storage.Wrap(storage.CodeIOFailure, err, "filestore: stat database %q", name)
	}
	return ok, nil
}

// ListDatabases returns all database names, sorted.
func (e *FileEngine) ListDatabases() ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, storage.Wrap(storage.CodeIOFailure, err, "filestore: list databases")
	}

	var dbs []string
	for _, ent := range entries {
		if ent.IsDir() && sql.IsIdentifier(ent.Name()) {
			dbs = append(dbs, ent.Name())
		}
	}
	sort.Strings(dbs)
	return dbs, nil
}

// CreateTable validates the schema and creates the table directory with
// its schema, an empty snapshot and an empty log.
func (e *FileEngine) CreateTable(db, name string, cols []sql.Column) error {
	if err := checkName("database", db); err != nil {
		return err
	}
	if err := checkName("table", name); err != nil {
		return err
	}

	sch, err := schema.New(cols)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireDatabase(db); err != nil {
		return err
	}

	path := e.tablePath(db, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return storage.Errorf(storage.CodeAlreadyExists, "table %q already exists in database %q", name, db)
		}
		return storage.Wrap(storage.CodeIOFailure, err, "filestore: create table %q", name)
	}

	if err := e.initTable(path, sch); err != nil {
		e.schemas.Forget(path)
		_ = os.RemoveAll(path)
		return err
	}

	e.logger.Info("table created", "db", db, "table", name, "columns", len(cols), "primary_key", sch.PrimaryKey)
	return nil
}

func (e *FileEngine) initTable(path string, sch *schema.Schema) error {
	if err := e.schemas.Create(path, sch); err != nil {
		return err
	}
	if err := snapshot.Write(path, sch.Columns, nil); err != nil {
		return err
	}
	if err := os.WriteFile(wal.Path(path), nil, 0o644); err != nil {
		return storage.Wrap(storage.CodeIOFailure, err, "filestore: create log")
	}
	return nil
}

// DropTable closes the table if open and removes its directory.
func (e *FileEngine) DropTable(db, name string) error {
	if err := checkName("database", db); err != nil {
		return err
	}
	if err := checkName("table", name); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireDatabase(db); err != nil {
		return err
	}

	path := e.tablePath(db, name)
	if _, err := os.Stat(schema.Path(path)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return storage.TableNotFound(db, name)
		}
		return storage.Wrap(storage.CodeIOFailure, err, "filestore: stat table %q", name)
	}

	e.closeTable(db, name)

	if err := os.RemoveAll(path); err != nil {
		return storage.Wrap(storage.CodeIOFailure, err, "filestore: remove table %q", name)
	}

	e.logger.Info("table dropped", "db", db, "table", name)
	return nil
}

// closeTable closes and forgets a cached table. Caller holds e.mu.
func (e *FileEngine) closeTable(db, name string) {
	key := tableKey(db, name)
	if t, ok := e.tables[key]; ok {
		if err := t.Close(); err != nil {
			e.logger.Warn("close table", "db", db, "table", name, "error", err)
		}
		delete(e.tables, key)
	}
	e.schemas.Forget(e.tablePath(db, name))
}

// ListTables returns the tables of a database, sorted.
func (e *FileEngine) ListTables(db string) ([]string, error) {
	if err := checkName("database", db); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.requireDatabase(db); err != nil {
		return nil, err
	}
	return e.listTables(db)
}

func (e *FileEngine) listTables(db string) ([]string, error) {
	entries, err := os.ReadDir(e.dbPath(db))
	if err != nil {
		return nil, storage.Wrap(storage.CodeIOFailure, err, "filestore: list tables of %q", db)
	}

	var tables []string
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		if _, err := os.Stat(schema.Path(e.tablePath(db, ent.Name()))); err == nil {
			tables = append(tables, ent.Name())
		}
	}
	sort.Strings(tables)
	return tables, nil
}

// TableSchema returns the schema of db.name.
func (e *FileEngine) TableSchema(db, name string) (*schema.Schema, error) {
	t, err := e.Table(db, name)
	if err != nil {
		return nil, err
	}
	return t.Schema(), nil
}

// Table returns the open table db.name, opening it on first use.
func (e *FileEngine) Table(db, name string) (*table.Table, error) {
	if err := checkName("database", db); err != nil {
		return nil, err
	}
	if err := checkName("table", name); err != nil {
		return nil, err
	}

	key := tableKey(db, name)

	e.mu.RLock()
	t, ok := e.tables[key]
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, storage.Errorf(storage.CodeIOFailure, "filestore: closed")
	}
	if ok {
		return t, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, storage.Errorf(storage.CodeIOFailure, "filestore: closed")
	}
	if t, ok := e.tables[key]; ok {
		return t, nil
	}
	if err := e.requireDatabase(db); err != nil {
		return nil, err
	}

	path := e.tablePath(db, name)
	sch, err := e.schemas.Load(path)
	if err != nil {
		if storage.IsCode(err, storage.CodeTableNotFound) {
			return nil, storage.TableNotFound(db, name)
		}
		return nil, err
	}

	t, err = table.Open(db, name, path, sch, table.Options{
		SyncWrites: e.opts.SyncWrites,
		Logger:     e.logger,
	})
	if err != nil {
		return nil, err
	}
	e.tables[key] = t

	e.logger.Debug("table opened", "db", db, "table", name)
	return t, nil
}

// requireDatabase fails with DatabaseNotFound unless db exists. Caller
// holds e.mu.
func (e *FileEngine) requireDatabase(db string) error {
	ok, err := isDir(e.dbPath(db))
	if err != nil {
		return storage.Wrap(storage.CodeIOFailure, err, "filestore: stat database %q", db)
	}
	if !ok {
		return storage.DatabaseNotFound(db)
	}
	return nil
}

// Close closes every open table. The engine cannot be used afterwards.
func (e *FileEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	var errs []error
	for key, t := range e.tables {
		if err := t.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", key, err))
		}
	}
	e.tables = nil
	e.schemas.Close()
	return errors.Join(errs...)
}
