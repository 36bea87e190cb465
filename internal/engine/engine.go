package engine

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"minidb/internal/storage"
	"minidb/internal/storage/filestore"
)

// DBEngine executes parsed statements against the file store on behalf of
// client sessions.
type DBEngine struct {
	mu      sync.RWMutex
	started bool
	store   *filestore.FileEngine
	logger  *slog.Logger
}

// Session is the per-connection state: an id for logging and the database
// selected with USE.
type Session struct {
	ID       string
	Database string
}

// NewSession returns a session with a fresh random id and no database.
func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// New creates a new DBEngine over store. A nil logger discards output.
func New(store *filestore.FileEngine, logger *slog.Logger) *DBEngine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DBEngine{
		store:  store,
		logger: logger,
	}
}

// Start runs initialization steps for the engine.
func (e *DBEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return fmt.Errorf("engine already started")
	}
	e.started = true
	e.logger.Info("engine started", "data_dir", e.store.Dir())
	return nil
}

// Close stops the engine and closes every open table.
func (e *DBEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started {
		return nil
	}
	e.started = false
	return e.store.Close()
}

func (e *DBEngine) isStarted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.started
}

var errNotStarted = storage.Errorf(storage.CodeIOFailure, "engine not started")

// errNoDatabase is returned for table statements issued before USE.
var errNoDatabase = storage.Errorf(storage.CodeNoDatabaseSelected, "no active database; run USE <database> first")
