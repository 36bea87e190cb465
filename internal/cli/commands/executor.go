package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"minidb/internal/client"
	"minidb/internal/config"
	"minidb/internal/engine"
	"minidb/internal/sql"
	"minidb/internal/storage/filestore"
)

const dialTimeout = 5 * time.Second

// executor runs command text and reports one response per statement.
type executor interface {
	ExecAll(text string) ([]*client.Response, error)
	Close() error
}

// openExecutor connects to the configured server, or opens the data
// directory in-process when local is set.
func openExecutor(ctx context.Context, cfg *config.Config, logger *slog.Logger, local bool) (executor, string, error) {
	if local {
		ex, err := openLocal(cfg, logger)
		if err != nil {
			return nil, "", err
		}
		return ex, fmt.Sprintf("MiniDB local session (data dir: %s)", cfg.DataDir), nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	c, err := client.Dial(dialCtx, cfg.Client.Addr)
	if err != nil {
		return nil, "", fmt.Errorf("connect to %s: %w (is `minidb serve` running? use --local to skip the server)", cfg.Client.Addr, err)
	}
	return c, c.Welcome(), nil
}

// openStore opens the file store described by cfg.
func openStore(cfg *config.Config, logger *slog.Logger) (*filestore.FileEngine, error) {
	store, err := filestore.New(cfg.DataDir, filestore.Options{
		SyncWrites:      cfg.Storage.SyncWrites,
		SchemaCacheSize: int64(cfg.Storage.SchemaCacheSize),
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("open data dir %s: %w", cfg.DataDir, err)
	}
	return store, nil
}

// localExecutor runs statements in-process with a single session.
type localExecutor struct {
	eng  *engine.DBEngine
	sess *engine.Session
}

func openLocal(cfg *config.Config, logger *slog.Logger) (*localExecutor, error) {
	store, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	eng := engine.New(store, logger)
	if err := eng.Start(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return &localExecutor{eng: eng, sess: engine.NewSession()}, nil
}

func (l *localExecutor) ExecAll(text string) ([]*client.Response, error) {
	var out []*client.Response
	for _, stmt := range sql.SplitStatements(text) {
		line, err := json.Marshal(l.eng.ExecuteQuery(l.sess, stmt))
		if err != nil {
			return out, fmt.Errorf("encode result: %w", err)
		}
		resp, err := client.Decode(line)
		if err != nil {
			return out, err
		}
		out = append(out, resp)
	}
	return out, nil
}

func (l *localExecutor) Close() error {
	return l.eng.Close()
}
