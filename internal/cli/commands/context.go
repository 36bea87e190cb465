package commands

import (
	"context"
	"log/slog"

	"minidb/internal/config"
	"minidb/internal/logging"
)

type configKey struct{}

type loggerKey struct{}

// WithConfig stores cfg in ctx for subcommands.
func WithConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// WithLogger stores logger in ctx for subcommands.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetConfig retrieves the config from the command context, falling back to
// defaults.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{
		DataDir: config.DefaultDataDir,
		Server:  config.ServerConfig{Addr: config.DefaultAddr},
		Storage: config.StorageConfig{SyncWrites: true, SchemaCacheSize: config.DefaultSchemaCacheSize},
		Log:     config.LogConfig{Level: config.DefaultLogLevel, Format: config.DefaultLogFormat},
		Client:  config.ClientConfig{Addr: config.DefaultAddr, Output: config.DefaultOutput},
	}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return logging.Discard()
}
