// Package config loads MiniDB configuration from defaults, a YAML or TOML
// file, MINIDB_ environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"
)

// Defaults.
const (
	DefaultDataDir         = "data"
	DefaultAddr            = "127.0.0.1:5555"
	DefaultSchemaCacheSize = 1024
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultOutput          = "auto"
)

// Output modes for rendering results.
const (
	OutputAuto  = "auto"
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Config is the full configuration tree.
type Config struct {
	DataDir string        `koanf:"data_dir"`
	Server  ServerConfig  `koanf:"server"`
	Storage StorageConfig `koanf:"storage"`
	Log     LogConfig     `koanf:"log"`
	Client  ClientConfig  `koanf:"client"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// ServerConfig holds listener settings for `minidb serve`.
type ServerConfig struct {
	Addr string `koanf:"addr"`
	// HTTPAddr enables the HTTP API when set.
	HTTPAddr string `koanf:"http_addr"`
}

// StorageConfig holds settings for the file store.
type StorageConfig struct {
	SyncWrites      bool `koanf:"sync_writes"`
	SchemaCacheSize int  `koanf:"schema_cache_size"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// ClientConfig holds settings for `minidb repl` and `minidb exec`.
type ClientConfig struct {
	Addr        string `koanf:"addr"`
	Output      string `koanf:"output"`
	HistoryFile string `koanf:"history_file"`
}

func defaults() map[string]any {
	return map[string]any{
		"data_dir":                  DefaultDataDir,
		"server.addr":               DefaultAddr,
		"server.http_addr":          "",
		"storage.sync_writes":       true,
		"storage.schema_cache_size": DefaultSchemaCacheSize,
		"log.level":                 DefaultLogLevel,
		"log.format":                DefaultLogFormat,
		"client.addr":               DefaultAddr,
		"client.output":             DefaultOutput,
		"client.history_file":       "",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required")
	}
	if strings.TrimSpace(c.Client.Addr) == "" {
		return fmt.Errorf("client.addr is required")
	}
	if c.Storage.SchemaCacheSize < 0 {
		return fmt.Errorf("storage.schema_cache_size must not be negative, got %d", c.Storage.SchemaCacheSize)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log.level %q (want debug|info|warn|error)", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log.format %q (want text|json)", c.Log.Format)
	}
	if !ValidOutput(c.Client.Output) {
		return fmt.Errorf("unknown client.output %q (want auto|table|json|yaml)", c.Client.Output)
	}
	return nil
}

// ValidOutput reports whether mode is a known output mode.
func ValidOutput(mode string) bool {
	switch mode {
	case OutputAuto, OutputTable, OutputJSON, OutputYAML:
		return true
	}
	return false
}
