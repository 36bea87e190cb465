package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nesting levels: MINIDB_SERVER__HTTP_ADDR sets server.http_addr.
const EnvPrefix = "MINIDB_"

// candidateFiles are searched in the working directory when no file is
// given explicitly.
var candidateFiles = []string{"minidb.yaml", "minidb.yml", "minidb.toml"}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"data-dir":   "data_dir",
	"addr":       "server.addr",
	"http-addr":  "server.http_addr",
	"log-level":  "log.level",
	"log-format": "log.format",
	"output":     "client.output",
}

// findConfigFile finds the config file to use.
// Priority: explicit path > minidb.yaml > minidb.yml > minidb.toml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range candidateFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// parserFor picks the koanf parser from the file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return TOML(), nil
	default:
		return nil, fmt.Errorf("unsupported config file type %q (want .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Only flags that were explicitly set override other sources.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		parser, err := parserFor(used)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(used), parser); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: MINIDB_STORAGE__SYNC_WRITES -> storage.sync_writes
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
		// --addr names the server for both serving and connecting.
		if f := flags.Lookup("addr"); f != nil && f.Changed {
			if err := k.Set("client.addr", f.Value.String()); err != nil {
				return nil, fmt.Errorf("failed to load flags: %w", err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
