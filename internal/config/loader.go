package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Loader hydrates the runtime configuration while respecting env > file >
// default precedence.
type Loader struct {
	envPrefix string
	files     []string
}

// NewLoader prepares a config hydrator: Load reads defaults, then files,
// then environment variables, so each later source overrides the earlier.
func NewLoader(envPrefix string, files ...string) *Loader {
	return &Loader{
		envPrefix: envPrefix,
		files:     files,
	}
}

// Load assembles the effective snapshot.
func (l *Loader) Load(ctx context.Context) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(structToMap(DefaultConfig()), "."), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	for _, path := range l.files {
		if path == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return Config{}, ctx.Err()
		default:
		}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("config: file %s not found", path)
			}
			return Config{}, fmt.Errorf("config: stat %s: %w", path, err)
		}
		parser, err := parserFor(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return Config{}, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if l.envPrefix != "" {
		canonical := map[string]string{
			"coordinator.tickintervalms": "coordinator.tickIntervalMs",
			"coordinator.defaultpolicy":  "coordinator.defaultPolicy",
			"coordinator.backoffexpr":    "coordinator.backoffExpr",
			"redis.batchlimit":           "redis.batchLimit",
			"redis.tls.cafile":           "redis.tls.caFile",
		}
		transform := func(s string) string {
			// Double underscores signal a nested path (REDIS__TLS__ENABLED ->
			// redis.tls.enabled).
			key := strings.TrimPrefix(s, l.envPrefix+"_")
			key = strings.ReplaceAll(key, "__", ".")
			lower := strings.ToLower(key)
			if mapped, ok := canonical[lower]; ok {
				return mapped
			}
			key = strings.ReplaceAll(key, "_", "")
			return strings.ToLower(key)
		}
		if err := k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
			return Config{}, fmt.Errorf("config: load env: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// parserFor sniffs the config file parser from its extension, so operators
// can pick whichever of the three formats they prefer.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("config: unrecognized config file extension: %s", path)
	}
}

// structToMap converts DefaultConfig into a map for the koanf confmap
// provider.
func structToMap(cfg Config) map[string]any {
	return map[string]any{
		"coordinator": map[string]any{
			"tickIntervalMs": cfg.Coordinator.TickIntervalMS,
			"daemon":         cfg.Coordinator.Daemon,
			"defaultPolicy":  cfg.Coordinator.DefaultPolicy,
			"backoffExpr":    cfg.Coordinator.BackoffExpr,
		},
		"redis": map[string]any{
			"address":    cfg.Redis.Address,
			"username":   cfg.Redis.Username,
			"password":   cfg.Redis.Password,
			"db":         cfg.Redis.DB,
			"batchLimit": cfg.Redis.BatchLimit,
			"tls": map[string]any{
				"enabled": cfg.Redis.TLS.Enabled,
				"caFile":  cfg.Redis.TLS.CAFile,
			},
		},
		"debug": map[string]any{
			"enabled": cfg.Debug.Enabled,
			"listen":  cfg.Debug.Listen,
		},
		"logging": map[string]any{
			"level":  cfg.Logging.Level,
			"format": cfg.Logging.Format,
		},
	}
}
