package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// Config holds every process-level option for the demo binary: the
// coordinator's own tuning, the example Redis requester's connection
// settings, and the ambient stack (logging, debug HTTP listener).
type Config struct {
	Coordinator CoordinatorConfig `koanf:"coordinator"`
	Redis       RedisConfig       `koanf:"redis"`
	Debug       DebugConfig       `koanf:"debug"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// CoordinatorConfig controls the coordinator's own behavior: how often it
// ticks, its coordinator-level policy bits, and the optional CEL back-off
// override.
type CoordinatorConfig struct {
	TickIntervalMS int      `koanf:"tickIntervalMs"`
	Daemon         bool     `koanf:"daemon"`
	DefaultPolicy  []string `koanf:"defaultPolicy"`
	BackoffExpr    string   `koanf:"backoffExpr"`
}

// RedisConfig describes the example bulk Requester's connection to a
// Redis/Valkey server.
type RedisConfig struct {
	Address    string   `koanf:"address"`
	Username   string   `koanf:"username"`
	Password   string   `koanf:"password"`
	DB         int      `koanf:"db"`
	TLS        RedisTLS `koanf:"tls"`
	BatchLimit int      `koanf:"batchLimit"`
}

// RedisTLS configures an optional TLS connection to Redis/Valkey.
type RedisTLS struct {
	Enabled bool   `koanf:"enabled"`
	CAFile  string `koanf:"caFile"`
}

// DebugConfig controls the optional HTTP debug/metrics listener.
type DebugConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen"`
}

// LoggingConfig expresses log level and format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Validate enforces invariants that keep the runtime predictable before any
// component starts, aggregating every violation rather than stopping at the
// first so an operator sees the whole list in one pass.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: nil")
	}
	var result error

	if c.Coordinator.TickIntervalMS <= 0 {
		result = multierror.Append(result, fmt.Errorf("config: coordinator.tickIntervalMs invalid: %d", c.Coordinator.TickIntervalMS))
	}
	for i, name := range c.Coordinator.DefaultPolicy {
		if _, ok := policyNames[strings.ToUpper(strings.TrimSpace(name))]; !ok {
			result = multierror.Append(result, fmt.Errorf("config: coordinator.defaultPolicy[%d] unknown: %s", i, name))
		}
	}

	if c.Redis.Address == "" {
		result = multierror.Append(result, errors.New("config: redis.address required"))
	}
	if c.Redis.BatchLimit < 0 {
		result = multierror.Append(result, fmt.Errorf("config: redis.batchLimit invalid: %d", c.Redis.BatchLimit))
	}

	if c.Debug.Enabled && strings.TrimSpace(c.Debug.Listen) == "" {
		result = multierror.Append(result, errors.New("config: debug.listen required when debug.enabled is true"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("config: logging.level unsupported: %s", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "json", "text":
	default:
		result = multierror.Append(result, fmt.Errorf("config: logging.format unsupported: %s", c.Logging.Format))
	}

	return result
}

// policyNames maps the config-file spelling of each policy bit to its
// presence in coordinator.Policy, without importing the coordinator
// package here (config has no business knowing the bit values, only the
// valid names).
var policyNames = map[string]struct{}{
	"NONE": {}, "RETRY": {}, "ASAP": {}, "WAIT": {}, "REFRESH": {},
	"DAEMON": {}, "UNIQUE": {}, "PARTIAL": {}, "NO_REPLACE": {},
}

// DefaultConfig returns the baseline values this module ships with.
func DefaultConfig() Config {
	return Config{
		Coordinator: CoordinatorConfig{
			TickIntervalMS: 10_000,
		},
		Redis: RedisConfig{
			DB:         0,
			BatchLimit: 200,
		},
		Debug: DebugConfig{
			Enabled: true,
			Listen:  "127.0.0.1:9091",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
