package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Redis.Address = "127.0.0.1:6379"
	require.NoError(t, cfg.Validate())

	missingRedisAddress := cfg
	missingRedisAddress.Redis.Address = ""
	require.Error(t, missingRedisAddress.Validate())

	badTick := cfg
	badTick.Coordinator.TickIntervalMS = 0
	require.Error(t, badTick.Validate())

	badPolicyName := cfg
	badPolicyName.Coordinator.DefaultPolicy = []string{"NOT_A_POLICY"}
	require.Error(t, badPolicyName.Validate())

	goodPolicyName := cfg
	goodPolicyName.Coordinator.DefaultPolicy = []string{"ASAP", "partial"}
	require.NoError(t, goodPolicyName.Validate())

	debugNoListen := cfg
	debugNoListen.Debug.Enabled = true
	debugNoListen.Debug.Listen = ""
	require.Error(t, debugNoListen.Validate())

	badLogLevel := cfg
	badLogLevel.Logging.Level = "verbose"
	require.Error(t, badLogLevel.Validate())
}

func TestConfigValidateAggregatesEveryViolation(t *testing.T) {
	cfg := Config{
		Coordinator: CoordinatorConfig{TickIntervalMS: 0},
		Redis:       RedisConfig{Address: "", BatchLimit: -1},
		Debug:       DebugConfig{Enabled: true, Listen: ""},
		Logging:     LoggingConfig{Level: "verbose", Format: "xml"},
	}
	err := cfg.Validate()
	require.Error(t, err)

	merr, ok := err.(interface{ WrappedErrors() []error })
	require.True(t, ok, "Validate must return a multierror aggregating every violation")
	require.GreaterOrEqual(t, len(merr.WrappedErrors()), 6)
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	require.Equal(t, 10_000, cfg.Coordinator.TickIntervalMS)
	require.Equal(t, 0, cfg.Redis.DB)
	require.Equal(t, 200, cfg.Redis.BatchLimit)
	require.True(t, cfg.Debug.Enabled)
	require.Equal(t, "127.0.0.1:9091", cfg.Debug.Listen)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
}
