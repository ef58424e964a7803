package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rdorfner/EurorackSequencer/internal/config"
	"github.com/rdorfner/EurorackSequencer/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	configContent := []byte(`
min_bpm = 20.0
max_bpm = 200.0
pulse_width_ms = 40
external_timeout_ms = 1500
poll_interval_ms = 5
sample_interval_ms = 50
decimation_factor = 4
window_size = 8
change_threshold = 0.02
refresh_ms = 500
observed_min_raw = 10
observed_max_raw = 3300
queue_capacity = 32
pattern = "10101010"
status_interval_ms = 250
telemetry = true
telemetry_db = "/path/to/telemetry.db"
log_level = "debug"
`)
	configPath := filepath.Join(tempDir, "sequencer.toml")
	err = os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	// Set environment variable to point to the test config file
	t.Setenv("SEQUENCER_CONFIG", configPath)

	// Load the config
	cfg, err := config.Load()
	require.NoError(t, err)

	// Assert
	assert.InDelta(t, 20.0, cfg.MinBPM, 0.001, "Expected MinBPM 20")
	assert.InDelta(t, 200.0, cfg.MaxBPM, 0.001, "Expected MaxBPM 200")
	assert.Equal(t, 40, cfg.PulseWidthMS, "Expected PulseWidthMS 40")
	assert.Equal(t, 1500, cfg.ExternalTimeoutMS, "Expected ExternalTimeoutMS 1500")
	assert.Equal(t, 5, cfg.PollIntervalMS, "Expected PollIntervalMS 5")
	assert.Equal(t, 50, cfg.SampleIntervalMS, "Expected SampleIntervalMS 50")
	assert.Equal(t, 4, cfg.DecimationFactor, "Expected DecimationFactor 4")
	assert.Equal(t, 8, cfg.WindowSize, "Expected WindowSize 8")
	assert.InDelta(t, 0.02, cfg.ChangeThreshold, 0.0001, "Expected ChangeThreshold 0.02")
	assert.Equal(t, 500, cfg.RefreshMS, "Expected RefreshMS 500")
	assert.Equal(t, 10, cfg.ObservedMinRaw, "Expected ObservedMinRaw 10")
	assert.Equal(t, 3300, cfg.ObservedMaxRaw, "Expected ObservedMaxRaw 3300")
	assert.Equal(t, 32, cfg.QueueCapacity, "Expected QueueCapacity 32")
	assert.Equal(t, "10101010", cfg.Pattern, "Expected Pattern 10101010")
	assert.Equal(t, 250, cfg.StatusIntervalMS, "Expected StatusIntervalMS 250")
	assert.True(t, cfg.Telemetry, "Expected Telemetry true")
	assert.Equal(t, "/path/to/telemetry.db", cfg.TelemetryDB, "Expected TelemetryDB /path/to/telemetry.db")
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel debug")
}

func TestLoadDefaults(t *testing.T) {
	// Ensure no config file is used
	t.Setenv("SEQUENCER_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err, "Failed to load config")

	// Assert default values
	assert.InDelta(t, 15.0, cfg.MinBPM, 0.001, "Expected default MinBPM 15")
	assert.InDelta(t, 240.0, cfg.MaxBPM, 0.001, "Expected default MaxBPM 240")
	assert.Equal(t, 50, cfg.PulseWidthMS, "Expected default PulseWidthMS 50")
	assert.Equal(t, 2000, cfg.ExternalTimeoutMS, "Expected default ExternalTimeoutMS 2000")
	assert.Equal(t, 5, cfg.PollIntervalMS, "Expected default PollIntervalMS 5")
	assert.Equal(t, 8, cfg.DecimationFactor, "Expected default DecimationFactor 8")
	assert.Equal(t, 16, cfg.WindowSize, "Expected default WindowSize 16")
	assert.InDelta(t, 0.01, cfg.ChangeThreshold, 0.0001, "Expected default ChangeThreshold 0.01")
	assert.Equal(t, 1000, cfg.RefreshMS, "Expected default RefreshMS 1000")
	assert.Equal(t, 0, cfg.ObservedMinRaw, "Expected default ObservedMinRaw 0")
	assert.Equal(t, 3311, cfg.ObservedMaxRaw, "Expected default ObservedMaxRaw 3311")
	assert.Equal(t, 64, cfg.QueueCapacity, "Expected default QueueCapacity 64")
	assert.Equal(t, "1000", cfg.Pattern, "Expected default Pattern 1000")
	assert.Equal(t, 1000, cfg.StatusIntervalMS, "Expected default StatusIntervalMS 1000")
	assert.False(t, cfg.Telemetry, "Expected default Telemetry false")
	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel, "Expected default LogLevel warn")
}

func TestLoadConfigFileInvalidFormat(t *testing.T) {
	// Create a temporary directory for the test
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	// Create an invalid test config file
	configContent := []byte(`
This is not a valid TOML file
`)
	configPath := filepath.Join(tempDir, "sequencer.toml")
	err = os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	// Set environment variable to point to the invalid config file
	t.Setenv("SEQUENCER_CONFIG", configPath)

	// Try to load the config
	_, err = config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read config file")
}

func TestInvalidLogLevel(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	configContent := []byte(`
log_level = "invalid"
`)
	configPath := filepath.Join(tempDir, "sequencer.toml")
	err = os.WriteFile(configPath, configContent, 0o600)
	require.NoError(t, err)

	t.Setenv("SEQUENCER_CONFIG", configPath)

	_, err = config.Load()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, config.ErrInvalidLogLevel), "Expected config_invalid_log_level, got %v", err)
}

func TestLogLevelFlag(t *testing.T) {
	// Save original args and restore after test
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	// Set test args
	os.Args = []string{"cmd", "--log-level", "debug"}
	t.Setenv("SEQUENCER_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel, "Expected LogLevel to be set by flag")
}

func validConfig() *config.Config {
	return &config.Config{
		MinBPM:            15.0,
		MaxBPM:            240.0,
		PulseWidthMS:      50,
		ExternalTimeoutMS: 2000,
		PollIntervalMS:    5,
		SampleIntervalMS:  50,
		DecimationFactor:  8,
		WindowSize:        16,
		ChangeThreshold:   0.01,
		RefreshMS:         1000,
		ObservedMinRaw:    0,
		ObservedMaxRaw:    3311,
		QueueCapacity:     64,
		TelemetryDB:       "/tmp/telemetry.db",
		LogLevel:          "warn",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		wantCode errors.ErrorCode
	}{
		{
			name:     "inverted bpm range",
			mutate:   func(c *config.Config) { c.MinBPM, c.MaxBPM = 240.0, 15.0 },
			wantCode: config.ErrInvalidBPMRange,
		},
		{
			name:     "zero min bpm",
			mutate:   func(c *config.Config) { c.MinBPM = 0 },
			wantCode: config.ErrInvalidBPMRange,
		},
		{
			name:     "degenerate observed range",
			mutate:   func(c *config.Config) { c.ObservedMinRaw, c.ObservedMaxRaw = 2048, 2048 },
			wantCode: config.ErrInvalidObservedRange,
		},
		{
			name:     "pulse wider than fastest tick period",
			mutate:   func(c *config.Config) { c.PulseWidthMS = 300 },
			wantCode: config.ErrInvalidPulseWidth,
		},
		{
			name:     "zero external timeout",
			mutate:   func(c *config.Config) { c.ExternalTimeoutMS = 0 },
			wantCode: config.ErrInvalidTimeout,
		},
		{
			name:     "poll interval above bound",
			mutate:   func(c *config.Config) { c.PollIntervalMS = 20 },
			wantCode: config.ErrInvalidInterval,
		},
		{
			name:     "zero decimation factor",
			mutate:   func(c *config.Config) { c.DecimationFactor = 0 },
			wantCode: config.ErrInvalidDecimation,
		},
		{
			name:     "zero window size",
			mutate:   func(c *config.Config) { c.WindowSize = 0 },
			wantCode: config.ErrInvalidWindow,
		},
		{
			name:     "threshold out of range",
			mutate:   func(c *config.Config) { c.ChangeThreshold = 1.5 },
			wantCode: config.ErrInvalidThreshold,
		},
		{
			name:     "zero queue capacity",
			mutate:   func(c *config.Config) { c.QueueCapacity = 0 },
			wantCode: config.ErrInvalidQueueCap,
		},
		{
			name:     "pattern with foreign characters",
			mutate:   func(c *config.Config) { c.Pattern = "10x0" },
			wantCode: config.ErrInvalidPattern,
		},
		{
			name:     "negative status interval",
			mutate:   func(c *config.Config) { c.StatusIntervalMS = -1 },
			wantCode: config.ErrInvalidInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.wantCode), "Expected %s, got %v", tt.wantCode, err)
		})
	}
}

func TestValidateAccepts(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}
