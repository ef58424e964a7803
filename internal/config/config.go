package config

import (
	"fmt"
	"os"

	"github.com/rdorfner/EurorackSequencer/internal/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const DefaultLogLevel = "warn"

// Config holds every tunable of the sequencer daemon. Values are resolved
// with the usual precedence: command-line flags, then environment
// (SEQUENCER_ prefix), then the TOML config file, then defaults.
type Config struct {
	// Clock
	MinBPM            float64 `mapstructure:"min_bpm"`
	MaxBPM            float64 `mapstructure:"max_bpm"`
	PulseWidthMS      int     `mapstructure:"pulse_width_ms"`
	ExternalTimeoutMS int     `mapstructure:"external_timeout_ms"`
	PollIntervalMS    int     `mapstructure:"poll_interval_ms"`

	// Potentiometer sampling
	SampleIntervalMS int     `mapstructure:"sample_interval_ms"`
	DecimationFactor int     `mapstructure:"decimation_factor"`
	WindowSize       int     `mapstructure:"window_size"`
	ChangeThreshold  float64 `mapstructure:"change_threshold"`
	RefreshMS        int     `mapstructure:"refresh_ms"`
	ObservedMinRaw   int     `mapstructure:"observed_min_raw"`
	ObservedMaxRaw   int     `mapstructure:"observed_max_raw"`

	// Inter-context channel
	QueueCapacity int `mapstructure:"queue_capacity"`

	// Playback
	Pattern          string `mapstructure:"pattern"`
	StatusIntervalMS int    `mapstructure:"status_interval_ms"`

	// Telemetry
	Telemetry          bool   `mapstructure:"telemetry"`
	TelemetryDB        string `mapstructure:"telemetry_db"`
	TelemetryBatchSize int    `mapstructure:"telemetry_batch_size"`
	TelemetryFlushSec  int    `mapstructure:"telemetry_flush_sec"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
}

func defaults() map[string]any {
	return map[string]any{
		"min_bpm":              15.0,
		"max_bpm":              240.0,
		"pulse_width_ms":       50,
		"external_timeout_ms":  2000,
		"poll_interval_ms":     5,
		"sample_interval_ms":   50,
		"decimation_factor":    8,
		"window_size":          16,
		"change_threshold":     0.01,
		"refresh_ms":           1000,
		"observed_min_raw":     0,
		"observed_max_raw":     3311,
		"queue_capacity":       64,
		"pattern":              "1000",
		"status_interval_ms":   1000,
		"telemetry":            false,
		"telemetry_db":         "/var/lib/eurorackseq/telemetry.db",
		"telemetry_batch_size": 16,
		"telemetry_flush_sec":  5,
		"log_level":            DefaultLogLevel,
	}
}

// Load resolves the configuration from flags, environment and the
// sequencer.toml config file, validates it, and applies the log level.
func Load() (*Config, error) {
	errFactory := errors.New()

	fs := pflag.NewFlagSet("eurorackseq", pflag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	fs.Bool("telemetry", false, "Enable telemetry collection")
	fs.String("telemetry-db", "", "Path to telemetry database")
	fs.Float64("min-bpm", 15.0, "Minimum BPM")
	fs.Float64("max-bpm", 240.0, "Maximum BPM")
	fs.Int("pulse-width-ms", 50, "Trigger pulse width in milliseconds")
	fs.Int("external-timeout-ms", 2000, "External clock timeout in milliseconds")
	fs.String("pattern", "1000", "Startup step pattern, 1 fires all outputs (empty disables)")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(ErrBindFlags, err)
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("SEQUENCER")
	v.AutomaticEnv()

	bindings := map[string]string{
		"log_level":           "log-level",
		"telemetry":           "telemetry",
		"telemetry_db":        "telemetry-db",
		"min_bpm":             "min-bpm",
		"max_bpm":             "max-bpm",
		"pulse_width_ms":      "pulse-width-ms",
		"external_timeout_ms": "external-timeout-ms",
		"pattern":             "pattern",
	}
	for key, name := range bindings {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(ErrBindFlags, err)
		}
	}

	path := *configPath
	if path == "" {
		path = os.Getenv("SEQUENCER_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("sequencer")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errFactory.WithMessage(ErrReadConfigFile,
				fmt.Sprintf("Failed to read config file: %v", err))
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(ErrUnmarshalConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	applyLogLevel(config.LogLevel)

	return config, nil
}

// Validate fails fast on configuration violations. Per-tick errors are
// recovered locally at runtime, but a misconfigured range would silently
// distort every later computation, so it is rejected here.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.MinBPM <= 0 || c.MaxBPM <= c.MinBPM {
		return errFactory.WithData(ErrInvalidBPMRange, struct {
			Min, Max float64
		}{c.MinBPM, c.MaxBPM})
	}

	if c.ObservedMaxRaw <= c.ObservedMinRaw {
		return errFactory.WithData(ErrInvalidObservedRange, struct {
			Min, Max int
		}{c.ObservedMinRaw, c.ObservedMaxRaw})
	}

	if c.PulseWidthMS <= 0 {
		return errFactory.WithData(ErrInvalidPulseWidth, c.PulseWidthMS)
	}
	// The pulse must clear before the next tick at the fastest rate.
	if float64(c.PulseWidthMS) >= 60000.0/c.MaxBPM {
		return errFactory.WithData(ErrInvalidPulseWidth, struct {
			PulseWidthMS int
			PeriodMS     float64
		}{c.PulseWidthMS, 60000.0 / c.MaxBPM})
	}

	if c.ExternalTimeoutMS <= 0 {
		return errFactory.WithData(ErrInvalidTimeout, c.ExternalTimeoutMS)
	}

	if c.PollIntervalMS <= 0 || c.PollIntervalMS > 10 {
		return errFactory.WithData(ErrInvalidInterval, c.PollIntervalMS)
	}
	if c.SampleIntervalMS <= 0 {
		return errFactory.WithData(ErrInvalidInterval, c.SampleIntervalMS)
	}
	if c.RefreshMS <= 0 {
		return errFactory.WithData(ErrInvalidInterval, c.RefreshMS)
	}

	if c.DecimationFactor < 1 {
		return errFactory.WithData(ErrInvalidDecimation, c.DecimationFactor)
	}
	if c.WindowSize < 1 {
		return errFactory.WithData(ErrInvalidWindow, c.WindowSize)
	}
	if c.ChangeThreshold < 0 || c.ChangeThreshold >= 1 {
		return errFactory.WithData(ErrInvalidThreshold, c.ChangeThreshold)
	}

	if c.QueueCapacity < 1 {
		return errFactory.WithData(ErrInvalidQueueCap, c.QueueCapacity)
	}

	for _, step := range c.Pattern {
		if step != '0' && step != '1' {
			return errFactory.WithData(ErrInvalidPattern, c.Pattern)
		}
	}
	if c.StatusIntervalMS < 0 {
		return errFactory.WithData(ErrInvalidInterval, c.StatusIntervalMS)
	}

	if !validLogLevel(c.LogLevel) {
		return errFactory.WithData(ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

func validLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func applyLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}
