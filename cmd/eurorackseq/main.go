// Command eurorackseq runs the trigger sequencer against simulated panel
// hardware. Deployments on real hardware swap the HAL constructors for
// device-backed ones.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rdorfner/EurorackSequencer/internal/clock"
	"github.com/rdorfner/EurorackSequencer/internal/config"
	"github.com/rdorfner/EurorackSequencer/internal/hal"
	"github.com/rdorfner/EurorackSequencer/internal/logger"
	"github.com/rdorfner/EurorackSequencer/internal/pid"
	"github.com/rdorfner/EurorackSequencer/internal/rate"
	"github.com/rdorfner/EurorackSequencer/internal/sequencer"
	"github.com/rdorfner/EurorackSequencer/internal/telemetry"
	"github.com/rdorfner/EurorackSequencer/internal/trigger"
)

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel == "debug", cfg.LogLevel == "info", logger.IsService())
	if cfg.LogLevel == "error" {
		logger.SetLogLevel(logger.ErrorLevel)
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("another instance is already running")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	collector, err := telemetry.NewCollector(telemetryConfig(cfg), logger.Default())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}

	hw, pot := newHardware()
	seq, err := sequencer.NewSequencer(sequencerConfig(cfg), hw, collector, logger.Default())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize sequencer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	seq.Start()
	if cfg.Pattern != "" {
		seq.SetPattern(trigger.PatternFromString(cfg.Pattern))
		seq.EnablePattern(true)
	}
	go sweepPot(ctx, pot)

	loop(ctx, seq)

	seq.Stop()
	logger.Info().Msg("Exiting...")
}

func loop(ctx context.Context, seq *sequencer.Sequencer) {
	interval := time.Duration(cfg.StatusIntervalMS) * time.Millisecond
	if interval <= 0 {
		<-ctx.Done()

		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logSequencerState(seq.Status())
		}
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

func logSequencerState(state sequencer.Status) {
	if cfg.LogLevel == "debug" {
		logger.Debug().
			Float64("bpm", state.State.BPM).
			Str("source", state.State.Source.String()).
			Bool("external_active", state.State.ExternalActive).
			Uint64("state_version", state.State.Version).
			Uint64("ticks_emitted", state.Clock.TicksEmitted).
			Uint64("spurious_edges", state.Clock.SpuriousEdges).
			Float64("rate_normalized", state.Rate.Normalized).
			Uint64("rate_samples", state.Rate.Samples).
			Uint64("rate_faults", state.Rate.Faults).
			Uint64("trigger_ticks", state.Triggers.TickCount).
			Bool("pattern_on", state.Triggers.PatternOn).
			Int("pattern_index", state.Triggers.PatternIndex).
			Int("playback_depth", state.Playback.Depth).
			Uint64("playback_drops", state.Playback.Drops).
			Uint64("control_drops", state.Control.Drops).
			Msg("")
	} else if cfg.LogLevel == "info" {
		logger.Info().
			Float64("bpm", state.State.BPM).
			Str("source", state.State.Source.String()).
			Uint64("ticks", state.Triggers.TickCount).
			Msg("")
	}
}

func newHardware() (sequencer.Hardware, *hal.SimAnalogReader) {
	pot := hal.NewSimAnalogReader(uint16(cfg.ObservedMinRaw))

	return sequencer.Hardware{
		Clock: hal.NewWallClock(),
		Pot:   pot,
		Bank:  hal.NewSimTriggerBank(),
		Edges: hal.NewSimEdgeSource(),
		Sink:  hal.NewLogFeedback(logger.Default()),
	}, pot
}

// sweepPot triangle-sweeps the simulated potentiometer across the observed
// range, exercising the rate path end to end.
func sweepPot(ctx context.Context, pot *hal.SimAnalogReader) {
	lo, hi := cfg.ObservedMinRaw, cfg.ObservedMaxRaw
	step := (hi - lo) / 120
	if step < 1 {
		step = 1
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	value, rising := lo, true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if rising {
				value += step
				if value >= hi {
					value, rising = hi, false
				}
			} else {
				value -= step
				if value <= lo {
					value, rising = lo, true
				}
			}
			pot.SetValue(uint16(value))
		}
	}
}

func telemetryConfig(c *config.Config) telemetry.Config {
	return telemetry.Config{
		Enabled:       c.Telemetry,
		DBPath:        c.TelemetryDB,
		BatchSize:     c.TelemetryBatchSize,
		FlushInterval: time.Duration(c.TelemetryFlushSec) * time.Second,
	}
}

func sequencerConfig(c *config.Config) sequencer.Config {
	return sequencer.Config{
		Clock: clock.Config{
			MinBPM:          c.MinBPM,
			MaxBPM:          c.MaxBPM,
			ExternalTimeout: time.Duration(c.ExternalTimeoutMS) * time.Millisecond,
		},
		Rate: rate.Config{
			MinBPM:           c.MinBPM,
			MaxBPM:           c.MaxBPM,
			ObservedMinRaw:   c.ObservedMinRaw,
			ObservedMaxRaw:   c.ObservedMaxRaw,
			DecimationFactor: c.DecimationFactor,
			WindowSize:       c.WindowSize,
			ChangeThreshold:  c.ChangeThreshold,
			Refresh:          time.Duration(c.RefreshMS) * time.Millisecond,
		},
		Trigger: trigger.Config{
			PulseWidth: time.Duration(c.PulseWidthMS) * time.Millisecond,
		},

		PollInterval:   time.Duration(c.PollIntervalMS) * time.Millisecond,
		SampleInterval: time.Duration(c.SampleIntervalMS) * time.Millisecond,
		StatusInterval: time.Duration(c.StatusIntervalMS) * time.Millisecond,
		QueueCapacity:  c.QueueCapacity,
	}
}
