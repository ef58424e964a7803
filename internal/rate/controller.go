package rate

import (
	"math"
	"sync"
	"time"

	"github.com/rdorfner/EurorackSequencer/internal/errors"
	"github.com/rdorfner/EurorackSequencer/internal/hal"
	"github.com/rdorfner/EurorackSequencer/internal/logger"
)

// Config holds the rate pipeline tunables. The observed raw range
// compensates for a control that does not span the full ADC travel; a
// degenerate range is rejected at construction, never defaulted.
type Config struct {
	MinBPM           float64
	MaxBPM           float64
	ObservedMinRaw   int
	ObservedMaxRaw   int
	DecimationFactor int
	WindowSize       int
	ChangeThreshold  float64
	Refresh          time.Duration
}

// Update is one propagated rate decision
type Update struct {
	Normalized float64
	BPM        float64
}

// Status reports the pipeline's current readout and counters
type Status struct {
	Normalized float64
	BPM        float64
	WindowFill int
	Samples    uint64
	Faults     uint64
	LastSent   float64
}

// Controller turns noisy raw control samples into a stable BPM. Only every
// D-th raw sample enters the sliding window; the window average is rescaled
// through the observed raw range, clamped to [0,1] and mapped onto the BPM
// bounds. Propagation is suppressed unless the normalized value moved by at
// least the change threshold or the refresh interval elapsed.
type Controller struct {
	cfg    Config
	reader hal.AnalogReader
	log    logger.Logger

	mu         sync.Mutex
	window     []float64
	decimation int
	average    float64
	lastSent   float64
	lastSentAt time.Duration
	samples    uint64
	faults     uint64
}

func NewController(cfg Config, reader hal.AnalogReader, log logger.Logger) (*Controller, error) {
	errFactory := errors.New()

	if reader == nil {
		return nil, errFactory.New(ErrNilReader)
	}
	if cfg.MinBPM <= 0 || cfg.MaxBPM <= cfg.MinBPM {
		return nil, errFactory.WithData(ErrInvalidBounds, struct {
			Min, Max float64
		}{cfg.MinBPM, cfg.MaxBPM})
	}
	if cfg.ObservedMaxRaw <= cfg.ObservedMinRaw {
		return nil, errFactory.WithData(ErrInvalidObservedRange, struct {
			Min, Max int
		}{cfg.ObservedMinRaw, cfg.ObservedMaxRaw})
	}
	if cfg.DecimationFactor < 1 {
		return nil, errFactory.WithData(ErrInvalidDecimation, cfg.DecimationFactor)
	}
	if cfg.WindowSize < 1 {
		return nil, errFactory.WithData(ErrInvalidWindow, cfg.WindowSize)
	}
	if cfg.ChangeThreshold < 0 || cfg.ChangeThreshold >= 1 {
		return nil, errFactory.WithData(ErrInvalidThreshold, cfg.ChangeThreshold)
	}
	if cfg.Refresh <= 0 {
		return nil, errFactory.WithData(ErrInvalidRefresh, cfg.Refresh)
	}

	if log == nil {
		log = logger.Default()
	}

	return &Controller{
		cfg:    cfg,
		reader: reader,
		log:    log,
		window: make([]float64, 0, cfg.WindowSize),
	}, nil
}

// Sample reads one raw value at now and runs it through the pipeline.
// Returns the update and true when suppression lets it through. A read
// fault keeps the last good state: it is counted, not propagated.
func (c *Controller) Sample(now time.Duration) (Update, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := c.reader.Read()
	if err != nil {
		c.faults++
		c.log.Debug().
			Err(err).
			Uint64("faults", c.faults).
			Msg("Analog read failed, keeping last rate")

		return Update{}, false
	}
	c.samples++

	// Decimation: the counter persists across calls
	c.decimation++
	if c.decimation < c.cfg.DecimationFactor {
		return Update{}, false
	}
	c.decimation = 0

	c.window = append(c.window, float64(raw))
	if len(c.window) > c.cfg.WindowSize {
		c.window = c.window[1:]
	}

	sum := 0.0
	for _, v := range c.window {
		sum += v
	}
	c.average = sum / float64(len(c.window))

	normalized := c.normalize(c.average)
	bpm := c.bpm(normalized)

	if !c.shouldPropagate(normalized, now) {
		return Update{}, false
	}

	c.lastSent = normalized
	c.lastSentAt = now

	c.log.Debug().
		Float64("normalized", normalized).
		Float64("bpm", bpm).
		Msg("Rate update")

	return Update{Normalized: normalized, BPM: bpm}, true
}

// Reset clears the window, the decimation counter and the propagation
// history, as if freshly constructed.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.window = c.window[:0]
	c.decimation = 0
	c.average = 0
	c.lastSent = 0
	c.lastSentAt = 0
}

// Status reports the current pipeline state. An empty window reads as
// normalized 0, so the BPM floor is reported before any sample lands.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	normalized := 0.0
	if len(c.window) > 0 {
		normalized = c.normalize(c.average)
	}

	return Status{
		Normalized: normalized,
		BPM:        c.bpm(normalized),
		WindowFill: len(c.window),
		Samples:    c.samples,
		Faults:     c.faults,
		LastSent:   c.lastSent,
	}
}

func (c *Controller) normalize(avg float64) float64 {
	span := float64(c.cfg.ObservedMaxRaw - c.cfg.ObservedMinRaw)
	n := (avg - float64(c.cfg.ObservedMinRaw)) / span

	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}

	return n
}

func (c *Controller) bpm(normalized float64) float64 {
	return c.cfg.MinBPM + normalized*(c.cfg.MaxBPM-c.cfg.MinBPM)
}

func (c *Controller) shouldPropagate(normalized float64, now time.Duration) bool {
	if math.Abs(normalized-c.lastSent) >= c.cfg.ChangeThreshold {
		return true
	}

	return now-c.lastSentAt > c.cfg.Refresh
}
