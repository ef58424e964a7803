package clock

import (
	"time"

	"github.com/rdorfner/EurorackSequencer/internal/errors"
	"github.com/rdorfner/EurorackSequencer/internal/logger"
)

// Config bounds the engine's timing
type Config struct {
	MinBPM          float64
	MaxBPM          float64
	ExternalTimeout time.Duration
}

// Engine owns the clock state machine. Internal ticks are generated by the
// owning poll loop through Advance; external edges pre-empt the internal
// schedule through OnExternalEdge. All transitions happen under the shared
// state lock, so exactly one source is active at any instant and ticks
// enqueue in stamp order.
//
// The emit callback runs with the shared lock held. It must stay O(1) and
// must not call back into the engine or the shared state.
type Engine struct {
	cfg   Config
	state *SharedState
	emit  func(Tick)
	log   logger.Logger

	// Guarded by the shared state lock
	running       bool
	internalBPM   float64
	nextInternal  time.Duration
	externalFreq  float64
	lastEdge      time.Duration
	haveEdge      bool
	ticksEmitted  uint64
	spuriousEdges uint64
}

// Status reports engine-side counters and the last commanded rates
type Status struct {
	Running       bool
	InternalBPM   float64
	ExternalFreq  float64
	TicksEmitted  uint64
	SpuriousEdges uint64
}

// NewEngine creates a clock engine over the given shared state. The last
// commanded internal BPM starts at the state's current BPM, clamped into
// the configured bounds.
func NewEngine(cfg Config, state *SharedState, emit func(Tick), log logger.Logger) (*Engine, error) {
	errFactory := errors.New()

	if state == nil {
		return nil, errFactory.New(ErrNilState)
	}
	if cfg.MinBPM <= 0 || cfg.MaxBPM <= cfg.MinBPM {
		return nil, errFactory.WithData(ErrInvalidBounds, struct {
			Min, Max float64
		}{cfg.MinBPM, cfg.MaxBPM})
	}
	if cfg.ExternalTimeout <= 0 {
		return nil, errFactory.WithData(ErrInvalidTimeout, cfg.ExternalTimeout)
	}

	if log == nil {
		log = logger.Default()
	}

	e := &Engine{
		cfg:   cfg,
		state: state,
		emit:  emit,
		log:   log,
	}
	e.internalBPM = e.clamp(state.BPM())

	return e, nil
}

// Start schedules the first internal tick one period from now. Starting a
// running engine is a no-op.
func (e *Engine) Start(now time.Duration) {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()

	if e.running {
		return
	}
	e.running = true
	e.nextInternal = now + e.period(e.internalBPM)

	e.log.Info().
		Float64("bpm", e.internalBPM).
		Msg("Clock engine started")
}

// Stop halts tick generation. Idempotent.
func (e *Engine) Stop() {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false

	e.log.Info().Msg("Clock engine stopped")
}

// Advance performs the work due at now: the external silence timeout and
// any due internal tick. The owning loop calls this at most every 10ms.
func (e *Engine) Advance(now time.Duration) {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()

	if !e.running {
		return
	}

	// Silence on the external input clears detection; if the external
	// source was driving the clock, fall back to the last commanded
	// internal BPM with a fresh schedule.
	if e.haveEdge && now-e.lastEdge > e.cfg.ExternalTimeout {
		e.haveEdge = false
		e.state.externalActive = false
		e.state.version++

		if e.state.source == SourceExternal {
			e.state.source = SourceInternal
			e.state.bpm = e.internalBPM
			e.nextInternal = now + e.period(e.internalBPM)

			e.log.Info().
				Float64("bpm", e.internalBPM).
				Msg("External clock timeout, switching to internal clock")
		}
	}

	if e.state.source == SourceInternal && now >= e.nextInternal {
		e.fireLocked(Tick{Timestamp: now, Source: SourceInternal, BPM: e.state.bpm})

		e.nextInternal += e.period(e.state.bpm)
		if e.nextInternal <= now {
			// The loop stalled past a full period; skip owed ticks
			// rather than bursting.
			e.nextInternal = now + e.period(e.state.bpm)
		}
	}
}

// TickInternal emits an internal tick stamped at now and reschedules the
// next one. Discarded when the external source drives the clock, so stale
// timer callbacks cannot produce duplicate ticks.
func (e *Engine) TickInternal(now time.Duration) {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()

	if !e.running || e.state.source != SourceInternal {
		return
	}

	e.fireLocked(Tick{Timestamp: now, Source: SourceInternal, BPM: e.state.bpm})
	e.nextInternal = now + e.period(e.state.bpm)
}

// OnExternalEdge records a rising edge on the external clock input.
// The first edge after silence only calibrates the frequency estimator;
// each later edge re-estimates the rate from the edge spacing, switches
// the source to external if needed and emits exactly one tick. Edges with
// non-positive spacing are discarded without touching shared state.
func (e *Engine) OnExternalEdge(now time.Duration) {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()

	if !e.running {
		return
	}

	if !e.haveEdge {
		e.haveEdge = true
		e.lastEdge = now
		e.state.externalActive = true
		e.state.lastExternalTick = now
		e.state.version++

		e.log.Debug().Msg("External clock detected, calibrating")

		return
	}

	dt := now - e.lastEdge
	if dt <= 0 {
		e.spuriousEdges++
		e.log.Debug().
			Dur("dt", dt).
			Msg("Discarding spurious external edge")

		return
	}

	freq := e.clamp(60000.0 / (float64(dt) / float64(time.Millisecond)))
	e.externalFreq = freq
	e.lastEdge = now
	e.state.lastExternalTick = now

	if e.state.source != SourceExternal {
		e.state.source = SourceExternal
		e.log.Info().
			Float64("bpm", freq).
			Msg("Switching to external clock")
	}
	e.state.bpm = freq

	e.fireLocked(Tick{Timestamp: now, Source: SourceExternal, BPM: freq})
}

// ForceInternal switches back to the internal source regardless of the
// external timeout. External detection state is left alone, so a live
// external clock takes over again on its next edge.
func (e *Engine) ForceInternal(now time.Duration) {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()

	if !e.running {
		return
	}

	e.state.source = SourceInternal
	e.state.bpm = e.internalBPM
	e.state.version++
	e.nextInternal = now + e.period(e.internalBPM)

	e.log.Info().
		Float64("bpm", e.internalBPM).
		Msg("Forced switch to internal clock")
}

// SetBPM records the commanded internal BPM, clamped into bounds. While
// the internal source is active the change takes effect immediately with
// a fresh schedule; while external, it is applied on the next fallback.
func (e *Engine) SetBPM(now time.Duration, bpm float64) {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()

	clamped := e.clamp(bpm)
	e.internalBPM = clamped

	if e.state.source == SourceInternal {
		e.state.bpm = clamped
		e.state.version++
		if e.running {
			e.nextInternal = now + e.period(clamped)
		}
	}

	e.log.Debug().
		Float64("bpm", clamped).
		Msg("Internal BPM set")
}

// Status returns engine counters under the shared lock
func (e *Engine) Status() Status {
	e.state.mu.Lock()
	defer e.state.mu.Unlock()

	return Status{
		Running:       e.running,
		InternalBPM:   e.internalBPM,
		ExternalFreq:  e.externalFreq,
		TicksEmitted:  e.ticksEmitted,
		SpuriousEdges: e.spuriousEdges,
	}
}

// fireLocked stamps the tick into shared state and hands it to the emit
// callback. Caller holds the shared lock.
func (e *Engine) fireLocked(t Tick) {
	e.state.lastTick = t.Timestamp
	e.state.version++
	e.ticksEmitted++

	if e.emit != nil {
		e.emit(t)
	}

	e.log.Debug().
		Float64("bpm", t.BPM).
		Str("source", t.Source.String()).
		Msg("Clock tick")
}

func (e *Engine) clamp(bpm float64) float64 {
	if bpm < e.cfg.MinBPM {
		return e.cfg.MinBPM
	}
	if bpm > e.cfg.MaxBPM {
		return e.cfg.MaxBPM
	}

	return bpm
}

func (e *Engine) period(bpm float64) time.Duration {
	return time.Duration(60000.0 / bpm * float64(time.Millisecond))
}
