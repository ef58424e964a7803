// Package trigger drives the seven trigger outputs from clock ticks. Each
// tick fires the scheduled outputs electrically high and arms a one-shot
// pulse reset that returns every active output low after the configured
// pulse width. All bookkeeping shares the sequencer state's mutual-exclusion
// domain so tick processing is serialized with pattern edits.
package trigger

import (
	"sync"
	"time"

	"github.com/rdorfner/EurorackSequencer/internal/clock"
	"github.com/rdorfner/EurorackSequencer/internal/errors"
	"github.com/rdorfner/EurorackSequencer/internal/hal"
	"github.com/rdorfner/EurorackSequencer/internal/logger"
)

// DefaultPulseWidth is the trigger pulse duration used when none is configured.
const DefaultPulseWidth = 50 * time.Millisecond

// State describes one trigger output.
type State struct {
	// Active reports whether the output is currently electrically high.
	Active bool
	// ActivationTime is the timestamp of the tick that last fired the output.
	ActivationTime time.Duration
	// Count is the number of times the output has fired.
	Count uint64
}

// Stats is a snapshot of the scheduler's bookkeeping.
type Stats struct {
	States       [hal.NumTriggers]State
	Scheduled    clock.Mask
	TickCount    uint64
	PatternOn    bool
	PatternIndex int
	PatternSteps int
}

// Config holds the scheduler settings.
type Config struct {
	// PulseWidth is how long a fired output stays high. It must be shorter
	// than the tick period at the highest configured BPM.
	PulseWidth time.Duration
}

// Scheduler fires trigger outputs on clock ticks.
//
// The scheduled-output mask lives in the shared sequencer state; the
// scheduler reads and clears it inside the same critical sections that
// process ticks, so a mask written between two ticks fires on the next
// tick exactly once.
type Scheduler struct {
	cfg   Config
	state *clock.SharedState
	bank  hal.TriggerBank
	sink  hal.FeedbackSink
	clk   hal.Clock
	log   logger.Logger

	// mu is the shared state's locker. Everything below it is guarded by
	// that domain, never by a scheduler-private lock.
	mu         sync.Locker
	running    bool
	states     [hal.NumTriggers]State
	pending    hal.Timer
	ticks      uint64
	pattern    []clock.Mask
	patternOn  bool
	patternIdx int
}

// NewScheduler creates a trigger scheduler bound to the shared sequencer
// state. A nil sink disables state-change notifications.
func NewScheduler(cfg Config, state *clock.SharedState, bank hal.TriggerBank, clk hal.Clock, sink hal.FeedbackSink, log logger.Logger) (*Scheduler, error) {
	errFactory := errors.New()
	if state == nil {
		return nil, errFactory.WithMessage(ErrNilSharedState, "Shared state is required")
	}
	if bank == nil {
		return nil, errFactory.WithMessage(ErrNilBank, "Trigger bank is required")
	}
	if clk == nil {
		return nil, errFactory.WithMessage(ErrNilClock, "Clock is required")
	}
	if cfg.PulseWidth <= 0 {
		return nil, errFactory.WithMessage(ErrInvalidPulseWidth, "Pulse width must be positive")
	}

	if log == nil {
		log = logger.Default()
	}
	if sink == nil {
		sink = hal.NewLogFeedback(log)
	}

	return &Scheduler{
		cfg:   cfg,
		state: state,
		bank:  bank,
		sink:  sink,
		clk:   clk,
		log:   log,
		mu:    state.Locker(),
	}, nil
}

// Start enables tick processing. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.log.Info().Dur("pulse_width", s.cfg.PulseWidth).Msg("Trigger scheduler started")
}

// Stop disables tick processing, cancels any pending pulse reset and
// forces every output electrically low before returning. Stopping a
// stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}

	var flipped [hal.NumTriggers]bool
	for i := range s.states {
		if err := s.bank.Set(i, false); err != nil {
			s.log.Error().Err(err).Int("output", i).Msg("Failed to clear trigger output")
		}
		if s.states[i].Active {
			s.states[i].Active = false
			flipped[i] = true
		}
	}
	s.mu.Unlock()

	s.notify(flipped, false)
	s.log.Info().Msg("Trigger scheduler stopped")
}

// OnTick runs one scheduling step for a clock tick: fire the scheduled
// outputs, notify the flipped ones, clear the mask, advance the pattern
// and arm the pulse reset. Ticks received while stopped are ignored.
func (s *Scheduler) OnTick(t clock.Tick) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.ticks++

	mask := s.state.PatternMaskLocked()
	var flipped [hal.NumTriggers]bool
	fired := 0
	for i := range mask {
		if !mask[i] {
			continue
		}
		if err := s.bank.Set(i, true); err != nil {
			s.log.Error().Err(err).Int("output", i).Msg("Failed to fire trigger output")
			continue
		}
		if !s.states[i].Active {
			flipped[i] = true
		}
		s.states[i].Active = true
		s.states[i].ActivationTime = t.Timestamp
		s.states[i].Count++
		fired++
	}
	s.state.ClearPatternMaskLocked()

	// The pattern step armed here fires on the next tick, not this one.
	if s.patternOn && len(s.pattern) > 0 {
		s.state.SetPatternMaskLocked(s.pattern[s.patternIdx])
		s.patternIdx = (s.patternIdx + 1) % len(s.pattern)
	}

	if fired > 0 {
		// A fresh tick replaces the pending reset, so a pulse may stretch
		// but never ends early.
		if s.pending != nil {
			s.pending.Stop()
		}
		s.pending = s.clk.AfterFunc(s.cfg.PulseWidth, s.onPulseExpiry)
	}
	s.mu.Unlock()

	s.notify(flipped, true)
}

// onPulseExpiry returns every active output low and notifies the change.
func (s *Scheduler) onPulseExpiry() {
	s.mu.Lock()
	var flipped [hal.NumTriggers]bool
	for i := range s.states {
		if !s.states[i].Active {
			continue
		}
		if err := s.bank.Set(i, false); err != nil {
			s.log.Error().Err(err).Int("output", i).Msg("Failed to reset trigger output")
		}
		s.states[i].Active = false
		flipped[i] = true
	}
	s.pending = nil
	s.mu.Unlock()

	s.notify(flipped, false)
}

func (s *Scheduler) notify(flipped [hal.NumTriggers]bool, active bool) {
	for i := range flipped {
		if flipped[i] {
			s.sink.Notify(i, active)
		}
	}
}

// ScheduleTrigger arms or disarms a single output for the next tick.
func (s *Scheduler) ScheduleTrigger(index int, fire bool) error {
	if index < 0 || index >= hal.NumTriggers {
		return errors.New().WithMessage(ErrInvalidOutput,
			"Trigger output index out of range")
	}
	s.mu.Lock()
	mask := s.state.PatternMaskLocked()
	mask[index] = fire
	s.state.SetPatternMaskLocked(mask)
	s.mu.Unlock()
	return nil
}

// ScheduleTriggers arms a full output mask for the next tick.
func (s *Scheduler) ScheduleTriggers(mask clock.Mask) {
	s.mu.Lock()
	s.state.SetPatternMaskLocked(mask)
	s.mu.Unlock()
}

// Scheduled returns the mask armed for the next tick.
func (s *Scheduler) Scheduled() clock.Mask {
	return s.state.PatternMask()
}

// SetPattern replaces the step sequence and rewinds it to the first step.
// The pattern only drives the outputs while enabled.
func (s *Scheduler) SetPattern(steps []clock.Mask) {
	copied := make([]clock.Mask, len(steps))
	copy(copied, steps)

	s.mu.Lock()
	s.pattern = copied
	s.patternIdx = 0
	s.mu.Unlock()

	s.log.Debug().Int("steps", len(copied)).Msg("Trigger pattern set")
}

// EnablePattern turns pattern playback on or off. Disabling leaves the
// current step index in place so playback resumes where it stopped.
func (s *Scheduler) EnablePattern(enabled bool) {
	s.mu.Lock()
	s.patternOn = enabled
	s.mu.Unlock()

	s.log.Debug().Bool("enabled", enabled).Msg("Trigger pattern playback toggled")
}

// States returns a snapshot of all trigger output states.
func (s *Scheduler) States() [hal.NumTriggers]State {
	s.mu.Lock()
	states := s.states
	s.mu.Unlock()
	return states
}

// Stats returns a snapshot of the scheduler's counters and pattern position.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	stats := Stats{
		States:       s.states,
		Scheduled:    s.state.PatternMaskLocked(),
		TickCount:    s.ticks,
		PatternOn:    s.patternOn,
		PatternIndex: s.patternIdx,
		PatternSteps: len(s.pattern),
	}
	s.mu.Unlock()
	return stats
}

// ResetStats zeroes the fire counters and the tick count. Live output
// states are left untouched.
func (s *Scheduler) ResetStats() {
	s.mu.Lock()
	for i := range s.states {
		s.states[i].Count = 0
		s.states[i].ActivationTime = 0
	}
	s.ticks = 0
	s.mu.Unlock()
}
