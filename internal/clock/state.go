package clock

import (
	"sync"
	"time"
)

// SharedState is the versioned record both execution contexts read and
// write. A single mutex guards every field and every critical section is a
// constant-time field access. The trigger scheduler serializes its own
// critical sections in the same mutual-exclusion domain through Locker;
// methods with the Locked suffix require that lock to be held already.
type SharedState struct {
	mu               sync.Mutex
	bpm              float64
	source           Source
	externalActive   bool
	lastExternalTick time.Duration
	lastTick         time.Duration
	patternMask      Mask
	version          uint64
}

// NewSharedState creates the shared record with the internal source
// selected and the given starting BPM.
func NewSharedState(initialBPM float64) *SharedState {
	return &SharedState{
		bpm:    initialBPM,
		source: SourceInternal,
	}
}

// Locker exposes the mutual-exclusion domain guarding this record
func (s *SharedState) Locker() sync.Locker {
	return &s.mu
}

// Snapshot copies the whole record under one lock acquisition
func (s *SharedState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		BPM:              s.bpm,
		Source:           s.source,
		ExternalActive:   s.externalActive,
		LastExternalTick: s.lastExternalTick,
		LastTick:         s.lastTick,
		PatternMask:      s.patternMask,
		Version:          s.version,
	}
}

func (s *SharedState) BPM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bpm
}

func (s *SharedState) Source() Source {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.source
}

func (s *SharedState) ExternalActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.externalActive
}

func (s *SharedState) LastTick() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastTick
}

func (s *SharedState) LastExternalTick() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastExternalTick
}

func (s *SharedState) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.version
}

func (s *SharedState) PatternMask() Mask {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.patternMask
}

// PatternMaskLocked reads the mask inside a held critical section
func (s *SharedState) PatternMaskLocked() Mask {
	return s.patternMask
}

// SetPatternMaskLocked replaces the mask inside a held critical section
func (s *SharedState) SetPatternMaskLocked(mask Mask) {
	s.patternMask = mask
	s.version++
}

// ClearPatternMaskLocked zeroes the mask inside a held critical section
func (s *SharedState) ClearPatternMaskLocked() {
	s.patternMask = Mask{}
	s.version++
}
