package clock

import (
	"time"

	"github.com/rdorfner/EurorackSequencer/internal/hal"
)

// Source identifies which clock drives tick generation
type Source int

const (
	SourceInternal Source = iota
	SourceExternal
)

func (s Source) String() string {
	if s == SourceExternal {
		return "external"
	}

	return "internal"
}

// Mask selects which trigger outputs fire on the next tick
type Mask [hal.NumTriggers]bool

// Tick is a single clock event. It is immutable once emitted and fans out
// by value.
type Tick struct {
	Timestamp time.Duration
	Source    Source
	BPM       float64
}

// Snapshot is a point-in-time copy of the shared state
type Snapshot struct {
	BPM              float64
	Source           Source
	ExternalActive   bool
	LastExternalTick time.Duration
	LastTick         time.Duration
	PatternMask      Mask
	Version          uint64
}
