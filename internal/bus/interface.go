package bus

import (
	"time"

	"github.com/rdorfner/EurorackSequencer/internal/clock"
)

// Kind discriminates message payloads
type Kind int

const (
	KindClockUpdate Kind = iota + 1
	KindTriggerPattern
	KindExternalClock
	KindPotentiometerSample
	KindSystemStatus
)

func (k Kind) String() string {
	switch k {
	case KindClockUpdate:
		return "clock_update"
	case KindTriggerPattern:
		return "trigger_pattern"
	case KindExternalClock:
		return "external_clock"
	case KindPotentiometerSample:
		return "potentiometer_sample"
	case KindSystemStatus:
		return "system_status"
	default:
		return "unknown"
	}
}

// Direction selects one of the two unidirectional queues
type Direction int

const (
	// ToPlayback carries messages from the clock context to the playback
	// context: ticks, external clock events, pot samples, status.
	ToPlayback Direction = iota
	// ToControl carries commands from the playback context back to the
	// clock context.
	ToControl
)

func (d Direction) String() string {
	if d == ToControl {
		return "to_control"
	}

	return "to_playback"
}

// Message is the tagged value crossing the inter-context channel. Only the
// fields for its Kind are set; payloads are copies, never pointers into a
// producer's state.
type Message struct {
	Kind       Kind
	Tick       clock.Tick
	Mask       clock.Mask
	Freq       float64
	Timestamp  time.Duration
	Normalized float64
	BPM        float64
	Status     clock.Snapshot
}

// ClockUpdate carries one emitted tick
func ClockUpdate(t clock.Tick) Message {
	return Message{Kind: KindClockUpdate, Tick: t}
}

// TriggerPattern carries a mask for the next tick
func TriggerPattern(mask clock.Mask) Message {
	return Message{Kind: KindTriggerPattern, Mask: mask}
}

// ExternalClock announces a detected external clock rate
func ExternalClock(freq float64, timestamp time.Duration) Message {
	return Message{Kind: KindExternalClock, Freq: freq, Timestamp: timestamp}
}

// PotentiometerSample carries a normalized pot reading and the BPM it maps to
func PotentiometerSample(normalized, bpm float64) Message {
	return Message{Kind: KindPotentiometerSample, Normalized: normalized, BPM: bpm}
}

// SystemStatus carries a shared state snapshot
func SystemStatus(snap clock.Snapshot) Message {
	return Message{Kind: KindSystemStatus, Status: snap}
}

// Stats reports one queue's depth and lifetime drop count
type Stats struct {
	Depth int
	Drops uint64
}
