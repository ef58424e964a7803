package hal

import "time"

// NumTriggers is the number of trigger output channels on the board.
const NumTriggers = 7

// Clock provides monotonic time and one-shot timer arming
type Clock interface {
	Now() time.Duration
	AfterFunc(d time.Duration, fn func()) Timer
}

// Timer is a pending one-shot callback
type Timer interface {
	// Stop cancels the timer and reports whether it was still pending
	Stop() bool
}

// AnalogReader samples the potentiometer input
type AnalogReader interface {
	Read() (uint16, error)
}

// TriggerBank drives the trigger output channels
type TriggerBank interface {
	Set(index int, high bool) error
}

// EdgeSource delivers rising edges from the external clock input.
// Registering a new callback replaces the previous one; registering nil
// detaches edge delivery entirely.
type EdgeSource interface {
	OnRisingEdge(fn func(timestamp time.Duration))
}

// FeedbackSink receives trigger activity notifications for display
type FeedbackSink interface {
	Notify(index int, active bool)
}
