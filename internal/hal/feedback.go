package hal

import (
	"sync"

	"github.com/rdorfner/EurorackSequencer/internal/logger"
)

// logFeedback reports trigger activity through the logger, standing in for
// the display the hardware drives.
type logFeedback struct {
	log logger.Logger
}

func NewLogFeedback(log logger.Logger) FeedbackSink {
	if log == nil {
		log = logger.Default()
	}

	return &logFeedback{log: log}
}

func (f *logFeedback) Notify(index int, active bool) {
	f.log.Debug().
		Int("output", index).
		Bool("active", active).
		Msg("Trigger feedback")
}

// Notification is a single recorded feedback event
type Notification struct {
	Index  int
	Active bool
}

// CaptureFeedback records notifications for inspection in tests
type CaptureFeedback struct {
	mu     sync.Mutex
	events []Notification
}

func NewCaptureFeedback() *CaptureFeedback {
	return &CaptureFeedback{}
}

func (f *CaptureFeedback) Notify(index int, active bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, Notification{Index: index, Active: active})
}

// Events returns a copy of the recorded notifications in arrival order
func (f *CaptureFeedback) Events() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Notification, len(f.events))
	copy(out, f.events)

	return out
}

// Reset clears the recorded notifications
func (f *CaptureFeedback) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = nil
}
