package hal

import (
	"sync"
	"time"

	"github.com/rdorfner/EurorackSequencer/internal/errors"
)

// SimAnalogReader is a settable AnalogReader for tests and the demo loop
type SimAnalogReader struct {
	mu    sync.Mutex
	value uint16
	err   error
}

func NewSimAnalogReader(initial uint16) *SimAnalogReader {
	return &SimAnalogReader{value: initial}
}

// SetValue sets the raw sample returned by Read and clears any injected fault
func (r *SimAnalogReader) SetValue(v uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.value = v
	r.err = nil
}

// Fail makes subsequent reads return a wrapped read failure
func (r *SimAnalogReader) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.err = err
}

func (r *SimAnalogReader) Read() (uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		errFactory := errors.New()
		return 0, errFactory.Wrap(ErrReadFailed, r.err)
	}

	return r.value, nil
}

// SimTriggerBank records output levels instead of driving GPIO lines
type SimTriggerBank struct {
	mu     sync.Mutex
	levels [NumTriggers]bool
}

func NewSimTriggerBank() *SimTriggerBank {
	return &SimTriggerBank{}
}

func (b *SimTriggerBank) Set(index int, high bool) error {
	if index < 0 || index >= NumTriggers {
		errFactory := errors.New()
		return errFactory.WithData(ErrInvalidOutput, index)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.levels[index] = high

	return nil
}

// Levels returns a copy of the current output levels
func (b *SimTriggerBank) Levels() [NumTriggers]bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.levels
}

// SimEdgeSource injects external clock edges into the registered callback
type SimEdgeSource struct {
	mu sync.Mutex
	fn func(time.Duration)
}

func NewSimEdgeSource() *SimEdgeSource {
	return &SimEdgeSource{}
}

func (s *SimEdgeSource) OnRisingEdge(fn func(timestamp time.Duration)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fn = fn
}

// Inject delivers a rising edge with the given timestamp. The callback runs
// without the source lock held.
func (s *SimEdgeSource) Inject(timestamp time.Duration) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()

	if fn != nil {
		fn(timestamp)
	}
}
