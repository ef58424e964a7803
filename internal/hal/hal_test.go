package hal_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/rdorfner/EurorackSequencer/internal/errors"
	"github.com/rdorfner/EurorackSequencer/internal/hal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimClockAdvanceFiresDueTimers(t *testing.T) {
	clk := hal.NewSimClock()

	var fired []string
	clk.AfterFunc(30*time.Millisecond, func() { fired = append(fired, "late") })
	clk.AfterFunc(10*time.Millisecond, func() { fired = append(fired, "early") })

	clk.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"early"}, fired, "Only the due timer fires")
	assert.Equal(t, 20*time.Millisecond, clk.Now())

	clk.Advance(20 * time.Millisecond)
	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Equal(t, 40*time.Millisecond, clk.Now())
}

func TestSimClockCallbackSeesDueTime(t *testing.T) {
	clk := hal.NewSimClock()

	var seen time.Duration
	clk.AfterFunc(25*time.Millisecond, func() { seen = clk.Now() })

	clk.Advance(100 * time.Millisecond)
	assert.Equal(t, 25*time.Millisecond, seen, "Callback observes its due time, not the advance target")
}

func TestSimClockRearmInsideCallback(t *testing.T) {
	clk := hal.NewSimClock()

	var fired []time.Duration
	var arm func()
	arm = func() {
		clk.AfterFunc(10*time.Millisecond, func() {
			fired = append(fired, clk.Now())
			if len(fired) < 3 {
				arm()
			}
		})
	}
	arm()

	clk.Advance(100 * time.Millisecond)
	require.Len(t, fired, 3)
	assert.Equal(t, []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
	}, fired, "Timers armed inside callbacks fire within the same advance")
}

func TestSimClockStop(t *testing.T) {
	clk := hal.NewSimClock()

	fired := false
	timer := clk.AfterFunc(10*time.Millisecond, func() { fired = true })

	assert.True(t, timer.Stop(), "First stop reports the timer was pending")
	assert.False(t, timer.Stop(), "Second stop reports it was not")

	clk.Advance(50 * time.Millisecond)
	assert.False(t, fired, "Stopped timer must not fire")
}

func TestSimTriggerBankBounds(t *testing.T) {
	bank := hal.NewSimTriggerBank()

	require.NoError(t, bank.Set(0, true))
	require.NoError(t, bank.Set(hal.NumTriggers-1, true))

	err := bank.Set(hal.NumTriggers, true)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, hal.ErrInvalidOutput))

	err = bank.Set(-1, true)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, hal.ErrInvalidOutput))

	levels := bank.Levels()
	assert.True(t, levels[0])
	assert.True(t, levels[hal.NumTriggers-1])
	assert.False(t, levels[3])
}

func TestSimAnalogReaderFault(t *testing.T) {
	reader := hal.NewSimAnalogReader(2048)

	v, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, uint16(2048), v)

	reader.Fail(fmt.Errorf("adc busy"))
	_, err = reader.Read()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, hal.ErrReadFailed))

	reader.SetValue(100)
	v, err = reader.Read()
	require.NoError(t, err, "SetValue clears the injected fault")
	assert.Equal(t, uint16(100), v)
}

func TestSimEdgeSourceDetach(t *testing.T) {
	source := hal.NewSimEdgeSource()

	var edges []time.Duration
	source.OnRisingEdge(func(ts time.Duration) { edges = append(edges, ts) })

	source.Inject(100 * time.Millisecond)
	source.OnRisingEdge(nil)
	source.Inject(200 * time.Millisecond)

	require.Len(t, edges, 1, "Edges after detach are dropped")
	assert.Equal(t, 100*time.Millisecond, edges[0])
}
