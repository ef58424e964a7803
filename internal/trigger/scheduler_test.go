package trigger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdorfner/EurorackSequencer/internal/clock"
	"github.com/rdorfner/EurorackSequencer/internal/errors"
	"github.com/rdorfner/EurorackSequencer/internal/hal"
	"github.com/rdorfner/EurorackSequencer/internal/logger"
	"github.com/rdorfner/EurorackSequencer/internal/trigger"
)

type testRig struct {
	sched *trigger.Scheduler
	state *clock.SharedState
	bank  *hal.SimTriggerBank
	clk   *hal.SimClock
	sink  *hal.CaptureFeedback
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	state := clock.NewSharedState(120)
	bank := hal.NewSimTriggerBank()
	clk := hal.NewSimClock()
	sink := hal.NewCaptureFeedback()

	sched, err := trigger.NewScheduler(trigger.Config{PulseWidth: 50 * time.Millisecond},
		state, bank, clk, sink, logger.Default())
	require.NoError(t, err)

	return &testRig{sched: sched, state: state, bank: bank, clk: clk, sink: sink}
}

func tickAt(ts time.Duration) clock.Tick {
	return clock.Tick{Timestamp: ts, Source: clock.SourceInternal, BPM: 120}
}

func TestNewSchedulerValidation(t *testing.T) {
	state := clock.NewSharedState(120)
	bank := hal.NewSimTriggerBank()
	clk := hal.NewSimClock()
	cfg := trigger.Config{PulseWidth: 50 * time.Millisecond}
	log := logger.Default()

	tests := []struct {
		name  string
		setup func() (*trigger.Scheduler, error)
		code  errors.ErrorCode
	}{
		{
			name: "nil shared state",
			setup: func() (*trigger.Scheduler, error) {
				return trigger.NewScheduler(cfg, nil, bank, clk, nil, log)
			},
			code: trigger.ErrNilSharedState,
		},
		{
			name: "nil bank",
			setup: func() (*trigger.Scheduler, error) {
				return trigger.NewScheduler(cfg, state, nil, clk, nil, log)
			},
			code: trigger.ErrNilBank,
		},
		{
			name: "nil clock",
			setup: func() (*trigger.Scheduler, error) {
				return trigger.NewScheduler(cfg, state, bank, nil, nil, log)
			},
			code: trigger.ErrNilClock,
		},
		{
			name: "zero pulse width",
			setup: func() (*trigger.Scheduler, error) {
				return trigger.NewScheduler(trigger.Config{}, state, bank, clk, nil, log)
			},
			code: trigger.ErrInvalidPulseWidth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched, err := tt.setup()
			require.Error(t, err)
			assert.Nil(t, sched)
			assert.True(t, errors.IsCode(err, tt.code))
		})
	}
}

func TestScheduledOutputFiresOnceThenClears(t *testing.T) {
	rig := newTestRig(t)
	rig.sched.Start()

	require.NoError(t, rig.sched.ScheduleTrigger(2, true))
	rig.clk.Advance(500 * time.Millisecond)
	rig.sched.OnTick(tickAt(500 * time.Millisecond))

	assert.True(t, rig.bank.Levels()[2])
	states := rig.sched.States()
	assert.True(t, states[2].Active)
	assert.Equal(t, uint64(1), states[2].Count)
	assert.Equal(t, 500*time.Millisecond, states[2].ActivationTime)
	assert.Equal(t, clock.Mask{}, rig.sched.Scheduled())
	assert.Equal(t, []hal.Notification{{Index: 2, Active: true}}, rig.sink.Events())

	// Output stays high until exactly the pulse width has elapsed.
	rig.clk.Advance(49 * time.Millisecond)
	assert.True(t, rig.bank.Levels()[2])

	rig.clk.Advance(1 * time.Millisecond)
	assert.False(t, rig.bank.Levels()[2])
	assert.False(t, rig.sched.States()[2].Active)
	assert.Equal(t, []hal.Notification{
		{Index: 2, Active: true},
		{Index: 2, Active: false},
	}, rig.sink.Events())

	// Without rescheduling, the next tick fires nothing.
	rig.sched.OnTick(tickAt(1000 * time.Millisecond))
	assert.Equal(t, uint64(1), rig.sched.States()[2].Count)
	assert.Len(t, rig.sink.Events(), 2)
}

func TestAlternatingMaskFiresEvenOutputs(t *testing.T) {
	rig := newTestRig(t)
	rig.sched.Start()

	mask := clock.Mask{true, false, true, false, true, false, true}
	rig.sched.ScheduleTriggers(mask)
	rig.sched.OnTick(tickAt(0))

	levels := rig.bank.Levels()
	for i, want := range mask {
		assert.Equal(t, want, levels[i], "output %d", i)
	}
	assert.Equal(t, []hal.Notification{
		{Index: 0, Active: true},
		{Index: 2, Active: true},
		{Index: 4, Active: true},
		{Index: 6, Active: true},
	}, rig.sink.Events())

	rig.clk.Advance(50 * time.Millisecond)

	levels = rig.bank.Levels()
	states := rig.sched.States()
	for i := 0; i < hal.NumTriggers; i++ {
		assert.False(t, levels[i], "output %d", i)
		assert.False(t, states[i].Active, "output %d", i)
		if mask[i] {
			assert.Equal(t, uint64(1), states[i].Count, "output %d", i)
		} else {
			assert.Zero(t, states[i].Count, "output %d", i)
		}
	}
	assert.Len(t, rig.sink.Events(), 8)
}

func TestRefireExtendsPulse(t *testing.T) {
	rig := newTestRig(t)
	rig.sched.Start()

	require.NoError(t, rig.sched.ScheduleTrigger(0, true))
	rig.sched.OnTick(tickAt(0))
	assert.True(t, rig.bank.Levels()[0])

	// A second fire before the reset replaces the pending timer, so the
	// pulse runs from the later tick.
	rig.clk.Advance(30 * time.Millisecond)
	require.NoError(t, rig.sched.ScheduleTrigger(0, true))
	rig.sched.OnTick(tickAt(30 * time.Millisecond))

	assert.Equal(t, uint64(2), rig.sched.States()[0].Count)
	assert.Equal(t, []hal.Notification{{Index: 0, Active: true}}, rig.sink.Events())

	rig.clk.Advance(20 * time.Millisecond)
	assert.True(t, rig.bank.Levels()[0], "pulse must not end early")

	rig.clk.Advance(30 * time.Millisecond)
	assert.False(t, rig.bank.Levels()[0])
	assert.Equal(t, []hal.Notification{
		{Index: 0, Active: true},
		{Index: 0, Active: false},
	}, rig.sink.Events())
}

func TestPatternPlaysWithOneTickLatency(t *testing.T) {
	rig := newTestRig(t)
	rig.sched.Start()

	steps := []clock.Mask{
		{true, false, false, false, false, false, false},
		{false, true, false, false, false, false, false},
	}
	rig.sched.SetPattern(steps)
	rig.sched.EnablePattern(true)

	// The first tick only arms the first step.
	rig.sched.OnTick(tickAt(0))
	assert.Equal(t, [hal.NumTriggers]bool{}, rig.bank.Levels())
	assert.Equal(t, steps[0], rig.sched.Scheduled())

	rig.clk.Advance(500 * time.Millisecond)
	rig.sched.OnTick(tickAt(500 * time.Millisecond))
	assert.True(t, rig.bank.Levels()[0])
	assert.False(t, rig.bank.Levels()[1])

	rig.clk.Advance(500 * time.Millisecond)
	rig.sched.OnTick(tickAt(1000 * time.Millisecond))
	assert.False(t, rig.bank.Levels()[0])
	assert.True(t, rig.bank.Levels()[1])

	// The pattern wraps back to the first step.
	rig.clk.Advance(500 * time.Millisecond)
	rig.sched.OnTick(tickAt(1500 * time.Millisecond))
	assert.True(t, rig.bank.Levels()[0])
	assert.False(t, rig.bank.Levels()[1])

	stats := rig.sched.Stats()
	assert.True(t, stats.PatternOn)
	assert.Equal(t, 2, stats.PatternSteps)
	assert.Equal(t, uint64(4), stats.TickCount)
}

func TestDisabledPatternStopsAdvancing(t *testing.T) {
	rig := newTestRig(t)
	rig.sched.Start()

	rig.sched.SetPattern([]clock.Mask{{true, false, false, false, false, false, false}})
	rig.sched.EnablePattern(true)
	rig.sched.OnTick(tickAt(0))
	require.Equal(t, clock.Mask{true}, rig.sched.Scheduled())

	rig.sched.EnablePattern(false)

	// The already armed step still fires, but nothing is armed after it.
	rig.clk.Advance(500 * time.Millisecond)
	rig.sched.OnTick(tickAt(500 * time.Millisecond))
	assert.True(t, rig.bank.Levels()[0])
	assert.Equal(t, clock.Mask{}, rig.sched.Scheduled())

	rig.clk.Advance(500 * time.Millisecond)
	rig.sched.OnTick(tickAt(1000 * time.Millisecond))
	assert.Equal(t, uint64(1), rig.sched.States()[0].Count)
}

func TestStopForcesOutputsLow(t *testing.T) {
	rig := newTestRig(t)
	rig.sched.Start()

	rig.sched.ScheduleTriggers(clock.Mask{true, false, false, true, false, false, false})
	rig.sched.OnTick(tickAt(0))
	require.True(t, rig.bank.Levels()[0])
	require.True(t, rig.bank.Levels()[3])

	rig.sched.Stop()

	assert.Equal(t, [hal.NumTriggers]bool{}, rig.bank.Levels())
	assert.Equal(t, []hal.Notification{
		{Index: 0, Active: true},
		{Index: 3, Active: true},
		{Index: 0, Active: false},
		{Index: 3, Active: false},
	}, rig.sink.Events())

	// The pending pulse reset was cancelled with the scheduler.
	rig.clk.Advance(100 * time.Millisecond)
	assert.Len(t, rig.sink.Events(), 4)

	rig.sched.Stop()
	assert.Len(t, rig.sink.Events(), 4)

	// Ticks received while stopped are ignored.
	rig.sched.ScheduleTriggers(clock.Mask{true})
	rig.sched.OnTick(tickAt(200 * time.Millisecond))
	assert.Equal(t, [hal.NumTriggers]bool{}, rig.bank.Levels())
	assert.Equal(t, uint64(1), rig.sched.States()[0].Count)
}

func TestScheduleTriggerRejectsBadIndex(t *testing.T) {
	rig := newTestRig(t)

	for _, index := range []int{-1, hal.NumTriggers} {
		err := rig.sched.ScheduleTrigger(index, true)
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, trigger.ErrInvalidOutput))
	}

	assert.Equal(t, clock.Mask{}, rig.sched.Scheduled())
}

func TestResetStatsKeepsLiveOutputs(t *testing.T) {
	rig := newTestRig(t)
	rig.sched.Start()

	require.NoError(t, rig.sched.ScheduleTrigger(1, true))
	rig.sched.OnTick(tickAt(0))
	require.True(t, rig.sched.States()[1].Active)

	rig.sched.ResetStats()

	stats := rig.sched.Stats()
	assert.Zero(t, stats.TickCount)
	assert.Zero(t, stats.States[1].Count)
	assert.Zero(t, stats.States[1].ActivationTime)
	assert.True(t, stats.States[1].Active, "reset must not touch a live pulse")
	assert.True(t, rig.bank.Levels()[1])

	// The pulse still ends on schedule after the reset.
	rig.clk.Advance(50 * time.Millisecond)
	assert.False(t, rig.bank.Levels()[1])
}
