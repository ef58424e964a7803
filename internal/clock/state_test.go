package clock_test

import (
	"testing"

	"github.com/rdorfner/EurorackSequencer/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestNewSharedStateDefaults(t *testing.T) {
	state := clock.NewSharedState(15)

	snap := state.Snapshot()
	assert.InDelta(t, 15.0, snap.BPM, 0.001)
	assert.Equal(t, clock.SourceInternal, snap.Source)
	assert.False(t, snap.ExternalActive)
	assert.Equal(t, clock.Mask{}, snap.PatternMask)
	assert.Equal(t, uint64(0), snap.Version)
}

func TestSharedStateMaskVersioning(t *testing.T) {
	state := clock.NewSharedState(15)
	v0 := state.Version()

	locker := state.Locker()
	locker.Lock()
	state.SetPatternMaskLocked(clock.Mask{true, false, true})
	locker.Unlock()

	assert.Greater(t, state.Version(), v0, "Mutations bump the version")
	mask := state.PatternMask()
	assert.True(t, mask[0])
	assert.False(t, mask[1])
	assert.True(t, mask[2])

	locker.Lock()
	state.ClearPatternMaskLocked()
	locker.Unlock()

	assert.Equal(t, clock.Mask{}, state.PatternMask())
}
