package pid_test

import (
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdorfner/EurorackSequencer/internal/errors"
	"github.com/rdorfner/EurorackSequencer/internal/pid"
)

func TestWriteGuardsAgainstSecondInstance(t *testing.T) {
	require.NoError(t, pid.Remove())
	t.Cleanup(func() { _ = pid.Remove() })

	require.NoError(t, pid.Write())

	raw, err := os.ReadFile(pid.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(raw))

	// The holder is this very process, so a second write must refuse.
	err = pid.Write()
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrAlreadyRunning))

	require.NoError(t, pid.Remove())
	assert.NoError(t, pid.Remove(), "removing a missing file is fine")
}

func TestWriteReplacesCorruptFile(t *testing.T) {
	t.Cleanup(func() { _ = pid.Remove() })

	require.NoError(t, os.WriteFile(pid.Path(), []byte("not-a-pid"), 0o600))
	require.NoError(t, pid.Write())

	raw, err := os.ReadFile(pid.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), string(raw))
}
