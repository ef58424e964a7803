package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/rdorfner/EurorackSequencer/internal/errors"
)

const pidFile = "eurorackseq.pid"

// Path returns the PID file location.
func Path() string {
	return filepath.Join(os.TempDir(), pidFile)
}

// Write records the current process ID in the PID file. It refuses when
// another live process already holds the file; a stale or corrupt file
// left behind by a crashed run is replaced.
func Write() error {
	errFactory := errors.New()
	path := Path()

	if other, held := holder(path); held {
		return errFactory.WithData(errors.ErrAlreadyRunning, other)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove removes the PID file.
func Remove() error {
	errFactory := errors.New()

	if err := os.Remove(Path()); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// holder reads the PID file and reports the recorded process if it is
// still alive. Unreadable contents count as stale.
func holder(path string) (int, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	other, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || other <= 0 {
		return 0, false
	}

	process, err := os.FindProcess(other)
	if err != nil {
		return 0, false
	}

	// Signal 0 probes for existence without delivering anything
	return other, process.Signal(syscall.Signal(0)) == nil
}
