package telemetry

import (
	"time"

	"github.com/rdorfner/EurorackSequencer/internal/errors"
)

const (
	// File system permissions and paths
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/eurorackseq/telemetry.db"
)

type Config struct {
	Enabled       bool
	DBPath        string
	BatchSize     int
	FlushInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		DBPath:        defaultDBPath,
		BatchSize:     16,
		FlushInterval: 5 * time.Second,
		Enabled:       false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Storage settings only matter when recording is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 1 {
		return errFactory.WithMessage(ErrInvalidBatching, "Batch size must be at least 1")
	}
	if c.FlushInterval <= 0 {
		return errFactory.WithMessage(ErrInvalidBatching, "Flush interval must be positive")
	}

	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
