package hal

import "github.com/rdorfner/EurorackSequencer/internal/errors"

const (
	ErrInvalidOutput = errors.ErrorCode("hal_invalid_output_index")
	ErrReadFailed    = errors.ErrorCode("hal_analog_read_failed")
)
