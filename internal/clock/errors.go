package clock

import "github.com/rdorfner/EurorackSequencer/internal/errors"

const (
	ErrNilState       = errors.ErrorCode("clock_nil_state")
	ErrInvalidBounds  = errors.ErrorCode("clock_invalid_bpm_bounds")
	ErrInvalidTimeout = errors.ErrorCode("clock_invalid_timeout")
)
