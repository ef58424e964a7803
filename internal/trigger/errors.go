package trigger

import "github.com/rdorfner/EurorackSequencer/internal/errors"

const (
	ErrNilSharedState       = errors.ErrorCode("trigger_nil_shared_state")
	ErrNilBank              = errors.ErrorCode("trigger_nil_bank")
	ErrNilClock             = errors.ErrorCode("trigger_nil_clock")
	ErrInvalidPulseWidth    = errors.ErrorCode("trigger_invalid_pulse_width")
	ErrInvalidOutput        = errors.ErrorCode("trigger_invalid_output_index")
	ErrInvalidPatternLength = errors.ErrorCode("trigger_invalid_pattern_length")
)
