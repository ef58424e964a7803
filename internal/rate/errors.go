package rate

import "github.com/rdorfner/EurorackSequencer/internal/errors"

const (
	ErrNilReader            = errors.ErrorCode("rate_nil_reader")
	ErrInvalidBounds        = errors.ErrorCode("rate_invalid_bpm_bounds")
	ErrInvalidObservedRange = errors.ErrorCode("rate_invalid_observed_range")
	ErrInvalidDecimation    = errors.ErrorCode("rate_invalid_decimation")
	ErrInvalidWindow        = errors.ErrorCode("rate_invalid_window")
	ErrInvalidThreshold     = errors.ErrorCode("rate_invalid_threshold")
	ErrInvalidRefresh       = errors.ErrorCode("rate_invalid_refresh")
)
