package config

import "github.com/rdorfner/EurorackSequencer/internal/errors"

const (
	ErrReadConfigFile       = errors.ErrorCode("config_read_file_failed")
	ErrBindFlags            = errors.ErrorCode("config_bind_flags_failed")
	ErrUnmarshalConfig      = errors.ErrorCode("config_unmarshal_failed")
	ErrInvalidLogLevel      = errors.ErrorCode("config_invalid_log_level")
	ErrInvalidBPMRange      = errors.ErrorCode("config_invalid_bpm_range")
	ErrInvalidObservedRange = errors.ErrorCode("config_invalid_observed_range")
	ErrInvalidPulseWidth    = errors.ErrorCode("config_invalid_pulse_width")
	ErrInvalidTimeout       = errors.ErrorCode("config_invalid_timeout")
	ErrInvalidInterval      = errors.ErrorCode("config_invalid_interval")
	ErrInvalidDecimation    = errors.ErrorCode("config_invalid_decimation")
	ErrInvalidWindow        = errors.ErrorCode("config_invalid_window")
	ErrInvalidThreshold     = errors.ErrorCode("config_invalid_threshold")
	ErrInvalidQueueCap      = errors.ErrorCode("config_invalid_queue_capacity")
	ErrInvalidPattern       = errors.ErrorCode("config_invalid_pattern")
)
