package sequencer

import "github.com/rdorfner/EurorackSequencer/internal/errors"

const (
	ErrNilClock              = errors.ErrorCode("sequencer_nil_clock")
	ErrNilReader             = errors.ErrorCode("sequencer_nil_analog_reader")
	ErrNilBank               = errors.ErrorCode("sequencer_nil_trigger_bank")
	ErrInvalidPollInterval   = errors.ErrorCode("sequencer_invalid_poll_interval")
	ErrInvalidSampleInterval = errors.ErrorCode("sequencer_invalid_sample_interval")
	ErrInvalidStatusInterval = errors.ErrorCode("sequencer_invalid_status_interval")
	ErrInvalidQueueCapacity  = errors.ErrorCode("sequencer_invalid_queue_capacity")
)
