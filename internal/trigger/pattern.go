package trigger

import (
	"github.com/rdorfner/EurorackSequencer/internal/clock"
	"github.com/rdorfner/EurorackSequencer/internal/errors"
	"github.com/rdorfner/EurorackSequencer/internal/hal"
)

// PatternFromString builds a step sequence from a rhythm string. Each
// character is one step; a '1' fires every output on that step, anything
// else is a rest.
func PatternFromString(rhythm string) []clock.Mask {
	steps := make([]clock.Mask, 0, len(rhythm))
	for _, ch := range rhythm {
		var step clock.Mask
		if ch == '1' {
			for i := range step {
				step[i] = true
			}
		}
		steps = append(steps, step)
	}
	return steps
}

// AlternatingPattern builds a sequence of the given length that fires a
// single output on every even step.
func AlternatingPattern(output, length int) ([]clock.Mask, error) {
	errFactory := errors.New()
	if output < 0 || output >= hal.NumTriggers {
		return nil, errFactory.WithMessage(ErrInvalidOutput,
			"Trigger output index out of range")
	}
	if length < 1 {
		return nil, errFactory.WithMessage(ErrInvalidPatternLength,
			"Pattern length must be at least 1")
	}

	steps := make([]clock.Mask, length)
	for i := 0; i < length; i += 2 {
		steps[i][output] = true
	}
	return steps, nil
}
