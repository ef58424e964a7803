package bus

import "github.com/rdorfner/EurorackSequencer/internal/errors"

const (
	ErrInvalidCapacity = errors.ErrorCode("bus_invalid_capacity")
)
