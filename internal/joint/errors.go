package joint

import "errors"

var (
	ErrNegativeRestLength = errors.New("joint: rest length must be non-negative")
	ErrNegativeStiffness  = errors.New("joint: stiffness must be non-negative")
	ErrNegativeDamping    = errors.New("joint: damping must be non-negative")
	ErrNegativeLimit      = errors.New("joint: limit lengths must be non-negative")
	ErrInvertedLimits     = errors.New("joint: minimum length exceeds maximum length")

	// ErrNonFinite indicates a NaN or infinite configuration value.
	ErrNonFinite = errors.New("joint: value is not finite")

	// ErrStaleHandle indicates a joint handle whose joint was removed.
	ErrStaleHandle = errors.New("joint: stale or unknown handle")
)
