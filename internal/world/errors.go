package world

import "errors"

var (
	ErrUnknownBody  = errors.New("world: unknown or removed body")
	ErrUnknownJoint = errors.New("world: unknown or removed joint")
	ErrSelfJoint    = errors.New("world: joint connects a body to itself")
	ErrInvalidBody  = errors.New("world: body has non-finite state")
	ErrNotSpring    = errors.New("world: joint is not a spring")

	// ErrUnknownEasing indicates a force ramp easing name that is not registered.
	ErrUnknownEasing = errors.New("world: unknown easing")

	// ErrSnapshot indicates a snapshot that cannot be restored.
	ErrSnapshot = errors.New("world: invalid snapshot")
)
