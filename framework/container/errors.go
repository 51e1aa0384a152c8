package container

import "errors"

// Sentinel errors for container operations.
var (
	// ErrNotDefined is returned when an id was never set.
	ErrNotDefined = errors.New("container: identifier is not defined")

	// ErrFrozen is returned when writing to a shared service that has
	// already been resolved.
	ErrFrozen = errors.New("container: cannot override frozen service")

	// ErrNotInvokable is returned when factory, protect or extend receive
	// something that is not a definition.
	ErrNotInvokable = errors.New("container: definition is not invokable")

	// ErrCircular is returned when a definition depends on its own id,
	// directly or through other entries.
	ErrCircular = errors.New("container: circular dependency")
)
