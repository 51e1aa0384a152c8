package resolver

import (
	"errors"

	"github.com/km-arc/go-kernel/framework/container"
)

var (
	// ErrUnresolvable is returned when a name is neither in the container
	// nor in the constructor registry.
	ErrUnresolvable = errors.New("resolver: reference cannot be resolved")

	// ErrNotInvokable is returned when the resolved value cannot be used as
	// the requested callable type. It is the container's sentinel so both
	// packages match with errors.Is.
	ErrNotInvokable = container.ErrNotInvokable
)
