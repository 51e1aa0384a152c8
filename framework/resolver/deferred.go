package resolver

import (
	"fmt"

	"github.com/km-arc/go-kernel/framework/container"
)

// Deferred holds a reference whose resolution waits until it is needed.
// Routes and middleware are often declared before the container is fully
// populated, so resolving at call time sees the final state.
type Deferred[T any] struct {
	ref       any
	container *container.Container
}

// Defer wraps ref for resolution through c's callableResolver entry.
func Defer[T any](ref any, c *container.Container) Deferred[T] {
	return Deferred[T]{ref: ref, container: c}
}

// Reference returns the wrapped reference.
func (d Deferred[T]) Reference() any { return d.ref }

// Resolve resolves the reference now.
//
// Without a container only references that already are a T (or a func
// convertible to one) resolve.
func (d Deferred[T]) Resolve() (T, error) {
	var zero T

	if d.container == nil || !d.container.Has(ContainerID) {
		if s, ok := d.ref.(string); ok {
			return zero, fmt.Errorf("%w: %q (no %s)", ErrUnresolvable, s, ContainerID)
		}
		return convert[T](d.ref)
	}

	r, err := container.Resolve[*Resolver](d.container, ContainerID)
	if err != nil {
		return zero, err
	}
	return Resolve[T](r, d.ref)
}
