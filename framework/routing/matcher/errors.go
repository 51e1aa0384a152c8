package matcher

import "errors"

var (
	// ErrBadPattern is returned for patterns that cannot be parsed or
	// registered.
	ErrBadPattern = errors.New("matcher: bad route pattern")

	// ErrDuplicateRoute is returned when two routes match the same paths
	// for the same method.
	ErrDuplicateRoute = errors.New("matcher: duplicate route")
)
