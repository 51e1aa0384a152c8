package routing

import (
	"errors"
	"fmt"
)

// ErrRouteNotFound is returned for unknown route ids and names. For ids it
// usually means a stale compiled route table.
var ErrRouteNotFound = errors.New("routing: route not found")

// MissingParameterError is returned by PathFor when data lacks a placeholder
// every variant of the route needs.
type MissingParameterError struct {
	Route string
	Name  string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("routing: missing data for URL segment %q of route %q", e.Name, e.Route)
}
