package routing

import (
	"slices"
	"sync"
)

// RouteGroup is a pattern prefix plus middleware shared by the routes
// registered inside it. Routes read the group's middleware when they first
// run, so middleware added after the group callback still applies.
type RouteGroup struct {
	pattern string

	mu         sync.RWMutex
	middleware []any
}

func newRouteGroup(pattern string) *RouteGroup {
	return &RouteGroup{pattern: pattern}
}

// Pattern returns the group's prefix.
func (g *RouteGroup) Pattern() string { return g.pattern }

// Add appends group middleware.
func (g *RouteGroup) Add(mw any) *RouteGroup {
	if mw == nil {
		panic("routing: nil middleware passed to RouteGroup.Add")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.middleware = append(g.middleware, mw)
	return g
}

// Middleware returns the group's middleware references.
func (g *RouteGroup) Middleware() []any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.middleware)
}
