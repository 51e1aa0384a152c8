package routing

import (
	"maps"
	"slices"
	"sync"

	"github.com/km-arc/go-kernel/framework/container"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/middleware"
	"github.com/km-arc/go-kernel/framework/resolver"
)

// ArgumentsAttribute is the request attribute holding the matched route
// arguments.
const ArgumentsAttribute = "routeArguments"

// Handler handles a matched route. args holds the route's placeholders,
// URL-decoded, merged over its default arguments.
type Handler func(req *gohttp.Request, res *gohttp.Response, args map[string]string) (*gohttp.Response, error)

// Route is one registered methods + pattern + handler association.
type Route struct {
	id        int
	methods   []string
	pattern   string
	handler   any
	groups    []*RouteGroup
	container *container.Container

	mu         sync.RWMutex
	name       string
	arguments  map[string]string
	middleware []any

	finalize    sync.Once
	finalized   bool
	finalizeErr error
	pipeline    *middleware.Pipeline
}

func newRoute(id int, methods []string, pattern string, handler any, groups []*RouteGroup) *Route {
	r := &Route{
		id:        id,
		methods:   methods,
		pattern:   pattern,
		handler:   handler,
		groups:    groups,
		arguments: map[string]string{},
	}
	r.pipeline = middleware.New(r.invoke)
	return r
}

func (r *Route) ID() int               { return r.id }
func (r *Route) Methods() []string     { return slices.Clone(r.methods) }
func (r *Route) Pattern() string       { return r.pattern }
func (r *Route) Handler() any          { return r.handler }
func (r *Route) Groups() []*RouteGroup { return slices.Clone(r.groups) }

// Name returns the route name, empty when unnamed.
func (r *Route) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

// SetName names the route for URL building.
func (r *Route) SetName(name string) *Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name = name
	return r
}

// SetContainer sets the container used to resolve string references.
func (r *Route) SetContainer(c *container.Container) *Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.container = c
	return r
}

// ── Arguments ────────────────────────────────────────────────────────────────

// SetArgument sets a default argument, overridden by a matched placeholder
// of the same name.
func (r *Route) SetArgument(name, value string) *Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.arguments[name] = value
	return r
}

// SetArguments replaces all default arguments.
func (r *Route) SetArguments(args map[string]string) *Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.arguments = maps.Clone(args)
	if r.arguments == nil {
		r.arguments = map[string]string{}
	}
	return r
}

// Argument returns a default argument or fallback.
func (r *Route) Argument(name string, fallback ...string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if v, ok := r.arguments[name]; ok {
		return v
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return ""
}

// DefaultArguments returns a copy of the default arguments.
func (r *Route) DefaultArguments() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.arguments)
}

// Prepare returns req carrying params merged over the default arguments.
func (r *Route) Prepare(req *gohttp.Request, params map[string]string) *gohttp.Request {
	args := r.DefaultArguments()
	maps.Copy(args, params)
	return req.WithAttribute(ArgumentsAttribute, args)
}

// Arguments returns the route arguments carried by req.
func Arguments(req *gohttp.Request) map[string]string {
	args, _ := req.Attribute(ArgumentsAttribute).(map[string]string)
	return maps.Clone(args)
}

// Param returns one route argument carried by req.
func Param(req *gohttp.Request, key string) string {
	args, _ := req.Attribute(ArgumentsAttribute).(map[string]string)
	return args[key]
}

// ── Middleware ───────────────────────────────────────────────────────────────

// Add appends route middleware: a middleware.Frame, a func literal with its
// signature, or a "name:method" reference. It panics once the route has run.
func (r *Route) Add(mw any) *Route {
	if mw == nil {
		panic("routing: nil middleware passed to Add")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		panic("routing: middleware added to route " + r.pattern + " after it ran")
	}
	r.middleware = append(r.middleware, mw)
	return r
}

// Middleware returns the route's own middleware references.
func (r *Route) Middleware() []any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.middleware)
}

// Finalize builds the route pipeline once: route middleware first, then the
// middleware of each enclosing group from innermost to outermost. Later
// additions run earlier, so outer groups wrap inner groups, which wrap the
// route's own middleware.
func (r *Route) Finalize() error {
	r.finalize.Do(func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.finalized = true

		refs := slices.Clone(r.middleware)
		for _, g := range slices.Backward(r.groups) {
			refs = append(refs, g.Middleware()...)
		}
		for _, ref := range refs {
			if err := r.pipeline.Add(middleware.Defer(ref, r.container)); err != nil {
				r.finalizeErr = err
				return
			}
		}
	})
	return r.finalizeErr
}

// Run finalizes the route and dispatches req through its middleware to the
// handler.
func (r *Route) Run(req *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error) {
	if err := r.Finalize(); err != nil {
		return nil, err
	}
	return r.pipeline.Dispatch(req, res)
}

// invoke is the innermost frame: it resolves and calls the handler. A
// handler returning neither response nor error leaves res unchanged.
func (r *Route) invoke(req *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error) {
	r.mu.RLock()
	c := r.container
	r.mu.RUnlock()

	h, err := resolver.Defer[Handler](r.handler, c).Resolve()
	if err != nil {
		return nil, err
	}

	out, err := h(req, res, Arguments(req))
	if err == nil && out == nil {
		return res, nil
	}
	return out, err
}
