package routing

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/km-arc/go-kernel/framework/container"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/routing/matcher"
)

// ContainerID is the id under which the kernel registers its Router.
const ContainerID = "router"

// anyMethods are the methods Any registers.
var anyMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}

// Router stores routes and groups and delegates matching to a compiled
// matcher.Dispatcher.
//
// Routes must be registered before serving starts. The dispatcher is
// compiled on the first Dispatch after a change.
type Router struct {
	mu         sync.Mutex
	routes     []*Route
	counter    int
	groups     []*RouteGroup
	basePath   string
	container  *container.Container
	compile    matcher.Compiler
	dispatcher matcher.Dispatcher
}

// New returns an empty Router using matcher.Compile.
func New() *Router {
	return &Router{compile: matcher.Compile}
}

// SetContainer sets the container given to routes registered afterwards.
func (r *Router) SetContainer(c *container.Container) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.container = c
	return r
}

// SetBasePath sets the prefix PathFor adds to built URLs.
func (r *Router) SetBasePath(basePath string) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.basePath = strings.TrimRight(basePath, "/")
	return r
}

// BasePath returns the configured base path.
func (r *Router) BasePath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.basePath
}

// SetEngine replaces the matching engine.
func (r *Router) SetEngine(compile matcher.Compiler) *Router {
	if compile == nil {
		panic("routing: nil compiler passed to SetEngine")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.compile = compile
	r.dispatcher = nil
	return r
}

// ── Registration ─────────────────────────────────────────────────────────────

// Map registers handler for methods and pattern. The pattern is prefixed
// with the patterns of all active groups.
//
// handler is a Handler, a func literal with Handler's signature, or a
// "name:method" reference resolved when the route runs.
func (r *Router) Map(methods []string, pattern string, handler any) *Route {
	if handler == nil {
		panic("routing: nil handler passed to Map")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	upper := make([]string, len(methods))
	for i, m := range methods {
		upper[i] = strings.ToUpper(m)
	}

	var prefix strings.Builder
	for _, g := range r.groups {
		prefix.WriteString(g.pattern)
	}

	route := newRoute(r.counter, upper, prefix.String()+pattern, handler, slices.Clone(r.groups))
	route.container = r.container
	r.counter++

	r.routes = append(r.routes, route)
	r.dispatcher = nil
	return route
}

func (r *Router) Get(pattern string, h any) *Route    { return r.Map([]string{"GET"}, pattern, h) }
func (r *Router) Post(pattern string, h any) *Route   { return r.Map([]string{"POST"}, pattern, h) }
func (r *Router) Put(pattern string, h any) *Route    { return r.Map([]string{"PUT"}, pattern, h) }
func (r *Router) Patch(pattern string, h any) *Route  { return r.Map([]string{"PATCH"}, pattern, h) }
func (r *Router) Delete(pattern string, h any) *Route { return r.Map([]string{"DELETE"}, pattern, h) }

func (r *Router) Options(pattern string, h any) *Route {
	return r.Map([]string{"OPTIONS"}, pattern, h)
}

// Any registers h for all common HTTP methods.
func (r *Router) Any(pattern string, h any) *Route { return r.Map(anyMethods, pattern, h) }

// ── Groups ───────────────────────────────────────────────────────────────────

// Group runs fn with a group for pattern pushed, so routes registered by fn
// are prefixed with it. Middleware added to the returned group applies to
// every route inside it.
//
//	r.Group("/v1", func(r *routing.Router) {
//	    r.Group("/users", func(r *routing.Router) {
//	        r.Get("/{id}", show) // /v1/users/{id}
//	    })
//	}).Add(auth)
func (r *Router) Group(pattern string, fn func(r *Router)) *RouteGroup {
	if fn == nil {
		panic("routing: nil function passed to Group")
	}
	group := r.PushGroup(pattern)
	defer r.PopGroup()
	fn(r)
	return group
}

// PushGroup pushes a group onto the stack.
func (r *Router) PushGroup(pattern string) *RouteGroup {
	r.mu.Lock()
	defer r.mu.Unlock()
	group := newRouteGroup(pattern)
	r.groups = append(r.groups, group)
	return group
}

// PopGroup pops the innermost group, returning nil when none is active.
func (r *Router) PopGroup() *RouteGroup {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.groups) == 0 {
		return nil
	}
	group := r.groups[len(r.groups)-1]
	r.groups = r.groups[:len(r.groups)-1]
	return group
}

// ── Resource routes ──────────────────────────────────────────────────────────

// ResourceController handles the standard RESTful actions of a resource.
type ResourceController interface {
	Index(req *gohttp.Request, res *gohttp.Response, args map[string]string) (*gohttp.Response, error)
	Store(req *gohttp.Request, res *gohttp.Response, args map[string]string) (*gohttp.Response, error)
	Show(req *gohttp.Request, res *gohttp.Response, args map[string]string) (*gohttp.Response, error)
	Update(req *gohttp.Request, res *gohttp.Response, args map[string]string) (*gohttp.Response, error)
	Destroy(req *gohttp.Request, res *gohttp.Response, args map[string]string) (*gohttp.Response, error)
}

// Resource registers the RESTful routes of c under pattern:
//
//	GET       /photos        -> c.Index
//	POST      /photos        -> c.Store
//	GET       /photos/{id}   -> c.Show
//	PUT|PATCH /photos/{id}   -> c.Update
//	DELETE    /photos/{id}   -> c.Destroy
func (r *Router) Resource(pattern string, c ResourceController) []*Route {
	item := pattern + "/{id}"
	return []*Route{
		r.Get(pattern, Handler(c.Index)),
		r.Post(pattern, Handler(c.Store)),
		r.Get(item, Handler(c.Show)),
		r.Map([]string{"PUT", "PATCH"}, item, Handler(c.Update)),
		r.Delete(item, Handler(c.Destroy)),
	}
}

// ── Lookup ───────────────────────────────────────────────────────────────────

// Dispatch matches the request's method and path.
func (r *Router) Dispatch(req *gohttp.Request) (matcher.Result, error) {
	d, err := r.compiled()
	if err != nil {
		return matcher.Result{}, err
	}
	path := "/" + strings.TrimLeft(req.EscapedPath(), "/")
	return d.Dispatch(req.Method(), path), nil
}

func (r *Router) compiled() (matcher.Dispatcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dispatcher != nil {
		return r.dispatcher, nil
	}

	defs := make([]matcher.Definition, len(r.routes))
	for i, route := range r.routes {
		defs[i] = matcher.Definition{ID: route.id, Methods: route.methods, Pattern: route.pattern}
	}
	d, err := r.compile(defs)
	if err != nil {
		return nil, fmt.Errorf("routing: compile routes: %w", err)
	}
	r.dispatcher = d
	return d, nil
}

// LookupRoute returns the route with id. An unknown id means the dispatcher
// is stale.
func (r *Router) LookupRoute(id int) (*Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, route := range r.routes {
		if route.id == id {
			return route, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", ErrRouteNotFound, id)
}

// NamedRoute returns the route called name.
func (r *Router) NamedRoute(name string) (*Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, route := r.named(name)
	if route == nil {
		return nil, fmt.Errorf("%w: %q", ErrRouteNotFound, name)
	}
	return route, nil
}

// RemoveNamedRoute unregisters the route called name.
func (r *Router) RemoveNamedRoute(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, route := r.named(name)
	if route == nil {
		return fmt.Errorf("%w: %q", ErrRouteNotFound, name)
	}
	r.routes = slices.Delete(r.routes, i, i+1)
	r.dispatcher = nil
	return nil
}

func (r *Router) named(name string) (int, *Route) {
	for i, route := range r.routes {
		if route.Name() == name {
			return i, route
		}
	}
	return -1, nil
}

// Routes returns the registered routes in registration order.
func (r *Router) Routes() []*Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.routes)
}

// ── URL building ─────────────────────────────────────────────────────────────

// RelativePathFor builds the path of the named route from data, without the
// base path. Optional parts are kept as long as data covers them; the most
// specific variant that data satisfies wins. Values are inserted verbatim,
// so a catch-all such as {path:.+} can span segments; escaping is up to the
// caller.
//
//	r.Get("/archive/{year}[/{month}]", h).SetName("archive")
//	r.RelativePathFor("archive", map[string]string{"year": "2024"}, nil)
//	// "/archive/2024"
func (r *Router) RelativePathFor(name string, data map[string]string, query url.Values) (string, error) {
	route, err := r.NamedRoute(name)
	if err != nil {
		return "", err
	}

	variants, err := matcher.Parse(route.Pattern())
	if err != nil {
		return "", err
	}

	var (
		path    string
		missing string
		built   bool
	)
	for _, v := range slices.Backward(variants) {
		path, missing, built = build(v, data)
		if built {
			break
		}
	}
	if !built {
		return "", &MissingParameterError{Route: name, Name: missing}
	}

	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return path, nil
}

// PathFor is RelativePathFor prefixed with the base path.
func (r *Router) PathFor(name string, data map[string]string, query url.Values) (string, error) {
	path, err := r.RelativePathFor(name, data, query)
	if err != nil {
		return "", err
	}
	return r.BasePath() + path, nil
}

// build fills v from data, reporting the first placeholder data lacks.
func build(v matcher.Variant, data map[string]string) (path, missing string, ok bool) {
	var b strings.Builder
	for _, s := range v {
		if !s.IsParam() {
			b.WriteString(s.Literal)
			continue
		}
		value, found := data[s.Name]
		if !found {
			return "", s.Name, false
		}
		b.WriteString(value)
	}
	return b.String(), "", true
}
