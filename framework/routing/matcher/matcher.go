package matcher

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Status is the outcome of a dispatch.
type Status int

const (
	NotFound Status = iota
	Found
	MethodNotAllowed
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case MethodNotAllowed:
		return "method not allowed"
	}
	return "not found"
}

// Definition is all the engine knows about a route.
type Definition struct {
	ID      int
	Methods []string
	Pattern string
}

// Result is the answer for one (method, path) pair.
type Result struct {
	Status  Status
	RouteID int
	Params  map[string]string
	Allowed []string
}

// Dispatcher answers lookups against a compiled route table.
type Dispatcher interface {
	Dispatch(method, path string) Result
}

// Compiler builds a Dispatcher from a route table.
type Compiler func(routes []Definition) (Dispatcher, error)

// standardMethods are known to chi without registration.
var standardMethods = map[string]bool{
	http.MethodConnect: true,
	http.MethodDelete:  true,
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
	http.MethodPatch:   true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodTrace:   true,
}

// chiDispatcher matches with a chi radix tree and maps chi's matched pattern
// back to the route id.
type chiDispatcher struct {
	mux     *chi.Mux
	routes  map[string]int // "METHOD pattern" -> route id
	methods []string       // registered methods, in registration order
	known   map[string]bool
}

var noop = http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})

// Compile registers every variant of every route with a chi mux.
// Two routes may not match the same paths for the same method.
func Compile(routes []Definition) (d Dispatcher, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, fmt.Errorf("%w: %v", ErrBadPattern, r)
		}
	}()

	cd := &chiDispatcher{
		mux:    chi.NewRouter(),
		routes: make(map[string]int),
		known:  make(map[string]bool),
	}
	shapes := make(map[string]int)

	for _, route := range routes {
		variants, err := Parse(route.Pattern)
		if err != nil {
			return nil, err
		}
		for _, method := range route.Methods {
			method = strings.ToUpper(method)
			cd.addMethod(method)

			for _, v := range variants {
				key := method + " " + v.shape()
				if other, dup := shapes[key]; dup {
					return nil, fmt.Errorf("%w: %s %s (routes %d and %d)", ErrDuplicateRoute, method, route.Pattern, other, route.ID)
				}
				shapes[key] = route.ID

				pattern := v.Pattern()
				cd.mux.Method(method, pattern, noop)
				cd.routes[method+" "+pattern] = route.ID
			}
		}
	}
	return cd, nil
}

func (d *chiDispatcher) addMethod(method string) {
	if d.known[method] {
		return
	}
	if !standardMethods[method] {
		chi.RegisterMethod(method)
	}
	d.known[method] = true
	d.methods = append(d.methods, method)
}

// Dispatch looks up path for method. HEAD falls back to GET.
func (d *chiDispatcher) Dispatch(method, path string) Result {
	method = strings.ToUpper(method)

	if id, params, ok := d.find(method, path); ok {
		return Result{Status: Found, RouteID: id, Params: params}
	}
	if method == http.MethodHead {
		if id, params, ok := d.find(http.MethodGet, path); ok {
			return Result{Status: Found, RouteID: id, Params: params}
		}
	}

	var allowed []string
	for _, m := range d.methods {
		if m == method {
			continue
		}
		if _, _, ok := d.find(m, path); ok {
			allowed = append(allowed, m)
		}
	}
	if len(allowed) > 0 {
		return Result{Status: MethodNotAllowed, Allowed: allowed}
	}
	return Result{Status: NotFound}
}

func (d *chiDispatcher) find(method, path string) (int, map[string]string, bool) {
	if !d.known[method] {
		return 0, nil, false
	}

	rctx := chi.NewRouteContext()
	pattern := d.mux.Find(rctx, method, path)
	if pattern == "" {
		return 0, nil, false
	}
	id, ok := d.routes[method+" "+pattern]
	if !ok {
		return 0, nil, false
	}

	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, key := range rctx.URLParams.Keys {
		value := rctx.URLParams.Values[i]
		if decoded, err := url.PathUnescape(value); err == nil {
			value = decoded
		}
		params[key] = value
	}
	return id, params, true
}
