package resolver

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/km-arc/go-kernel/framework/container"
)

// ContainerID is the id under which the kernel registers its Resolver.
const ContainerID = "callableResolver"

// Constructor builds a named service when the container does not hold it.
type Constructor func(c *container.Container) (any, error)

// methodName matches the method part of a "name:method" reference.
var methodName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Resolver turns symbolic references into callables.
//
// A reference is either a value already of the wanted type, a "name:method"
// string, or a bare "name". Names are looked up in the container first and
// then in the constructor registry.
//
//	r := resolver.New(c)
//	r.Register("UserController", func(c *container.Container) (any, error) {
//	    return &UserController{db: container.MustResolve[*sql.DB](c, "db")}, nil
//	})
//
//	h, err := resolver.Resolve[routing.Handler](r, "UserController:Show")
type Resolver struct {
	container    *container.Container
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// New returns a Resolver backed by c.
func New(c *container.Container) *Resolver {
	return &Resolver{
		container:    c,
		constructors: make(map[string]Constructor),
	}
}

// Container returns the backing container.
func (r *Resolver) Container() *container.Container { return r.container }

// Register adds a constructor for name, replacing any previous one.
func (r *Resolver) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[name] = ctor
}

// Registered reports whether a constructor exists for name.
func (r *Resolver) Registered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.constructors[name]
	return ok
}

// Resolve returns ref as a T.
//
// Non-string references are converted directly. For strings the named
// instance is fetched or constructed; with a ":method" suffix the bound
// method is returned, otherwise the instance itself.
func Resolve[T any](r *Resolver, ref any) (T, error) {
	var zero T

	if v, ok := ref.(T); ok {
		return v, nil
	}

	s, ok := ref.(string)
	if !ok {
		return convert[T](ref)
	}

	name, method := splitReference(s)
	instance, err := r.instance(name)
	if err != nil {
		return zero, err
	}

	if method == "" {
		return convert[T](instance)
	}

	rv := reflect.ValueOf(instance)
	if !rv.IsValid() {
		return zero, fmt.Errorf("%w: %q is nil", ErrNotInvokable, name)
	}
	bound := rv.MethodByName(method)
	if !bound.IsValid() {
		return zero, fmt.Errorf("%w: %q has no method %s", ErrNotInvokable, name, method)
	}
	return convert[T](bound.Interface())
}

// instance fetches name from the container, falling back to a constructor.
func (r *Resolver) instance(name string) (any, error) {
	if r.container != nil && r.container.Has(name) {
		return r.container.Get(name)
	}

	r.mu.RLock()
	ctor, ok := r.constructors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnresolvable, name)
	}

	v, err := ctor(r.container)
	if err != nil {
		return nil, fmt.Errorf("resolver: construct %q: %w", name, err)
	}
	return v, nil
}

func splitReference(s string) (name, method string) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 || !methodName.MatchString(s[i+1:]) {
		return s, ""
	}
	return s[:i], s[i+1:]
}

// convert returns v as a T, converting func values whose signature matches
// T's underlying type.
func convert[T any](v any) (T, error) {
	var zero T
	if t, ok := v.(T); ok {
		return t, nil
	}

	rv := reflect.ValueOf(v)
	target := reflect.TypeFor[T]()
	if rv.IsValid() && rv.Kind() == reflect.Func && target.Kind() == reflect.Func &&
		rv.Type().ConvertibleTo(target) {
		return rv.Convert(target).Interface().(T), nil
	}
	return zero, fmt.Errorf("%w: %T is not a %s", ErrNotInvokable, v, target)
}
