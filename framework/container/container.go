package container

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// ── Definition types ──────────────────────────────────────────────────────────

// Definition builds a service from the container. It is the only kind of
// value the container treats as invocable.
//
//	c.Set("mailer", container.Definition(func(c *container.Container) (any, error) {
//	    cfg, err := container.Resolve[*config.Settings](c, "settings")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return mail.New(cfg), nil
//	}))
type Definition func(c *Container) (any, error)

// Decorator wraps the value produced by an existing definition.
type Decorator func(current any, c *Container) (any, error)

// Kind classifies how an entry is resolved.
type Kind uint8

const (
	// KindValue entries are returned verbatim.
	KindValue Kind = iota
	// KindShared entries are invoked once, then cached and frozen.
	KindShared
	// KindFactory entries are invoked on every Get.
	KindFactory
	// KindProtected entries hold a Definition that is returned uninvoked.
	KindProtected
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindShared:
		return "shared"
	case KindFactory:
		return "factory"
	case KindProtected:
		return "protected"
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Marked is a Definition tagged as factory or protected.
// Obtain one through Container.Factory or Container.Protect and pass it to Set.
type Marked struct {
	def  Definition
	kind Kind
}

// Kind returns the marking.
func (m Marked) Kind() Kind { return m.kind }

// Definition returns the wrapped definition.
func (m Marked) Definition() Definition { return m.def }

// entry is one registered id.
type entry struct {
	value  any        // plain value, or the cached instance once frozen
	def    Definition // set for shared/factory/protected
	raw    Definition // original definition kept after first shared resolution
	kind   Kind
	frozen bool
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is a lazy, memoizing service container.
//
// Invocable definitions are singletons by default: the first Get invokes
// the definition, caches the result and freezes the id so it can no longer
// be overwritten. Factory and Protect opt single definitions out of that.
//
// A definition receives a view of the container that remembers which ids
// are being resolved, so a definition depending on itself, directly or
// through others, fails with ErrCircular instead of waiting on itself.
type Container struct {
	*registry
	chain *resolution
}

type registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	flight  singleflight.Group
}

// resolution is one link of the chain of ids a definition runs under. It
// stops counting once its definition has returned, so views captured by
// services do not report stale cycles.
type resolution struct {
	id     string
	parent *resolution
	done   atomic.Bool
}

// New creates a container, optionally pre-populated with values.
// Each value goes through Set, so Definitions become shared services.
func New(values ...map[string]any) *Container {
	c := &Container{registry: &registry{entries: make(map[string]*entry)}}
	for _, m := range values {
		for id, v := range m {
			// a fresh container has nothing frozen
			_ = c.Set(id, v)
		}
	}
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// Set stores v under id, replacing any unfrozen entry.
//
//	c.Set("db.dsn", "postgres://localhost/app") // plain value
//	c.Set("db", container.Definition(openDB))   // shared service
//
//	tx, _ := c.Factory(newTx)
//	c.Set("tx", tx) // new instance per Get
func (c *Container) Set(id string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[id]; ok && e.frozen {
		return fmt.Errorf("%w: %q", ErrFrozen, id)
	}
	c.entries[id] = newEntry(v)
	return nil
}

func newEntry(v any) *entry {
	switch d := v.(type) {
	case Marked:
		return &entry{def: d.def, kind: d.kind}
	case *Marked:
		if d != nil {
			return &entry{def: d.def, kind: d.kind}
		}
	}
	if def, ok := asDefinition(v); ok {
		return &entry{def: def, kind: KindShared}
	}
	return &entry{value: v, kind: KindValue}
}

// asDefinition reports whether v is invocable as a service definition.
func asDefinition(v any) (Definition, bool) {
	switch d := v.(type) {
	case Definition:
		return d, d != nil
	case func(*Container) (any, error):
		return Definition(d), d != nil
	}
	return nil, false
}

// Factory marks def so that every Get invokes it again.
func (c *Container) Factory(def any) (Marked, error) {
	d, ok := asDefinition(def)
	if !ok {
		return Marked{}, fmt.Errorf("%w: factory definition is %T", ErrNotInvokable, def)
	}
	return Marked{def: d, kind: KindFactory}, nil
}

// Protect marks def so that Get returns it uninvoked.
func (c *Container) Protect(def any) (Marked, error) {
	d, ok := asDefinition(def)
	if !ok {
		return Marked{}, fmt.Errorf("%w: protected value is %T", ErrNotInvokable, def)
	}
	return Marked{def: d, kind: KindProtected}, nil
}

// Extend decorates the definition stored under id.
// The new definition calls the original one and hands its result to
// decorator; it is stored under id and returned. A factory stays a factory.
//
//	c.Extend("logger", func(l any, c *container.Container) (any, error) {
//	    return l.(*slog.Logger).With("component", "api"), nil
//	})
func (c *Container) Extend(id string, decorator Decorator) (Definition, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotDefined, id)
	}
	if e.frozen {
		return nil, fmt.Errorf("%w: %q", ErrFrozen, id)
	}
	if e.def == nil {
		return nil, fmt.Errorf("%w: %q does not hold a definition", ErrNotInvokable, id)
	}
	if decorator == nil {
		return nil, fmt.Errorf("%w: nil decorator for %q", ErrNotInvokable, id)
	}

	original := e.def
	extended := Definition(func(c *Container) (any, error) {
		v, err := original(c)
		if err != nil {
			return nil, err
		}
		return decorator(v, c)
	})

	kind := KindShared
	if e.kind == KindFactory {
		kind = KindFactory
	}
	c.entries[id] = &entry{def: extended, kind: kind}
	return extended, nil
}

// Unset removes id, frozen or not.
func (c *Container) Unset(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Get resolves id.
//
// Plain values, protected definitions and already resolved shared services
// are returned as stored. Factories are invoked on every call. A shared
// definition is invoked on first access only; the result replaces it and the
// id becomes frozen.
func (c *Container) Get(id string) (any, error) {
	if path := c.cycle(id); path != nil {
		return nil, fmt.Errorf("%w: %s", ErrCircular, strings.Join(path, " -> "))
	}

	c.mu.RLock()
	e, ok := c.entries[id]
	if !ok {
		c.mu.RUnlock()
		return nil, fmt.Errorf("%w: %q", ErrNotDefined, id)
	}
	kind, frozen, value, def := e.kind, e.frozen, e.value, e.def
	c.mu.RUnlock()

	switch {
	case frozen || kind == KindValue:
		return value, nil
	case kind == KindProtected:
		return def, nil
	case kind == KindFactory:
		return c.invoke(id, def)
	}

	v, err, _ := c.flight.Do(id, func() (any, error) {
		return c.resolveShared(id, e)
	})
	return v, err
}

// resolveShared runs the first resolution of a shared entry.
// Concurrent callers for the same id share a single flight, and the frozen
// re-check covers callers that arrive after a flight has completed.
func (c *Container) resolveShared(id string, e *entry) (any, error) {
	c.mu.RLock()
	if e.frozen {
		v := e.value
		c.mu.RUnlock()
		return v, nil
	}
	def := e.def
	c.mu.RUnlock()

	v, err := c.invoke(id, def)
	if err != nil {
		return nil, fmt.Errorf("container: resolve %q: %w", id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// the entry may have been replaced while def was running
	if cur, ok := c.entries[id]; ok && cur == e {
		e.raw = def
		e.def = nil
		e.value = v
		e.frozen = true
	}
	return v, nil
}

// invoke runs def with a view of c whose chain includes id.
func (c *Container) invoke(id string, def Definition) (any, error) {
	link := &resolution{id: id, parent: c.chain}
	defer link.done.Store(true)
	return def(&Container{registry: c.registry, chain: link})
}

// cycle returns the resolution path ending in id when id is already being
// resolved on c's chain, nil otherwise.
func (c *Container) cycle(id string) []string {
	var path []string
	found := false
	for r := c.chain; r != nil; r = r.parent {
		if r.done.Load() {
			continue
		}
		path = append(path, r.id)
		if r.id == id {
			found = true
			break
		}
	}
	if !found {
		return nil
	}
	slices.Reverse(path)
	return append(path, id)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Has reports whether id is registered.
func (c *Container) Has(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[id]
	return ok
}

// Raw returns the definition registered under id without invoking it.
// For resolved shared services this is the original definition; factory and
// protected entries come back as Marked so they can be Set again unchanged.
func (c *Container) Raw(id string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotDefined, id)
	}
	switch {
	case e.raw != nil:
		return e.raw, nil
	case e.kind == KindFactory || e.kind == KindProtected:
		return Marked{def: e.def, kind: e.kind}, nil
	case e.kind == KindShared:
		return e.def, nil
	}
	return e.value, nil
}

// Frozen reports whether id has been resolved as a shared service.
func (c *Container) Frozen(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	return ok && e.frozen
}

// KindOf returns the kind of the entry under id.
func (c *Container) KindOf(id string) (Kind, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotDefined, id)
	}
	return e.kind, nil
}

// Keys returns every registered id in no particular order.
func (c *Container) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for id := range c.entries {
		out = append(out, id)
	}
	return out
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve calls Get and type-asserts the result.
//
//	router, err := container.Resolve[*routing.Router](c, "router")
func Resolve[T any](c *Container, id string) (T, error) {
	var zero T
	v, err := c.Get(id)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("container: %q resolved to %T, want %T", id, v, zero)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on error. Use it for ids the
// application cannot run without.
func MustResolve[T any](c *Container, id string) T {
	v, err := Resolve[T](c, id)
	if err != nil {
		panic(err)
	}
	return v
}
