// Package container provides a lazy, memoizing service container and a
// service provider registry.
//
// # Overview
//
// Every entry has an id and one of four kinds:
//
//   - value: any non-invocable value, returned as stored
//   - shared: a Definition invoked on first Get, cached and frozen afterwards
//   - factory: a Definition invoked on every Get
//   - protected: a Definition returned as-is, never invoked
//
// Only values of type Definition (or an unnamed func with the same
// signature) are invocable. Other funcs, including handlers stored for later
// use, are plain values.
//
// # Bindings
//
//	c := container.New()
//
//	// Plain value
//	c.Set("settings", cfg)
//
//	// Shared service, built once
//	c.Set("router", container.Definition(func(c *container.Container) (any, error) {
//	    return routing.New(), nil
//	}))
//
//	// New instance per Get
//	f, _ := c.Factory(func(c *container.Container) (any, error) {
//	    return gohttp.NewResponse(), nil
//	})
//	c.Set("response", f)
//
//	// Store a Definition itself
//	p, _ := c.Protect(randomID)
//	c.Set("idGenerator", p)
//
// # Resolving
//
//	raw, err := c.Get("router")
//	router, err := container.Resolve[*routing.Router](c, "router")
//	router := container.MustResolve[*routing.Router](c, "router")
//
// Once "router" has been resolved it is frozen: c.Set("router", …) returns
// ErrFrozen. Raw returns the original definition.
//
// # Extend / Decorate
//
//	c.Extend("logger", func(l any, c *container.Container) (any, error) {
//	    return l.(*slog.Logger).With("component", "api"), nil
//	})
//
// Extending twice applies the decorators outer-most last.
//
// # Service Providers
//
//	registry := container.NewProviderRegistry(c)
//	registry.Register(&providers.SettingsProvider{})
//	registry.Boot()
//
// # Concurrency
//
// Registration must finish before concurrent resolution starts. First
// resolution of a shared entry is serialized per id, so concurrent first
// access invokes the definition exactly once.
package container
