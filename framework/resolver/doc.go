// Package resolver turns symbolic references into callables.
//
// Route handlers and middleware may be given as values or as strings:
//
//	"UserController:Show"  // method Show on the "UserController" service
//	"auth"                 // the "auth" service itself, which must be callable
//
// Names are looked up in the container first. When absent, a constructor
// registered with Resolver.Register builds the instance. There is no
// construction from type names at runtime; every constructible name is
// registered explicitly at startup.
//
// Deferred postpones resolution to call time through the container's
// "callableResolver" entry.
package resolver
