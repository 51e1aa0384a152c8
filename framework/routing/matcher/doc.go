// Package matcher is the matching engine behind the router.
//
// The router hands it a table of (id, methods, pattern) and gets back a
// Dispatcher. The default Compile registers each pattern variant on a
// go-chi/chi radix tree and resolves lookups with (*chi.Mux).Find, mapping
// the matched pattern back to the route id.
//
//	d, err := matcher.Compile([]matcher.Definition{
//	    {ID: 0, Methods: []string{"GET"}, Pattern: "/users/{id:[0-9]+}"},
//	})
//	res := d.Dispatch("GET", "/users/42")
//	// res.Status == matcher.Found, res.Params["id"] == "42"
//
// Parse exposes the variants of a pattern with optional trailing parts,
// which the router uses to build URLs.
package matcher
