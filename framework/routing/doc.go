// Package routing registers routes and groups and turns named routes back
// into URLs.
//
//	r := routing.New()
//	r.Group("/v1", func(r *routing.Router) {
//	    r.Get("/users/{id}", showUser).SetName("user")
//	}).Add(auth)
//
//	res, err := r.Dispatch(req)          // matcher.Found / MethodNotAllowed / NotFound
//	url, err := r.PathFor("user", map[string]string{"id": "42"}, nil) // /v1/users/42
//
// Groups only exist while their callback runs; each route remembers the
// groups that were active when it was registered. Matching is delegated to
// the matcher package.
//
// Handlers receive the route arguments directly; middleware can read them
// with Arguments or Param.
package routing
