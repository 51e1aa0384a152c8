// Package middleware implements the onion-style frame pipeline used by the
// application and by individual routes.
//
//	p := middleware.New(kernel)
//	p.Add(a)
//	p.Add(b)
//	p.Add(c)
//	res, err := p.Dispatch(req, res) // c -> b -> a -> kernel
//
// Frames are kept in registration order and folded right to left into a
// single Next. Frames given as strings are resolved per call with Defer.
package middleware
