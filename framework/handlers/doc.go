// Package handlers holds the kernel's default responses for unmatched
// routes, disallowed methods and pipeline errors.
//
// The kernel looks them up in the container under NotFoundID,
// NotAllowedID and ErrorID. Replacing an entry changes the response:
//
//	c.Set(handlers.NotFoundID, handlers.NotFound(func(req *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error) {
//	    return res.WithStatus(http.StatusNotFound).Write("nothing here"), nil
//	}))
package handlers
