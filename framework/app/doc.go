// Package app is the application kernel. It owns the container, the router
// and the application middleware pipeline, and turns an HTTP request into a
// response:
//
//	application, err := app.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	application.Get("/users/{id}", func(req *gohttp.Request, res *gohttp.Response, args map[string]string) (*gohttp.Response, error) {
//	    return res.Success(map[string]string{"id": args["id"]})
//	})
//	application.Add(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
//	    return next(req, res.WithHeader("X-Powered-By", "go-kernel"))
//	})
//	err = application.Run(context.Background())
//
// Application middleware runs last-added first and wraps route dispatch.
// Unmatched paths and methods go to the notFoundHandler and
// notAllowedHandler container entries; other errors and recovered panics go
// to errorHandler.
package app
