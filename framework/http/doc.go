// Package http provides the request and response values the kernel passes
// through middleware and route handlers.
//
// # Request
//
// Request wraps *http.Request and adds an attribute bag. It is immutable:
// WithAttribute, WithoutAttribute and WithMethod return copies.
//
//	req := gohttp.NewRequest(r)
//	req = req.WithAttribute("user", u)
//
//	user  := req.Attribute("user")
//	page  := req.Query("page", "1")
//	name  := req.Input("name", "default")
//	token := req.BearerToken()
//
//	var payload struct {
//	    Name string `json:"name"`
//	}
//	if err := req.Bind(&payload); err != nil { ... }
//
// # Response
//
// Response is immutable as well; With* methods return copies. Its body is a
// Stream (Read/Write/Seek/EOF) shared by copies until replaced.
//
//	res := gohttp.NewResponse()
//	res = res.WithStatus(201).WithHeader("X-Custom", "1")
//	res.Write("hello")
//
//	// JSON helpers return (*Response, error), matching the handler signature
//	return res.Success(data)              // 200 {"data": ...}
//	return res.Created(data)              // 201 {"data": ...}
//	return res.Error(400, "bad input")    // {"message": "bad input"}
//	return res.NotFound()                 // 404 {"message": "Not found."}
//	return res.NoContent(), nil           // 204
//	return res.Redirect("/login"), nil    // 302
//
// # Emit
//
// Emit writes a Response to an http.ResponseWriter in fixed-size chunks.
package http
