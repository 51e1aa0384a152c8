package http

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response is an immutable HTTP response value.
//
// With* methods return a modified copy. The body Stream is shared between
// copies unless replaced with WithBody, so Write is visible to every copy
// that holds the same body.
type Response struct {
	header   http.Header
	body     Stream
	protocol string
	status   int
}

// NewResponse returns a 200 response with an empty body.
func NewResponse() *Response {
	return &Response{
		status:   http.StatusOK,
		header:   http.Header{},
		body:     NewBody(),
		protocol: "1.1",
	}
}

func (res *Response) clone() *Response {
	cp := *res
	cp.header = res.header.Clone()
	return &cp
}

// StatusCode returns the HTTP status code.
func (res *Response) StatusCode() int { return res.status }

// ReasonPhrase returns the standard text for the status code.
func (res *Response) ReasonPhrase() string { return http.StatusText(res.status) }

// WithStatus returns a copy with status code.
func (res *Response) WithStatus(code int) *Response {
	cp := res.clone()
	cp.status = code
	return cp
}

// ProtocolVersion returns the HTTP version, e.g. "1.1".
func (res *Response) ProtocolVersion() string { return res.protocol }

// WithProtocolVersion returns a copy using version.
func (res *Response) WithProtocolVersion(version string) *Response {
	cp := res.clone()
	cp.protocol = version
	return cp
}

// ── Headers ──────────────────────────────────────────────────────────────────

// Header returns a copy of the headers.
func (res *Response) Header() http.Header { return res.header.Clone() }

// HeaderLine returns the values of key joined by ", ".
func (res *Response) HeaderLine(key string) string {
	return strings.Join(res.header.Values(key), ", ")
}

// HasHeader reports whether key is set.
func (res *Response) HasHeader(key string) bool {
	return len(res.header.Values(key)) > 0
}

// WithHeader returns a copy with key replaced by value.
func (res *Response) WithHeader(key, value string) *Response {
	cp := res.clone()
	cp.header.Set(key, value)
	return cp
}

// WithAddedHeader returns a copy with value appended to key.
func (res *Response) WithAddedHeader(key, value string) *Response {
	cp := res.clone()
	cp.header.Add(key, value)
	return cp
}

// WithoutHeader returns a copy without key.
func (res *Response) WithoutHeader(key string) *Response {
	cp := res.clone()
	cp.header.Del(key)
	return cp
}

// ── Body ─────────────────────────────────────────────────────────────────────

// Body returns the body stream.
func (res *Response) Body() Stream { return res.body }

// WithBody returns a copy using body.
func (res *Response) WithBody(body Stream) *Response {
	cp := res.clone()
	cp.body = body
	return cp
}

// Write appends s to the body and returns the same response.
func (res *Response) Write(s string) *Response {
	_, _ = res.body.Write([]byte(s))
	return res
}

// IsEmpty reports whether the status forbids a body.
func (res *Response) IsEmpty() bool {
	switch res.status {
	case http.StatusNoContent, http.StatusResetContent, http.StatusNotModified:
		return true
	}
	return false
}

// ── JSON responses ────────────────────────────────────────────────────────────

// WithJSON returns a copy with a fresh body holding data encoded as JSON.
//
//	return res.WithJSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) WithJSON(status int, data any) (*Response, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	body := NewBody()
	_, _ = body.Write(append(b, '\n'))

	cp := res.clone()
	cp.status = status
	cp.body = body
	cp.header.Set("Content-Type", "application/json")
	return cp, nil
}

// Success returns 200 JSON: {"data": v}
func (res *Response) Success(v any) (*Response, error) {
	return res.WithJSON(http.StatusOK, envelope{"data": v})
}

// Created returns 201 JSON: {"data": v}
func (res *Response) Created(v any) (*Response, error) {
	return res.WithJSON(http.StatusCreated, envelope{"data": v})
}

// NoContent returns 204 with an empty body.
func (res *Response) NoContent() *Response {
	return res.WithStatus(http.StatusNoContent).WithBody(NewBody())
}

// Error returns a JSON error response.
//
//	return res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) (*Response, error) {
	return res.WithJSON(status, envelope{"message": message})
}

// Unauthorized returns 401.
func (res *Response) Unauthorized(message ...string) (*Response, error) {
	return res.Error(http.StatusUnauthorized, first(message, "Unauthenticated."))
}

// Forbidden returns 403.
func (res *Response) Forbidden(message ...string) (*Response, error) {
	return res.Error(http.StatusForbidden, first(message, "This action is unauthorized."))
}

// NotFound returns 404.
func (res *Response) NotFound(message ...string) (*Response, error) {
	return res.Error(http.StatusNotFound, first(message, "Not found."))
}

// ServerError returns 500.
func (res *Response) ServerError(message ...string) (*Response, error) {
	return res.Error(http.StatusInternalServerError, first(message, "Server Error."))
}

// ── Redirects ────────────────────────────────────────────────────────────────

// Redirect returns a redirect to url; status defaults to 302.
//
//	return res.Redirect("/dashboard"), nil
func (res *Response) Redirect(url string, status ...int) *Response {
	code := http.StatusFound
	if len(status) > 0 {
		code = status[0]
	}
	return res.WithStatus(code).WithHeader("Location", url)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
