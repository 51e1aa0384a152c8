package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
)

// Request wraps *http.Request with an attribute bag.
//
// Request values are immutable: every With* method returns a copy and leaves
// the receiver untouched, so middleware can hand a modified request to the
// next frame without affecting the caller.
type Request struct {
	raw        *http.Request
	method     string
	attributes map[string]any
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{
		raw:        r,
		method:     r.Method,
		attributes: map[string]any{},
	}
}

// NewRequestFromTarget builds a request for method and target, e.g. for
// sub-requests and tests.
func NewRequestFromTarget(ctx context.Context, method, target string, body io.Reader) (*Request, error) {
	r, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	return NewRequest(r), nil
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// Context returns the request context.
func (req *Request) Context() context.Context { return req.raw.Context() }

func (req *Request) clone() *Request {
	cp := *req
	cp.attributes = maps.Clone(req.attributes)
	return &cp
}

// ── Method / URI ─────────────────────────────────────────────────────────────

// Method returns the HTTP method.
func (req *Request) Method() string { return req.method }

// WithMethod returns a copy using method.
func (req *Request) WithMethod(method string) *Request {
	cp := req.clone()
	cp.method = strings.ToUpper(method)
	return cp
}

// URI returns the request URL.
func (req *Request) URI() *url.URL { return req.raw.URL }

// Path returns the decoded URL path.
func (req *Request) Path() string { return req.raw.URL.Path }

// EscapedPath returns the URL path as it was sent.
func (req *Request) EscapedPath() string { return req.raw.URL.EscapedPath() }

// Target returns the request URI (path plus query).
func (req *Request) Target() string { return req.raw.URL.RequestURI() }

// ── Attributes ───────────────────────────────────────────────────────────────

// Attribute returns a named attribute, or fallback when absent.
func (req *Request) Attribute(name string, fallback ...any) any {
	if v, ok := req.attributes[name]; ok {
		return v
	}
	if len(fallback) > 0 {
		return fallback[0]
	}
	return nil
}

// Attributes returns a copy of every attribute.
func (req *Request) Attributes() map[string]any {
	return maps.Clone(req.attributes)
}

// WithAttribute returns a copy with name set to v.
func (req *Request) WithAttribute(name string, v any) *Request {
	cp := req.clone()
	cp.attributes[name] = v
	return cp
}

// WithoutAttribute returns a copy without name.
func (req *Request) WithoutAttribute(name string) *Request {
	cp := req.clone()
	delete(cp.attributes, name)
	return cp
}

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes a JSON body into v.
func (req *Request) Bind(v any) error {
	defer req.raw.Body.Close()
	body, err := io.ReadAll(req.raw.Body)
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	return json.Unmarshal(body, v)
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Input returns a single input value (query string OR post body).
func (req *Request) Input(key string, fallback ...string) string {
	_ = req.raw.ParseForm()
	v := req.raw.FormValue(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// BearerToken extracts the token from Authorization: Bearer <token>.
func (req *Request) BearerToken() string {
	auth := req.raw.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// IP returns the client address (respects the RealIP middleware).
func (req *Request) IP() string {
	return req.raw.RemoteAddr
}

// ContentType returns the Content-Type header value.
func (req *Request) ContentType() string {
	return req.raw.Header.Get("Content-Type")
}

// IsJSON returns true when the request expects a JSON response.
func (req *Request) IsJSON() bool {
	return strings.Contains(req.raw.Header.Get("Accept"), "application/json") ||
		strings.Contains(req.ContentType(), "application/json")
}
