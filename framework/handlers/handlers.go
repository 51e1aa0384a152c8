package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/logger"
)

// Container ids the kernel looks the handlers up by.
const (
	NotFoundID   = "notFoundHandler"
	NotAllowedID = "notAllowedHandler"
	ErrorID      = "errorHandler"
)

// NotFound renders the response for a path no route matches.
type NotFound func(req *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error)

// NotAllowed renders the response for a path whose routes do not accept the
// request method. allowed lists the methods that would have matched.
type NotAllowed func(req *gohttp.Request, res *gohttp.Response, allowed []string) (*gohttp.Response, error)

// Error renders the response for an error raised inside the pipeline.
type Error func(req *gohttp.Request, res *gohttp.Response, err error) (*gohttp.Response, error)

// DefaultNotFound returns a 404 JSON response.
func DefaultNotFound() NotFound {
	return func(_ *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error) {
		return res.NotFound()
	}
}

// DefaultNotAllowed returns a 405 JSON response carrying an Allow header.
// An OPTIONS request gets 200 with the same header instead.
func DefaultNotAllowed() NotAllowed {
	return func(req *gohttp.Request, res *gohttp.Response, allowed []string) (*gohttp.Response, error) {
		allow := strings.Join(allowed, ", ")
		res = res.WithHeader("Allow", allow)

		if req.Method() == http.MethodOptions {
			return res.WithStatus(http.StatusOK).WithBody(gohttp.NewBodyString("Allowed methods: " + allow)), nil
		}
		return res.Error(http.StatusMethodNotAllowed, "Method not allowed. Must be one of: "+allow)
	}
}

// DefaultError logs err and returns a 500 JSON response. With
// displayDetails the body also carries the error type and message.
func DefaultError(log *slog.Logger, displayDetails bool) Error {
	if log == nil {
		log = logger.NewNope()
	}
	return func(req *gohttp.Request, res *gohttp.Response, err error) (*gohttp.Response, error) {
		log.ErrorContext(req.Context(), "request failed",
			slog.String("method", req.Method()),
			slog.String("path", req.Path()),
			logger.Error(err),
		)

		body := map[string]any{"message": "Server Error."}
		if displayDetails && err != nil {
			body["error"] = map[string]string{
				"type":    fmt.Sprintf("%T", err),
				"message": err.Error(),
			}
		}
		return res.WithJSON(http.StatusInternalServerError, body)
	}
}
