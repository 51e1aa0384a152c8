package app

import (
	"fmt"
	"strings"

	gohttp "github.com/km-arc/go-kernel/framework/http"
)

// NotFoundError is returned when no route matches and no notFoundHandler is
// registered.
type NotFoundError struct {
	Request  *gohttp.Request
	Response *gohttp.Response
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("app: no route matches %s %s", e.Request.Method(), e.Request.Path())
}

// MethodNotAllowedError is returned when the path matches but the method
// does not, and no notAllowedHandler is registered.
type MethodNotAllowedError struct {
	Request  *gohttp.Request
	Response *gohttp.Response
	Allowed  []string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("app: method %s not allowed for %s, must be one of: %s",
		e.Request.Method(), e.Request.Path(), strings.Join(e.Allowed, ", "))
}

// PanicError wraps a value recovered from a panicking frame or handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("app: panic recovered: %v", e.Value)
}

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
