package middleware

import "errors"

var (
	// ErrLocked is returned by Add and Seed while a dispatch is in progress.
	ErrLocked = errors.New("middleware: pipeline is locked during dispatch")

	// ErrContractViolation is returned when a frame returns neither a
	// response nor an error.
	ErrContractViolation = errors.New("middleware: frame must return a response")

	// ErrSeeded is returned by Seed when a kernel is already set.
	ErrSeeded = errors.New("middleware: pipeline already seeded")

	// ErrNotSeeded is returned by Dispatch before a kernel is set.
	ErrNotSeeded = errors.New("middleware: pipeline has no kernel")
)
