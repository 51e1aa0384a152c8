package logger

import "log/slog"

// NewNope returns a logger that drops every record. The framework falls
// back to it when no logger is bound.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
