// Package logger builds the kernel's *slog.Logger.
//
// New takes functional options for level, format, output and static
// attributes. Context extractors add request-scoped attributes such as the
// id assigned by chi's RequestID middleware:
//
//	log := logger.New(
//	    logger.WithEnvironment("api", "production"),
//	    logger.WithContextExtractors(logger.RequestIDExtractor),
//	    logger.WithSentry(logger.SentryConfig{DSN: dsn}),
//	)
//	log.InfoContext(req.Context(), "user created")
//
// NewNope returns a logger that discards everything, for tests.
package logger
