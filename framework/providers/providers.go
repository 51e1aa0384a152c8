package providers

import (
	"fmt"
	"log/slog"

	"github.com/km-arc/go-kernel/framework/config"
	"github.com/km-arc/go-kernel/framework/container"
	"github.com/km-arc/go-kernel/framework/handlers"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/logger"
	"github.com/km-arc/go-kernel/framework/resolver"
	"github.com/km-arc/go-kernel/framework/routing"
)

// ResponseID is the id of the factory producing fresh responses.
const ResponseID = "response"

// RequestID is the id Execute reads the current request from.
const RequestID = "request"

// ── SettingsServiceProvider ──────────────────────────────────────────────────

// SettingsServiceProvider binds the kernel configuration.
//
// Bound ids:
//   - "settings" → *config.Settings
//
// Settings wins over EnvFiles when both are set.
type SettingsServiceProvider struct {
	container.BaseProvider
	Settings *config.Settings
	EnvFiles []string
}

func (p *SettingsServiceProvider) Register(c *container.Container) error {
	if p.Settings != nil {
		return c.Set(config.ContainerID, p.Settings)
	}
	envFiles := p.EnvFiles
	return setDefault(c, config.ContainerID, container.Definition(func(*container.Container) (any, error) {
		return config.Load(envFiles...)
	}))
}

// ── LoggingServiceProvider ───────────────────────────────────────────────────

// LoggingServiceProvider binds the application logger, configured from
// settings.
//
// Bound ids:
//   - "logger" → *slog.Logger
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger *slog.Logger
}

func (p *LoggingServiceProvider) Register(c *container.Container) error {
	if p.Logger != nil {
		return c.Set(logger.ContainerID, p.Logger)
	}
	return setDefault(c, logger.ContainerID, container.Definition(func(c *container.Container) (any, error) {
		s, err := container.Resolve[*config.Settings](c, config.ContainerID)
		if err != nil {
			return nil, err
		}
		format := logger.Format(s.Log.Format)
		if format != logger.FormatJSON && format != logger.FormatText {
			return nil, fmt.Errorf("providers: invalid LOG_FORMAT %q", s.Log.Format)
		}
		return logger.New(
			logger.WithEnvironment(s.App.Name, s.App.Env),
			logger.WithLevel(logger.ParseLevel(s.Log.Level)),
			logger.WithFormat(format),
			logger.WithContextExtractors(logger.RequestIDExtractor),
			logger.WithSentry(logger.SentryConfig{
				DSN:         s.Sentry.DSN,
				Environment: s.Sentry.Environment,
			}),
		), nil
	}))
}

// ── RoutingServiceProvider ───────────────────────────────────────────────────

// RoutingServiceProvider binds the router and the callable resolver that
// late-bound handlers and middleware go through.
//
// Bound ids:
//   - "router"           → *routing.Router
//   - "callableResolver" → *resolver.Resolver
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(c *container.Container) error {
	if err := setDefault(c, routing.ContainerID, container.Definition(func(c *container.Container) (any, error) {
		s, err := container.Resolve[*config.Settings](c, config.ContainerID)
		if err != nil {
			return nil, err
		}
		return routing.New().SetContainer(c).SetBasePath(s.RouterBasePath), nil
	})); err != nil {
		return err
	}
	return setDefault(c, resolver.ContainerID, container.Definition(func(c *container.Container) (any, error) {
		return resolver.New(c), nil
	}))
}

// ── DefaultServicesProvider ──────────────────────────────────────────────────

// DefaultServicesProvider binds the response factory and the default
// handlers. Ids already present in the container are left alone, so
// applications can supply their own before the kernel is built.
//
// Bound ids:
//   - "response"          → fresh *gohttp.Response per Get
//   - "notFoundHandler"   → handlers.NotFound
//   - "notAllowedHandler" → handlers.NotAllowed
//   - "errorHandler"      → handlers.Error
type DefaultServicesProvider struct {
	container.BaseProvider
}

func (p *DefaultServicesProvider) Register(c *container.Container) error {
	response, err := c.Factory(container.Definition(func(c *container.Container) (any, error) {
		s, err := container.Resolve[*config.Settings](c, config.ContainerID)
		if err != nil {
			return nil, err
		}
		return gohttp.NewResponse().
			WithHeader("Content-Type", "text/html; charset=UTF-8").
			WithProtocolVersion(s.HTTPVersion), nil
	}))
	if err != nil {
		return err
	}

	errorHandler := container.Definition(func(c *container.Container) (any, error) {
		s, err := container.Resolve[*config.Settings](c, config.ContainerID)
		if err != nil {
			return nil, err
		}
		log, err := container.Resolve[*slog.Logger](c, logger.ContainerID)
		if err != nil {
			return nil, err
		}
		return handlers.DefaultError(log, s.DisplayErrorDetails()), nil
	})

	defaults := []struct {
		id string
		v  any
	}{
		{ResponseID, response},
		{handlers.NotFoundID, handlers.DefaultNotFound()},
		{handlers.NotAllowedID, handlers.DefaultNotAllowed()},
		{handlers.ErrorID, errorHandler},
	}
	for _, d := range defaults {
		if err := setDefault(c, d.id, d.v); err != nil {
			return err
		}
	}
	return nil
}

func setDefault(c *container.Container, id string, v any) error {
	if c.Has(id) {
		return nil
	}
	return c.Set(id, v)
}
