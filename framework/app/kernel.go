package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"

	"github.com/km-arc/go-kernel/framework/config"
	"github.com/km-arc/go-kernel/framework/container"
	"github.com/km-arc/go-kernel/framework/handlers"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/logger"
	"github.com/km-arc/go-kernel/framework/middleware"
	"github.com/km-arc/go-kernel/framework/providers"
	"github.com/km-arc/go-kernel/framework/resolver"
	"github.com/km-arc/go-kernel/framework/routing"
	"github.com/km-arc/go-kernel/framework/routing/matcher"
)

// Request attributes set when the route is determined.
const (
	RouteAttribute     = "route"
	RouteInfoAttribute = "routeInfo"
)

// stackSize bounds the stack captured for a recovered panic.
const stackSize = 4096

const version = "0.2.0"

// RouteInfo is the dispatch result cached on a request, together with the
// method and target it was computed for.
type RouteInfo struct {
	matcher.Result
	Method string
	Target string
}

// Application is the kernel. It embeds the Container so user code can call
// app.Set and app.Has directly; Get and the other verbs register routes, so
// entries are read with app.Container.Get. The application is itself the
// innermost frame of its middleware pipeline.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	pipeline *middleware.Pipeline
}

// Option configures New.
type Option func(*options)

type options struct {
	container *container.Container
	settings  *config.Settings
	envFiles  []string
	logger    *slog.Logger
}

// WithContainer builds the application on c. Entries already in c take
// precedence over the kernel defaults.
func WithContainer(c *container.Container) Option {
	return func(o *options) { o.container = c }
}

// WithSettings uses s instead of loading settings from the environment.
func WithSettings(s *config.Settings) Option {
	return func(o *options) { o.settings = s }
}

// WithEnvFiles loads settings from the given .env files.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = files }
}

// WithLogger uses l instead of a logger built from settings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates the application and registers the framework providers.
//
//	application, err := app.New(app.WithEnvFiles(".env"))
func New(opts ...Option) (*Application, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	c := o.container
	if c == nil {
		c = container.New()
	}

	a := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
	}
	a.pipeline = middleware.New(a.handle)

	for _, p := range []container.ServiceProvider{
		&providers.SettingsServiceProvider{Settings: o.settings, EnvFiles: o.envFiles},
		&providers.LoggingServiceProvider{Logger: o.logger},
		&providers.RoutingServiceProvider{},
		&providers.DefaultServicesProvider{},
	} {
		if err := a.Providers.Register(p); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Register adds a ServiceProvider to the application.
func (a *Application) Register(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot runs the Boot phase on all providers.
func (a *Application) Boot() error {
	return a.Providers.Boot()
}

// Settings resolves the settings from the container.
func (a *Application) Settings() (*config.Settings, error) {
	return container.Resolve[*config.Settings](a.Container, config.ContainerID)
}

// Router resolves the router from the container. It panics when the entry
// is missing or of the wrong type.
func (a *Application) Router() *routing.Router {
	return container.MustResolve[*routing.Router](a.Container, routing.ContainerID)
}

// Logger resolves the logger, falling back to one that discards output.
func (a *Application) Logger() *slog.Logger {
	l, err := container.Resolve[*slog.Logger](a.Container, logger.ContainerID)
	if err != nil {
		return logger.NewNope()
	}
	return l
}

// ── Middleware ───────────────────────────────────────────────────────────────

// Add pushes application middleware. mw is a middleware.Frame, a func
// literal with its signature, or a "name:method" reference resolved on each
// request. The last middleware added runs first.
func (a *Application) Add(mw any) error {
	if mw == nil {
		panic("app: nil middleware passed to Add")
	}
	return a.pipeline.Add(middleware.Defer(mw, a.Container))
}

// ── Routes ───────────────────────────────────────────────────────────────────

// Map registers handler for methods and pattern on the router.
func (a *Application) Map(methods []string, pattern string, handler any) *routing.Route {
	return a.Router().Map(methods, pattern, handler)
}

func (a *Application) Get(pattern string, h any) *routing.Route    { return a.Router().Get(pattern, h) }
func (a *Application) Post(pattern string, h any) *routing.Route   { return a.Router().Post(pattern, h) }
func (a *Application) Put(pattern string, h any) *routing.Route    { return a.Router().Put(pattern, h) }
func (a *Application) Patch(pattern string, h any) *routing.Route  { return a.Router().Patch(pattern, h) }
func (a *Application) Delete(pattern string, h any) *routing.Route { return a.Router().Delete(pattern, h) }
func (a *Application) Any(pattern string, h any) *routing.Route    { return a.Router().Any(pattern, h) }

func (a *Application) Options(pattern string, h any) *routing.Route {
	return a.Router().Options(pattern, h)
}

// Group registers a route group on the router.
func (a *Application) Group(pattern string, fn func(r *routing.Router)) *routing.RouteGroup {
	return a.Router().Group(pattern, fn)
}

// ── Processing ───────────────────────────────────────────────────────────────

// Process runs req through the application middleware and the matched
// route. Errors raised inside the pipeline go to the notFound, notAllowed
// or error handler registered in the container; without one the error is
// returned.
func (a *Application) Process(req *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error) {
	settings, err := a.Settings()
	if err != nil {
		return nil, err
	}
	router, err := container.Resolve[*routing.Router](a.Container, routing.ContainerID)
	if err != nil {
		return nil, err
	}

	if settings.DetermineRouteBeforeAppMiddleware {
		// routes cannot change after this point
		if req, err = a.prepareRoute(req, router); err != nil {
			return nil, err
		}
	}

	out, err := a.dispatch(req, res)
	if err == nil && out == nil {
		err = fmt.Errorf("%w: application pipeline", middleware.ErrContractViolation)
	}
	if err != nil {
		handled, herr := a.handleError(req, res, err)
		if herr != nil {
			return nil, herr
		}
		if handled == nil {
			return nil, fmt.Errorf("%w: no response after handling %w", middleware.ErrContractViolation, err)
		}
		out = handled
	}
	return a.finalize(out, settings), nil
}

// dispatch runs the pipeline, turning a panic into a PanicError.
func (a *Application) dispatch(req *gohttp.Request, res *gohttp.Response) (out *gohttp.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, stackSize)
			stack = stack[:runtime.Stack(stack, false)]
			a.Logger().ErrorContext(req.Context(), "panic recovered",
				slog.Any("panic", r),
				slog.String("stack", string(stack)),
			)
			out, err = nil, &PanicError{Value: r, Stack: stack}
		}
	}()
	return a.pipeline.Dispatch(req, res)
}

// handle is the innermost frame: it dispatches the router, unless the
// request already carries route info for its current method and target,
// and runs the matched route.
func (a *Application) handle(req *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error) {
	router, err := container.Resolve[*routing.Router](a.Container, routing.ContainerID)
	if err != nil {
		return nil, err
	}

	info, _ := req.Attribute(RouteInfoAttribute).(*RouteInfo)
	if info == nil || info.Method != req.Method() || info.Target != req.Target() {
		if req, err = a.prepareRoute(req, router); err != nil {
			return nil, err
		}
		info, _ = req.Attribute(RouteInfoAttribute).(*RouteInfo)
	}

	switch info.Status {
	case matcher.Found:
		route, err := router.LookupRoute(info.RouteID)
		if err != nil {
			return nil, err
		}
		return route.Run(req, res)

	case matcher.MethodNotAllowed:
		if !a.Has(handlers.NotAllowedID) {
			return nil, &MethodNotAllowedError{Request: req, Response: res, Allowed: info.Allowed}
		}
		h, err := resolver.Defer[handlers.NotAllowed](handlers.NotAllowedID, a.Container).Resolve()
		if err != nil {
			return nil, err
		}
		return h(req, res, info.Allowed)
	}

	if !a.Has(handlers.NotFoundID) {
		return nil, &NotFoundError{Request: req, Response: res}
	}
	h, err := resolver.Defer[handlers.NotFound](handlers.NotFoundID, a.Container).Resolve()
	if err != nil {
		return nil, err
	}
	return h(req, res)
}

// prepareRoute dispatches the router and records the result on req. On a
// match the route's arguments and the route itself are attached as well.
func (a *Application) prepareRoute(req *gohttp.Request, router *routing.Router) (*gohttp.Request, error) {
	result, err := router.Dispatch(req)
	if err != nil {
		return nil, err
	}

	if result.Status == matcher.Found {
		route, err := router.LookupRoute(result.RouteID)
		if err != nil {
			return nil, err
		}
		req = route.Prepare(req, result.Params).WithAttribute(RouteAttribute, route)
	}

	info := &RouteInfo{Result: result, Method: req.Method(), Target: req.Target()}
	return req.WithAttribute(RouteInfoAttribute, info), nil
}

// handleError hands err to the matching handler from the container.
func (a *Application) handleError(req *gohttp.Request, res *gohttp.Response, err error) (*gohttp.Response, error) {
	var (
		notAllowed *MethodNotAllowedError
		notFound   *NotFoundError
	)
	switch {
	case errors.As(err, &notAllowed):
		if !a.Has(handlers.NotAllowedID) {
			return nil, err
		}
		h, rerr := resolver.Defer[handlers.NotAllowed](handlers.NotAllowedID, a.Container).Resolve()
		if rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		return h(notAllowed.Request, notAllowed.Response, notAllowed.Allowed)

	case errors.As(err, &notFound):
		if !a.Has(handlers.NotFoundID) {
			return nil, err
		}
		h, rerr := resolver.Defer[handlers.NotFound](handlers.NotFoundID, a.Container).Resolve()
		if rerr != nil {
			return nil, errors.Join(err, rerr)
		}
		return h(notFound.Request, notFound.Response)
	}

	if !a.Has(handlers.ErrorID) {
		return nil, err
	}
	h, rerr := resolver.Defer[handlers.Error](handlers.ErrorID, a.Container).Resolve()
	if rerr != nil {
		return nil, errors.Join(err, rerr)
	}
	return h(req, res, err)
}

// finalize strips entity headers from empty responses and sets
// Content-Length when configured.
func (a *Application) finalize(res *gohttp.Response, settings *config.Settings) *gohttp.Response {
	if res.IsEmpty() {
		return res.WithoutHeader("Content-Type").WithoutHeader("Content-Length")
	}
	if settings.AddContentLengthHeader && !res.HasHeader("Content-Length") {
		res = res.WithHeader("Content-Length", strconv.FormatInt(res.Body().Size(), 10))
	}
	return res
}

// SubRequest routes a request built from method, path and query through the
// matched route, without the application middleware and without a network
// round trip. A nil res takes a fresh one from the container.
//
//	res, err := a.SubRequest(req.Context(), "GET", "/users/42", "", nil, "", nil)
func (a *Application) SubRequest(
	ctx context.Context,
	method, path, query string,
	header http.Header,
	body string,
	res *gohttp.Response,
) (*gohttp.Response, error) {
	target := (&url.URL{Path: path, RawQuery: query}).String()
	req, err := gohttp.NewRequestFromTarget(ctx, method, target, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("app: sub-request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Raw().Header.Add(k, v)
		}
	}

	if res == nil {
		if res, err = container.Resolve[*gohttp.Response](a.Container, providers.ResponseID); err != nil {
			return nil, err
		}
	}
	return a.handle(req, res)
}

// ── Environment ──────────────────────────────────────────────────────────────

func (a *Application) settingsOrDefault() *config.Settings {
	s, err := a.Settings()
	if err != nil {
		return config.Default()
	}
	return s
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.settingsOrDefault().App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "local" }
func (a *Application) IsProduction() bool  { return a.Environment() == "production" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.settingsOrDefault().App.Debug }
func (a *Application) Version() string     { return version }
