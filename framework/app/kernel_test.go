package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-kernel/framework/app"
	"github.com/km-arc/go-kernel/framework/config"
	"github.com/km-arc/go-kernel/framework/container"
	"github.com/km-arc/go-kernel/framework/handlers"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/logger"
	"github.com/km-arc/go-kernel/framework/middleware"
	"github.com/km-arc/go-kernel/framework/providers"
	"github.com/km-arc/go-kernel/framework/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newApp(t *testing.T, configure ...func(*config.Settings)) *app.Application {
	t.Helper()
	settings := config.Default()
	for _, fn := range configure {
		fn(settings)
	}
	a, err := app.New(app.WithSettings(settings), app.WithLogger(logger.NewNope()))
	require.NoError(t, err)
	return a
}

func process(t *testing.T, a *app.Application, method, target string) (*gohttp.Response, error) {
	t.Helper()
	req, err := gohttp.NewRequestFromTarget(context.Background(), method, target, nil)
	require.NoError(t, err)
	return a.Process(req, gohttp.NewResponse())
}

func text(body string) routing.Handler {
	return func(_ *gohttp.Request, res *gohttp.Response, _ map[string]string) (*gohttp.Response, error) {
		return res.Write(body), nil
	}
}

// ── Dispatch ─────────────────────────────────────────────────────────────────

func TestProcess_Found(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.Get("/users/{id}", func(_ *gohttp.Request, res *gohttp.Response, args map[string]string) (*gohttp.Response, error) {
		return res.Write("user " + args["id"]), nil
	})

	res, err := process(t, a, "GET", "/users/42")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode())
	assert.Equal(t, "user 42", res.Body().String())
	assert.Equal(t, "7", res.HeaderLine("Content-Length"))
}

func TestProcess_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	t.Run("default handler", func(t *testing.T) {
		a := newApp(t)
		a.Post("/users/{id}", text("created"))

		res, err := process(t, a, "GET", "/users/42")
		require.NoError(t, err)
		assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode())
		assert.Equal(t, "POST", res.HeaderLine("Allow"))
	})

	t.Run("no handler", func(t *testing.T) {
		a := newApp(t)
		a.Unset(handlers.NotAllowedID)
		a.Post("/users/{id}", text("created"))

		_, err := process(t, a, "GET", "/users/42")
		var mna *app.MethodNotAllowedError
		require.ErrorAs(t, err, &mna)
		assert.Equal(t, []string{"POST"}, mna.Allowed)
	})
}

func TestProcess_NotFound(t *testing.T) {
	t.Parallel()

	t.Run("default handler", func(t *testing.T) {
		a := newApp(t)
		a.Get("/users", text("list"))

		res, err := process(t, a, "GET", "/nowhere")
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.StatusCode())
	})

	t.Run("no handler", func(t *testing.T) {
		a := newApp(t)
		a.Unset(handlers.NotFoundID)

		_, err := process(t, a, "GET", "/nowhere")
		var nf *app.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "/nowhere", nf.Request.Path())
	})

	t.Run("custom handler", func(t *testing.T) {
		a := newApp(t)
		a.Unset(handlers.NotFoundID)
		require.NoError(t, a.Set(handlers.NotFoundID, handlers.NotFound(func(_ *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error) {
			return res.WithStatus(http.StatusTeapot), nil
		})))

		res, err := process(t, a, "GET", "/nowhere")
		require.NoError(t, err)
		assert.Equal(t, http.StatusTeapot, res.StatusCode())
	})
}

// ── Middleware ───────────────────────────────────────────────────────────────

func TestAdd_RunsLastAddedFirst(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	var trace []string
	mark := func(name string) middleware.Frame {
		return func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
			trace = append(trace, name)
			return next(req, res)
		}
	}
	for _, name := range []string{"A", "B", "C"} {
		require.NoError(t, a.Add(mark(name)))
	}
	a.Get("/", func(_ *gohttp.Request, res *gohttp.Response, _ map[string]string) (*gohttp.Response, error) {
		trace = append(trace, "kernel")
		return res, nil
	})

	_, err := process(t, a, "GET", "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A", "kernel"}, trace)
}

func TestAdd_DuringDispatchFails(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	var addErr error
	require.NoError(t, a.Add(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
		addErr = a.Add(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
			return next(req, res)
		})
		return next(req, res)
	}))
	a.Get("/", text("ok"))

	_, err := process(t, a, "GET", "/")
	require.NoError(t, err)
	assert.ErrorIs(t, addErr, middleware.ErrLocked)
}

func TestAdd_Concurrent(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.Get("/", text("ok"))

	const workers = 16
	var (
		wg    sync.WaitGroup
		calls atomic.Int32
		errs  = make([]error, workers)
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = a.Add(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
				calls.Add(1)
				return next(req, res)
			})
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	_, err := process(t, a, "GET", "/")
	require.NoError(t, err)
	assert.Equal(t, int32(workers), calls.Load())
}

func TestAdd_ContainerReference(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	require.NoError(t, a.Set("poweredBy", middleware.Frame(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
		return next(req, res.WithHeader("X-Powered-By", "go-kernel"))
	})))
	require.NoError(t, a.Add("poweredBy"))
	a.Get("/", text("ok"))

	res, err := process(t, a, "GET", "/")
	require.NoError(t, err)
	assert.Equal(t, "go-kernel", res.HeaderLine("X-Powered-By"))
}

// ── Errors ───────────────────────────────────────────────────────────────────

func TestProcess_HandlerErrorGoesToErrorHandler(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.Get("/fail", func(*gohttp.Request, *gohttp.Response, map[string]string) (*gohttp.Response, error) {
		return nil, errors.New("database down")
	})

	res, err := process(t, a, "GET", "/fail")
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode())
	// local settings display details
	assert.Contains(t, res.Body().String(), "database down")
}

func TestProcess_PanicIsRecovered(t *testing.T) {
	t.Parallel()

	t.Run("with error handler", func(t *testing.T) {
		a := newApp(t)
		a.Get("/panic", func(*gohttp.Request, *gohttp.Response, map[string]string) (*gohttp.Response, error) {
			panic("boom")
		})

		res, err := process(t, a, "GET", "/panic")
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, res.StatusCode())
	})

	t.Run("without error handler", func(t *testing.T) {
		a := newApp(t)
		a.Unset(handlers.ErrorID)
		a.Get("/panic", func(*gohttp.Request, *gohttp.Response, map[string]string) (*gohttp.Response, error) {
			panic(errors.New("boom"))
		})

		_, err := process(t, a, "GET", "/panic")
		var pe *app.PanicError
		require.ErrorAs(t, err, &pe)
		assert.EqualError(t, errors.Unwrap(pe), "boom")
		assert.NotEmpty(t, pe.Stack)

		// the pipeline lock was released
		assert.NoError(t, a.Add(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
			return next(req, res)
		}))
	})
}

func TestProcess_MissingResponse(t *testing.T) {
	t.Parallel()

	noResponse := func(*gohttp.Request, *gohttp.Response, map[string]string) (*gohttp.Response, error) {
		return nil, nil
	}

	t.Run("route handler keeps the response", func(t *testing.T) {
		a := newApp(t)
		a.Get("/empty", noResponse)

		res, err := process(t, a, "GET", "/empty")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode())
	})

	t.Run("not found handler", func(t *testing.T) {
		a := newApp(t)
		a.Unset(handlers.NotFoundID)
		require.NoError(t, a.Set(handlers.NotFoundID, handlers.NotFound(func(*gohttp.Request, *gohttp.Response) (*gohttp.Response, error) {
			return nil, nil
		})))

		_, err := process(t, a, "GET", "/nowhere")
		require.ErrorIs(t, err, middleware.ErrContractViolation)
		var nf *app.NotFoundError
		assert.ErrorAs(t, err, &nf)
	})

	t.Run("not allowed handler", func(t *testing.T) {
		a := newApp(t)
		a.Post("/users", text("created"))
		a.Unset(handlers.NotAllowedID)
		require.NoError(t, a.Set(handlers.NotAllowedID, handlers.NotAllowed(func(*gohttp.Request, *gohttp.Response, []string) (*gohttp.Response, error) {
			return nil, nil
		})))

		_, err := process(t, a, "GET", "/users")
		assert.ErrorIs(t, err, middleware.ErrContractViolation)
	})

	t.Run("error handler", func(t *testing.T) {
		a := newApp(t)
		a.Unset(handlers.ErrorID)
		require.NoError(t, a.Set(handlers.ErrorID, handlers.Error(func(*gohttp.Request, *gohttp.Response, error) (*gohttp.Response, error) {
			return nil, nil
		})))
		a.Get("/fail", func(*gohttp.Request, *gohttp.Response, map[string]string) (*gohttp.Response, error) {
			return nil, errors.New("database down")
		})

		_, err := process(t, a, "GET", "/fail")
		require.ErrorIs(t, err, middleware.ErrContractViolation)
		assert.ErrorContains(t, err, "database down")
	})
}

// ── Route info ───────────────────────────────────────────────────────────────

func TestProcess_DetermineRouteBeforeAppMiddleware(t *testing.T) {
	t.Parallel()
	a := newApp(t, func(s *config.Settings) { s.DetermineRouteBeforeAppMiddleware = true })
	a.Get("/users/{id}", text("ok")).SetName("user")

	var (
		name string
		id   string
	)
	require.NoError(t, a.Add(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
		if route, ok := req.Attribute(app.RouteAttribute).(*routing.Route); ok {
			name = route.Name()
		}
		id = routing.Param(req, "id")
		return next(req, res)
	}))

	_, err := process(t, a, "GET", "/users/7")
	require.NoError(t, err)
	assert.Equal(t, "user", name)
	assert.Equal(t, "7", id)
}

func TestProcess_RedispatchWhenMethodChanges(t *testing.T) {
	t.Parallel()
	a := newApp(t, func(s *config.Settings) { s.DetermineRouteBeforeAppMiddleware = true })
	a.Get("/items", text("get"))
	a.Post("/items", text("post"))

	require.NoError(t, a.Add(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
		if override := req.Header("X-HTTP-Method-Override"); override != "" {
			req = req.WithMethod(override)
		}
		return next(req, res)
	}))

	req, err := gohttp.NewRequestFromTarget(context.Background(), "GET", "/items", nil)
	require.NoError(t, err)
	req.Raw().Header.Set("X-HTTP-Method-Override", "POST")

	res, err := a.Process(req, gohttp.NewResponse())
	require.NoError(t, err)
	assert.Equal(t, "post", res.Body().String())
}

// ── Finalize ─────────────────────────────────────────────────────────────────

func TestProcess_EmptyResponseDropsEntityHeaders(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.Delete("/items/{id}", func(_ *gohttp.Request, res *gohttp.Response, _ map[string]string) (*gohttp.Response, error) {
		return res.WithHeader("Content-Type", "application/json").NoContent(), nil
	})

	res, err := process(t, a, "DELETE", "/items/1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, res.StatusCode())
	assert.False(t, res.HasHeader("Content-Type"))
	assert.False(t, res.HasHeader("Content-Length"))
}

func TestProcess_ContentLengthDisabled(t *testing.T) {
	t.Parallel()
	a := newApp(t, func(s *config.Settings) { s.AddContentLengthHeader = false })
	a.Get("/", text("hello"))

	res, err := process(t, a, "GET", "/")
	require.NoError(t, err)
	assert.False(t, res.HasHeader("Content-Length"))
}

// ── Sub-requests and transport ───────────────────────────────────────────────

func TestSubRequest(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.Get("/users/{id}", func(req *gohttp.Request, res *gohttp.Response, args map[string]string) (*gohttp.Response, error) {
		return res.Write(args["id"] + ":" + req.Query("expand") + ":" + req.Header("X-Trace")), nil
	})

	res, err := a.SubRequest(context.Background(), "GET", "/users/9", "expand=roles",
		http.Header{"X-Trace": {"abc"}}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "9:roles:abc", res.Body().String())
	assert.Equal(t, "text/html; charset=UTF-8", res.HeaderLine("Content-Type"))
}

func TestServeHTTP(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.Post("/echo", func(req *gohttp.Request, res *gohttp.Response, _ map[string]string) (*gohttp.Response, error) {
		var in struct {
			Name string `json:"name"`
		}
		if err := req.Bind(&in); err != nil {
			return res.Error(http.StatusBadRequest, err.Error())
		}
		return res.Created(in)
	})

	srv := httptest.NewServer(a.Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/echo", "application/json", strings.NewReader(`{"name":"alice"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestServeHTTP_UnhandledError(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.Unset(handlers.NotFoundID)

	rr := httptest.NewRecorder()
	a.ServeHTTP(rr, httptest.NewRequest("GET", "/missing", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestExecute(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.Get("/hello", text("hi"))

	_, err := a.Execute(httptest.NewRecorder())
	require.ErrorIs(t, err, container.ErrNotDefined)

	req, err := gohttp.NewRequestFromTarget(context.Background(), "GET", "/hello", nil)
	require.NoError(t, err)
	require.NoError(t, a.Set(providers.RequestID, req))

	rr := httptest.NewRecorder()
	res, err := a.Execute(rr)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode())
	assert.Equal(t, "hi", rr.Body.String())
}

func TestRun_ShutsDownWhenContextEnds(t *testing.T) {
	t.Parallel()
	a := newApp(t, func(s *config.Settings) {
		s.App.Port = "0"
		s.ShutdownTimeout = time.Second
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// ── Environment ──────────────────────────────────────────────────────────────

func TestEnvironment(t *testing.T) {
	t.Parallel()
	a := newApp(t, func(s *config.Settings) {
		s.App.Env = "production"
		s.App.Debug = false
	})

	assert.Equal(t, "production", a.Environment())
	assert.True(t, a.IsProduction())
	assert.False(t, a.IsLocal())
	assert.False(t, a.IsTesting())
	assert.False(t, a.IsDebug())
	assert.NotEmpty(t, a.Version())
}
