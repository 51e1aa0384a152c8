package middleware_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-kernel/framework/container"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/middleware"
	"github.com/km-arc/go-kernel/framework/resolver"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newRequest(t *testing.T) *gohttp.Request {
	t.Helper()
	req, err := gohttp.NewRequestFromTarget(t.Context(), "GET", "/", nil)
	require.NoError(t, err)
	return req
}

// recorder returns a kernel and frame constructor that append to trace.
func tracing(trace *[]string) (middleware.Next, func(name string) middleware.Frame) {
	kernel := func(req *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error) {
		*trace = append(*trace, "kernel")
		return res.Write("kernel"), nil
	}
	frame := func(name string) middleware.Frame {
		return func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
			*trace = append(*trace, name)
			return next(req, res)
		}
	}
	return kernel, frame
}

// ── Ordering ─────────────────────────────────────────────────────────────────

func TestPipeline_LIFOOrder(t *testing.T) {
	t.Parallel()

	var trace []string
	kernel, frame := tracing(&trace)

	p := middleware.New(kernel)
	require.NoError(t, p.Add(frame("A")))
	require.NoError(t, p.Add(frame("B")))
	require.NoError(t, p.Add(frame("C")))
	assert.Equal(t, 3, p.Len())

	res, err := p.Dispatch(newRequest(t), gohttp.NewResponse())
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A", "kernel"}, trace)
	assert.Equal(t, "kernel", res.Body().String())
}

func TestPipeline_EmptyRunsKernel(t *testing.T) {
	t.Parallel()

	var trace []string
	kernel, _ := tracing(&trace)

	_, err := middleware.New(kernel).Dispatch(newRequest(t), gohttp.NewResponse())
	require.NoError(t, err)
	assert.Equal(t, []string{"kernel"}, trace)
}

func TestPipeline_FramesSeeModifiedRequestAndResponse(t *testing.T) {
	t.Parallel()

	p := middleware.New(func(req *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error) {
		return res.WithHeader("X-User", req.Attribute("user").(string)), nil
	})
	require.NoError(t, p.Add(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
		out, err := next(req.WithAttribute("user", "alice"), res)
		if err != nil {
			return nil, err
		}
		return out.WithStatus(202), nil
	}))

	res, err := p.Dispatch(newRequest(t), gohttp.NewResponse())
	require.NoError(t, err)
	assert.Equal(t, 202, res.StatusCode())
	assert.Equal(t, "alice", res.HeaderLine("X-User"))
}

func TestPipeline_ShortCircuit(t *testing.T) {
	t.Parallel()

	var trace []string
	kernel, frame := tracing(&trace)

	p := middleware.New(kernel)
	require.NoError(t, p.Add(frame("inner")))
	require.NoError(t, p.Add(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
		trace = append(trace, "guard")
		return res.Unauthorized()
	}))

	res, err := p.Dispatch(newRequest(t), gohttp.NewResponse())
	require.NoError(t, err)
	assert.Equal(t, 401, res.StatusCode())
	assert.Equal(t, []string{"guard"}, trace)
}

// ── Lock ─────────────────────────────────────────────────────────────────────

func TestPipeline_AddDuringDispatchFails(t *testing.T) {
	t.Parallel()

	var trace []string
	kernel, frame := tracing(&trace)
	p := middleware.New(kernel)

	var addErr, seedErr error
	require.NoError(t, p.Add(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
		addErr = p.Add(frame("late"))
		seedErr = p.Seed(kernel)
		return next(req, res)
	}))

	_, err := p.Dispatch(newRequest(t), gohttp.NewResponse())
	require.NoError(t, err)
	assert.ErrorIs(t, addErr, middleware.ErrLocked)
	assert.ErrorIs(t, seedErr, middleware.ErrLocked)
	assert.Equal(t, 1, p.Len())

	require.NoError(t, p.Add(frame("after")), "lock is released once dispatch returns")
	assert.Equal(t, 2, p.Len())
}

func TestPipeline_NestedDispatch(t *testing.T) {
	t.Parallel()

	calls := 0
	var p *middleware.Pipeline
	p = middleware.New(func(req *gohttp.Request, res *gohttp.Response) (*gohttp.Response, error) {
		calls++
		if calls == 1 {
			return p.Dispatch(req, res)
		}
		return res, nil
	})

	_, err := p.Dispatch(newRequest(t), gohttp.NewResponse())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

// ── Contract ─────────────────────────────────────────────────────────────────

func TestPipeline_ContractViolation(t *testing.T) {
	t.Parallel()

	var trace []string
	kernel, _ := tracing(&trace)
	p := middleware.New(kernel)
	require.NoError(t, p.Add(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
		return nil, nil
	}))

	_, err := p.Dispatch(newRequest(t), gohttp.NewResponse())
	assert.ErrorIs(t, err, middleware.ErrContractViolation)
}

func TestPipeline_ErrorsPropagate(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	var trace []string
	kernel, frame := tracing(&trace)

	p := middleware.New(kernel)
	require.NoError(t, p.Add(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
		return nil, boom
	}))
	require.NoError(t, p.Add(frame("outer")))

	_, err := p.Dispatch(newRequest(t), gohttp.NewResponse())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, middleware.ErrContractViolation)
	assert.Equal(t, []string{"outer"}, trace)
}

// ── Seeding ──────────────────────────────────────────────────────────────────

func TestPipeline_Seeding(t *testing.T) {
	t.Parallel()

	var trace []string
	kernel, frame := tracing(&trace)

	p := middleware.New(nil)
	assert.False(t, p.Seeded())
	require.NoError(t, p.Add(frame("A")))

	_, err := p.Dispatch(newRequest(t), gohttp.NewResponse())
	require.ErrorIs(t, err, middleware.ErrNotSeeded)

	require.NoError(t, p.Seed(kernel))
	assert.True(t, p.Seeded())
	assert.ErrorIs(t, p.Seed(kernel), middleware.ErrSeeded)

	_, err = p.Dispatch(newRequest(t), gohttp.NewResponse())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "kernel"}, trace)
}

func TestPipeline_NilFramePanics(t *testing.T) {
	t.Parallel()
	assert.Panics(t, func() { _ = middleware.New(nil).Add(nil) })
}

// ── Defer ────────────────────────────────────────────────────────────────────

type auth struct{ header string }

func (a *auth) Handle(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
	out, err := next(req, res)
	if err != nil {
		return nil, err
	}
	return out.WithHeader(a.header, "checked"), nil
}

func TestDefer_ResolvesThroughContainer(t *testing.T) {
	t.Parallel()

	c := container.New()
	require.NoError(t, c.Set(resolver.ContainerID, resolver.New(c)))

	var trace []string
	kernel, _ := tracing(&trace)
	p := middleware.New(kernel)
	require.NoError(t, p.Add(middleware.Defer("auth:Handle", c)))

	_, err := p.Dispatch(newRequest(t), gohttp.NewResponse())
	require.ErrorIs(t, err, resolver.ErrUnresolvable, "auth is registered after the frame")

	require.NoError(t, c.Set("auth", &auth{header: "X-Auth"}))
	res, err := p.Dispatch(newRequest(t), gohttp.NewResponse())
	require.NoError(t, err)
	assert.Equal(t, "checked", res.HeaderLine("X-Auth"))
}

func TestDefer_FuncLiteral(t *testing.T) {
	t.Parallel()

	var trace []string
	kernel, _ := tracing(&trace)
	p := middleware.New(kernel)
	require.NoError(t, p.Add(middleware.Defer(
		func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
			trace = append(trace, "literal")
			return next(req, res)
		}, nil)))

	_, err := p.Dispatch(newRequest(t), gohttp.NewResponse())
	require.NoError(t, err)
	assert.Equal(t, []string{"literal", "kernel"}, trace)
}
