package resolver_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-kernel/framework/container"
	"github.com/km-arc/go-kernel/framework/resolver"
)

type greetFunc func(name string) string

type greeter struct{ greeting string }

func (g *greeter) Hello(name string) string { return g.greeting + ", " + name }

func (g *greeter) unexported(name string) string { return name }

func newResolver(t *testing.T) (*resolver.Resolver, *container.Container) {
	t.Helper()
	c := container.New(map[string]any{
		"greeter": &greeter{greeting: "hello"},
		"shout":   func(name string) string { return name + "!" },
		"number":  42,
		"nothing": nil,
	})
	r := resolver.New(c)
	require.NoError(t, c.Set(resolver.ContainerID, r))
	return r, c
}

func TestResolve_ValueAlreadyOfType(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t)

	fn := greetFunc(func(n string) string { return "hi " + n })
	got, err := resolver.Resolve[greetFunc](r, fn)
	require.NoError(t, err)
	assert.Equal(t, "hi bob", got("bob"))
}

func TestResolve_FuncLiteralConverts(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t)

	got, err := resolver.Resolve[greetFunc](r, func(n string) string { return "yo " + n })
	require.NoError(t, err)
	assert.Equal(t, "yo bob", got("bob"))
}

func TestResolve_NameMethodFromContainer(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t)

	got, err := resolver.Resolve[greetFunc](r, "greeter:Hello")
	require.NoError(t, err)
	assert.Equal(t, "hello, bob", got("bob"))
}

func TestResolve_NameMethodFromConstructor(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t)

	calls := 0
	r.Register("Welcomer", func(c *container.Container) (any, error) {
		calls++
		return &greeter{greeting: "welcome"}, nil
	})
	assert.True(t, r.Registered("Welcomer"))

	got, err := resolver.Resolve[greetFunc](r, "Welcomer:Hello")
	require.NoError(t, err)
	assert.Equal(t, "welcome, ann", got("ann"))
	assert.Equal(t, 1, calls)
}

func TestResolve_ContainerWinsOverConstructor(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t)

	r.Register("greeter", func(c *container.Container) (any, error) {
		return &greeter{greeting: "constructed"}, nil
	})

	got, err := resolver.Resolve[greetFunc](r, "greeter:Hello")
	require.NoError(t, err)
	assert.Equal(t, "hello, x", got("x"))
}

func TestResolve_BareNameCallableService(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t)

	got, err := resolver.Resolve[greetFunc](r, "shout")
	require.NoError(t, err)
	assert.Equal(t, "hey!", got("hey"))
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t)

	r.Register("Broken", func(c *container.Container) (any, error) {
		return nil, errors.New("boom")
	})

	tests := []struct {
		name string
		ref  any
		want error
	}{
		{"unknown name", "Missing", resolver.ErrUnresolvable},
		{"unknown name with method", "Missing:Hello", resolver.ErrUnresolvable},
		{"invalid method part is part of name", "greeter:He-llo", resolver.ErrUnresolvable},
		{"missing method", "greeter:Goodbye", resolver.ErrNotInvokable},
		{"unexported method", "greeter:unexported", resolver.ErrNotInvokable},
		{"bare name not callable", "greeter", resolver.ErrNotInvokable},
		{"plain value", "number", resolver.ErrNotInvokable},
		{"nil entry with method", "nothing:Hello", resolver.ErrNotInvokable},
		{"non-func reference", 42, resolver.ErrNotInvokable},
		{"nil reference", nil, resolver.ErrNotInvokable},
		{"wrong signature", func(int) int { return 0 }, resolver.ErrNotInvokable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.Resolve[greetFunc](r, tt.ref)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := resolver.Resolve[greetFunc](r, "Broken:Hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestResolve_NotInvokableMatchesContainerSentinel(t *testing.T) {
	t.Parallel()
	r, _ := newResolver(t)

	_, err := resolver.Resolve[greetFunc](r, 42)
	assert.ErrorIs(t, err, container.ErrNotInvokable)
}

func TestDeferred_ResolvesAtCallTime(t *testing.T) {
	t.Parallel()
	_, c := newResolver(t)

	d := resolver.Defer[greetFunc]("Late:Hello", c)
	assert.Equal(t, "Late:Hello", d.Reference())

	_, err := d.Resolve()
	require.ErrorIs(t, err, resolver.ErrUnresolvable)

	require.NoError(t, c.Set("Late", &greeter{greeting: "later"}))

	got, err := d.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "later, zed", got("zed"))
}

func TestDeferred_WithoutResolver(t *testing.T) {
	t.Parallel()

	d := resolver.Defer[greetFunc](func(n string) string { return n }, nil)
	got, err := d.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "same", got("same"))

	_, err = resolver.Defer[greetFunc]("greeter:Hello", container.New()).Resolve()
	assert.ErrorIs(t, err, resolver.ErrUnresolvable)
}
