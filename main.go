package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/km-arc/go-kernel/framework/app"
	"github.com/km-arc/go-kernel/framework/config"
	"github.com/km-arc/go-kernel/framework/container"
	gohttp "github.com/km-arc/go-kernel/framework/http"
	"github.com/km-arc/go-kernel/framework/middleware"
	"github.com/km-arc/go-kernel/framework/resolver"
	"github.com/km-arc/go-kernel/framework/routing"
)

func main() {
	application, err := app.New() // loads .env automatically
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Controllers referenced as "users:Method" are built per resolution.
	store := &userStore{
		users: map[string]string{"1": "Alice", "2": "Bob"},
		max:   config.GetInt("USERS_MAX", 1000),
	}
	callables := container.MustResolve[*resolver.Resolver](application.Container, resolver.ContainerID)
	callables.Register("users", func(*container.Container) (any, error) {
		return &UserController{store: store}, nil
	})

	// ── Basic routes ─────────────────────────────────────────────────────────

	greeting := config.Get("APP_GREETING", "Welcome to go-kernel!")
	application.Get("/", func(_ *gohttp.Request, res *gohttp.Response, _ map[string]string) (*gohttp.Response, error) {
		return res.Success(map[string]any{"message": greeting})
	}).SetName("home")

	// ── Route groups ─────────────────────────────────────────────────────────

	application.Group("/api/v1", func(api *routing.Router) {
		api.Get("/users", "users:Index").SetName("users.index")
		api.Post("/users", "users:Store")
		api.Get("/users/{id:[0-9]+}", "users:Show").SetName("users.show")

		// GET /api/v1/archive/2024 or /api/v1/archive/2024/05
		api.Get("/archive/{year}[/{month}]", func(_ *gohttp.Request, res *gohttp.Response, args map[string]string) (*gohttp.Response, error) {
			return res.Success(args)
		}).SetName("archive")
	})

	// ── Auth group with middleware ───────────────────────────────────────────

	accountGroup := application.Group("/account", func(account *routing.Router) {
		account.Get("/profile", func(req *gohttp.Request, res *gohttp.Response, _ map[string]string) (*gohttp.Response, error) {
			return res.Success(map[string]any{"user": req.Attribute("user")})
		})
	})
	if config.GetBool("ACCOUNT_AUTH", true) {
		accountGroup.Add(middleware.Frame(AuthMiddleware))
	}

	// ── Application middleware ───────────────────────────────────────────────

	if err := application.Add(func(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
		return next(req, res.WithHeader("X-Powered-By", "go-kernel/"+application.Version()))
	}); err != nil {
		application.Logger().Error("add middleware", slog.Any("error", err))
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		application.Logger().Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// AuthMiddleware is an example bearer-token guard.
func AuthMiddleware(req *gohttp.Request, res *gohttp.Response, next middleware.Next) (*gohttp.Response, error) {
	token := req.BearerToken()
	if token == "" {
		return res.Unauthorized()
	}
	return next(req.WithAttribute("user", token), res)
}

type userStore struct {
	mu    sync.RWMutex
	users map[string]string
	max   int
}

// UserController serves the users resource from memory.
type UserController struct {
	store *userStore
}

func (c *UserController) Index(_ *gohttp.Request, res *gohttp.Response, _ map[string]string) (*gohttp.Response, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	return res.Success(c.store.users)
}

func (c *UserController) Show(_ *gohttp.Request, res *gohttp.Response, args map[string]string) (*gohttp.Response, error) {
	c.store.mu.RLock()
	defer c.store.mu.RUnlock()
	name, ok := c.store.users[args["id"]]
	if !ok {
		return res.NotFound("User not found.")
	}
	return res.Success(map[string]string{"id": args["id"], "name": name})
}

func (c *UserController) Store(req *gohttp.Request, res *gohttp.Response, _ map[string]string) (*gohttp.Response, error) {
	var body struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := req.Bind(&body); err != nil {
		return res.Error(http.StatusBadRequest, err.Error())
	}
	if body.ID == "" || body.Name == "" {
		return res.Error(http.StatusUnprocessableEntity, "id and name are required")
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	if _, exists := c.store.users[body.ID]; !exists && len(c.store.users) >= c.store.max {
		return res.Error(http.StatusConflict, "user limit reached")
	}
	c.store.users[body.ID] = body.Name
	return res.Created(body)
}
