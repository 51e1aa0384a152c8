package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ContainerID is the id under which the kernel registers its Settings.
const ContainerID = "settings"

// ErrParsingConfig is returned when environment variables cannot be parsed
// into Settings.
var ErrParsingConfig = errors.New("config: failed to parse environment variables")

// Settings is the kernel's typed configuration.
type Settings struct {
	App    AppConfig    `envPrefix:"APP_"`
	Log    LogConfig    `envPrefix:"LOG_"`
	Sentry SentryConfig `envPrefix:"SENTRY_"`

	// HTTPVersion is the protocol version set on fresh responses.
	HTTPVersion string `env:"HTTP_VERSION" envDefault:"1.1"`
	// ResponseChunkSize is the write size used when emitting bodies.
	ResponseChunkSize int `env:"RESPONSE_CHUNK_SIZE" envDefault:"4096"`
	// DetermineRouteBeforeAppMiddleware resolves the route before the
	// application middleware runs, so middleware can inspect it.
	DetermineRouteBeforeAppMiddleware bool `env:"DETERMINE_ROUTE_BEFORE_APP_MIDDLEWARE" envDefault:"false"`
	// AddContentLengthHeader sets Content-Length from the body size.
	AddContentLengthHeader bool `env:"ADD_CONTENT_LENGTH_HEADER" envDefault:"true"`
	// RouterBasePath prefixes URLs built with PathFor.
	RouterBasePath string `env:"ROUTER_BASE_PATH"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type AppConfig struct {
	Name  string `env:"NAME" envDefault:"GoKernel"`
	Env   string `env:"ENV" envDefault:"local"` // local | production | testing
	Debug bool   `env:"DEBUG" envDefault:"true"`
	URL   string `env:"URL" envDefault:"http://localhost"`
	Port  string `env:"PORT" envDefault:"8000"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"` // json | text
}

type SentryConfig struct {
	DSN         string `env:"DSN"`
	Environment string `env:"ENVIRONMENT" envDefault:"production"`
}

// DisplayErrorDetails reports whether error responses include details.
func (s *Settings) DisplayErrorDetails() bool { return s.App.Debug }

// Addr returns the listen address.
func (s *Settings) Addr() string { return ":" + s.App.Port }

// Load reads .env files (if present) and parses Settings from the
// environment. Variables already set in the environment win over the files.
// Call once at bootstrap: cfg, err := config.Load()
func Load(envFiles ...string) (*Settings, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	var s Settings
	if err := env.Parse(&s); err != nil {
		return nil, errors.Join(ErrParsingConfig, err)
	}
	return &s, nil
}

// MustLoad is Load that panics on error.
func MustLoad(envFiles ...string) *Settings {
	s, err := Load(envFiles...)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return s
}

// Default returns Settings with every default applied and no environment
// lookups.
func Default() *Settings {
	var s Settings
	_ = env.ParseWithOptions(&s, env.Options{Environment: map[string]string{}})
	return &s
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return b
}
