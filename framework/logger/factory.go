package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ContainerID is the id under which the kernel registers its logger.
const ContainerID = "logger"

// Format represents logger output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Option configures logger creation.
type Option func(*config)

type config struct {
	level          slog.Level
	format         Format
	output         io.Writer
	handlerOptions *slog.HandlerOptions
	attrs          []slog.Attr
	extractors     []ContextExtractor
	sentry         *SentryConfig
	setDefault     bool
}

func WithLevel(l slog.Level) Option {
	return func(c *config) { c.level = l }
}

// WithFormat sets the output format. It panics on an unknown format.
func WithFormat(f Format) Option {
	return func(c *config) {
		switch f {
		case FormatJSON, FormatText:
			c.format = f
		default:
			panic(fmt.Errorf("invalid log format %q: must be %q or %q", f, FormatJSON, FormatText))
		}
	}
}

// WithOutput sets the destination. Nil writers are ignored.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		if w != nil {
			c.output = w
		}
	}
}

func WithHandlerOptions(opts *slog.HandlerOptions) Option {
	return func(c *config) {
		if opts != nil {
			c.handlerOptions = opts
		}
	}
}

// WithAttr adds static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(c *config) {
		c.attrs = append(c.attrs, attrs...)
	}
}

// WithContextExtractors registers functions that add attributes from the
// context of each record.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(c *config) {
		for _, ex := range extractors {
			if ex != nil {
				c.extractors = append(c.extractors, ex)
			}
		}
	}
}

// WithContextValue adds the context value stored under key as name.
func WithContextValue(name string, key any) Option {
	return func(c *config) {
		if name == "" || key == nil {
			return
		}
		c.extractors = append(c.extractors, func(ctx context.Context) (slog.Attr, bool) {
			if v := ctx.Value(key); v != nil {
				return slog.Any(name, v), true
			}
			return slog.Attr{}, false
		})
	}
}

// WithEnvironment applies defaults for an application environment: text at
// debug level for "local", JSON at info level otherwise. service and env are
// attached to every record.
func WithEnvironment(service, env string) Option {
	return func(c *config) {
		if env == "local" {
			c.level = slog.LevelDebug
			c.format = FormatText
		} else {
			c.level = slog.LevelInfo
			c.format = FormatJSON
		}
		if service != "" {
			c.attrs = append(c.attrs, slog.String("service", service))
		}
		c.attrs = append(c.attrs, slog.String("env", env))
	}
}

// WithSentry forwards warnings and errors to Sentry as well. An empty DSN
// disables it.
func WithSentry(cfg SentryConfig) Option {
	return func(c *config) {
		if cfg.DSN != "" {
			c.sentry = &cfg
		}
	}
}

// SetAsDefault installs the logger with slog.SetDefault.
func SetAsDefault() Option {
	return func(c *config) { c.setDefault = true }
}

// ParseLevel maps a level name to a slog.Level, case-insensitively.
// Unknown names yield info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return l
}

// New builds a logger. Without options it writes JSON at info level to
// stdout.
//
//	log := logger.New(
//	    logger.WithLevel(logger.ParseLevel(cfg.Log.Level)),
//	    logger.WithContextExtractors(logger.RequestIDExtractor),
//	)
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		format: FormatJSON,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.output == nil {
		c.output = os.Stdout
	}

	ho := c.handlerOptions
	if ho == nil {
		ho = &slog.HandlerOptions{}
	}
	ho.Level = c.level

	var h slog.Handler
	if c.format == FormatText {
		h = slog.NewTextHandler(c.output, ho)
	} else {
		h = slog.NewJSONHandler(c.output, ho)
	}

	if c.sentry != nil {
		if sh, err := newSentryHandler(*c.sentry); err != nil {
			slog.New(h).Error("failed to initialize Sentry", Error(err))
		} else {
			h = fanout{h, sh}
		}
	}

	if len(c.attrs) > 0 {
		h = h.WithAttrs(c.attrs)
	}
	if len(c.extractors) > 0 {
		h = newContextHandler(h, c.extractors...)
	}

	l := slog.New(h)
	if c.setDefault {
		slog.SetDefault(l)
	}
	return l
}
