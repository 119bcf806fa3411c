// Package echo provides containr integration for the Echo web framework.
//
// This package provides middleware for forking a child container per request
// and handler wrappers that resolve controllers from it.
//
// Example usage:
//
//	container, _ := services.BuildContainer()
//
//	e := echo.New()
//	e.Use(containrecho.ContainerMiddleware(container))
//
//	e.POST("/login", containrecho.Handle("auth", (*AuthController).Login))
//	e.GET("/users/:id", containrecho.Handle("users", (*UserController).GetByID))
package echo

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/junioryono/containr"
)

// ContextKey is bound to the current echo.Context in every request container.
const ContextKey = "@containr/echo/context"

// Config holds the configuration for the container middleware.
type Config struct {
	// ErrorHandler is called when creating the request container fails.
	// If nil, the error is returned (Echo's default error handling).
	ErrorHandler func(echo.Context, error) error

	// CloseErrorHandler is called when disposing the request container fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// Provenance labels the request container.
	Provenance func(echo.Context) string

	// Overrides are applied to every request container.
	Overrides []containr.Module

	// Middlewares are functions that run after the request container is created.
	Middlewares []func(containr.Container, echo.Context) error
}

// Option configures the container middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for container creation failures.
func WithErrorHandler(h func(echo.Context, error) error) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithCloseErrorHandler sets the error handler for disposal failures.
func WithCloseErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.CloseErrorHandler = h
	}
}

// WithProvenance sets the function labelling request containers.
func WithProvenance(fn func(echo.Context) string) Option {
	return func(c *Config) {
		c.Provenance = fn
	}
}

// WithOverrides adds modules applied to every request container.
func WithOverrides(modules ...containr.Module) Option {
	return func(c *Config) {
		c.Overrides = append(c.Overrides, modules...)
	}
}

// WithMiddleware adds a function that runs after the request container is created.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(containr.Container, echo.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to dispose request container", "error", err)
		},
		Provenance: func(c echo.Context) string {
			if id := c.Request().Header.Get(echo.HeaderXRequestID); id != "" {
				return id
			}
			return fmt.Sprintf("%s %s", c.Request().Method, c.Path())
		},
	}
}

// ContainerMiddleware creates an Echo middleware that forks root for each
// request. The child container is attached to the request context and can be
// retrieved using containr.FromContext.
//
// The child container is disposed when the request completes.
//
// Example:
//
//	e := echo.New()
//	e.Use(containrecho.ContainerMiddleware(container))
func ContainerMiddleware(root containr.Container, opts ...Option) echo.MiddlewareFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			overrides := make([]containr.Module, 0, len(cfg.Overrides)+1)
			overrides = append(overrides, containr.NewModule("echo-request",
				containr.AddFactory(ContextKey, c, containr.Unique),
			))
			overrides = append(overrides, cfg.Overrides...)

			child, err := root.CreateChildContainer(cfg.Provenance(c), overrides...)
			if err != nil {
				return cfg.ErrorHandler(c, err)
			}

			defer func() {
				if err := child.Dispose(); err != nil {
					cfg.CloseErrorHandler(err)
				}
			}()

			c.SetRequest(c.Request().WithContext(containr.WithContainer(c.Request().Context(), child)))

			for _, mw := range cfg.Middlewares {
				if err := mw(child, c); err != nil {
					return cfg.ErrorHandler(c, err)
				}
			}

			return next(c)
		}
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(echo.Context, any) error

	// ContainerErrorHandler is called when the request carries no container.
	ContainerErrorHandler func(echo.Context, error) error

	// ResolutionErrorHandler is called when controller resolution fails.
	ResolutionErrorHandler func(echo.Context, error) error
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(echo.Context, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for a missing request container.
func WithContainerErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(echo.Context, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicRecovery: false,
		PanicHandler: func(c echo.Context, v any) error {
			slog.Error("panic in handler", "panic", v)
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		ContainerErrorHandler: func(c echo.Context, err error) error {
			slog.Error("failed to get container from context", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
		ResolutionErrorHandler: func(c echo.Context, err error) error {
			slog.Error("failed to resolve controller", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "Internal Server Error")
		},
	}
}

// Handle wraps a controller method resolved by key from the request container.
//
// The method signature should be: func(T, echo.Context) error
//
// Example:
//
//	e.GET("/users/:id", containrecho.Handle("users", (*UserController).GetByID))
func Handle[T any](key string, method func(T, echo.Context) error, opts ...HandlerOption) echo.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c echo.Context) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		container, containerErr := containr.FromContext(c.Request().Context())
		if containerErr != nil {
			return cfg.ContainerErrorHandler(c, containerErr)
		}

		controller, resolveErr := containr.Get[T](container, key)
		if resolveErr != nil {
			return cfg.ResolutionErrorHandler(c, resolveErr)
		}

		return method(controller, c)
	}
}
