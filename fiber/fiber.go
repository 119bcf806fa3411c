// Package fiber provides containr integration for the Fiber web framework.
//
// This package provides middleware for forking a child container per request
// and handler wrappers that resolve controllers from it.
//
// Example usage:
//
//	container, _ := services.BuildContainer()
//
//	app := fiber.New()
//	app.Use(containrfiber.ContainerMiddleware(container))
//
//	app.Post("/login", containrfiber.Handle("auth", (*AuthController).Login))
//	app.Get("/users/:id", containrfiber.Handle("users", (*UserController).GetByID))
package fiber

import (
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/junioryono/containr"
)

// ContextKey is bound to the current *fiber.Ctx in every request container.
// Fiber recycles contexts, so the binding is only valid while the request runs.
const ContextKey = "@containr/fiber/context"

// containerKey is the key used to store the container in fiber.Ctx.Locals
const containerKey = "containr_container"

// Config holds the configuration for the container middleware.
type Config struct {
	// ErrorHandler is called when creating the request container fails.
	ErrorHandler func(*fiber.Ctx, error) error

	// CloseErrorHandler is called when disposing the request container fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// Provenance labels the request container.
	Provenance func(*fiber.Ctx) string

	// Overrides are applied to every request container.
	Overrides []containr.Module

	// Middlewares are functions that run after the request container is created.
	Middlewares []func(containr.Container, *fiber.Ctx) error
}

// Option configures the container middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for container creation failures.
func WithErrorHandler(h func(*fiber.Ctx, error) error) Option {
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
func WithProvenance(fn func(*fiber.Ctx) string) Option {
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
func WithMiddleware(mw func(containr.Container, *fiber.Ctx) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Internal Server Error",
	})
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return internalError(c)
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to dispose request container", "error", err)
		},
		Provenance: func(c *fiber.Ctx) string {
			if id := c.Get(fiber.HeaderXRequestID); id != "" {
				return id
			}
			return fmt.Sprintf("%s %s", c.Method(), c.Path())
		},
	}
}

// ContainerMiddleware creates a Fiber middleware that forks root for each
// request. The child container is stored in fiber.Ctx.Locals and attached
// to the UserContext.
//
// The child container is disposed when the request completes.
//
// Example:
//
//	app := fiber.New()
//	app.Use(containrfiber.ContainerMiddleware(container))
func ContainerMiddleware(root containr.Container, opts ...Option) fiber.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) error {
		overrides := make([]containr.Module, 0, len(cfg.Overrides)+1)
		overrides = append(overrides, containr.NewModule("fiber-request",
			containr.AddFactory(ContextKey, c, containr.Unique),
		))
		overrides = append(overrides, cfg.Overrides...)

		child, err := root.CreateChildContainer(cfg.Provenance(c), overrides...)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.SetUserContext(containr.WithContainer(c.UserContext(), child))
		c.Locals(containerKey, child)

		dispose := func() {
			if err := child.Dispose(); err != nil {
				cfg.CloseErrorHandler(err)
			}
		}

		for _, mw := range cfg.Middlewares {
			if err := mw(child, c); err != nil {
				dispose()
				return cfg.ErrorHandler(c, err)
			}
		}

		err = c.Next()
		dispose()

		return err
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*fiber.Ctx, any) error

	// ContainerErrorHandler is called when the request carries no container.
	ContainerErrorHandler func(*fiber.Ctx, error) error

	// ResolutionErrorHandler is called when controller resolution fails.
	ResolutionErrorHandler func(*fiber.Ctx, error) error
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
func WithPanicHandler(h func(*fiber.Ctx, any) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for a missing request container.
func WithContainerErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(*fiber.Ctx, error) error) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicRecovery: false,
		PanicHandler: func(c *fiber.Ctx, v any) error {
			slog.Error("panic in handler", "panic", v)
			return internalError(c)
		},
		ContainerErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("failed to get container from context", "error", err)
			return internalError(c)
		},
		ResolutionErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("failed to resolve controller", "error", err)
			return internalError(c)
		},
	}
}

// Handle wraps a controller method resolved by key from the request container.
//
// The method signature should be: func(T, *fiber.Ctx) error
//
// Example:
//
//	app.Get("/users/:id", containrfiber.Handle("users", (*UserController).GetByID))
func Handle[T any](key string, method func(T, *fiber.Ctx) error, opts ...HandlerOption) fiber.Handler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *fiber.Ctx) (err error) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					err = cfg.PanicHandler(c, v)
				}
			}()
		}

		container, containerErr := FromContext(c)
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

// FromContext retrieves the request container from fiber.Ctx.Locals.
//
// Example:
//
//	container, err := containrfiber.FromContext(c)
//	users := containr.MustGet[*UserService](container, "users")
func FromContext(c *fiber.Ctx) (containr.Container, error) {
	container, ok := c.Locals(containerKey).(containr.Container)
	if !ok || container == nil {
		return nil, containr.ErrNoContainer
	}
	return container, nil
}
