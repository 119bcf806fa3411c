// Package gin provides containr integration for the Gin web framework.
//
// This package provides middleware for forking a child container per request
// and handler wrappers that resolve controllers from it.
//
// Example usage:
//
//	container, _ := services.BuildContainer()
//
//	g := gin.New()
//	g.Use(containrgin.ContainerMiddleware(container))
//
//	g.POST("/login", containrgin.Handle("auth", (*AuthController).Login))
//	g.GET("/users/:id", containrgin.Handle("users", (*UserController).GetByID))
package gin

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/junioryono/containr"
)

// ContextKey is bound to the current *gin.Context in every request container.
const ContextKey = "@containr/gin/context"

// RequestIDHeader is read by the default provenance function.
const RequestIDHeader = "X-Request-Id"

// Config holds the configuration for the container middleware.
type Config struct {
	// ErrorHandler is called when creating the request container fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(*gin.Context, error)

	// CloseErrorHandler is called when disposing the request container fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// Provenance labels the request container.
	Provenance func(*gin.Context) string

	// Overrides are applied to every request container.
	Overrides []containr.Module

	// Middlewares are functions that run after the request container is created.
	// They can be used to bind request data, set user claims, etc.
	Middlewares []func(containr.Container, *gin.Context) error
}

// Option configures the container middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for container creation failures.
func WithErrorHandler(h func(*gin.Context, error)) Option {
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
func WithProvenance(fn func(*gin.Context) string) Option {
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
//
// Example:
//
//	containrgin.ContainerMiddleware(container,
//	    containrgin.WithMiddleware(func(c containr.Container, ctx *gin.Context) error {
//	        session := containr.MustGet[*Session](c, "session")
//	        session.Token = ctx.GetHeader("Authorization")
//	        return nil
//	    }),
//	)
func WithMiddleware(mw func(containr.Container, *gin.Context) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(c *gin.Context, err error) {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Internal Server Error",
			})
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to dispose request container", "error", err)
		},
		Provenance: requestProvenance,
	}
}

func requestProvenance(c *gin.Context) string {
	if id := c.GetHeader(RequestIDHeader); id != "" {
		return id
	}
	return fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path)
}

// ContainerMiddleware creates a gin.HandlerFunc that forks root for each
// request. The child container is attached to the request context and can be
// retrieved using containr.FromContext. It binds ContextKey to the gin context.
//
// The child container is disposed when the request completes.
//
// Example:
//
//	g := gin.New()
//	g.Use(containrgin.ContainerMiddleware(container))
func ContainerMiddleware(root containr.Container, opts ...Option) gin.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		overrides := make([]containr.Module, 0, len(cfg.Overrides)+1)
		overrides = append(overrides, containr.NewModule("gin-request",
			containr.AddFactory(ContextKey, c, containr.Unique),
		))
		overrides = append(overrides, cfg.Overrides...)

		child, err := root.CreateChildContainer(cfg.Provenance(c), overrides...)
		if err != nil {
			cfg.ErrorHandler(c, err)
			return
		}

		defer func() {
			if err := child.Dispose(); err != nil {
				cfg.CloseErrorHandler(err)
			}
		}()

		c.Request = c.Request.WithContext(containr.WithContainer(c.Request.Context(), child))

		for _, mw := range cfg.Middlewares {
			if err := mw(child, c); err != nil {
				cfg.ErrorHandler(c, err)
				return
			}
		}

		c.Next()
	}
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	// If true, panics are caught and handled by PanicHandler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(*gin.Context, any)

	// ContainerErrorHandler is called when the request carries no container.
	ContainerErrorHandler func(*gin.Context, error)

	// ResolutionErrorHandler is called when controller resolution fails.
	ResolutionErrorHandler func(*gin.Context, error)
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics (requires WithPanicRecovery(true)).
func WithPanicHandler(h func(*gin.Context, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for a missing request container.
func WithContainerErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(*gin.Context, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func internalError(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": "Internal Server Error",
	})
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicRecovery: false,
		PanicHandler: func(c *gin.Context, v any) {
			slog.Error("panic in handler", "panic", v)
			internalError(c)
		},
		ContainerErrorHandler: func(c *gin.Context, err error) {
			slog.Error("failed to get container from context", "error", err)
			internalError(c)
		},
		ResolutionErrorHandler: func(c *gin.Context, err error) {
			slog.Error("failed to resolve controller", "error", err)
			internalError(c)
		},
	}
}

// Handle wraps a controller method resolved by key from the request container.
//
// The method signature should be: func(T, *gin.Context)
//
// Example:
//
//	g.GET("/users/:id", containrgin.Handle("users", (*UserController).GetByID))
func Handle[T any](key string, method func(T, *gin.Context), opts ...HandlerOption) gin.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		if cfg.PanicRecovery {
			defer func() {
				if r := recover(); r != nil {
					cfg.PanicHandler(c, r)
				}
			}()
		}

		container, err := containr.FromContext(c.Request.Context())
		if err != nil {
			cfg.ContainerErrorHandler(c, err)
			return
		}

		controller, err := containr.Get[T](container, key)
		if err != nil {
			cfg.ResolutionErrorHandler(c, err)
			return
		}

		method(controller, c)
	}
}
