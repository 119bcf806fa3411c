// Package chi provides containr integration for the Chi router.
//
// This package provides middleware for creating a child container per request
// and handler wrappers that resolve controllers from it.
//
// Example usage:
//
//	container, _ := services.BuildContainer()
//
//	r := chi.NewRouter()
//	r.Use(middleware.RequestID)
//	r.Use(containrchi.ContainerMiddleware(container))
//
//	r.Get("/users/{id}", containrchi.Handle("users", (*UserController).GetByID))
package chi

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/junioryono/containr"
)

// RequestKey is bound to the current *http.Request in every request container.
const RequestKey = "@containr/chi/request"

// Config holds the configuration for the container middleware.
type Config struct {
	// ErrorHandler is called when creating the request container fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// CloseErrorHandler is called when disposing the request container fails.
	// If nil, errors are logged using slog.
	CloseErrorHandler func(error)

	// Provenance labels the request container. The default uses the request
	// ID set by chi's RequestID middleware, falling back to method and path.
	Provenance func(*http.Request) string

	// Overrides are applied to every request container.
	Overrides []containr.Module

	// Middlewares are functions that run after the request container is created.
	// They can be used to bind request data, authenticate, etc.
	Middlewares []func(containr.Container, *http.Request) error
}

// Option configures the container middleware.
type Option func(*Config)

// WithErrorHandler sets the error handler for container creation failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
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
func WithProvenance(fn func(*http.Request) string) Option {
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
func WithMiddleware(mw func(containr.Container, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		CloseErrorHandler: func(err error) {
			slog.Error("failed to dispose request container", "error", err)
		},
		Provenance: requestProvenance,
	}
}

func requestProvenance(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return fmt.Sprintf("%s %s", r.Method, r.URL.Path)
}

// ContainerMiddleware creates a Chi middleware that forks root for each
// request. The child container is attached to the request context and can be
// retrieved using containr.FromContext. It binds RequestKey to the request.
//
// The child container is disposed when the request completes. Values it
// shares with root are left alone.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(containrchi.ContainerMiddleware(container))
func ContainerMiddleware(root containr.Container, opts ...Option) func(http.Handler) http.Handler {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			overrides := make([]containr.Module, 0, len(cfg.Overrides)+1)
			overrides = append(overrides, requestModule(r))
			overrides = append(overrides, cfg.Overrides...)

			child, err := root.CreateChildContainer(cfg.Provenance(r), overrides...)
			if err != nil {
				cfg.ErrorHandler(w, r, err)
				return
			}

			defer func() {
				if err := child.Dispose(); err != nil {
					cfg.CloseErrorHandler(err)
				}
			}()

			r = r.WithContext(containr.WithContainer(r.Context(), child))

			for _, mw := range cfg.Middlewares {
				if err := mw(child, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requestModule(r *http.Request) containr.Module {
	return containr.NewModule("chi-request", containr.AddFactory(RequestKey, r, containr.Unique))
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ContainerErrorHandler is called when the request carries no container.
	ContainerErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler is called when controller resolution fails.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)
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
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithContainerErrorHandler sets the error handler for a missing request container.
func WithContainerErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ContainerErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func defaultHandlerConfig() *HandlerConfig {
	return &HandlerConfig{
		PanicRecovery: false,
		PanicHandler: func(w http.ResponseWriter, r *http.Request, v any) {
			slog.Error("panic in handler", "panic", v)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ContainerErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("failed to get container from context", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
		ResolutionErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("failed to resolve controller", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		},
	}
}

// Handle wraps a controller method resolved by key from the request container.
//
// The method signature should be: func(T, http.ResponseWriter, *http.Request)
//
// Example:
//
//	r.Get("/users/{id}", containrchi.Handle("users", (*UserController).GetByID))
func Handle[T any](key string, method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		c, err := containr.FromContext(r.Context())
		if err != nil {
			cfg.ContainerErrorHandler(w, r, err)
			return
		}

		controller, err := containr.Get[T](c, key)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
