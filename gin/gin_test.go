package gin

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/containr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Test types
type testService struct {
	ID    string
	Value int
}

type testController struct {
	Service *testService
}

func (c *testController) GetValue(ctx *gin.Context) {
	ctx.String(http.StatusOK, c.Service.ID)
}

func (c *testController) Panic(ctx *gin.Context) {
	panic("test panic")
}

type closer struct {
	closed atomic.Int32
}

func (c *closer) Close() error {
	c.closed.Add(1)
	return nil
}

func newRoot(t *testing.T, configure func(*containr.ServiceCollection)) *containr.ServiceContainer {
	t.Helper()

	services := containr.NewServiceCollection()
	if configure != nil {
		configure(services)
	}

	root, err := services.BuildContainer()
	require.NoError(t, err)
	t.Cleanup(func() { root.Dispose() })

	return root
}

func TestContainerMiddleware(t *testing.T) {
	t.Run("creates child container and attaches to context", func(t *testing.T) {
		root := newRoot(t, func(s *containr.ServiceCollection) {
			s.Factory("service", func(c containr.Container) *testService {
				return &testService{ID: "request", Value: 42}
			}, containr.Transient)
		})

		var resolved *testService
		var bound *gin.Context

		g := gin.New()
		g.Use(ContainerMiddleware(root))
		g.GET("/test", func(c *gin.Context) {
			container, err := containr.FromContext(c.Request.Context())
			require.NoError(t, err)

			resolved, err = containr.Get[*testService](container, "service")
			require.NoError(t, err)

			bound, err = containr.Get[*gin.Context](container, ContextKey)
			require.NoError(t, err)

			c.Status(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, resolved)
		assert.Equal(t, "request", resolved.ID)
		assert.NotNil(t, bound)
		assert.False(t, root.Has(ContextKey))
	})

	t.Run("provenance from request id header", func(t *testing.T) {
		root := newRoot(t, nil)

		var provenance string
		g := gin.New()
		g.Use(ContainerMiddleware(root))
		g.GET("/", func(c *gin.Context) {
			container, _ := containr.FromContext(c.Request.Context())
			provenance = container.Provenance()
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		g.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "req-42", provenance)

		g.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "GET /", provenance)
	})

	t.Run("disposes the request container", func(t *testing.T) {
		perRequest := &closer{}
		root := newRoot(t, func(s *containr.ServiceCollection) {
			s.Factory("conn", func(c containr.Container) any { return perRequest }, containr.Transient)
		})

		g := gin.New()
		g.Use(ContainerMiddleware(root))
		g.GET("/", func(c *gin.Context) {
			container, _ := containr.FromContext(c.Request.Context())
			_, err := container.Get("conn")
			require.NoError(t, err)
		})

		g.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, int32(1), perRequest.closed.Load())
	})

	t.Run("applies overrides", func(t *testing.T) {
		root := newRoot(t, func(s *containr.ServiceCollection) {
			s.Singleton("greeting", "hello")
		})

		var greeting string
		g := gin.New()
		g.Use(ContainerMiddleware(root,
			WithOverrides(containr.NewModule("override", containr.AddSingleton("greeting", "hi"))),
		))
		g.GET("/", func(c *gin.Context) {
			container, _ := containr.FromContext(c.Request.Context())
			greeting = containr.MustGet[string](container, "greeting")
		})

		g.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "hi", greeting)
	})

	t.Run("calls error handler on container creation failure", func(t *testing.T) {
		root := newRoot(t, nil)
		errorHandlerCalled := false

		g := gin.New()
		g.Use(ContainerMiddleware(root,
			WithOverrides(containr.NewModule("broken", containr.AddFactory("bad", 1, containr.Lifetime(42)))),
			WithErrorHandler(func(c *gin.Context, err error) {
				errorHandlerCalled = true
				c.AbortWithStatus(http.StatusServiceUnavailable)
			}),
		))
		g.GET("/", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		rec := httptest.NewRecorder()
		g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, errorHandlerCalled)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("runs middlewares in order and stops on error", func(t *testing.T) {
		root := newRoot(t, nil)
		expectedErr := errors.New("middleware failed")

		var order []int
		var handlerCalled bool

		g := gin.New()
		g.Use(ContainerMiddleware(root,
			WithMiddleware(func(containr.Container, *gin.Context) error {
				order = append(order, 1)
				return nil
			}),
			WithMiddleware(func(containr.Container, *gin.Context) error {
				order = append(order, 2)
				return expectedErr
			}),
			WithErrorHandler(func(c *gin.Context, err error) {
				assert.Equal(t, expectedErr, err)
				c.AbortWithStatus(http.StatusBadRequest)
			}),
		))
		g.GET("/", func(c *gin.Context) {
			handlerCalled = true
		})

		rec := httptest.NewRecorder()
		g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, []int{1, 2}, order)
		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandle(t *testing.T) {
	newControllerRoot := func(t *testing.T) *containr.ServiceContainer {
		return newRoot(t, func(s *containr.ServiceCollection) {
			s.Singleton("service", &testService{ID: "handled", Value: 100})
			s.Factory("controller", func(c containr.Container) (*testController, error) {
				svc, err := containr.Get[*testService](c, "service")
				if err != nil {
					return nil, err
				}
				return &testController{Service: svc}, nil
			}, containr.Transient)
		})
	}

	t.Run("resolves controller and calls method", func(t *testing.T) {
		g := gin.New()
		g.Use(ContainerMiddleware(newControllerRoot(t)))
		g.GET("/value", Handle("controller", (*testController).GetValue))

		rec := httptest.NewRecorder()
		g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/value", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body, _ := io.ReadAll(rec.Body)
		assert.Equal(t, "handled", string(body))
	})

	t.Run("calls container error handler when no container", func(t *testing.T) {
		called := false

		g := gin.New()
		g.GET("/", Handle("controller", (*testController).GetValue,
			WithContainerErrorHandler(func(c *gin.Context, err error) {
				called = true
				assert.ErrorIs(t, err, containr.ErrNoContainer)
				c.AbortWithStatus(http.StatusTeapot)
			}),
		))

		rec := httptest.NewRecorder()
		g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, called)
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("calls resolution error handler when key is missing", func(t *testing.T) {
		called := false

		g := gin.New()
		g.Use(ContainerMiddleware(newRoot(t, nil)))
		g.GET("/", Handle("controller", (*testController).GetValue,
			WithResolutionErrorHandler(func(c *gin.Context, err error) {
				called = true
				assert.True(t, containr.IsNotFound(err))
				c.AbortWithStatus(http.StatusNotFound)
			}),
		))

		rec := httptest.NewRecorder()
		g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, called)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("recovers from panic when enabled", func(t *testing.T) {
		var recovered any

		g := gin.New()
		g.Use(ContainerMiddleware(newControllerRoot(t)))
		g.GET("/", Handle("controller", (*testController).Panic,
			WithPanicRecovery(true),
			WithPanicHandler(func(c *gin.Context, v any) {
				recovered = v
				c.AbortWithStatus(http.StatusInternalServerError)
			}),
		))

		rec := httptest.NewRecorder()
		g.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "test panic", recovered)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestDefaultHandlerConfig(t *testing.T) {
	cfg := defaultHandlerConfig()
	assert.False(t, cfg.PanicRecovery)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	cfg.ResolutionErrorHandler(c, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
}
