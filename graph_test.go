package containr_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/containr"
	"github.com/junioryono/containr/internal/testutil"
)

func TestServiceCollection_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid graph", func(t *testing.T) {
		t.Parallel()

		md := containr.NewMetadata()
		ctor := md.Inject(md.Inject(containr.MustConstructor(testutil.NewTestUserService), 0, "logger"), 1, "db")

		services := containr.NewServiceCollection().
			Apply(testutil.CommonModules.Logging, testutil.CommonModules.Database).
			AutoResolve("users", ctor, containr.Transient)

		assert.NoError(t, services.Validate(md))
	})

	t.Run("missing required key", func(t *testing.T) {
		t.Parallel()

		md := containr.NewMetadata()
		ctor := md.Inject(md.Inject(containr.MustConstructor(testutil.NewTestUserService), 0, "logger"), 1, "db")

		services := containr.NewServiceCollection().
			Apply(testutil.CommonModules.Logging).
			AutoResolve("users", ctor, containr.Transient)

		err := services.Validate(md)
		require.Error(t, err)
		assert.True(t, containr.IsNotFound(err))
		assert.EqualError(t, err, "failed to resolve users: unrecognized service: db")

		var resolution containr.ResolutionError
		require.ErrorAs(t, err, &resolution)
		assert.Equal(t, "users", resolution.Key)
	})

	t.Run("array and interceptor descriptors are optional", func(t *testing.T) {
		t.Parallel()

		md := containr.NewMetadata()
		router := md.InjectArray(containr.MustConstructor(testutil.NewTestRouter), 0, "handlers")
		named := md.Inject(containr.MustConstructor(testutil.NewTestDatabaseNamed), 0, "name",
			containr.DefaultInterceptor("primary"))

		services := containr.NewServiceCollection().
			AutoResolve("router", router, containr.Singleton).
			AutoResolve("db", named, containr.Singleton)

		assert.NoError(t, services.Validate(md))
	})

	t.Run("param object tags", func(t *testing.T) {
		t.Parallel()

		services := containr.NewServiceCollection().
			Apply(testutil.CommonModules.Logging).
			AutoResolve("result", newParamsResult, containr.Transient)

		err := services.Validate(containr.NewMetadata())
		assert.EqualError(t, err, "failed to resolve result: unrecognized service: db")

		services.Apply(testutil.CommonModules.Database)
		assert.NoError(t, services.Validate(containr.NewMetadata()))
	})

	t.Run("cycle", func(t *testing.T) {
		t.Parallel()

		md := containr.NewMetadata()
		newA := md.Inject(containr.MustConstructor(func(b string) string { return "a" + b }), 0, "b")
		newB := md.Inject(containr.MustConstructor(func(a string) string { return "b" + a }), 0, "a")

		services := containr.NewServiceCollection().
			AutoResolve("a", newA, containr.Singleton).
			AutoResolve("b", newB, containr.Singleton)

		err := services.Validate(md)

		var cycle containr.CircularDependencyError
		require.ErrorAs(t, err, &cycle)
		assert.Equal(t, []string{"a", "b", "a"}, cycle.Path)
		assert.True(t, containr.IsCircularDependency(err))
	})

	t.Run("factories contribute no edges", func(t *testing.T) {
		t.Parallel()

		services := containr.NewServiceCollection().
			Factory("a", func(c containr.Container) (any, error) { return c.Get("b") }, containr.Singleton).
			Factory("b", func(c containr.Container) (any, error) { return c.Get("a") }, containr.Singleton)

		assert.NoError(t, services.Validate(nil))
	})

	t.Run("rebinding drops declared edges", func(t *testing.T) {
		t.Parallel()

		md := containr.NewMetadata()
		ctor := md.Inject(containr.MustConstructor(testutil.NewTestRouter), 0, "missing")

		services := containr.NewServiceCollection().
			AutoResolve("router", ctor, containr.Singleton)
		require.Error(t, services.Validate(md))

		services.Singleton("router", testutil.NewTestRouter(nil))
		assert.NoError(t, services.Validate(md))
	})

	t.Run("registration errors come first", func(t *testing.T) {
		t.Parallel()

		services := containr.NewServiceCollection().
			Factory("bad", 1, containr.Lifetime(42))

		var registration containr.RegistrationError
		assert.ErrorAs(t, services.Validate(nil), &registration)
	})
}

func TestBuildContainer_WithValidation(t *testing.T) {
	t.Parallel()

	md := containr.NewMetadata()
	ctor := md.Inject(containr.MustConstructor(testutil.NewTestRouter), 0, "routes")

	services := containr.NewServiceCollection().
		AutoResolve("router", ctor, containr.Singleton)

	_, err := services.BuildContainer(containr.WithMetadata(md), containr.WithValidation())
	assert.True(t, containr.IsNotFound(err))

	c, err := services.BuildContainer(containr.WithMetadata(md))
	require.NoError(t, err)
	defer c.Dispose()
}

func TestServiceCollection_WriteGraph(t *testing.T) {
	t.Parallel()

	md := containr.NewMetadata()
	users := md.Inject(md.Inject(containr.MustConstructor(testutil.NewTestUserService), 0, "logger"), 1, "db")
	router := md.InjectArray(containr.MustConstructor(testutil.NewTestRouter), 0, "handlers")

	services := containr.NewServiceCollection().
		Apply(testutil.CommonModules.Logging).
		AutoResolve("users", users, containr.Transient).
		AutoResolve("router", router, containr.Unique)

	var dot bytes.Buffer
	require.NoError(t, services.WriteGraph(&dot, md))

	out := dot.String()
	assert.Contains(t, out, `"logger" [label="logger\nSingleton", fillcolor="lightblue"];`)
	assert.Contains(t, out, `"users" [label="users\nTransient", fillcolor="lightgreen"];`)
	assert.Contains(t, out, `"router" [label="router\nUnique", fillcolor="lightyellow"];`)
	assert.Contains(t, out, `"db" [label="db", fillcolor="lightgray", style="filled,dashed"];`)
	assert.Contains(t, out, `"users" -> "logger";`)
	assert.Contains(t, out, `"users" -> "db";`)
	assert.Contains(t, out, `"router" -> "handlers" [style=dashed];`)

	var text bytes.Buffer
	require.NoError(t, services.DescribeGraph(&text, md))
	assert.Contains(t, text.String(), "Missing dependencies: 1")
	assert.Contains(t, text.String(), "Total nodes: 3")
}
