// Package benchmarks provides comparative benchmarks between containr and other DI libraries.
//
// Run benchmarks with: go test -bench=. -benchmem ./benchmarks/
package benchmarks

import (
	"testing"

	"github.com/junioryono/containr"
	"github.com/samber/do/v2"
	"go.uber.org/dig"
)

// =============================================================================
// Shared Test Types
// =============================================================================

// Simple service with no dependencies
type Logger struct {
	Name string
}

func NewLogger() *Logger {
	return &Logger{Name: "logger"}
}

type Config struct {
	Value string
}

func NewConfig() *Config {
	return &Config{Value: "config"}
}

// Service with 2 dependencies
type Database struct {
	Logger *Logger
	Config *Config
}

func NewDatabase(logger *Logger, config *Config) *Database {
	return &Database{Logger: logger, Config: config}
}

// Service with 3 dependencies
type Cache struct {
	Logger   *Logger
	Config   *Config
	Database *Database
}

func NewCache(logger *Logger, config *Config, db *Database) *Cache {
	return &Cache{Logger: logger, Config: config, Database: db}
}

// Service with 5 dependencies (complex)
type UserService struct {
	Logger   *Logger
	Config   *Config
	Database *Database
	Cache    *Cache
	Dep5     *Dep5
}

type Dep5 struct {
	Value int
}

func NewDep5() *Dep5 {
	return &Dep5{Value: 5}
}

func NewUserService(logger *Logger, config *Config, db *Database, cache *Cache, dep5 *Dep5) *UserService {
	return &UserService{Logger: logger, Config: config, Database: db, Cache: cache, Dep5: dep5}
}

// =============================================================================
// Setup
// =============================================================================

// newContainr registers the graph through auto-resolved constructors.
func newContainr(lifetime containr.Lifetime) *containr.ServiceContainer {
	md := containr.NewMetadata()
	inject := func(fn any, keys ...string) *containr.Constructor {
		ctor := containr.MustConstructor(fn)
		for i, key := range keys {
			md.Inject(ctor, i, key)
		}
		return ctor
	}

	c, err := containr.NewServiceCollection().
		AutoResolve("logger", inject(NewLogger), lifetime).
		AutoResolve("config", inject(NewConfig), lifetime).
		AutoResolve("database", inject(NewDatabase, "logger", "config"), lifetime).
		AutoResolve("cache", inject(NewCache, "logger", "config", "database"), lifetime).
		AutoResolve("dep5", inject(NewDep5), lifetime).
		AutoResolve("users", inject(NewUserService, "logger", "config", "database", "cache", "dep5"), lifetime).
		BuildContainer(containr.WithMetadata(md))
	if err != nil {
		panic(err)
	}
	return c
}

// newContainrFactories registers the same graph with hand-written factories.
func newContainrFactories(lifetime containr.Lifetime) *containr.ServiceContainer {
	c, err := containr.NewServiceCollection().
		Factory("logger", func(c containr.Container) *Logger { return NewLogger() }, lifetime).
		Factory("config", func(c containr.Container) *Config { return NewConfig() }, lifetime).
		Factory("database", func(c containr.Container) (*Database, error) {
			logger, config, err := containr.Get2[*Logger, *Config](c, "logger", "config")
			if err != nil {
				return nil, err
			}
			return NewDatabase(logger, config), nil
		}, lifetime).
		Factory("cache", func(c containr.Container) (*Cache, error) {
			logger, config, db, err := containr.Get3[*Logger, *Config, *Database](c, "logger", "config", "database")
			if err != nil {
				return nil, err
			}
			return NewCache(logger, config, db), nil
		}, lifetime).
		Factory("dep5", func(c containr.Container) *Dep5 { return NewDep5() }, lifetime).
		Factory("users", func(c containr.Container) (*UserService, error) {
			logger, config, db, cache, err := containr.Get4[*Logger, *Config, *Database, *Cache](c, "logger", "config", "database", "cache")
			if err != nil {
				return nil, err
			}
			dep5, err := containr.Get[*Dep5](c, "dep5")
			if err != nil {
				return nil, err
			}
			return NewUserService(logger, config, db, cache, dep5), nil
		}, lifetime).
		BuildContainer()
	if err != nil {
		panic(err)
	}
	return c
}

func newDig() *dig.Container {
	c := dig.New()
	c.Provide(NewLogger)
	c.Provide(NewConfig)
	c.Provide(NewDatabase)
	c.Provide(NewCache)
	c.Provide(NewDep5)
	c.Provide(NewUserService)
	return c
}

func newDo() *do.RootScope {
	injector := do.New()
	do.Provide(injector, func(i do.Injector) (*Logger, error) { return NewLogger(), nil })
	do.Provide(injector, func(i do.Injector) (*Config, error) { return NewConfig(), nil })
	do.Provide(injector, func(i do.Injector) (*Database, error) {
		logger := do.MustInvoke[*Logger](i)
		config := do.MustInvoke[*Config](i)
		return NewDatabase(logger, config), nil
	})
	do.Provide(injector, func(i do.Injector) (*Cache, error) {
		logger := do.MustInvoke[*Logger](i)
		config := do.MustInvoke[*Config](i)
		db := do.MustInvoke[*Database](i)
		return NewCache(logger, config, db), nil
	})
	do.Provide(injector, func(i do.Injector) (*Dep5, error) { return NewDep5(), nil })
	do.Provide(injector, func(i do.Injector) (*UserService, error) {
		logger := do.MustInvoke[*Logger](i)
		config := do.MustInvoke[*Config](i)
		db := do.MustInvoke[*Database](i)
		cache := do.MustInvoke[*Cache](i)
		dep5 := do.MustInvoke[*Dep5](i)
		return NewUserService(logger, config, db, cache, dep5), nil
	})
	return injector
}

// =============================================================================
// Container Build Benchmarks
// =============================================================================

func BenchmarkBuild_Containr(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c := newContainr(containr.Singleton)
		c.Dispose()
	}
}

func BenchmarkBuild_Dig(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = newDig()
	}
}

func BenchmarkBuild_Do(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		injector := newDo()
		injector.Shutdown()
	}
}

// =============================================================================
// Simple Resolution Benchmarks (No Dependencies)
// =============================================================================

func BenchmarkResolve_Simple_Containr(b *testing.B) {
	c := newContainr(containr.Singleton)
	defer c.Dispose()

	// Warm up
	containr.MustGet[*Logger](c, "logger")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = containr.MustGet[*Logger](c, "logger")
	}
}

func BenchmarkResolve_Simple_Dig(b *testing.B) {
	c := newDig()

	// Warm up
	c.Invoke(func(l *Logger) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Invoke(func(l *Logger) {})
	}
}

func BenchmarkResolve_Simple_Do(b *testing.B) {
	injector := newDo()
	defer injector.Shutdown()

	// Warm up
	do.MustInvoke[*Logger](injector)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Logger](injector)
	}
}

// =============================================================================
// Complex Resolution Benchmarks (5 Dependencies)
// =============================================================================

func BenchmarkResolve_Complex_Containr(b *testing.B) {
	c := newContainr(containr.Singleton)
	defer c.Dispose()

	// Warm up
	containr.MustGet[*UserService](c, "users")

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = containr.MustGet[*UserService](c, "users")
	}
}

func BenchmarkResolve_Complex_Dig(b *testing.B) {
	c := newDig()

	// Warm up
	c.Invoke(func(u *UserService) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Invoke(func(u *UserService) {})
	}
}

func BenchmarkResolve_Complex_Do(b *testing.B) {
	injector := newDo()
	defer injector.Shutdown()

	// Warm up
	do.MustInvoke[*UserService](injector)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*UserService](injector)
	}
}

// =============================================================================
// Unique Resolution Benchmarks (New Instance Each Time)
// =============================================================================

func BenchmarkResolve_Unique_Containr(b *testing.B) {
	c := newContainr(containr.Unique)
	defer c.Dispose()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = containr.MustGet[*UserService](c, "users")
	}
}

func BenchmarkResolve_UniqueFactories_Containr(b *testing.B) {
	c := newContainrFactories(containr.Unique)
	defer c.Dispose()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = containr.MustGet[*UserService](c, "users")
	}
}

func BenchmarkResolve_Unique_Do(b *testing.B) {
	injector := do.New()
	defer injector.Shutdown()
	do.ProvideTransient(injector, func(i do.Injector) (*Logger, error) { return NewLogger(), nil })

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Logger](injector)
	}
}

// Note: Dig doesn't have built-in transient support

// =============================================================================
// Concurrent Resolution Benchmarks
// =============================================================================

func BenchmarkResolve_Concurrent_Containr(b *testing.B) {
	c := newContainr(containr.Singleton)
	defer c.Dispose()

	// Warm up
	containr.MustGet[*UserService](c, "users")

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = containr.MustGet[*UserService](c, "users")
		}
	})
}

func BenchmarkResolve_Concurrent_Dig(b *testing.B) {
	c := newDig()

	// Warm up
	c.Invoke(func(u *UserService) {})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c.Invoke(func(u *UserService) {})
		}
	})
}

func BenchmarkResolve_Concurrent_Do(b *testing.B) {
	injector := newDo()
	defer injector.Shutdown()

	// Warm up
	do.MustInvoke[*UserService](injector)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = do.MustInvoke[*UserService](injector)
		}
	})
}

// =============================================================================
// Child Container Benchmarks
// =============================================================================

func BenchmarkChild_Create_Containr(b *testing.B) {
	c := newContainr(containr.Transient)
	defer c.Dispose()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		child, _ := c.CreateChildContainer("bench")
		child.Dispose()
	}
}

func BenchmarkChild_CreateAndResolve_Containr(b *testing.B) {
	c := newContainr(containr.Transient)
	defer c.Dispose()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		child, _ := c.CreateChildContainer("bench")
		_ = containr.MustGet[*Database](child, "database")
		child.Dispose()
	}
}

func BenchmarkChild_CreateAndResolve_Do(b *testing.B) {
	injector := newDo()
	defer injector.Shutdown()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		scope := injector.Scope("bench")
		_ = do.MustInvoke[*Database](scope)
		scope.Shutdown()
	}
}

// =============================================================================
// First Resolution Benchmarks (Cold Start)
// =============================================================================

func BenchmarkResolve_FirstTime_Containr(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c := newContainr(containr.Singleton)
		_ = containr.MustGet[*UserService](c, "users")
		c.Dispose()
	}
}

func BenchmarkResolve_FirstTime_Dig(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c := newDig()
		c.Invoke(func(u *UserService) {})
	}
}

func BenchmarkResolve_FirstTime_Do(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		injector := newDo()
		_ = do.MustInvoke[*UserService](injector)
		injector.Shutdown()
	}
}
