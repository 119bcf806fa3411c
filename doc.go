// Package containr provides a string-keyed dependency injection container.
//
// # Overview
//
// A ServiceCollection maps keys to lazily resolved dependencies. Building it
// yields a ServiceContainer that resolves keys through scopes, forks child
// containers and disposes the values it owns. The library provides:
//   - Three lifetimes: Transient, Singleton and Unique
//   - Array bindings that aggregate several values under one key
//   - Auto-resolution of constructors from declared parameter descriptors
//   - Interceptor chains that post-process or default resolved values
//   - Child containers with override modules
//   - Circular dependency detection with the offending path
//   - Thread-safe resolution
//
// # Basic Usage
//
//	services := containr.NewServiceCollection().
//	    Singleton("config", cfg).
//	    Factory("db", func(c containr.Container) (*sql.DB, error) {
//	        cfg, err := containr.Get[*Config](c, "config")
//	        if err != nil {
//	            return nil, err
//	        }
//	        return sql.Open("postgres", cfg.DSN)
//	    }, containr.Singleton)
//
//	container, err := services.BuildContainer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer container.Dispose()
//
//	db, err := containr.Get[*sql.DB](container, "db")
//
// Factories must resolve nested keys through the container they receive.
// That container tracks the resolution in progress, which is how cycles are
// detected instead of deadlocking.
//
// # Lifetimes
//
//   - Transient: cached per container. A child forked before the first
//     resolution gets its own instance; a child forked after shares it.
//   - Singleton: cached once and shared with every child container.
//   - Unique: never cached; every resolution runs the factory again.
//
// Destroy releases a cached value and closes it when it implements
// Disposable. Dispose does that for every scope the container owns.
//
// # Auto-Resolution
//
// Constructors declare which key feeds each parameter:
//
//	var newUserService = containr.MustConstructor(NewUserService)
//
//	func init() {
//	    containr.Inject(newUserService, 0, "db")
//	    containr.InjectArray(newUserService, 1, "hooks")
//	}
//
//	services.AutoResolve("users", newUserService, containr.Transient)
//
// Alternatively a constructor can take a parameter object embedding
// containr.In whose fields carry `key` tags.
//
// # Interceptors
//
// Every declared parameter resolves through an InterceptorChain. Chains
// start from the value bound to the key and pass it through each
// Interceptor in order. Errors raised along the way are collected; a later
// interceptor such as DefaultInterceptor may clear them to recover.
//
// # Child Containers
//
//	child, err := container.CreateChildContainer("request", containr.NewModule("request",
//	    containr.AddSingleton("user", currentUser),
//	))
//	defer child.Dispose()
package containr
