// Package digbridge connects containr containers with go.uber.org/dig.
//
// Values flow both ways: Provide exposes a containr key as a dig type, and
// Import binds a containr key to a type constructed by dig.
//
//	dc := dig.New()
//	_ = digbridge.Provide[*sql.DB](dc, container, "db")
//	_ = dc.Invoke(func(db *sql.DB) { ... })
package digbridge

import (
	"go.uber.org/dig"

	"github.com/junioryono/containr"
)

// Provide registers a dig constructor for T that resolves key from c.
// Every dig resolution of T goes through c, so containr lifetimes apply,
// though dig itself caches the first value it receives.
func Provide[T any](dc *dig.Container, c containr.Container, key string, opts ...dig.ProvideOption) error {
	return dc.Provide(func() (T, error) {
		return containr.Get[T](c, key)
	}, opts...)
}

// Import binds key in services to the T built by dc.
func Import[T any](services *containr.ServiceCollection, dc *dig.Container, key string, lifetime containr.Lifetime) *containr.ServiceCollection {
	return services.Factory(key, factory[T](dc), lifetime)
}

// Module returns a module that binds key to the T built by dc. It is
// suited to child container overrides.
func Module[T any](name string, dc *dig.Container, key string, lifetime containr.Lifetime) containr.Module {
	return containr.NewModule(name, containr.AddFactory(key, factory[T](dc), lifetime))
}

func factory[T any](dc *dig.Container) containr.Factory {
	return containr.Typed(func(containr.Container) (T, error) {
		var value T
		err := dc.Invoke(func(v T) {
			value = v
		})
		return value, err
	})
}
