package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/junioryono/containr"
)

// CollectionBuilder helps build service collections for tests
type CollectionBuilder struct {
	t        *testing.T
	services *containr.ServiceCollection
	opts     []containr.ContainerOption
}

// NewCollectionBuilder creates a new collection builder
func NewCollectionBuilder(t *testing.T) *CollectionBuilder {
	return &CollectionBuilder{
		t:        t,
		services: containr.NewServiceCollection(),
	}
}

func (b *CollectionBuilder) WithSingleton(key string, value any) *CollectionBuilder {
	b.services.Singleton(key, value)
	return b
}

func (b *CollectionBuilder) WithFactory(key string, factory any, lifetime containr.Lifetime) *CollectionBuilder {
	b.services.Factory(key, factory, lifetime)
	return b
}

func (b *CollectionBuilder) WithModule(modules ...containr.Module) *CollectionBuilder {
	b.services.Apply(modules...)
	return b
}

func (b *CollectionBuilder) WithOptions(opts ...containr.ContainerOption) *CollectionBuilder {
	b.opts = append(b.opts, opts...)
	return b
}

// Collection returns the underlying collection
func (b *CollectionBuilder) Collection() *containr.ServiceCollection {
	return b.services
}

// Build builds the container and disposes it when the test ends
func (b *CollectionBuilder) Build() *containr.ServiceContainer {
	b.t.Helper()

	c, err := b.services.BuildContainer(b.opts...)
	require.NoError(b.t, err)

	b.t.Cleanup(func() {
		_ = c.Dispose()
	})

	return c
}
