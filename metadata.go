package containr

import (
	"slices"
	"sync"
)

// Descriptor declares that the parameter at Position of a constructor is
// produced by resolving Chain, which is bound to Key.
type Descriptor struct {
	Key      string
	Position int
	Chain    *InterceptorChain
}

// Metadata is the descriptor registry consulted by the auto-resolver. It maps
// a constructor identity to the ordered descriptors of its parameters.
type Metadata struct {
	mu          sync.RWMutex
	descriptors map[*Constructor][]Descriptor
}

// NewMetadata creates an empty registry.
func NewMetadata() *Metadata {
	return &Metadata{
		descriptors: make(map[*Constructor][]Descriptor),
	}
}

// Descriptors returns the descriptors of ctor sorted by position.
func (m *Metadata) Descriptors(ctor *Constructor) []Descriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	descriptors := slices.Clone(m.descriptors[ctor])
	slices.SortStableFunc(descriptors, func(a, b Descriptor) int {
		return a.Position - b.Position
	})

	return descriptors
}

// SetDescriptors replaces the descriptors of ctor.
func (m *Metadata) SetDescriptors(ctor *Constructor, descriptors []Descriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(descriptors) == 0 {
		delete(m.descriptors, ctor)
		return
	}

	m.descriptors[ctor] = slices.Clone(descriptors)
}

// Register declares that parameter position of ctor resolves key and returns
// the interceptor chain bound to it. Registering a position twice replaces the
// earlier descriptor.
func (m *Metadata) Register(ctor *Constructor, key string, position int, resolveFromContainer bool) *InterceptorChain {
	var opts []ChainOption
	if !resolveFromContainer {
		opts = append(opts, SkipContainerResolution())
	}

	chain := NewInterceptorChain(key, opts...)

	m.mu.Lock()
	defer m.mu.Unlock()

	descriptors := slices.DeleteFunc(m.descriptors[ctor], func(d Descriptor) bool {
		return d.Position == position
	})
	m.descriptors[ctor] = append(descriptors, Descriptor{
		Key:      key,
		Position: position,
		Chain:    chain,
	})

	return chain
}

// InterceptorChainFor returns the chain registered for parameter position of
// ctor, or nil.
func (m *Metadata) InterceptorChainFor(ctor *Constructor, position int) *InterceptorChain {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.descriptors[ctor] {
		if d.Position == position {
			return d.Chain
		}
	}

	return nil
}

// Inject declares that parameter position of ctor is the value bound to key,
// post-processed by interceptors.
func (m *Metadata) Inject(ctor *Constructor, position int, key string, interceptors ...Interceptor) *Constructor {
	m.Register(ctor, key, position, true).Add(interceptors...)
	return ctor
}

// InjectArray declares that parameter position of ctor is the array bound to
// key. An unregistered key yields an empty slice instead of an error.
func (m *Metadata) InjectArray(ctor *Constructor, position int, key string) *Constructor {
	m.Register(ctor, key, position, false).Add(ArrayInterceptor(key))
	return ctor
}

// InjectContainer declares that parameter position of ctor is the container
// performing the resolution.
func (m *Metadata) InjectContainer(ctor *Constructor, position int) *Constructor {
	m.Register(ctor, ContainerKey, position, true)
	return ctor
}

// Inject records a descriptor in the default registry.
func Inject(ctor *Constructor, position int, key string, interceptors ...Interceptor) *Constructor {
	return DefaultMetadata().Inject(ctor, position, key, interceptors...)
}

// InjectArray records an array descriptor in the default registry.
func InjectArray(ctor *Constructor, position int, key string) *Constructor {
	return DefaultMetadata().InjectArray(ctor, position, key)
}

// InjectContainer records a container descriptor in the default registry.
func InjectContainer(ctor *Constructor, position int) *Constructor {
	return DefaultMetadata().InjectContainer(ctor, position)
}
