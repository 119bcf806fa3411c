package containr

import "sync"

// Scope wraps a Dependency with a caching policy and owns the disposal of the
// cached value.
type Scope interface {
	// Dependency returns the wrapped dependency.
	Dependency() Dependency

	// Lifetime returns the caching policy.
	Lifetime() Lifetime

	// IsResolved reports whether a value is currently cached.
	IsResolved() bool

	// ResolveValue returns the cached value or produces it through the dependency.
	ResolveValue(c Container) (any, error)

	// Destroy releases the cached value, closing it when it is Disposable.
	Destroy() error

	// Clone returns the scope a child container should use.
	Clone() Scope
}

// NewScope wraps dependency with the given lifetime.
func NewScope(lifetime Lifetime, dependency Dependency) (Scope, error) {
	switch lifetime {
	case Transient, Singleton:
		return newCachedScope(lifetime, dependency), nil
	case Unique:
		return &uniqueScope{dependency: dependency}, nil
	default:
		return nil, LifetimeError{Value: lifetime}
	}
}

// cachedScope implements the Transient and Singleton policies. Production is
// serialized so the dependency runs once per cached value.
type cachedScope struct {
	dependency Dependency
	lifetime   Lifetime

	mu       sync.Mutex
	resolved bool
	value    any
}

func newCachedScope(lifetime Lifetime, dependency Dependency) *cachedScope {
	return &cachedScope{
		dependency: dependency,
		lifetime:   lifetime,
	}
}

func (s *cachedScope) Dependency() Dependency {
	return s.dependency
}

func (s *cachedScope) Lifetime() Lifetime {
	return s.lifetime
}

func (s *cachedScope) IsResolved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resolved
}

func (s *cachedScope) ResolveValue(c Container) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved {
		return s.value, nil
	}

	value, err := s.dependency.ResolveValue(c)
	if err != nil {
		return nil, err
	}

	s.value = value
	s.resolved = true
	return value, nil
}

func (s *cachedScope) Destroy() error {
	s.mu.Lock()
	if !s.resolved {
		s.mu.Unlock()
		return nil
	}

	value := s.value
	s.value = nil
	s.resolved = false
	s.mu.Unlock()

	if d, ok := s.dependency.(valueDisposer); ok {
		return d.disposeValue(value)
	}

	return dispose(value)
}

func (s *cachedScope) Clone() Scope {
	if s.lifetime == Singleton {
		return s
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.resolved {
		return s
	}

	return newCachedScope(s.lifetime, s.dependency)
}

// uniqueScope never caches.
type uniqueScope struct {
	dependency Dependency
}

func (s *uniqueScope) Dependency() Dependency {
	return s.dependency
}

func (s *uniqueScope) Lifetime() Lifetime {
	return Unique
}

func (s *uniqueScope) IsResolved() bool {
	return false
}

func (s *uniqueScope) ResolveValue(c Container) (any, error) {
	return s.dependency.ResolveValue(c)
}

func (s *uniqueScope) Destroy() error {
	return nil
}

func (s *uniqueScope) Clone() Scope {
	return s
}
