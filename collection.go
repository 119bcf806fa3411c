package containr

import (
	"errors"
	"maps"
	"slices"
)

// ServiceCollection accumulates key bindings and builds containers from them.
//
// Registration methods return the collection for chaining. Invalid
// registrations do not panic; they are recorded and reported by Err and
// BuildContainer.
//
// ServiceCollection is NOT thread-safe. It should be configured in a single
// goroutine before building the container.
//
// Example:
//
//	services := containr.NewServiceCollection().
//	    Singleton("config", cfg).
//	    Factory("db", openDatabase, containr.Singleton).
//	    AutoResolve("users", newUserRepository, containr.Transient).
//	    Array("handlers", healthHandler)
//
//	container, err := services.BuildContainer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer container.Dispose()
type ServiceCollection struct {
	values map[string]Scope

	// Keys whose scopes came from an existing container. Array registrations
	// copy these before appending so the source is never mutated.
	inherited map[string]bool

	// Auto-resolved constructors per key, for the declared dependency graph.
	constructors map[string][]*Constructor

	errs []error
}

// NewServiceCollection creates an empty collection.
func NewServiceCollection() *ServiceCollection {
	return &ServiceCollection{
		values:       make(map[string]Scope),
		inherited:    make(map[string]bool),
		constructors: make(map[string][]*Constructor),
	}
}

func newInheritedCollection(values map[string]Scope) *ServiceCollection {
	s := &ServiceCollection{
		values:       values,
		inherited:    make(map[string]bool, len(values)),
		constructors: make(map[string][]*Constructor),
	}
	for key := range values {
		s.inherited[key] = true
	}
	return s
}

// Err returns the registration errors recorded so far, joined.
func (s *ServiceCollection) Err() error {
	return errors.Join(s.errs...)
}

// IsRegistered reports whether key is bound.
func (s *ServiceCollection) IsRegistered(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns the bound keys, sorted.
func (s *ServiceCollection) Keys() []string {
	return slices.Sorted(maps.Keys(s.values))
}

// Len returns the number of bound keys.
func (s *ServiceCollection) Len() int {
	return len(s.values)
}

// Scope returns the scope bound to key.
func (s *ServiceCollection) Scope(key string) (Scope, bool) {
	scope, ok := s.values[key]
	return scope, ok
}

// BuildContainer creates a root container with every binding plus
// ContainerKey. Scopes are shared with the collection, so containers built
// from the same collection share cached values.
func (s *ServiceCollection) BuildContainer(opts ...ContainerOption) (*ServiceContainer, error) {
	if err := s.Err(); err != nil {
		return nil, err
	}

	var options containerOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	if options.validate {
		if err := s.Validate(options.metadata); err != nil {
			return nil, err
		}
	}

	values := maps.Clone(s.values)
	if values == nil {
		values = make(map[string]Scope)
	}
	values[ContainerKey] = &uniqueScope{dependency: ContainerDependency{}}

	return newServiceContainer(values, nil, options), nil
}

// Import copies every binding of other into s. Bindings of other win on
// collision.
func (s *ServiceCollection) Import(other *ServiceCollection) *ServiceCollection {
	if other == nil {
		return s
	}

	for key, scope := range other.values {
		s.values[key] = scope
		delete(s.inherited, key)
		if ctors, ok := other.constructors[key]; ok {
			s.constructors[key] = slices.Clone(ctors)
		} else {
			delete(s.constructors, key)
		}
	}
	s.errs = append(s.errs, other.errs...)

	return s
}

// Include configures registry into a fresh collection and imports it.
func (s *ServiceCollection) Include(registry Registry) *ServiceCollection {
	if registry == nil {
		return s
	}

	services := NewServiceCollection()
	registry.ConfigureServices(services)

	return s.Import(services)
}

// Apply configures each module directly on s.
func (s *ServiceCollection) Apply(modules ...Module) *ServiceCollection {
	for _, m := range modules {
		if m == nil {
			continue
		}

		before := len(s.errs)
		m.ConfigureServices(s)

		for i := before; i < len(s.errs); i++ {
			s.errs[i] = ModuleError{Module: m.Name(), Cause: s.errs[i]}
		}
	}

	return s
}

// Resolve builds a temporary container, resolves key and disposes the
// container again. Only values cached by this lookup are disposed; scopes
// that were already cached, such as inherited singletons, are left alone.
func (s *ServiceCollection) Resolve(key string) (value any, err error) {
	container, err := s.BuildContainer()
	if err != nil {
		return nil, err
	}

	for _, scope := range container.values {
		if scope.IsResolved() {
			container.shared[scope] = struct{}{}
		}
	}

	defer func() {
		if disposeErr := container.Dispose(); disposeErr != nil && err == nil {
			err = disposeErr
		}
	}()

	return container.Get(key)
}

// Factory binds key to a value or Factory with the given lifetime.
func (s *ServiceCollection) Factory(key string, factory any, lifetime Lifetime) *ServiceCollection {
	return s.Push(key, NewValueFactoryDependency(key, factory), lifetime)
}

// Singleton binds key to value with the Singleton lifetime.
func (s *ServiceCollection) Singleton(key string, value any) *ServiceCollection {
	return s.Push(key, NewValueFactoryDependency(key, value), Singleton)
}

// Array appends a value or Factory to the array bound to key, creating a
// Transient array on first use.
func (s *ServiceCollection) Array(key string, value any) *ServiceCollection {
	if array := s.array(key); array != nil {
		array.Register(value)
	}
	return s
}

// ArrayAutoResolve appends an auto-resolved constructor to the array bound to key.
func (s *ServiceCollection) ArrayAutoResolve(key string, constructor any) *ServiceCollection {
	ctor, ok := s.constructor(key, constructor)
	if !ok {
		return s
	}

	if array := s.array(key); array != nil {
		array.Push(ctor)
		s.constructors[key] = append(s.constructors[key], ctor)
	}
	return s
}

// AutoResolve binds key to a factory that auto-resolves constructor. The
// constructor may be a *Constructor or a plain function.
func (s *ServiceCollection) AutoResolve(key string, constructor any, lifetime Lifetime) *ServiceCollection {
	ctor, ok := s.constructor(key, constructor)
	if !ok {
		return s
	}

	before := len(s.errs)
	s.Factory(key, autoResolvingFactory(ctor), lifetime)
	if len(s.errs) == before {
		s.constructors[key] = []*Constructor{ctor}
	}

	return s
}

// Push binds key to dependency wrapped in a scope with the given lifetime.
func (s *ServiceCollection) Push(key string, dependency Dependency, lifetime Lifetime) *ServiceCollection {
	scope, err := NewScope(lifetime, dependency)
	if err != nil {
		s.errs = append(s.errs, RegistrationError{Key: key, Cause: err})
		return s
	}

	s.values[key] = scope
	delete(s.inherited, key)
	delete(s.constructors, key)

	return s
}

// Register binds key to a value or Factory with the Transient lifetime.
//
// Deprecated: use Factory.
func (s *ServiceCollection) Register(key string, value any) *ServiceCollection {
	return s.Push(key, NewValueFactoryDependency(key, value), Transient)
}

// Add appends an auto-resolved constructor to the array bound to key.
//
// Deprecated: use ArrayAutoResolve.
func (s *ServiceCollection) Add(key string, constructor any) *ServiceCollection {
	return s.ArrayAutoResolve(key, constructor)
}

// AddDependency appends a value or Factory to the array bound to key.
//
// Deprecated: use Array.
func (s *ServiceCollection) AddDependency(key string, value any) *ServiceCollection {
	return s.Array(key, value)
}

// Use binds key to an auto-resolved constructor with the Transient lifetime.
//
// Deprecated: use AutoResolve.
func (s *ServiceCollection) Use(key string, constructor any) *ServiceCollection {
	return s.AutoResolve(key, constructor, Transient)
}

// array finds or creates the array dependency bound to key. A key bound to
// anything else is replaced.
func (s *ServiceCollection) array(key string) *ArrayDependency {
	if scope, ok := s.values[key]; ok {
		if array, ok := scope.Dependency().(*ArrayDependency); ok {
			if !s.inherited[key] {
				return array
			}

			array = array.clone()
			s.Push(key, array, scope.Lifetime())
			return array
		}
	}

	array := NewArrayDependency(key)
	s.Push(key, array, Transient)
	return array
}

func (s *ServiceCollection) constructor(key string, constructor any) (*Constructor, bool) {
	if ctor, ok := constructor.(*Constructor); ok {
		if ctor == nil {
			s.errs = append(s.errs, RegistrationError{Key: key, Cause: ErrConstructorNil})
			return nil, false
		}
		return ctor, true
	}

	ctor, err := NewConstructor(constructor)
	if err != nil {
		s.errs = append(s.errs, RegistrationError{Key: key, Cause: err})
		return nil, false
	}

	return ctor, true
}
