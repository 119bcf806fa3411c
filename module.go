package containr

// Registry configures a ServiceCollection.
type Registry interface {
	ConfigureServices(services *ServiceCollection)
}

// RegistryFunc adapts a function to the Registry interface.
type RegistryFunc func(services *ServiceCollection)

func (f RegistryFunc) ConfigureServices(services *ServiceCollection) {
	f(services)
}

// Module is a named Registry. Modules are applied when building collections,
// when forking child containers and when configuring a live container.
type Module interface {
	Registry

	// Name identifies the module in logs and errors.
	Name() string
}

// NewModule creates a module with the given name and builders.
// Modules are a way to group related registrations together. Builders run
// in order and may themselves be modules.
//
// Example:
//
//	var StorageModule = containr.NewModule("storage",
//	    containr.AddFactory("db", openDatabase, containr.Singleton),
//	    containr.AddAutoResolve("users", newUserRepository, containr.Transient),
//	)
//
//	var AppModule = containr.NewModule("app",
//	    StorageModule,
//	    containr.AddArray("handlers", healthHandler),
//	)
func NewModule(name string, builders ...Registry) Module {
	return &module{name: name, builders: builders}
}

type module struct {
	name     string
	builders []Registry
}

func (m *module) Name() string {
	return m.name
}

func (m *module) ConfigureServices(services *ServiceCollection) {
	for _, builder := range m.builders {
		if builder == nil {
			continue
		}

		if nested, ok := builder.(Module); ok {
			services.Apply(nested)
			continue
		}

		builder.ConfigureServices(services)
	}
}

// NewModuleWithOptions creates a module whose registrations depend on options.
func NewModuleWithOptions[O any](name string, options O, configure func(services *ServiceCollection, options O)) Module {
	return NewModule(name, RegistryFunc(func(services *ServiceCollection) {
		configure(services, options)
	}))
}

// AddSingleton creates a builder for ServiceCollection.Singleton.
func AddSingleton(key string, value any) Registry {
	return RegistryFunc(func(s *ServiceCollection) {
		s.Singleton(key, value)
	})
}

// AddFactory creates a builder for ServiceCollection.Factory.
func AddFactory(key string, factory any, lifetime Lifetime) Registry {
	return RegistryFunc(func(s *ServiceCollection) {
		s.Factory(key, factory, lifetime)
	})
}

// AddAutoResolve creates a builder for ServiceCollection.AutoResolve.
func AddAutoResolve(key string, constructor any, lifetime Lifetime) Registry {
	return RegistryFunc(func(s *ServiceCollection) {
		s.AutoResolve(key, constructor, lifetime)
	})
}

// AddArray creates a builder for ServiceCollection.Array.
func AddArray(key string, value any) Registry {
	return RegistryFunc(func(s *ServiceCollection) {
		s.Array(key, value)
	})
}

// AddArrayAutoResolve creates a builder for ServiceCollection.ArrayAutoResolve.
func AddArrayAutoResolve(key string, constructor any) Registry {
	return RegistryFunc(func(s *ServiceCollection) {
		s.ArrayAutoResolve(key, constructor)
	})
}

// CreateContainer builds a root container from modules.
func CreateContainer(modules []Module, opts ...ContainerOption) (*ServiceContainer, error) {
	return NewServiceCollection().Apply(modules...).BuildContainer(opts...)
}

func moduleNames(modules []Module) []string {
	names := make([]string, 0, len(modules))
	for _, m := range modules {
		if m != nil {
			names = append(names, m.Name())
		}
	}
	return names
}
