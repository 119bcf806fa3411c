package containr

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	minBatchSize = 2
	maxBatchSize = 10
)

// Container resolves keys to values.
type Container interface {
	Disposable

	// ID returns the unique identifier of this container instance.
	ID() string

	// Provenance returns the diagnostic label given when the container was created.
	Provenance() string

	// Parent returns the container this one was forked from, or nil for a root.
	Parent() Container

	// Has reports whether key is bound in this container or one of its parents.
	Has(key string) bool

	// Get resolves the value bound to key.
	Get(key string) (any, error)

	// GetMany resolves between two and ten keys from left to right. The first
	// failure is returned; values resolved before it are not rolled back.
	GetMany(keys ...string) ([]any, error)

	// Resolve constructs ctor with its declared dependencies, followed by args.
	Resolve(ctor *Constructor, args ...any) (any, error)

	// CreateChildContainer forks this container. Scopes without a cached value
	// are cloned, resolved ones are shared. Overrides are applied to the child only.
	CreateChildContainer(provenance string, overrides ...Module) (Container, error)

	// Destroy releases the cached value bound to key.
	Destroy(key string) error

	// Dispose releases every cached value owned by this container.
	Dispose() error
}

// ContainerOption configures a container built by a ServiceCollection.
type ContainerOption func(*containerOptions)

type containerOptions struct {
	logger     *slog.Logger
	metadata   *Metadata
	provenance string
	validate   bool
}

// WithLogger sets the logger used for lifecycle events. Child containers
// inherit it. The default is slog.Default().
func WithLogger(logger *slog.Logger) ContainerOption {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithMetadata sets the descriptor registry used by the auto-resolver. Child
// containers inherit it. Without it the container reads DefaultMetadata().
func WithMetadata(m *Metadata) ContainerOption {
	return func(o *containerOptions) {
		o.metadata = m
	}
}

// WithValidation makes BuildContainer run ServiceCollection.Validate with the
// container's metadata before building.
func WithValidation() ContainerOption {
	return func(o *containerOptions) {
		o.validate = true
	}
}

// WithProvenance labels the root container.
func WithProvenance(provenance string) ContainerOption {
	return func(o *containerOptions) {
		o.provenance = provenance
	}
}

// ServiceContainer is the Container built from a ServiceCollection.
// It is safe for concurrent use.
type ServiceContainer struct {
	id         string
	provenance string
	parent     *ServiceContainer
	logger     *slog.Logger
	metadata   *Metadata

	mu     sync.RWMutex
	values map[string]Scope

	// Scopes inherited by reference from the parent. The parent owns them.
	shared map[Scope]struct{}
}

var _ Container = (*ServiceContainer)(nil)

func newServiceContainer(values map[string]Scope, parent *ServiceContainer, opts containerOptions) *ServiceContainer {
	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &ServiceContainer{
		id:         uuid.NewString(),
		provenance: opts.provenance,
		parent:     parent,
		logger:     logger,
		metadata:   opts.metadata,
		values:     values,
		shared:     make(map[Scope]struct{}),
	}
}

// ID returns the unique identifier for the container.
// This ID is a UUID generated when the container is created.
func (c *ServiceContainer) ID() string {
	return c.id
}

func (c *ServiceContainer) Provenance() string {
	return c.provenance
}

func (c *ServiceContainer) Parent() Container {
	if c.parent == nil {
		return nil
	}
	return c.parent
}

func (c *ServiceContainer) Has(key string) bool {
	c.mu.RLock()
	_, ok := c.values[key]
	c.mu.RUnlock()

	if ok {
		return true
	}

	return c.parent != nil && c.parent.Has(key)
}

func (c *ServiceContainer) Get(key string) (any, error) {
	return c.get(key, nil)
}

func (c *ServiceContainer) GetMany(keys ...string) ([]any, error) {
	return c.getMany(keys, nil)
}

func (c *ServiceContainer) Resolve(ctor *Constructor, args ...any) (any, error) {
	return autoResolve(ctor, c, c.meta(), args)
}

// get resolves key on behalf of from, the view of the resolution asking for
// it. from is nil for lookups made outside any resolution.
func (c *ServiceContainer) get(key string, from *resolution) (any, error) {
	path := from.inFlight()
	if slices.Contains(path, key) {
		return nil, CircularDependencyError{
			Key:  key,
			Path: append(slices.Clone(path), key),
		}
	}

	c.mu.RLock()
	scope, ok := c.values[key]
	c.mu.RUnlock()

	if !ok {
		if c.parent != nil {
			return c.parent.get(key, from)
		}

		scope = newCachedScope(Transient, NewUnknownDependency(key))
	}

	view := c.bind(from, key)
	defer view.release()

	return scope.ResolveValue(view)
}

func (c *ServiceContainer) getMany(keys []string, from *resolution) ([]any, error) {
	if len(keys) < minBatchSize || len(keys) > maxBatchSize {
		return nil, UnsupportedBatchSizeError{Size: len(keys)}
	}

	values := make([]any, 0, len(keys))
	for _, key := range keys {
		value, err := c.get(key, from)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}

	return values, nil
}

func (c *ServiceContainer) CreateChildContainer(provenance string, overrides ...Module) (Container, error) {
	c.mu.RLock()
	values := make(map[string]Scope, len(c.values))
	shared := make(map[Scope]struct{})
	for key, scope := range c.values {
		cloned := scope.Clone()
		if cloned == scope {
			shared[scope] = struct{}{}
		}
		values[key] = cloned
	}
	c.mu.RUnlock()

	services := newInheritedCollection(values)
	services.Apply(overrides...)
	if err := services.Err(); err != nil {
		return nil, err
	}

	child := newServiceContainer(services.values, c, containerOptions{
		logger:     c.logger,
		metadata:   c.metadata,
		provenance: provenance,
	})

	// Overrides may have replaced inherited scopes; those are owned by the child.
	for _, scope := range child.values {
		if _, ok := shared[scope]; ok {
			child.shared[scope] = struct{}{}
		}
	}

	c.logger.Debug("created child container",
		"id", child.id,
		"parent", c.id,
		"provenance", provenance,
		"overrides", moduleNames(overrides),
	)

	return child, nil
}

// Configure applies modules to this container's bindings in place. Keys the
// modules bind replace the existing ones on this container only; replaced
// scopes are not disposed.
func (c *ServiceContainer) Configure(modules ...Module) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	services := newInheritedCollection(maps.Clone(c.values))
	services.Apply(modules...)
	if err := services.Err(); err != nil {
		return err
	}

	c.values = services.values

	c.logger.Debug("configured container",
		"id", c.id,
		"provenance", c.provenance,
		"modules", moduleNames(modules),
	)

	return nil
}

func (c *ServiceContainer) Destroy(key string) error {
	c.mu.RLock()
	scope, ok := c.values[key]
	c.mu.RUnlock()

	if !ok {
		return nil
	}

	return scope.Destroy()
}

// Dispose destroys every scope owned by this container. Scopes shared with a
// parent are left to the parent. Disposal order is unspecified.
func (c *ServiceContainer) Dispose() error {
	c.mu.RLock()
	scopes := make(map[string]Scope, len(c.values))
	for key, scope := range c.values {
		if _, ok := c.shared[scope]; ok {
			continue
		}
		scopes[key] = scope
	}
	c.mu.RUnlock()

	var errs []error
	for key, scope := range scopes {
		if err := scope.Destroy(); err != nil {
			c.logger.Warn("failed to dispose service",
				"container", c.id,
				"key", key,
				"error", err,
			)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return DisposalError{Context: "container", Errors: errs}
	}

	return nil
}

// Close implements Disposable by disposing the container.
func (c *ServiceContainer) Close() error {
	return c.Dispose()
}

// Keys returns the keys bound directly in this container, sorted.
func (c *ServiceContainer) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Sorted(maps.Keys(c.values))
}

func (c *ServiceContainer) meta() *Metadata {
	if c.metadata != nil {
		return c.metadata
	}
	return DefaultMetadata()
}

func (c *ServiceContainer) bind(from *resolution, key string) *resolution {
	path := from.inFlight()
	next := make([]string, len(path), len(path)+1)
	copy(next, path)

	r := &resolution{
		container: c,
		path:      append(next, key),
	}
	if len(path) > 0 {
		r.requester = from
	}
	r.active.Store(true)

	return r
}

// resolution is the Container handed to factories and interceptors. It
// carries the keys being resolved so re-entrant lookups are reported as
// cycles. Once the resolution returns, the view behaves like the plain
// container.
type resolution struct {
	container *ServiceContainer
	path      []string
	active    atomic.Bool

	// requester is the view whose factory asked for this key, if any.
	requester *resolution
}

var _ Container = (*resolution)(nil)

func (r *resolution) release() {
	r.active.Store(false)
}

func (r *resolution) inFlight() []string {
	if r != nil && r.active.Load() {
		return r.path
	}
	return nil
}

func (r *resolution) ID() string {
	return r.container.ID()
}

func (r *resolution) Provenance() string {
	return r.container.Provenance()
}

func (r *resolution) Parent() Container {
	return r.container.Parent()
}

func (r *resolution) Has(key string) bool {
	return r.container.Has(key)
}

func (r *resolution) Get(key string) (any, error) {
	return r.container.get(key, r)
}

func (r *resolution) GetMany(keys ...string) ([]any, error) {
	return r.container.getMany(keys, r)
}

func (r *resolution) Resolve(ctor *Constructor, args ...any) (any, error) {
	return autoResolve(ctor, r, r.container.meta(), args)
}

func (r *resolution) CreateChildContainer(provenance string, overrides ...Module) (Container, error) {
	return r.container.CreateChildContainer(provenance, overrides...)
}

func (r *resolution) Destroy(key string) error {
	return r.container.Destroy(key)
}

func (r *resolution) Dispose() error {
	return r.container.Dispose()
}

func (r *resolution) Close() error {
	return r.container.Close()
}

// requestingContainer returns the Container a ContainerKey lookup made
// through c should hand out. Inside a resolution that is the requester's
// view, so lookups made with it keep the in-flight path.
func requestingContainer(c Container) Container {
	r, ok := c.(*resolution)
	if !ok {
		return c
	}
	if r.requester != nil {
		return r.requester
	}
	return r.container
}

func metadataFor(c Container) *Metadata {
	switch v := c.(type) {
	case *resolution:
		return v.container.meta()
	case *ServiceContainer:
		return v.meta()
	default:
		return DefaultMetadata()
	}
}

// ContainerStack tracks the active container, for example while a nested
// unit of work runs in a child container.
type ContainerStack struct {
	mu    sync.Mutex
	stack Stack[Container]
}

// NewContainerStack creates a stack with root as the current container.
func NewContainerStack(root Container) *ContainerStack {
	s := &ContainerStack{}
	s.stack.Push(root)
	return s
}

// Current returns the most recently pushed container.
func (s *ContainerStack) Current() (Container, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.stack.Peek()
	if !ok || c == nil {
		return nil, ErrNoContainer
	}

	return c, nil
}

func (s *ContainerStack) Push(c Container) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stack.Push(c)
}

// Pop removes the current container. The root is never removed.
func (s *ContainerStack) Pop() (Container, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stack.Size() <= 1 {
		return nil, false
	}

	return s.stack.Pop()
}
