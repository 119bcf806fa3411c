package containr

import (
	"reflect"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"
)

// ContainerKey resolves to the container performing the resolution.
const ContainerKey = "@containr/container"

// Factory produces the value of a dependency. The container it receives is
// bound to the resolution in progress, so nested lookups made through it
// take part in circular dependency detection.
type Factory func(c Container) (any, error)

// Typed adapts a strongly typed producer to a Factory.
func Typed[T any](fn func(c Container) (T, error)) Factory {
	return func(c Container) (any, error) {
		return fn(c)
	}
}

// Dependency is a named, lazily resolved value source.
type Dependency interface {
	// Key returns the key the dependency is registered under.
	Key() string

	// IsResolved reports whether the value has been produced at least once.
	IsResolved() bool

	// ResolveValue produces the value using c for nested lookups.
	ResolveValue(c Container) (any, error)
}

// valueDisposer is implemented by dependencies whose produced values need
// custom disposal, such as arrays of disposables.
type valueDisposer interface {
	disposeValue(value any) error
}

// asFactory turns a registration argument into a Factory. Functions taking a
// Container and returning a value, optionally with an error, are used as
// producers; anything else is a constant.
func asFactory(value any) Factory {
	switch v := value.(type) {
	case Factory:
		if v != nil {
			return v
		}
	case func(Container) (any, error):
		if v != nil {
			return v
		}
	case func(Container) any:
		if v != nil {
			return func(c Container) (any, error) {
				return v(c), nil
			}
		}
	}

	if factory, ok := reflectFactory(value); ok {
		return factory
	}

	return func(Container) (any, error) {
		return value, nil
	}
}

var (
	containerType = reflect.TypeOf((*Container)(nil)).Elem()
	errorType     = reflect.TypeOf((*error)(nil)).Elem()
)

// reflectFactory adapts typed producers such as func(Container) (*DB, error)
// or func(Container) *DB.
func reflectFactory(value any) (Factory, bool) {
	fn := reflect.ValueOf(value)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, false
	}

	t := fn.Type()
	if t.NumIn() != 1 || t.In(0) != containerType || t.IsVariadic() {
		return nil, false
	}

	switch {
	case t.NumOut() == 1:
	case t.NumOut() == 2 && t.Out(1) == errorType:
	default:
		return nil, false
	}

	return func(c Container) (any, error) {
		in := reflect.ValueOf(&c).Elem()
		out := fn.Call([]reflect.Value{in})
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}, true
}

// ValueFactoryDependency holds a constant value or a producer. The producer
// runs on every ResolveValue call; caching is the scope's job.
type ValueFactoryDependency struct {
	key      string
	mu       sync.RWMutex
	factory  Factory
	resolved atomic.Bool
}

var _ Dependency = (*ValueFactoryDependency)(nil)

// NewValueFactoryDependency creates a dependency from a value or a Factory.
func NewValueFactoryDependency(key string, value any) *ValueFactoryDependency {
	return &ValueFactoryDependency{
		key:     key,
		factory: asFactory(value),
	}
}

func (d *ValueFactoryDependency) Key() string {
	return d.key
}

func (d *ValueFactoryDependency) IsResolved() bool {
	return d.resolved.Load()
}

func (d *ValueFactoryDependency) ResolveValue(c Container) (any, error) {
	d.mu.RLock()
	factory := d.factory
	d.mu.RUnlock()

	value, err := safeProduce(d.key, factory, c)
	if err != nil {
		return nil, err
	}

	d.resolved.Store(true)
	return value, nil
}

// ReplaceValue swaps the value or producer. The key never changes.
func (d *ValueFactoryDependency) ReplaceValue(value any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.factory = asFactory(value)
}

// ArrayDependency aggregates nested dependencies registered under one key.
// Members are named "<key>-<index>" and resolve in registration order.
type ArrayDependency struct {
	key      string
	mu       sync.RWMutex
	values   []Dependency
	resolved atomic.Bool
}

var _ Dependency = (*ArrayDependency)(nil)

// NewArrayDependency creates an array dependency with optional initial members.
func NewArrayDependency(key string, values ...Dependency) *ArrayDependency {
	return &ArrayDependency{
		key:    key,
		values: values,
	}
}

func (d *ArrayDependency) Key() string {
	return d.key
}

func (d *ArrayDependency) IsResolved() bool {
	return d.resolved.Load()
}

// Len returns the number of members.
func (d *ArrayDependency) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.values)
}

// ResolveValue resolves every member in registration order and returns them
// as a []any. The first failing member aborts the resolution.
func (d *ArrayDependency) ResolveValue(c Container) (any, error) {
	d.mu.RLock()
	members := make([]Dependency, len(d.values))
	copy(members, d.values)
	d.mu.RUnlock()

	results := make([]any, 0, len(members))
	for _, member := range members {
		value, err := member.ResolveValue(c)
		if err != nil {
			return nil, err
		}
		results = append(results, value)
	}

	d.resolved.Store(true)
	return results, nil
}

// Register appends a value or Factory.
func (d *ArrayDependency) Register(value any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.values = append(d.values, NewValueFactoryDependency(d.nextKey(), value))
}

// Push appends a member built by auto-resolving ctor.
func (d *ArrayDependency) Push(ctor *Constructor, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.values = append(d.values, NewValueFactoryDependency(d.nextKey(), autoResolvingFactory(ctor, args...)))
}

func (d *ArrayDependency) nextKey() string {
	return d.key + "-" + strconv.Itoa(len(d.values))
}

func (d *ArrayDependency) disposeValue(value any) error {
	items, ok := value.([]any)
	if !ok {
		return dispose(value)
	}

	var errs []error
	for _, item := range items {
		if err := dispose(item); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return DisposalError{Context: d.key, Errors: errs}
	}

	return nil
}

// UnknownDependency stands in for a key with no binding.
type UnknownDependency struct {
	key string
}

var _ Dependency = (*UnknownDependency)(nil)

// NewUnknownDependency creates the missing-binding sentinel for key.
func NewUnknownDependency(key string) *UnknownDependency {
	return &UnknownDependency{key: key}
}

func (d *UnknownDependency) Key() string {
	return d.key
}

func (d *UnknownDependency) IsResolved() bool {
	return false
}

func (d *UnknownDependency) ResolveValue(Container) (any, error) {
	return nil, MissingServiceError{Key: d.key}
}

// ContainerDependency resolves to the container performing the resolution.
type ContainerDependency struct{}

var _ Dependency = ContainerDependency{}

func (ContainerDependency) Key() string {
	return ContainerKey
}

func (ContainerDependency) IsResolved() bool {
	return true
}

func (ContainerDependency) ResolveValue(c Container) (any, error) {
	if c == nil {
		return nil, ErrNoContainer
	}

	return requestingContainer(c), nil
}

// safeProduce runs factory, converting a panic into a ConstructorPanicError.
func safeProduce(key string, factory Factory, c Container) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = ConstructorPanicError{
				Constructor: "factory for " + key,
				Panic:       r,
				Stack:       debug.Stack(),
			}
		}
	}()

	return factory(c)
}

func (d *ArrayDependency) clone() *ArrayDependency {
	d.mu.RLock()
	defer d.mu.RUnlock()

	values := make([]Dependency, len(d.values))
	copy(values, d.values)
	return NewArrayDependency(d.key, values...)
}
