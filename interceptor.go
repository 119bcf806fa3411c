package containr

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// Interceptor is one step of an InterceptorChain. It receives the value
// produced so far and the errors collected by earlier steps. Returning an
// error pushes it onto errs and leaves the current value unchanged. A step
// may clear errs to recover from an earlier failure.
type Interceptor interface {
	Intercept(current any, c Container, errs *Stack[error]) (any, error)
}

// InterceptorFunc adapts a function to the Interceptor interface.
type InterceptorFunc func(current any, c Container, errs *Stack[error]) (any, error)

func (f InterceptorFunc) Intercept(current any, c Container, errs *Stack[error]) (any, error) {
	return f(current, c, errs)
}

// ChainOption configures an InterceptorChain.
type ChainOption func(*InterceptorChain)

// SkipContainerResolution starts the chain from a nil value instead of
// reading the key from the container first.
func SkipContainerResolution() ChainOption {
	return func(ch *InterceptorChain) {
		ch.resolveFromContainer = false
	}
}

// InterceptorChain post-processes the value bound to a key.
type InterceptorChain struct {
	key                  string
	resolveFromContainer bool

	mu           sync.RWMutex
	interceptors []Interceptor
}

// NewInterceptorChain creates a chain for key. By default the chain begins
// with an implicit step that resolves key from the container.
func NewInterceptorChain(key string, opts ...ChainOption) *InterceptorChain {
	ch := &InterceptorChain{
		key:                  key,
		resolveFromContainer: true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ch)
		}
	}

	return ch
}

// Key returns the key the chain resolves.
func (ch *InterceptorChain) Key() string {
	return ch.key
}

// Add appends an interceptor. Interceptors run in the order they were added.
func (ch *InterceptorChain) Add(interceptors ...Interceptor) *InterceptorChain {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	for _, i := range interceptors {
		if i != nil {
			ch.interceptors = append(ch.interceptors, i)
		}
	}

	return ch
}

// Len returns the number of explicit interceptors.
func (ch *InterceptorChain) Len() int {
	ch.mu.RLock()
	defer ch.mu.RUnlock()

	return len(ch.interceptors)
}

// Resolve runs every step against c. When errors remain after the last step,
// the most recent one is returned: cycles as CircularDependencyError, anything
// else wrapped in a ResolutionError.
func (ch *InterceptorChain) Resolve(c Container) (any, error) {
	ch.mu.RLock()
	steps := make([]Interceptor, 0, len(ch.interceptors)+1)
	if ch.resolveFromContainer {
		steps = append(steps, containerInterceptor(ch.key))
	}
	steps = append(steps, ch.interceptors...)
	ch.mu.RUnlock()

	errs := NewStack[error]()

	var current any
	for i, step := range steps {
		current = ch.run(i, step, current, c, errs)
	}

	last, failed := errs.Peek()
	if !failed {
		return current, nil
	}

	var cycle CircularDependencyError
	if errors.As(last, &cycle) {
		return nil, CircularDependencyError{Key: ch.key, Path: cycle.Path}
	}

	return nil, ResolutionError{Key: ch.key, Cause: last}
}

func (ch *InterceptorChain) run(index int, step Interceptor, current any, c Container, errs *Stack[error]) (result any) {
	defer func() {
		if r := recover(); r != nil {
			errs.Push(ConstructorPanicError{
				Constructor: fmt.Sprintf("interceptor %d for %s", index, ch.key),
				Panic:       r,
				Stack:       debug.Stack(),
			})
			result = current
		}
	}()

	next, err := step.Intercept(current, c, errs)
	if err != nil {
		errs.Push(err)
		return current
	}

	return next
}

func containerInterceptor(key string) Interceptor {
	return InterceptorFunc(func(_ any, c Container, _ *Stack[error]) (any, error) {
		return c.Get(key)
	})
}

// ArrayInterceptor resolves the array bound to key, or an empty []any when
// the key is not registered.
func ArrayInterceptor(key string) Interceptor {
	return InterceptorFunc(func(_ any, c Container, _ *Stack[error]) (any, error) {
		if !c.Has(key) {
			return []any{}, nil
		}

		return c.Get(key)
	})
}

// DefaultInterceptor replaces a failed resolution with value and clears the
// collected errors. Successful values pass through untouched.
func DefaultInterceptor(value any) Interceptor {
	return InterceptorFunc(func(current any, _ Container, errs *Stack[error]) (any, error) {
		if errs.Size() == 0 {
			return current, nil
		}

		errs.Clear()
		return value, nil
	})
}

// TransformInterceptor applies fn to the current value. It is skipped while
// earlier steps have failed.
func TransformInterceptor(fn func(current any) (any, error)) Interceptor {
	return InterceptorFunc(func(current any, _ Container, errs *Stack[error]) (any, error) {
		if errs.Size() > 0 {
			return current, nil
		}

		return fn(current)
	})
}
