package containr

import (
	"errors"
	"runtime/debug"

	"github.com/junioryono/containr/internal/reflection"
)

// autoResolvingFactory returns a Factory that constructs ctor through the
// auto-resolver each time it runs.
func autoResolvingFactory(ctor *Constructor, args ...any) Factory {
	return func(c Container) (any, error) {
		return autoResolve(ctor, c, metadataFor(c), args)
	}
}

// autoResolve builds the arguments of ctor from its descriptors, in position
// order, appends args and invokes ctor. Constructors without descriptors are
// called with args only, unless they take a parameter object.
func autoResolve(ctor *Constructor, c Container, md *Metadata, args []any) (any, error) {
	if ctor == nil {
		return nil, ErrConstructorNil
	}

	descriptors := md.Descriptors(ctor)

	if len(descriptors) == 0 && ctor.info.IsParamObject {
		return invokeConstructor(ctor, func() (any, error) {
			return invoker.InvokeWithParamObject(ctor.info, fieldResolver{container: c})
		}, nil)
	}

	resolved := make([]any, 0, len(descriptors)+len(args))
	for _, d := range descriptors {
		chain := d.Chain
		if chain == nil {
			chain = NewInterceptorChain(d.Key)
		}

		value, err := chain.Resolve(c)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, value)
	}
	resolved = append(resolved, args...)

	return invokeConstructor(ctor, func() (any, error) {
		return invoker.Invoke(ctor.info, resolved)
	}, descriptors)
}

// invokeConstructor runs call and translates its failures.
func invokeConstructor(ctor *Constructor, call func() (any, error), descriptors []Descriptor) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = ConstructorPanicError{
				Constructor: ctor.Name(),
				Panic:       r,
				Stack:       debug.Stack(),
			}
		}
	}()

	value, err = call()
	if err == nil {
		return value, nil
	}

	var coercion reflection.CoercionError
	if errors.As(err, &coercion) {
		key := coercion.Field
		if coercion.Field == "" && coercion.Position < len(descriptors) {
			key = descriptors[coercion.Position].Key
		}

		return nil, ResolutionError{
			Key: ctor.Name(),
			Cause: TypeMismatchError{
				Key:      key,
				Expected: coercion.Expected,
				Actual:   coercion.Actual,
			},
		}
	}

	return nil, ConstructorInvocationError{Constructor: ctor.Name(), Cause: err}
}

// fieldResolver resolves parameter object fields through interceptor chains
// so they fail the same way descriptor-driven arguments do.
type fieldResolver struct {
	container Container
}

func (r fieldResolver) ResolveField(field reflection.FieldInfo) (any, error) {
	if field.Array {
		return NewInterceptorChain(field.Key, SkipContainerResolution()).
			Add(ArrayInterceptor(field.Key)).
			Resolve(r.container)
	}

	return NewInterceptorChain(field.Key).Resolve(r.container)
}
