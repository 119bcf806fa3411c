package containr

import (
	"fmt"
	"reflect"
)

// Get is a generic helper function that resolves key as type T.
// A value of another type is reported as a ResolutionError wrapping a
// TypeMismatchError.
func Get[T any](c Container, key string) (T, error) {
	var zero T

	value, err := c.Get(key)
	if err != nil {
		return zero, err
	}

	return cast[T](key, value)
}

// MustGet resolves key as type T and panics on error.
func MustGet[T any](c Container, key string) T {
	result, err := Get[T](c, key)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", key, err))
	}
	return result
}

// Get2 resolves two keys, left to right.
func Get2[T1, T2 any](c Container, k1, k2 string) (T1, T2, error) {
	var (
		v1 T1
		v2 T2
	)

	values, err := c.GetMany(k1, k2)
	if err != nil {
		return v1, v2, err
	}

	if v1, err = cast[T1](k1, values[0]); err != nil {
		return v1, v2, err
	}
	v2, err = cast[T2](k2, values[1])

	return v1, v2, err
}

// Get3 resolves three keys, left to right.
func Get3[T1, T2, T3 any](c Container, k1, k2, k3 string) (T1, T2, T3, error) {
	var (
		v1 T1
		v2 T2
		v3 T3
	)

	values, err := c.GetMany(k1, k2, k3)
	if err != nil {
		return v1, v2, v3, err
	}

	if v1, err = cast[T1](k1, values[0]); err != nil {
		return v1, v2, v3, err
	}
	if v2, err = cast[T2](k2, values[1]); err != nil {
		return v1, v2, v3, err
	}
	v3, err = cast[T3](k3, values[2])

	return v1, v2, v3, err
}

// Get4 resolves four keys, left to right.
func Get4[T1, T2, T3, T4 any](c Container, k1, k2, k3, k4 string) (T1, T2, T3, T4, error) {
	var (
		v1 T1
		v2 T2
		v3 T3
		v4 T4
	)

	values, err := c.GetMany(k1, k2, k3, k4)
	if err != nil {
		return v1, v2, v3, v4, err
	}

	if v1, err = cast[T1](k1, values[0]); err != nil {
		return v1, v2, v3, v4, err
	}
	if v2, err = cast[T2](k2, values[1]); err != nil {
		return v1, v2, v3, v4, err
	}
	if v3, err = cast[T3](k3, values[2]); err != nil {
		return v1, v2, v3, v4, err
	}
	v4, err = cast[T4](k4, values[3])

	return v1, v2, v3, v4, err
}

// GetArray resolves the array bound to key as []T.
func GetArray[T any](c Container, key string) ([]T, error) {
	value, err := c.Get(key)
	if err != nil {
		return nil, err
	}

	items, ok := value.([]any)
	if !ok {
		return cast[[]T](key, value)
	}

	results := make([]T, 0, len(items))
	for i, item := range items {
		result, err := cast[T](fmt.Sprintf("%s-%d", key, i), item)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

// ResolveAs constructs ctor through c and returns the result as T.
func ResolveAs[T any](c Container, ctor *Constructor, args ...any) (T, error) {
	var zero T

	value, err := c.Resolve(ctor, args...)
	if err != nil {
		return zero, err
	}

	name := "<nil>"
	if ctor != nil {
		name = ctor.Name()
	}

	return cast[T](name, value)
}

func cast[T any](key string, value any) (T, error) {
	if result, ok := value.(T); ok {
		return result, nil
	}

	var zero T

	// nil is a valid value for interface, pointer, slice and map types.
	if value == nil {
		switch reflect.TypeFor[T]().Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return zero, nil
		}
	}

	return zero, ResolutionError{
		Key: key,
		Cause: TypeMismatchError{
			Key:      key,
			Expected: reflect.TypeFor[T](),
			Actual:   reflect.TypeOf(value),
		},
	}
}
