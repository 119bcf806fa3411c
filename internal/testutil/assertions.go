package testutil

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/containr"
)

// AssertResolvable checks that key resolves to a non-nil T
func AssertResolvable[T any](t *testing.T, c containr.Container, key string) T {
	t.Helper()
	value, err := containr.Get[T](c, key)
	require.NoError(t, err, "failed to resolve %s", key)
	require.NotNil(t, value, "resolved value for %s is nil", key)
	return value
}

// AssertMissing checks that key has no binding
func AssertMissing(t *testing.T, c containr.Container, key string) {
	t.Helper()
	value, err := c.Get(key)
	require.Error(t, err)
	assert.Nil(t, value)
	assert.True(t, containr.IsNotFound(err), "expected missing service error, got %v", err)

	var missing containr.MissingServiceError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, key, missing.Key)
}

// AssertSameInstance checks that two pointers are the same instance
func AssertSameInstance(t *testing.T, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	assert.Same(t, expected, actual, msgAndArgs...)
}

// AssertDifferentInstances checks that two pointers are different instances
func AssertDifferentInstances(t *testing.T, first, second any, msgAndArgs ...any) {
	t.Helper()
	assert.NotSame(t, first, second, msgAndArgs...)
}

// AssertErrorType checks that err matches type T
func AssertErrorType[T error](t *testing.T, err error, msgAndArgs ...any) T {
	t.Helper()
	var target T
	require.True(t, errors.As(err, &target), msgAndArgs...)
	return target
}

// AssertCircularDependency checks that err reports a cycle through path
func AssertCircularDependency(t *testing.T, err error, path ...string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, containr.IsCircularDependency(err), "expected circular dependency error, got %v", err)

	if len(path) > 0 {
		cycle := AssertErrorType[containr.CircularDependencyError](t, err)
		assert.Equal(t, path, cycle.Path)
	}
}
