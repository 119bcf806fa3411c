package containr

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that should be wrapped in typed errors when returned.
// Match them with errors.Is; the typed errors below carry the context.

var (
	// Resolution errors.
	ErrServiceNotFound      = errors.New("service not found")
	ErrCircularDependency   = errors.New("circular dependency detected")
	ErrUnsupportedBatchSize = errors.New("unsupported batch size")
	ErrTypeMismatch         = errors.New("type mismatch")

	// Construction errors.
	ErrConstructorNil     = errors.New("constructor cannot be nil")
	ErrConstructorInvalid = errors.New("constructor must be a function returning a value")

	// Lifecycle errors.
	ErrNoContainer = errors.New("no container available")
)

var (
	_ error = MissingServiceError{}
	_ error = CircularDependencyError{}
	_ error = ResolutionError{}
	_ error = UnsupportedBatchSizeError{}
	_ error = TypeMismatchError{}
	_ error = LifetimeError{}
	_ error = ConstructorInvocationError{}
	_ error = ConstructorPanicError{}
	_ error = DisposalError{}
	_ error = ModuleError{}
	_ error = RegistrationError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

// MissingServiceError is returned when a key has no binding anywhere in the
// container chain.
type MissingServiceError struct {
	Key string
}

func (e MissingServiceError) Error() string {
	return fmt.Sprintf("unrecognized service: %s", e.Key)
}

func (e MissingServiceError) Unwrap() error {
	return ErrServiceNotFound
}

// CircularDependencyError is returned when resolving a key requires the same
// key again further down the resolution path.
type CircularDependencyError struct {
	Key  string
	Path []string
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("circular dependency detected for %s", e.Key))

	if len(e.Path) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Path, " -> "))
	}

	return b.String()
}

func (e CircularDependencyError) Unwrap() error {
	return ErrCircularDependency
}

// ResolutionError wraps any failure raised while producing the value for a key.
type ResolutionError struct {
	Key   string
	Cause error
}

func (e ResolutionError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("failed to resolve %s", e.Key)
	}

	return fmt.Sprintf("failed to resolve %s: %v", e.Key, e.Cause)
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// UnsupportedBatchSizeError is returned by GetMany when given fewer than two
// or more than ten keys.
type UnsupportedBatchSizeError struct {
	Size int
}

func (e UnsupportedBatchSizeError) Error() string {
	return fmt.Sprintf("unsupported batch size %d: expected between %d and %d keys", e.Size, minBatchSize, maxBatchSize)
}

func (e UnsupportedBatchSizeError) Unwrap() error {
	return ErrUnsupportedBatchSize
}

// TypeMismatchError indicates a resolved value could not be used as the
// requested type.
type TypeMismatchError struct {
	Key      string
	Expected reflect.Type
	Actual   reflect.Type
}

func (e TypeMismatchError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("type mismatch: expected %s, got %s", formatType(e.Expected), formatType(e.Actual))
	}

	return fmt.Sprintf("type mismatch for %s: expected %s, got %s", e.Key, formatType(e.Expected), formatType(e.Actual))
}

func (e TypeMismatchError) Unwrap() error {
	return ErrTypeMismatch
}

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid lifetime: %v", e.Value)
}

// ConstructorInvocationError for constructor call failures.
type ConstructorInvocationError struct {
	Constructor string
	Cause       error
}

func (e ConstructorInvocationError) Error() string {
	return fmt.Sprintf("failed to invoke %s: %v", e.Constructor, e.Cause)
}

func (e ConstructorInvocationError) Unwrap() error {
	return e.Cause
}

// ConstructorPanicError indicates a constructor or factory panicked.
// It captures the panic value and stack trace for debugging.
type ConstructorPanicError struct {
	Constructor string
	Panic       any
	Stack       []byte
}

func (e ConstructorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s panicked: %v", e.Constructor, e.Panic))

	if len(e.Stack) > 0 {
		b.WriteString("\n\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// Unwrap exposes the panic value when it was an error.
func (e ConstructorPanicError) Unwrap() error {
	if err, ok := e.Panic.(error); ok {
		return err
	}

	return nil
}

// DisposalError aggregates disposal errors.
type DisposalError struct {
	Context string // "container", "scope"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// IsNotFound reports whether err was caused by a missing binding.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrServiceNotFound)
}

// IsCircularDependency reports whether err was caused by a dependency cycle.
func IsCircularDependency(err error) bool {
	return errors.Is(err, ErrCircularDependency)
}

// formatType formats a reflect.Type for error messages.
func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "*" + elem.Name()
		}
		return t.String()
	case reflect.Slice:
		elem := t.Elem()
		if elem.PkgPath() != "" && elem.Name() != "" {
			return "[]" + elem.Name()
		}
		return t.String()
	default:
		if t.Name() != "" {
			return t.Name()
		}
		return t.String()
	}
}

// ModuleError wraps registration failures raised while a module configured
// a collection.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// RegistrationError reports a binding the collection rejected.
type RegistrationError struct {
	Key   string
	Cause error
}

func (e RegistrationError) Error() string {
	return fmt.Sprintf("failed to register %s: %v", e.Key, e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}
