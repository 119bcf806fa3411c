package reflection

import (
	"fmt"
	"reflect"
)

// CoercionError reports a value that cannot be passed as the given type.
type CoercionError struct {
	Position int
	Field    string
	Expected reflect.Type
	Actual   reflect.Type
}

func (e CoercionError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("cannot use %v as %v for field %s", e.Actual, e.Expected, e.Field)
	}

	return fmt.Sprintf("cannot use %v as %v for argument %d", e.Actual, e.Expected, e.Position)
}

// ArgumentCountError reports more arguments than a non-variadic constructor accepts.
type ArgumentCountError struct {
	Expected int
	Actual   int
}

func (e ArgumentCountError) Error() string {
	return fmt.Sprintf("constructor accepts %d arguments, got %d", e.Expected, e.Actual)
}

// FieldResolver supplies the values of parameter object fields.
type FieldResolver interface {
	ResolveField(field FieldInfo) (any, error)
}

// ConstructorInvoker invokes analyzed constructors.
type ConstructorInvoker struct{}

// NewConstructorInvoker creates a new constructor invoker.
func NewConstructorInvoker() *ConstructorInvoker {
	return &ConstructorInvoker{}
}

// Invoke calls the constructor with args. Missing trailing arguments are
// passed as zero values. The error returned by a (T, error) constructor is
// passed through unchanged.
func (ci *ConstructorInvoker) Invoke(info *ConstructorInfo, args []any) (any, error) {
	in, err := ci.buildArguments(info, args)
	if err != nil {
		return nil, err
	}

	results := info.Value.Call(in)

	if info.HasErrorReturn {
		if errValue := results[1]; !errValue.IsNil() {
			return nil, errValue.Interface().(error)
		}
	}

	return results[0].Interface(), nil
}

// InvokeWithParamObject builds the parameter object from resolver and calls
// the constructor with it.
func (ci *ConstructorInvoker) InvokeWithParamObject(info *ConstructorInfo, resolver FieldResolver) (any, error) {
	if !info.IsParamObject {
		return nil, InvalidConstructorError{Type: info.Type, Reason: "constructor does not take a parameter object"}
	}

	param, err := ci.BuildParamObject(info, resolver)
	if err != nil {
		return nil, err
	}

	return ci.Invoke(info, []any{param})
}

// BuildParamObject creates and populates the In struct of info.
func (ci *ConstructorInvoker) BuildParamObject(info *ConstructorInfo, resolver FieldResolver) (any, error) {
	if resolver == nil {
		return nil, fmt.Errorf("resolver cannot be nil")
	}

	paramType := info.Type.In(0)
	structType := paramType
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	structPtr := reflect.New(structType)
	structValue := structPtr.Elem()

	for _, field := range info.Fields {
		value, err := resolver.ResolveField(field)
		if err != nil {
			if field.Optional {
				continue
			}
			return nil, fmt.Errorf("failed to resolve field %s: %w", field.Name, err)
		}

		fieldValue, err := Coerce(value, field.Type)
		if err != nil {
			return nil, CoercionError{Field: field.Name, Expected: field.Type, Actual: reflect.TypeOf(value)}
		}

		structValue.Field(field.Index).Set(fieldValue)
	}

	if paramType.Kind() == reflect.Pointer {
		return structPtr.Interface(), nil
	}

	return structValue.Interface(), nil
}

// buildArguments converts args into call arguments for the constructor.
func (ci *ConstructorInvoker) buildArguments(info *ConstructorInfo, args []any) ([]reflect.Value, error) {
	fnType := info.Type
	fixed := fnType.NumIn()
	if info.IsVariadic {
		fixed--
	}

	if !info.IsVariadic && len(args) > fixed {
		return nil, ArgumentCountError{Expected: fixed, Actual: len(args)}
	}

	in := make([]reflect.Value, 0, max(fixed, len(args)))
	for i := 0; i < fixed; i++ {
		paramType := fnType.In(i)
		if i >= len(args) {
			in = append(in, reflect.Zero(paramType))
			continue
		}

		value, err := Coerce(args[i], paramType)
		if err != nil {
			return nil, CoercionError{Position: i, Expected: paramType, Actual: reflect.TypeOf(args[i])}
		}
		in = append(in, value)
	}

	if info.IsVariadic {
		elemType := fnType.In(fixed).Elem()
		for i := fixed; i < len(args); i++ {
			value, err := Coerce(args[i], elemType)
			if err != nil {
				return nil, CoercionError{Position: i, Expected: elemType, Actual: reflect.TypeOf(args[i])}
			}
			in = append(in, value)
		}
	}

	return in, nil
}

// Coerce converts value to target. nil becomes the zero value, assignable
// values pass through, and []any is converted element by element into a
// typed slice.
func Coerce(value any, target reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(target), nil
	}

	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(target) {
		return v, nil
	}

	if items, ok := value.([]any); ok && target.Kind() == reflect.Slice {
		elemType := target.Elem()
		slice := reflect.MakeSlice(target, len(items), len(items))
		for i, item := range items {
			elem, err := Coerce(item, elemType)
			if err != nil {
				return reflect.Value{}, err
			}
			slice.Index(i).Set(elem)
		}
		return slice, nil
	}

	return reflect.Value{}, CoercionError{Expected: target, Actual: v.Type()}
}
