package reflection_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junioryono/containr/internal/reflection"
)

type mapResolver map[string]any

func (m mapResolver) ResolveField(field reflection.FieldInfo) (any, error) {
	if value, ok := m[field.Key]; ok {
		return value, nil
	}
	if field.Array {
		return []any{}, nil
	}
	return nil, errors.New("no value for " + field.Key)
}

func analyze(t *testing.T, ctor any) *reflection.ConstructorInfo {
	t.Helper()

	info, err := reflection.New().Analyze(ctor)
	require.NoError(t, err)
	return info
}

func TestConstructorInvoker_Invoke(t *testing.T) {
	t.Parallel()

	invoker := reflection.NewConstructorInvoker()

	t.Run("positional arguments", func(t *testing.T) {
		t.Parallel()

		db := &Database{ConnectionString: "postgres://"}
		logger := &ConsoleLogger{}

		result, err := invoker.Invoke(analyze(t, NewUserService), []any{db, logger})
		require.NoError(t, err)

		svc := result.(*UserService)
		assert.Same(t, db, svc.DB)
		assert.Same(t, logger, svc.Logger)
	})

	t.Run("missing arguments are zero", func(t *testing.T) {
		t.Parallel()

		result, err := invoker.Invoke(analyze(t, NewUserService), nil)
		require.NoError(t, err)

		svc := result.(*UserService)
		assert.Nil(t, svc.DB)
		assert.Nil(t, svc.Logger)
	})

	t.Run("nil argument is zero", func(t *testing.T) {
		t.Parallel()

		result, err := invoker.Invoke(analyze(t, NewUserService), []any{nil, nil})
		require.NoError(t, err)
		assert.Nil(t, result.(*UserService).DB)
	})

	t.Run("too many arguments", func(t *testing.T) {
		t.Parallel()

		_, err := invoker.Invoke(analyze(t, NewDatabase), []any{"a", "b"})

		var countErr reflection.ArgumentCountError
		require.ErrorAs(t, err, &countErr)
		assert.Equal(t, 1, countErr.Expected)
		assert.Equal(t, 2, countErr.Actual)
	})

	t.Run("coercion failure", func(t *testing.T) {
		t.Parallel()

		_, err := invoker.Invoke(analyze(t, NewUserService), []any{&Database{}, "not a logger"})

		var coercion reflection.CoercionError
		require.ErrorAs(t, err, &coercion)
		assert.Equal(t, 1, coercion.Position)
		assert.Equal(t, reflect.TypeOf((*Logger)(nil)).Elem(), coercion.Expected)
		assert.Equal(t, reflect.TypeOf(""), coercion.Actual)
		assert.Equal(t, "cannot use string as reflection_test.Logger for argument 1", coercion.Error())
	})

	t.Run("error return", func(t *testing.T) {
		t.Parallel()

		info := analyze(t, NewUserServiceWithError)

		_, err := invoker.Invoke(info, nil)
		assert.EqualError(t, err, "database required")

		result, err := invoker.Invoke(info, []any{&Database{}})
		require.NoError(t, err)
		assert.NotNil(t, result)
	})

	t.Run("variadic", func(t *testing.T) {
		t.Parallel()

		info := analyze(t, JoinNames)

		result, err := invoker.Invoke(info, []any{", ", "a", "b", "c"})
		require.NoError(t, err)
		assert.Equal(t, "a, b, c", result)

		result, err = invoker.Invoke(info, []any{"-"})
		require.NoError(t, err)
		assert.Equal(t, "", result)

		_, err = invoker.Invoke(info, []any{"-", 1})
		var coercion reflection.CoercionError
		require.ErrorAs(t, err, &coercion)
		assert.Equal(t, 1, coercion.Position)
	})

	t.Run("array arguments become typed slices", func(t *testing.T) {
		t.Parallel()

		ctor := func(loggers []Logger) int { return len(loggers) }

		result, err := invoker.Invoke(analyze(t, ctor), []any{[]any{&ConsoleLogger{}, &ConsoleLogger{}}})
		require.NoError(t, err)
		assert.Equal(t, 2, result)

		_, err = invoker.Invoke(analyze(t, ctor), []any{[]any{&ConsoleLogger{}, 42}})
		assert.Error(t, err)
	})
}

func TestConstructorInvoker_ParamObject(t *testing.T) {
	t.Parallel()

	invoker := reflection.NewConstructorInvoker()

	t.Run("fields from resolver", func(t *testing.T) {
		t.Parallel()

		db := &Database{}
		logger := &ConsoleLogger{}
		resolver := mapResolver{
			"db":       db,
			"logger":   logger,
			"handlers": []any{logger},
		}

		for _, ctor := range []any{NewServiceWithParams, NewServiceWithParamsPointer} {
			result, err := invoker.InvokeWithParamObject(analyze(t, ctor), resolver)
			require.NoError(t, err)

			svc := result.(*UserService)
			assert.Same(t, db, svc.DB)
			assert.Same(t, logger, svc.Logger)
		}
	})

	t.Run("optional field keeps zero value", func(t *testing.T) {
		t.Parallel()

		result, err := invoker.InvokeWithParamObject(analyze(t, NewServiceWithParams), mapResolver{"db": &Database{}})
		require.NoError(t, err)
		assert.Nil(t, result.(*UserService).Logger)
	})

	t.Run("required field fails", func(t *testing.T) {
		t.Parallel()

		_, err := invoker.InvokeWithParamObject(analyze(t, NewServiceWithParams), mapResolver{})
		assert.EqualError(t, err, "failed to resolve field Database: no value for db")
	})

	t.Run("field coercion failure", func(t *testing.T) {
		t.Parallel()

		_, err := invoker.InvokeWithParamObject(analyze(t, NewServiceWithParams), mapResolver{"db": "oops"})

		var coercion reflection.CoercionError
		require.ErrorAs(t, err, &coercion)
		assert.Equal(t, "Database", coercion.Field)
	})

	t.Run("build param object", func(t *testing.T) {
		t.Parallel()

		value, err := invoker.BuildParamObject(analyze(t, NewServiceWithParams), mapResolver{"db": &Database{}})
		require.NoError(t, err)

		params := value.(ServiceParams)
		assert.NotNil(t, params.Database)
		assert.Empty(t, params.Handlers)
		assert.NotNil(t, params.Handlers)

		_, err = invoker.BuildParamObject(analyze(t, NewServiceWithParams), nil)
		assert.Error(t, err)
	})

	t.Run("not a param object", func(t *testing.T) {
		t.Parallel()

		_, err := invoker.InvokeWithParamObject(analyze(t, NewDatabase), mapResolver{})

		var invalid reflection.InvalidConstructorError
		assert.ErrorAs(t, err, &invalid)
	})
}

func TestCoerce(t *testing.T) {
	t.Parallel()

	stringType := reflect.TypeOf("")

	value, err := reflection.Coerce(nil, stringType)
	require.NoError(t, err)
	assert.Equal(t, "", value.Interface())

	value, err = reflection.Coerce("hello", stringType)
	require.NoError(t, err)
	assert.Equal(t, "hello", value.Interface())

	value, err = reflection.Coerce([]any{"a", nil}, reflect.TypeOf([]string{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", ""}, value.Interface())

	_, err = reflection.Coerce(1, stringType)
	var coercion reflection.CoercionError
	require.ErrorAs(t, err, &coercion)
	assert.Equal(t, stringType, coercion.Expected)
}
