package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sync"
)

// In marks a struct used as a parameter object. Each exported field of such a
// struct is resolved by the key named in its `key` tag.
type In struct{}

var (
	inType  = reflect.TypeOf((*In)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// ErrNilConstructor is returned when analyzing a nil constructor.
var ErrNilConstructor = errors.New("constructor cannot be nil")

// InvalidConstructorError reports a value that cannot be used as a constructor.
type InvalidConstructorError struct {
	Type   reflect.Type
	Reason string
}

func (e InvalidConstructorError) Error() string {
	return fmt.Sprintf("invalid constructor %v: %s", e.Type, e.Reason)
}

// Analyzer performs reflection-based analysis of constructors.
// It caches analysis results per function pointer.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[uintptr]*ConstructorInfo
}

// ConstructorInfo contains analyzed information about a constructor function.
type ConstructorInfo struct {
	Name           string
	Type           reflect.Type
	Value          reflect.Value
	Parameters     []ParameterInfo
	Result         reflect.Type
	HasErrorReturn bool
	IsVariadic     bool

	// Set when the only parameter is a struct embedding In.
	IsParamObject bool
	Fields        []FieldInfo
}

// ParameterInfo describes a positional constructor parameter.
type ParameterInfo struct {
	Type     reflect.Type
	Index    int
	IsSlice  bool
	ElemType reflect.Type
}

// FieldInfo describes an injectable field of a parameter object.
type FieldInfo struct {
	Name     string
	Type     reflect.Type
	Index    int
	Key      string
	Optional bool
	Array    bool
}

// TagInfo contains parsed struct tag information.
type TagInfo struct {
	Key      string
	Optional bool
	Array    bool
	Ignore   bool
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[uintptr]*ConstructorInfo),
	}
}

// Analyze validates a constructor function and extracts its signature.
// Accepted shapes are func(args...) T and func(args...) (T, error).
func (a *Analyzer) Analyze(constructor any) (*ConstructorInfo, error) {
	if constructor == nil {
		return nil, ErrNilConstructor
	}

	val := reflect.ValueOf(constructor)
	typ := val.Type()

	if typ.Kind() != reflect.Func {
		return nil, InvalidConstructorError{Type: typ, Reason: "not a function"}
	}

	// Typed nil function
	if val.IsNil() {
		return nil, ErrNilConstructor
	}

	// Closures built from one literal share a code pointer, so the cached
	// analysis is copied and bound to this value.
	cacheKey := val.Pointer()

	a.mu.RLock()
	if cached, ok := a.cache[cacheKey]; ok && cached.Type == typ {
		a.mu.RUnlock()
		info := *cached
		info.Value = val
		return &info, nil
	}
	a.mu.RUnlock()

	info := &ConstructorInfo{
		Name:       functionName(val),
		Type:       typ,
		Value:      val,
		IsVariadic: typ.IsVariadic(),
	}

	if err := a.analyzeReturns(info); err != nil {
		return nil, err
	}

	if err := a.analyzeParameters(info); err != nil {
		return nil, err
	}

	return a.cacheAndReturn(cacheKey, info)
}

// analyzeParameters analyzes function parameters or In struct fields.
func (a *Analyzer) analyzeParameters(info *ConstructorInfo) error {
	fnType := info.Type

	if fnType.NumIn() == 1 && !info.IsVariadic {
		paramType := fnType.In(0)
		if hasEmbeddedType(paramType, inType) {
			info.IsParamObject = true
			return a.analyzeParamObject(info, paramType)
		}
	}

	info.Parameters = make([]ParameterInfo, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		paramType := fnType.In(i)
		info.Parameters[i] = ParameterInfo{
			Type:     paramType,
			Index:    i,
			IsSlice:  paramType.Kind() == reflect.Slice,
			ElemType: a.getSliceElemType(paramType),
		}
	}

	return nil
}

// analyzeParamObject analyzes an In struct's fields.
func (a *Analyzer) analyzeParamObject(info *ConstructorInfo, structType reflect.Type) error {
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	fields := make([]FieldInfo, 0, structType.NumField())

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if !field.IsExported() {
			continue
		}

		if field.Anonymous && field.Type == inType {
			continue
		}

		tagInfo := a.parseFieldTags(field.Tag)
		if tagInfo.Ignore {
			continue
		}

		if tagInfo.Key == "" {
			return InvalidConstructorError{
				Type:   info.Type,
				Reason: fmt.Sprintf("field %s of %v has no key tag", field.Name, structType),
			}
		}

		fields = append(fields, FieldInfo{
			Name:     field.Name,
			Type:     field.Type,
			Index:    i,
			Key:      tagInfo.Key,
			Optional: tagInfo.Optional,
			Array:    tagInfo.Array,
		})
	}

	info.Fields = fields
	return nil
}

// analyzeReturns checks the return shape and records the produced type.
func (a *Analyzer) analyzeReturns(info *ConstructorInfo) error {
	fnType := info.Type

	switch fnType.NumOut() {
	case 1:
		if implementsError(fnType.Out(0)) && fnType.Out(0).Kind() == reflect.Interface {
			return InvalidConstructorError{Type: fnType, Reason: "constructor only returns error"}
		}
	case 2:
		if !implementsError(fnType.Out(1)) {
			return InvalidConstructorError{Type: fnType, Reason: "second return value must be error"}
		}
		info.HasErrorReturn = true
	default:
		return InvalidConstructorError{Type: fnType, Reason: "constructor must return a value, optionally followed by an error"}
	}

	info.Result = fnType.Out(0)
	return nil
}

// parseFieldTags parses struct field tags for DI-specific annotations.
func (a *Analyzer) parseFieldTags(tag reflect.StructTag) TagInfo {
	info := TagInfo{}

	if val, ok := tag.Lookup("key"); ok {
		info.Key = val
	}

	if val, ok := tag.Lookup("optional"); ok {
		info.Optional = val == "true"
	}

	if val, ok := tag.Lookup("array"); ok {
		info.Array = val == "true"
	}

	if val, ok := tag.Lookup("inject"); ok && val == "-" {
		info.Ignore = true
	}

	return info
}

// getSliceElemType returns the element type of a slice, or nil if not a slice.
func (a *Analyzer) getSliceElemType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Slice {
		return t.Elem()
	}
	return nil
}

func (a *Analyzer) cacheAndReturn(key uintptr, info *ConstructorInfo) (*ConstructorInfo, error) {
	a.mu.Lock()
	a.cache[key] = info
	a.mu.Unlock()

	return info, nil
}

// Clear clears the analysis cache.
func (a *Analyzer) Clear() {
	a.mu.Lock()
	a.cache = make(map[uintptr]*ConstructorInfo)
	a.mu.Unlock()
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}

// hasEmbeddedType checks if a struct type embeds the given type.
func hasEmbeddedType(t, embedded reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return false
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Anonymous && field.Type == embedded {
			return true
		}
	}

	return false
}

func implementsError(t reflect.Type) bool {
	return t.Implements(errType)
}

func functionName(fn reflect.Value) string {
	if f := runtime.FuncForPC(fn.Pointer()); f != nil {
		return f.Name()
	}
	return fn.Type().String()
}
