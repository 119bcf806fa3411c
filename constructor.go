package containr

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/junioryono/containr/internal/reflection"
)

// In marks a parameter object. A constructor whose only parameter is a struct
// embedding In has each exported field resolved by its `key` tag. Fields
// tagged `optional:"true"` keep their zero value when resolution fails, and
// fields tagged `array:"true"` receive an empty slice for unregistered keys.
//
//	type HandlerParams struct {
//	    containr.In
//
//	    Store  *Store        `key:"store"`
//	    Hooks  []Hook        `key:"hooks" array:"true"`
//	    Tracer Tracer        `key:"tracer" optional:"true"`
//	}
type In = reflection.In

var (
	analyzer = reflection.New()
	invoker  = reflection.NewConstructorInvoker()
)

// Constructor is the identity the auto-resolver and the descriptor registry
// use for a constructor function. Create it once and reuse the pointer.
type Constructor struct {
	info *reflection.ConstructorInfo
}

// NewConstructor wraps fn, which must have the shape func(args...) T or
// func(args...) (T, error).
func NewConstructor(fn any) (*Constructor, error) {
	info, err := analyzer.Analyze(fn)
	if err != nil {
		if errors.Is(err, reflection.ErrNilConstructor) {
			return nil, ErrConstructorNil
		}
		return nil, fmt.Errorf("%w: %w", ErrConstructorInvalid, err)
	}

	return &Constructor{info: info}, nil
}

// MustConstructor is like NewConstructor but panics on error.
// It is intended for package-level variables.
func MustConstructor(fn any) *Constructor {
	ctor, err := NewConstructor(fn)
	if err != nil {
		panic(err)
	}
	return ctor
}

// Name returns the function name used in error messages.
func (c *Constructor) Name() string {
	return c.info.Name
}

// ResultType returns the type the constructor produces.
func (c *Constructor) ResultType() reflect.Type {
	return c.info.Result
}

// NumIn returns the number of declared parameters.
func (c *Constructor) NumIn() int {
	return c.info.Type.NumIn()
}

func (c *Constructor) String() string {
	return fmt.Sprintf("%s %v", c.info.Name, c.info.Type)
}
