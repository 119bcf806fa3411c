package testutil

import (
	"sync/atomic"

	"github.com/junioryono/containr"
)

// Counter counts how many times a factory ran.
type Counter struct {
	calls atomic.Int32
}

// Calls returns the number of invocations.
func (c *Counter) Calls() int {
	return int(c.calls.Load())
}

// Factory returns a factory that counts its invocations and produces a new
// value from produce each time.
func (c *Counter) Factory(produce func() any) containr.Factory {
	return func(containr.Container) (any, error) {
		c.calls.Add(1)
		return produce(), nil
	}
}

// Failing returns a factory that counts its invocations and fails with err.
func (c *Counter) Failing(err error) containr.Factory {
	return func(containr.Container) (any, error) {
		c.calls.Add(1)
		return nil, err
	}
}

// ServiceFactory is shorthand for a counting factory producing *TestService.
func (c *Counter) ServiceFactory() containr.Factory {
	return c.Factory(func() any { return NewTestService() })
}

// CommonModules provides modules shared by tests
var CommonModules = struct {
	Logging  containr.Module
	Database containr.Module
	Handlers containr.Module
}{
	Logging: containr.NewModule("logging",
		containr.AddFactory("logger", func(containr.Container) any { return NewTestLogger() }, containr.Singleton),
	),
	Database: containr.NewModule("database",
		containr.AddFactory("db", func(containr.Container) any { return NewTestDatabase() }, containr.Singleton),
	),
	Handlers: containr.NewModule("handlers",
		containr.AddArray("handlers", NewTestHandler("first")),
		containr.AddArray("handlers", NewTestHandler("second")),
	),
}
