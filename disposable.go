package containr

import (
	"fmt"
	"runtime/debug"
)

// Disposable is implemented by resolved values that own resources.
// Scopes call Close when the cached value is destroyed.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}

// dispose closes value if it implements Disposable. Values without the
// capability are skipped. A panicking Close is reported as an error.
func dispose(value any) (err error) {
	d, ok := value.(Disposable)
	if !ok || d == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = ConstructorPanicError{
				Constructor: fmt.Sprintf("%T.Close", value),
				Panic:       r,
				Stack:       debug.Stack(),
			}
		}
	}()

	return d.Close()
}
