package testutil

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Common test errors
var (
	ErrTest          = errors.New("test error")
	ErrIntentional   = errors.New("intentional error")
	ErrDisposal      = errors.New("disposal error")
	ErrAlreadyClosed = errors.New("already closed")
)

// TestService is a basic test service
type TestService struct {
	ID   string
	Data string
}

// NewTestService creates a new test service with a unique ID
func NewTestService() *TestService {
	return &TestService{
		ID:   uuid.NewString(),
		Data: "test",
	}
}

// TestLogger is a test logger interface
type TestLogger interface {
	Log(msg string)
	GetLogs() []string
}

// TestLoggerImpl implements TestLogger
type TestLoggerImpl struct {
	logs []string
	mu   sync.Mutex
}

func NewTestLogger() TestLogger {
	return &TestLoggerImpl{}
}

func (l *TestLoggerImpl) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *TestLoggerImpl) GetLogs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	result := make([]string, len(l.logs))
	copy(result, l.logs)
	return result
}

// TestDatabase is a disposable test resource
type TestDatabase struct {
	Name string

	closed   atomic.Int32
	closeErr error
}

func NewTestDatabase() *TestDatabase {
	return &TestDatabase{Name: "testdb"}
}

func NewTestDatabaseNamed(name string) *TestDatabase {
	return &TestDatabase{Name: name}
}

// NewFailingDatabase returns a database whose Close fails with err.
func NewFailingDatabase(err error) *TestDatabase {
	return &TestDatabase{Name: "failing", closeErr: err}
}

func (d *TestDatabase) Query(sql string) string {
	return fmt.Sprintf("%s: %s", d.Name, sql)
}

func (d *TestDatabase) Close() error {
	if d.closed.Add(1) > 1 {
		return ErrAlreadyClosed
	}
	return d.closeErr
}

// CloseCount returns how many times Close was called.
func (d *TestDatabase) CloseCount() int {
	return int(d.closed.Load())
}

// PanickingCloser panics when closed
type PanickingCloser struct {
	Message string
}

func (p *PanickingCloser) Close() error {
	panic(p.Message)
}

// TestUserService depends on a logger and a database
type TestUserService struct {
	Logger   TestLogger
	Database *TestDatabase
	Name     string
}

func NewTestUserService(logger TestLogger, db *TestDatabase) *TestUserService {
	return &TestUserService{Logger: logger, Database: db}
}

func NewTestUserServiceNamed(logger TestLogger, db *TestDatabase, name string) *TestUserService {
	return &TestUserService{Logger: logger, Database: db, Name: name}
}

func NewTestUserServiceWithError(logger TestLogger, db *TestDatabase) (*TestUserService, error) {
	if db == nil {
		return nil, ErrIntentional
	}
	return &TestUserService{Logger: logger, Database: db}, nil
}

// TestHandler is an array element
type TestHandler interface {
	Handle() string
}

type TestHandlerImpl struct {
	Name string
}

func NewTestHandler(name string) TestHandler {
	return &TestHandlerImpl{Name: name}
}

func (h *TestHandlerImpl) Handle() string {
	return h.Name
}

// TestRouter aggregates handlers
type TestRouter struct {
	Handlers []TestHandler
}

func NewTestRouter(handlers []TestHandler) *TestRouter {
	return &TestRouter{Handlers: handlers}
}
