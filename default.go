package containr

import "sync/atomic"

var (
	// defaultMetadata holds the process-wide descriptor registry.
	defaultMetadata atomic.Pointer[Metadata]
)

func init() {
	defaultMetadata.Store(NewMetadata())
}

// SetDefaultMetadata sets the descriptor registry used by the package-level
// Inject functions and by containers built without WithMetadata.
// This is similar to slog.SetDefault.
//
// Pass nil to reset to a fresh, empty registry.
func SetDefaultMetadata(m *Metadata) {
	if m == nil {
		m = NewMetadata()
	}
	defaultMetadata.Store(m)
}

// DefaultMetadata returns the current process-wide descriptor registry.
func DefaultMetadata() *Metadata {
	return defaultMetadata.Load()
}
