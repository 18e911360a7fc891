package contextkeys

// contextKey is an unexported type for context keys to avoid collisions.
type contextKey string

const (
	// RequestIDKey is the context key for storing and retrieving a request ID.
	RequestIDKey contextKey = "request_id"

	// StartupRunIDKey is the context key for the startup run ID. Every execution
	// of the startup sequence gets a fresh run ID so log lines from a single
	// boot can be correlated.
	StartupRunIDKey contextKey = "startup_run_id"

	// InitializerNameKey is the context key for the name of the initializer
	// currently being executed by the startup runner.
	InitializerNameKey contextKey = "initializer_name"
)

// String makes contextKey satisfy fmt.Stringer to help with debugging/logging of keys themselves.
func (c contextKey) String() string {
	return string(c)
}
