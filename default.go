package crucible

// The process-wide default container is a convenience for the application
// edge; library and core code should receive an explicit Container instead.

var (
	defaultMu        = newHybridMutex()
	defaultContainer Container
)

// Default returns the process-wide container, creating it on first access.
func Default() Container {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultContainer == nil {
		defaultContainer = New()
	}

	return defaultContainer
}

// SetDefault replaces the process-wide container and returns the previous
// one (which may be nil).
func SetDefault(c Container) Container {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	previous := defaultContainer
	defaultContainer = c

	return previous
}

// ResetDefault discards the process-wide container so the next Default call
// creates a fresh one. It exists for test isolation only.
func ResetDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultContainer = nil
}
