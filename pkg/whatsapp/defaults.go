package whatsapp

var defaultManager *Manager

// Configure installs the process-wide manager. Called once from startup,
// before any handler runs.
func Configure(m *Manager) {
	defaultManager = m
}

// Default returns the process-wide manager installed by Configure.
func Default() *Manager {
	return defaultManager
}
