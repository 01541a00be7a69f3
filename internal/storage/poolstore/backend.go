package poolstore

import (
	"fmt"
	"sync"
)

// BackendFactory builds an unopened backend from a configuration.
type BackendFactory func(config *Config) (Backend, error)

var (
	backendMu        sync.RWMutex
	backendFactories = make(map[string]BackendFactory)
)

// RegisterBackend makes a backend constructible by name. Backends register
// themselves at init time; registering a name twice replaces the earlier
// factory.
func RegisterBackend(name string, factory BackendFactory) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendFactories[name] = factory
}

// CreateBackend builds the named backend. The result still has to be opened.
func CreateBackend(name string, config *Config) (Backend, error) {
	backendMu.RLock()
	factory, ok := backendFactories[name]
	backendMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, name)
	}
	return factory(config)
}

// AvailableBackends returns the registered backend names.
func AvailableBackends() []string {
	backendMu.RLock()
	defer backendMu.RUnlock()

	names := make([]string, 0, len(backendFactories))
	for name := range backendFactories {
		names = append(names, name)
	}
	return names
}

// IsBackendAvailable reports whether a backend is registered under name.
func IsBackendAvailable(name string) bool {
	backendMu.RLock()
	defer backendMu.RUnlock()
	_, ok := backendFactories[name]
	return ok
}
