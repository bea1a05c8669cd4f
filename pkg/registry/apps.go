// Package registry holds the process-lifetime AppRegistry and
// ProviderRegistry: the mapping from logical operation name to its
// descriptor, and the ordered list of providers willing to run an op.
package registry

import (
	"sync"

	"github.com/fpgarun/schedrt/task"
)

// AppRegistry maps an app name to its immutable descriptor.
type AppRegistry struct {
	mu   sync.Mutex
	apps map[string]task.AppDescriptor
}

// NewAppRegistry returns an empty AppRegistry.
func NewAppRegistry() *AppRegistry {
	return &AppRegistry{apps: make(map[string]task.AppDescriptor)}
}

// Register adds or replaces the descriptor for d.App.
func (r *AppRegistry) Register(d task.AppDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[d.App] = d
}

// Lookup returns the descriptor for name, if registered.
func (r *AppRegistry) Lookup(name string) (task.AppDescriptor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.apps[name]
	return d, ok
}
