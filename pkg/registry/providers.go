package registry

import (
	"sort"
	"sync"

	"github.com/fpgarun/schedrt/task"
)

// ProviderRegistry is an append-only, ordered list of providers. Ordering
// is (op, priority, kind, instance_id), applied on every registration so
// readers always see a stably-sorted snapshot.
type ProviderRegistry struct {
	mu        sync.Mutex
	providers []task.Provider
}

// NewProviderRegistry returns an empty ProviderRegistry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{}
}

// Register appends p and re-sorts the full list.
func (r *ProviderRegistry) Register(p task.Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers = append(r.providers, p)
	sort.SliceStable(r.providers, func(i, j int) bool {
		a, b := r.providers[i], r.providers[j]
		if a.Op != b.Op {
			return a.Op < b.Op
		}
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.InstanceID < b.InstanceID
	})
}

// ProvidersFor returns a snapshot of providers registered for op, in
// preference order (lowest priority value first).
func (r *ProviderRegistry) ProvidersFor(op string) []task.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]task.Provider, 0, len(r.providers))
	for _, p := range r.providers {
		if p.Op == op {
			out = append(out, p)
		}
	}
	return out
}
