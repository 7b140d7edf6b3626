package bastion

import (
	"maps"
	"slices"
	"sync"
)

// Registry stores named pipeline configurations, typically loaded with
// [LoadConfig]. Pipelines are typed, so the registry keeps configurations
// and [GetPipeline] builds a fresh pipeline for the requested result type.
//
// Pattern: Singleton — DefaultRegistry uses sync.OnceValue for safe lazy
// init; explicit registries can be created for testing or multi-tenant
// scenarios.
type Registry struct {
	configs map[string]PipelineConfig
	mu      sync.RWMutex
}

//nolint:gochecknoglobals // singleton via sync.OnceValue
var defaultRegistry = sync.OnceValue(NewRegistry)

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]PipelineConfig)}
}

// DefaultRegistry returns the package-level registry, creating it on first
// call.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

// Store records pc under name, replacing any previous configuration.
func (r *Registry) Store(name string, pc PipelineConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.configs[name] = pc
}

// Lookup returns the configuration stored under name.
func (r *Registry) Lookup(name string) (PipelineConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pc, ok := r.configs[name]

	return pc, ok
}

// Names returns the stored pipeline names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.configs))
}
