package papersources

import (
	"sync"

	"github.com/researchmate/research-service/internal/domain"
)

// Registry holds the configured paper sources keyed by source type. It is
// the explicit per-source state object the aggregator consults: each source
// owns its own rate limiter, so registering sources here (rather than
// process-wide globals) keeps throttling testable and safe under concurrent
// searches.
type Registry struct {
	mu      sync.RWMutex
	sources map[domain.SourceType]PaperSource
}

// NewRegistry creates an empty source registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[domain.SourceType]PaperSource),
	}
}

// Register adds a source to the registry, replacing any source already
// registered under the same type. Thread-safe.
func (r *Registry) Register(source PaperSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[source.SourceType()] = source
}

// Get returns the source registered for the given type, or nil. Thread-safe.
func (r *Registry) Get(sourceType domain.SourceType) PaperSource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[sourceType]
}

// Types returns the registered source types in the canonical invocation
// order (domain.AllSearchSources), skipping unregistered types. Thread-safe.
func (r *Registry) Types() []domain.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.SourceType, 0, len(r.sources))
	for _, st := range domain.AllSearchSources {
		if _, ok := r.sources[st]; ok {
			types = append(types, st)
		}
	}
	return types
}
