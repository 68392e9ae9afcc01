package handler

import (
	"github.com/rpriscu/ai-image-generator/internal/registry"
)

// Registry maps model ids to handler instances. It is built once before the
// server starts serving and treated as read-only afterwards, so lookups need
// no synchronization. Initialize replaces the whole table, never mutates it
// in place.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds one handler per catalog entry.
func NewRegistry(configs []registry.ModelConfig) *Registry {
	r := &Registry{}
	r.Initialize(configs)
	return r
}

// Initialize rebuilds the table from the given configs. Calling it again is
// idempotent and swaps the prior mappings wholesale.
func (r *Registry) Initialize(configs []registry.ModelConfig) {
	handlers := make(map[string]Handler, len(configs))
	for _, cfg := range configs {
		handlers[cfg.ID] = New(cfg)
	}
	r.handlers = handlers
}

// Handler returns the handler for the model id, or false when unknown.
func (r *Registry) Handler(modelID string) (Handler, bool) {
	h, ok := r.handlers[modelID]
	return h, ok
}

// Len reports the number of registered handlers.
func (r *Registry) Len() int {
	return len(r.handlers)
}
