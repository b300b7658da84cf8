package embed

import (
	"sync"

	"depradar/internal/ports"
)

// Cache holds one embedding engine, constructed lazily and reused for every
// call until a different model name is requested. The cache is an injected
// dependency rather than package-global state; one instance is shared by the
// fingerprint builder and the relevance filter.
type Cache struct {
	mu      sync.Mutex
	factory func(model string) ports.Embedder
	current ports.Embedder
}

// NewCache wires the engine factory. The default factory builds Ollama
// clients for a fixed endpoint.
func NewCache(factory func(model string) ports.Embedder) *Cache {
	return &Cache{factory: factory}
}

// Engine returns the cached engine for the model, constructing it on first
// use or when the model name changes. Safe for concurrent use.
func (c *Cache) Engine(model string) ports.Embedder {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil || c.current.Model() != model {
		c.current = c.factory(model)
	}
	return c.current
}
