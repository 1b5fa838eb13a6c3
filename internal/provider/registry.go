package provider

import (
	"fmt"
	"sync"
)

// registry is a process-wide provider cache keyed by backend configuration.
// Initialized lazily, read-only after: a key is never rebound.
type registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

var globalRegistry = &registry{providers: make(map[string]Provider)}

func configKey(cfg HTTPConfig) string {
	return fmt.Sprintf("%s|%s|%v|%t", cfg.BaseURL, cfg.Model, cfg.Timeout, cfg.SuppressReasoning)
}

// Shared returns the provider instance for the given backend configuration,
// creating it on first use. All runs against the same backend share one
// logical provider and its connection pool.
func Shared(cfg HTTPConfig) (Provider, error) {
	key := configKey(cfg)

	globalRegistry.mu.RLock()
	p, ok := globalRegistry.providers[key]
	globalRegistry.mu.RUnlock()

	if ok {
		return p, nil
	}

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	// Another caller may have won the race.
	if p, ok := globalRegistry.providers[key]; ok {
		return p, nil
	}

	created, err := NewHTTPProvider(cfg)
	if err != nil {
		return nil, err
	}

	globalRegistry.providers[key] = created

	return created, nil
}
