package composer

import "sync"

// ProgramCache stores compiled expression programs keyed by expression
// strings. Shared across node programs so repeated expressions compile once.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache registers a program cache on the session.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *sessionConfig) {
		cfg.programCache = cache
	}
}

// MapProgramCache is a mutex-guarded in-memory ProgramCache.
type MapProgramCache struct {
	mu       sync.RWMutex
	programs map[string]any
}

// NewMapProgramCache constructs an empty cache.
func NewMapProgramCache() *MapProgramCache {
	return &MapProgramCache{programs: make(map[string]any)}
}

// Get implements ProgramCache.
func (c *MapProgramCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.programs[key]
	return value, ok
}

// Set implements ProgramCache.
func (c *MapProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.programs == nil {
		c.programs = make(map[string]any)
	}
	c.programs[key] = value
}
