package schema

import "sync"

// ParsedSchemaCache holds already-analyzed ParsedSchema results keyed by an
// opaque schema identity (typically a content hash of the raw schema
// document, computed by the caller via core/store.Fingerprint). Re-parsing a
// schema is comparatively expensive (one walk plus N expression compiles),
// so an orchestrator serving many instances of the same form keeps one
// ParsedSchema per distinct schema rather than per instance.
type ParsedSchemaCache struct {
	mu      sync.RWMutex
	entries map[string]*ParsedSchema
}

// NewParsedSchemaCache returns an empty cache.
func NewParsedSchemaCache() *ParsedSchemaCache {
	return &ParsedSchemaCache{entries: make(map[string]*ParsedSchema)}
}

// Insert stores ps under key, overwriting any existing entry.
func (c *ParsedSchemaCache) Insert(key string, ps *ParsedSchema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ps
}

// Get returns the cached ParsedSchema for key, if present.
func (c *ParsedSchemaCache) Get(key string) (*ParsedSchema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ps, ok := c.entries[key]
	return ps, ok
}

// ContainsKey reports whether key has a cached entry.
func (c *ParsedSchemaCache) ContainsKey(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Remove deletes key's entry, if any.
func (c *ParsedSchemaCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear empties the cache.
func (c *ParsedSchemaCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*ParsedSchema)
}

// Keys returns the cache's current keys in no particular order.
func (c *ParsedSchemaCache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// Len reports the number of cached entries.
func (c *ParsedSchemaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
