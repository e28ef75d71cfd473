package domain

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// ContextReader is read access to the unified context.
type ContextReader interface {
	// Get returns the value stored for (service, key) or ErrKeyNotFound.
	Get(service, key string) (Value, error)
}

// UnifiedContext is the cross-step store for one orchestration run:
// service name -> key -> value. Each Update is applied atomically.
type UnifiedContext struct {
	mu   sync.RWMutex
	data map[string]map[string]Value
}

// NewUnifiedContext creates an empty context.
func NewUnifiedContext() *UnifiedContext {
	return &UnifiedContext{data: make(map[string]map[string]Value)}
}

// Update merges values into the service's mapping. Last write wins per key.
func (c *UnifiedContext) Update(service string, values map[string]Value) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, ok := c.data[service]
	if !ok {
		entries = make(map[string]Value, len(values))
		c.data[service] = entries
	}
	for k, v := range values {
		entries[k] = v
	}
}

// Get returns the value stored for (service, key).
func (c *UnifiedContext) Get(service, key string) (Value, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.data[service][key]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s.%s", ErrKeyNotFound, service, key)
	}
	return v, nil
}

// GetString returns the value for (service, key) rendered as text.
func (c *UnifiedContext) GetString(service, key string) (string, error) {
	v, err := c.Get(service, key)
	if err != nil {
		return "", err
	}
	return v.Text(), nil
}

// Services returns the services with recorded entries, sorted.
func (c *UnifiedContext) Services() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.data))
}

// Snapshot returns a copy of the whole context.
func (c *UnifiedContext) Snapshot() map[string]map[string]Value {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]map[string]Value, len(c.data))
	for service, entries := range c.data {
		out[service] = maps.Clone(entries)
	}
	return out
}

// scopedReader restricts reads to a fixed set of (service, key) pairs.
type scopedReader struct {
	ctx     ContextReader
	allowed map[ContextRef]bool
}

// ScopedReader returns a reader that only resolves the given references.
// Any other read fails with ErrKeyNotFound.
func ScopedReader(ctx ContextReader, refs []ContextRef) ContextReader {
	allowed := make(map[ContextRef]bool, len(refs))
	for _, ref := range refs {
		allowed[ref] = true
	}
	return &scopedReader{ctx: ctx, allowed: allowed}
}

func (r *scopedReader) Get(service, key string) (Value, error) {
	if !r.allowed[ContextRef{Service: service, Key: key}] {
		return Value{}, fmt.Errorf("%w: %s.%s is not declared as a step input", ErrKeyNotFound, service, key)
	}
	return r.ctx.Get(service, key)
}
