package composer

import "sync"

// LiveValues is the ephemeral cache of node-graph outputs: the last value
// computed for each (node, input) pair. It is deliberately excluded from
// persistence and from undo/redo — it represents transient computed state
// that must be recomputed after any reload, never restored.
type LiveValues struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewLiveValues constructs an empty cache.
func NewLiveValues() *LiveValues {
	return &LiveValues{values: make(map[string]any)}
}

// Set stores value for the node input. Unconditional overwrite; existence of
// the node or input is not validated — callers own correctness.
func (c *LiveValues) Set(nodeID, inputID string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[NodeRef{NodeID: nodeID, InputID: inputID}.Key()] = value
}

// Get returns the last computed value for the node input.
func (c *LiveValues) Get(nodeID, inputID string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.values[NodeRef{NodeID: nodeID, InputID: inputID}.Key()]
	return value, ok
}

// GetRef is Get keyed by a NodeRef.
func (c *LiveValues) GetRef(ref NodeRef) (any, bool) {
	return c.Get(ref.NodeID, ref.InputID)
}

// Clear drops every cached value. Called on project load so stale outputs
// from the previous graph cannot leak into the new one.
func (c *LiveValues) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = make(map[string]any)
}

// Len reports the number of cached entries.
func (c *LiveValues) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
