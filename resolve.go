package composer

import "sync"

// Value sources in precedence order, weakest first.
const (
	SourceDefault = "default"
	SourceStored  = "stored"
	SourceNode    = "node"
)

// Resolver computes each parameter's effective value for a render tick:
// the node-graph override wins over the persisted value, which wins over the
// schema default.
type Resolver struct {
	mu       sync.RWMutex
	configs  map[string]*ConfigOption
	bindings map[string]NodeRef
	values   *ValuesStore
	live     *LiveValues
}

// NewResolver constructs a resolver over the given stores.
func NewResolver(values *ValuesStore, live *LiveValues) *Resolver {
	return &Resolver{
		configs:  make(map[string]*ConfigOption),
		bindings: make(map[string]NodeRef),
		values:   values,
		live:     live,
	}
}

// RegisterConfig attaches a layer's parameter schema, assigning its
// deterministic ids. The same schema and layer id always produce the same
// ids, so registration is idempotent.
func (r *Resolver) RegisterConfig(layerID string, root *ConfigOption) *ConfigOption {
	AssignDeterministicIDs(layerID, root)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[layerID] = root
	return root
}

// UnregisterConfig drops a layer's schema and every node binding that
// targeted its parameters.
func (r *Resolver) UnregisterConfig(layerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	root, ok := r.configs[layerID]
	delete(r.configs, layerID)
	if !ok {
		return
	}
	for _, paramID := range CollectParameterIDs(root) {
		delete(r.bindings, paramID)
	}
}

// Config returns the registered schema for a layer.
func (r *Resolver) Config(layerID string) (*ConfigOption, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	root, ok := r.configs[layerID]
	return root, ok
}

// Bind wires a parameter to a node input so the node's live value overrides
// the stored one at resolution time.
func (r *Resolver) Bind(paramID string, ref NodeRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[paramID] = ref
}

// Unbind removes a parameter's node binding.
func (r *Resolver) Unbind(paramID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.bindings, paramID)
}

// Resolve returns the effective value of every leaf parameter of the layer,
// keyed by deterministic parameter id. Layers with no registered schema
// resolve to an empty bag.
func (r *Resolver) Resolve(layerID string) map[string]any {
	r.mu.RLock()
	root, ok := r.configs[layerID]
	r.mu.RUnlock()
	if !ok {
		return map[string]any{}
	}

	resolved := make(map[string]any)
	walkParameters(root, func(option *ConfigOption) {
		value, _ := r.effectiveValue(layerID, option)
		resolved[option.ID] = value
	})
	return resolved
}

// ResolveParam returns the effective value for one parameter id.
func (r *Resolver) ResolveParam(layerID, paramID string) (any, bool) {
	r.mu.RLock()
	root, ok := r.configs[layerID]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	var found *ConfigOption
	walkParameters(root, func(option *ConfigOption) {
		if option.ID == paramID {
			found = option
		}
	})
	if found == nil {
		return nil, false
	}
	value, _ := r.effectiveValue(layerID, found)
	return value, true
}

func (r *Resolver) effectiveValue(layerID string, option *ConfigOption) (any, string) {
	if ref, ok := r.binding(option.ID); ok {
		if value, ok := r.live.GetRef(ref); ok {
			return value, SourceNode
		}
	}
	if value, ok := r.values.Lookup(layerID, ParameterPath(option.ID)); ok {
		return value, SourceStored
	}
	return option.Default, SourceDefault
}

func (r *Resolver) binding(paramID string) (NodeRef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.bindings[paramID]
	return ref, ok
}
