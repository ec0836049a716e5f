package composer

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function represents a callable registered against evaluators.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// NewDefaultFunctionRegistry constructs a registry preloaded with the audio
// helpers node expressions lean on: level(buffer) and band(buffer, lo, hi),
// both returning a 0..1 float over analyzer byte data.
func NewDefaultFunctionRegistry() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("level", func(args ...any) (any, error) {
		buffer, err := bufferArg("level", args, 0)
		if err != nil {
			return nil, err
		}
		return averageBytes(buffer, 0, len(buffer)), nil
	})
	_ = registry.Register("band", func(args ...any) (any, error) {
		buffer, err := bufferArg("band", args, 0)
		if err != nil {
			return nil, err
		}
		lo, err := intArg("band", args, 1)
		if err != nil {
			return nil, err
		}
		hi, err := intArg("band", args, 2)
		if err != nil {
			return nil, err
		}
		if lo < 0 {
			lo = 0
		}
		if hi > len(buffer) {
			hi = len(buffer)
		}
		return averageBytes(buffer, lo, hi), nil
	})
	return registry
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("composer: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("composer: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("composer: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("composer: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("composer: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry configures a session to use registry.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *sessionConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for the session.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *sessionConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}

func averageBytes(buffer []byte, lo, hi int) float64 {
	if lo >= hi {
		return 0
	}
	sum := 0
	for _, b := range buffer[lo:hi] {
		sum += int(b)
	}
	return float64(sum) / float64(hi-lo) / 255
}

func bufferArg(fn string, args []any, idx int) ([]byte, error) {
	if idx >= len(args) {
		return nil, fmt.Errorf("composer: %s: missing buffer argument", fn)
	}
	buffer, ok := args[idx].([]byte)
	if !ok {
		return nil, fmt.Errorf("composer: %s: argument %d must be a byte buffer, got %T", fn, idx, args[idx])
	}
	return buffer, nil
}

func intArg(fn string, args []any, idx int) (int, error) {
	if idx >= len(args) {
		return 0, fmt.Errorf("composer: %s: missing argument %d", fn, idx)
	}
	switch typed := args[idx].(type) {
	case int:
		return typed, nil
	case int64:
		return int(typed), nil
	case float64:
		return int(typed), nil
	default:
		return 0, fmt.Errorf("composer: %s: argument %d must be numeric, got %T", fn, idx, args[idx])
	}
}
