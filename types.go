// Package composer is the real-time audio-reactive compositing and
// state-persistence core: per-layer parameter trees with deterministic
// identifiers, copy-on-write value storage with undo/redo history, an
// ephemeral node-graph override cache, and the expression runtime that feeds
// it. Rendering lives in the render subpackage, frame capture in audio,
// durable storage in pkg/persist.
package composer

import (
	"time"

	"github.com/goliatone/go-composer/pkg/activity"
	"github.com/goliatone/go-composer/pkg/persist"
)

// NodeRef identifies one input socket on one node of the external node graph.
type NodeRef struct {
	NodeID  string
	InputID string
}

func (r NodeRef) isZero() bool {
	return r.NodeID == "" && r.InputID == ""
}

// Key composes the cache key for a node input. Collisions are possible only
// if the ids themselves collide, which callers prevent upstream.
func (r NodeRef) Key() string {
	return r.NodeID + "-" + r.InputID
}

// SignalContext carries the inputs available to a node expression: the
// tick's audio frame binding, the resolved parameter snapshot of the bound
// layer, and caller-supplied arguments.
type SignalContext struct {
	Frame    map[string]any
	Values   map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
	Node     NodeRef
}

func (ctx SignalContext) withDefaultNow() SignalContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx SignalContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx SignalContext) withDefaultMaps() SignalContext {
	if ctx.Frame == nil {
		ctx.Frame = map[string]any{}
	}
	if ctx.Values == nil {
		ctx.Values = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx SignalContext) withDefaults() SignalContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx SignalContext) nodeLabel() string {
	if ctx.Node.isZero() {
		return "unbound"
	}
	return ctx.Node.Key()
}

// Evaluator executes node expressions against a signal context.
type Evaluator interface {
	Evaluate(ctx SignalContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx SignalContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

type compileOptionFunc func(*compileConfig)

func (f compileOptionFunc) applyCompileOption(cfg *compileConfig) {
	if f != nil {
		f(cfg)
	}
}

// Option configures a Session.
type Option func(*sessionConfig)

type sessionConfig struct {
	evaluator    Evaluator
	programCache ProgramCache
	functions    *FunctionRegistry
	logger       EvaluatorLogger
	store        *persist.Store
	hooks        activity.Hooks
}

func applyOptions(opts []Option) sessionConfig {
	cfg := sessionConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithEvaluator selects the expression engine for node programs.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *sessionConfig) {
		cfg.evaluator = e
	}
}

// WithStore wires the persistence layer for layer values. Without it the
// session keeps all state in memory only.
func WithStore(store *persist.Store) Option {
	return func(cfg *sessionConfig) {
		cfg.store = store
	}
}

// WithHooks attaches lifecycle hooks notified on session mutations.
func WithHooks(hooks ...activity.Hook) Option {
	return func(cfg *sessionConfig) {
		cfg.hooks = append(cfg.hooks, hooks...)
	}
}
