package composer

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNoEvaluator is returned when node programs run without any expression
// engine configured.
var ErrNoEvaluator = errors.New("composer: evaluator not configured")

// Program binds one node input to an expression. The external node-graph
// editor owns topology; this runtime only computes bound input values.
type Program struct {
	Node NodeRef
	Expr string

	rule CompiledRule
}

// Network evaluates node programs once per render tick and publishes their
// results into the live value cache.
type Network struct {
	mu        sync.Mutex
	evaluator Evaluator
	cache     ProgramCache
	registry  *FunctionRegistry
	logger    EvaluatorLogger
	live      *LiveValues
	programs  []*Program
}

// NewNetwork constructs a runtime publishing into live. The evaluator falls
// back to expr when none is configured.
func NewNetwork(live *LiveValues, opts ...Option) *Network {
	cfg := applyOptions(opts)
	logger := cfg.logger
	if logger == nil {
		logger = noopEvaluatorLogger{}
	}
	return &Network{
		evaluator: cfg.evaluator,
		cache:     cfg.programCache,
		registry:  cfg.functions,
		logger:    logger,
		live:      live,
	}
}

// Bind compiles expr and attaches it to the node input, replacing any
// previous program for the same input.
func (n *Network) Bind(nodeID, inputID, expr string) error {
	evaluator, err := n.resolveEvaluator()
	if err != nil {
		return err
	}
	rule, err := evaluator.Compile(expr)
	if err != nil {
		return err
	}
	program := &Program{
		Node: NodeRef{NodeID: nodeID, InputID: inputID},
		Expr: expr,
		rule: rule,
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, existing := range n.programs {
		if existing.Node == program.Node {
			n.programs[i] = program
			return nil
		}
	}
	n.programs = append(n.programs, program)
	return nil
}

// Unbind removes the program for the node input.
func (n *Network) Unbind(nodeID, inputID string) {
	ref := NodeRef{NodeID: nodeID, InputID: inputID}
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, existing := range n.programs {
		if existing.Node == ref {
			n.programs = append(n.programs[:i], n.programs[i+1:]...)
			return
		}
	}
}

// UnbindNode removes every program attached to nodeID.
func (n *Network) UnbindNode(nodeID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	kept := n.programs[:0]
	for _, existing := range n.programs {
		if existing.Node.NodeID != nodeID {
			kept = append(kept, existing)
		}
	}
	n.programs = kept
}

// Tick evaluates every bound program against ctx and stores the results in
// the live cache. A failing program is logged and skipped; its last good
// value stays cached, and the remaining programs still run.
func (n *Network) Tick(ctx SignalContext) {
	n.mu.Lock()
	programs := make([]*Program, len(n.programs))
	copy(programs, n.programs)
	engine := evaluatorEngineName(n.evaluator)
	n.mu.Unlock()

	ctx = ctx.withDefaults()
	for _, program := range programs {
		programCtx := ctx
		programCtx.Node = program.Node
		start := time.Now()
		value, err := program.rule.Evaluate(programCtx)
		duration := time.Since(start)
		err = wrapEvaluationError(engine, program.Expr, programCtx.nodeLabel(), err)
		n.logger.LogEvaluation(EvaluatorLogEvent{
			Engine:   engine,
			Expr:     program.Expr,
			Node:     programCtx.nodeLabel(),
			Duration: duration,
			Err:      err,
		})
		if err != nil {
			continue
		}
		n.live.Set(program.Node.NodeID, program.Node.InputID, value)
	}
}

// Len reports the number of bound programs.
func (n *Network) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.programs)
}

func (n *Network) resolveEvaluator() (Evaluator, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.evaluator != nil {
		return n.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if n.cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(n.cache))
	}
	if n.registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(n.registry))
	}
	evaluator := NewExprEvaluator(exprOpts...)
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	n.evaluator = evaluator
	return evaluator, nil
}

// NewEvaluator selects an expression engine by name: "expr", "cel", or "js".
// The js engine requires the js_eval build tag.
func NewEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	switch engine {
	case "", "expr":
		var opts []ExprEvaluatorOption
		if cache != nil {
			opts = append(opts, ExprWithProgramCache(cache))
		}
		if registry != nil {
			opts = append(opts, ExprWithFunctionRegistry(registry))
		}
		return NewExprEvaluator(opts...), nil
	case "cel":
		var opts []CELEvaluatorOption
		if cache != nil {
			opts = append(opts, CELWithProgramCache(cache))
		}
		if registry != nil {
			opts = append(opts, CELWithFunctionRegistry(registry))
		}
		return NewCELEvaluator(opts...), nil
	case "js":
		if !jsEvaluatorAvailable() {
			return nil, fmt.Errorf("composer: js evaluator requires the js_eval build tag")
		}
		var opts []JSEvaluatorOption
		if cache != nil {
			opts = append(opts, JSWithProgramCache(cache))
		}
		if registry != nil {
			opts = append(opts, JSWithFunctionRegistry(registry))
		}
		return NewJSEvaluator(opts...), nil
	default:
		return nil, fmt.Errorf("composer: unknown evaluator engine %q", engine)
	}
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "expr"
	}
	switch fmt.Sprintf("%T", e) {
	case "*composer.exprEvaluator":
		return "expr"
	case "*composer.celEvaluator":
		return "cel"
	case "*composer.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
