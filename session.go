package composer

import (
	"context"

	"github.com/goliatone/go-composer/layering"
	"github.com/goliatone/go-composer/pkg/activity"
)

// Session is the state owner for one editing session: the layer collection,
// per-layer values, undo/redo history, the node live-value cache, the
// expression network feeding it, and the resolver tying them together.
// Construct once at startup; Reset starts a new project.
type Session struct {
	Layers   *LayerStore
	Values   *ValuesStore
	History  *History
	Live     *LiveValues
	Network  *Network
	Resolver *Resolver

	cfg sessionConfig
}

// NewSession wires the stores. Options select the persistence store, the
// expression engine, and lifecycle hooks.
func NewSession(opts ...Option) *Session {
	cfg := applyOptions(opts)

	live := NewLiveValues()
	values := NewValuesStore(cfg.store, cfg.hooks)
	session := &Session{
		Layers:   NewLayerStore(cfg.hooks),
		Values:   values,
		History:  NewHistory(),
		Live:     live,
		Resolver: NewResolver(values, live),
		cfg:      cfg,
	}
	session.Network = NewNetwork(live,
		WithEvaluator(cfg.evaluator),
		WithProgramCache(cfg.programCache),
		WithFunctionRegistry(cfg.functions),
		WithEvaluatorLogger(cfg.logger),
	)
	return session
}

// AddLayer creates a layer, registers its parameter schema, and initialises
// its value bag from the schema defaults (or the rehydrated record when one
// exists). Records the mutation as an undoable step.
func (s *Session) AddLayer(layer Layer, config *ConfigOption) Layer {
	added := s.Layers.Add(layer)
	if config != nil {
		s.Resolver.RegisterConfig(added.ID, config)
		if bag, ok := s.Values.Bag(added.ID); ok {
			// A rehydrated record may predate schema additions; defaults
			// fill the parameters it does not cover.
			s.Values.Init(added.ID, layering.Merge(bag, DefaultValues(config)))
		} else {
			s.Values.Init(added.ID, DefaultValues(config))
		}
	} else if _, ok := s.Values.Bag(added.ID); !ok {
		s.Values.Init(added.ID, layering.Bag{})
	}
	s.pushHistory()
	return added
}

// RemoveLayer deletes a layer and cascades: its values, its schema and node
// bindings, and (via the layer.removed event) any mirror registrations.
func (s *Session) RemoveLayer(id string) bool {
	if !s.Layers.Remove(id) {
		return false
	}
	s.Values.Remove(id)
	s.Resolver.UnregisterConfig(id)
	s.pushHistory()
	return true
}

// UpdateValue performs a nested parameter edit and records it in history.
func (s *Session) UpdateValue(layerID string, path []string, value any) {
	s.Values.Update(layerID, path, value)
	s.pushHistory()
}

// Undo promotes the previous history state and applies it to the live
// stores under bypass. Silent no-op when there is nothing to undo.
func (s *Session) Undo() bool {
	state, ok := s.History.Undo()
	if !ok {
		return false
	}
	s.applyState(state)
	_ = s.cfg.hooks.Notify(context.Background(), activity.BuildHistoryUndoneEvent(activity.SessionEventInput{
		ObjectID: "history",
	}))
	return true
}

// Redo mirrors Undo using the redo stack.
func (s *Session) Redo() bool {
	state, ok := s.History.Redo()
	if !ok {
		return false
	}
	s.applyState(state)
	_ = s.cfg.hooks.Notify(context.Background(), activity.BuildHistoryRedoneEvent(activity.SessionEventInput{
		ObjectID: "history",
	}))
	return true
}

// Snapshot captures the current editable content as a history state.
func (s *Session) Snapshot() HistoryState {
	return HistoryState{
		Layers: s.Layers.Snapshot(),
		Values: s.Values.Snapshot(),
	}
}

// Apply replaces the session's editable content without recording an undo
// step. Used by project load and by undo/redo application. The live cache is
// cleared: node outputs must be recomputed against the new state.
func (s *Session) Apply(state HistoryState) {
	s.applyState(state)
	s.History.SetBypass(true)
	defer s.History.SetBypass(false)
	s.History.Push(state)
}

// applyState writes a history state into the stores without touching the
// history stacks themselves.
func (s *Session) applyState(state HistoryState) {
	s.History.SetBypass(true)
	defer s.History.SetBypass(false)
	s.Layers.SetAll(state.Layers)
	s.Values.SetAll(state.Values)
	s.Live.Clear()
}

// Rehydrate loads every known layer's durable value record into memory.
// Call at session start, before the first render tick.
func (s *Session) Rehydrate(ctx context.Context) error {
	layers := s.Layers.Snapshot()
	ids := make([]string, len(layers))
	for i, layer := range layers {
		ids[i] = layer.ID
	}
	return s.Values.Rehydrate(ctx, ids...)
}

// Reset clears the session for a new project.
func (s *Session) Reset() {
	s.History.SetBypass(true)
	defer s.History.SetBypass(false)
	s.Layers.SetAll(nil)
	s.Values.SetAll(nil)
	s.Live.Clear()
	s.History.Reset()
}

// Hooks exposes the session's lifecycle hooks so collaborators (compositor
// cleanup, project load) can emit through the same fan-out.
func (s *Session) Hooks() activity.Hooks {
	return s.cfg.hooks
}

func (s *Session) pushHistory() {
	s.History.Push(s.Snapshot())
}
