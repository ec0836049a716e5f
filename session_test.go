package composer

import (
	"context"
	"testing"

	"github.com/goliatone/go-composer/layering"
	"github.com/goliatone/go-composer/pkg/persist"
)

func TestSessionAddLayerInitializesDefaults(t *testing.T) {
	session := NewSession()

	layer := session.AddLayer(Layer{Component: "shader"}, shaderConfig())

	if got, _ := session.Values.Lookup(layer.ID, []string{"motion", "speed"}); got != 0.5 {
		t.Fatalf("default speed = %v", got)
	}
	if _, ok := session.Resolver.Config(layer.ID); !ok {
		t.Fatal("schema should be registered")
	}
	if !session.History.CanUndo() {
		t.Fatal("add should be undoable")
	}
}

func TestSessionAddLayerBackfillsRehydratedBagWithDefaults(t *testing.T) {
	backend := persist.NewMemory()
	if err := backend.Put(context.Background(), "session/layer-1", `{"opacity":0.3}`); err != nil {
		t.Fatal(err)
	}
	store := persist.New(backend, persist.Config{Namespace: "session"})
	session := NewSession(WithStore(store))
	if err := session.Values.Rehydrate(context.Background(), "layer-1"); err != nil {
		t.Fatal(err)
	}

	session.AddLayer(Layer{ID: "layer-1", Component: "shader"}, shaderConfig())

	// The stored value survives; parameters the record never covered fall
	// back to schema defaults.
	if got, _ := session.Values.Lookup("layer-1", []string{"opacity"}); got != 0.3 {
		t.Fatalf("opacity = %v", got)
	}
	if got, _ := session.Values.Lookup("layer-1", []string{"motion", "speed"}); got != 0.5 {
		t.Fatalf("backfilled speed = %v", got)
	}
}

func TestSessionUndoRedoRestoresValues(t *testing.T) {
	session := NewSession()
	layer := session.AddLayer(Layer{Component: "shader"}, shaderConfig())

	session.UpdateValue(layer.ID, []string{"opacity"}, 0.25)
	if got, _ := session.Values.Lookup(layer.ID, []string{"opacity"}); got != 0.25 {
		t.Fatalf("opacity = %v", got)
	}

	if !session.Undo() {
		t.Fatal("undo should succeed")
	}
	if got, _ := session.Values.Lookup(layer.ID, []string{"opacity"}); got != 1.0 {
		t.Fatalf("opacity after undo = %v", got)
	}

	if !session.Redo() {
		t.Fatal("redo should succeed")
	}
	if got, _ := session.Values.Lookup(layer.ID, []string{"opacity"}); got != 0.25 {
		t.Fatalf("opacity after redo = %v", got)
	}
}

func TestSessionUndoRedoDoNotRecordSteps(t *testing.T) {
	session := NewSession()
	layer := session.AddLayer(Layer{Component: "shader"}, shaderConfig())
	session.UpdateValue(layer.ID, []string{"opacity"}, 0.25)

	session.Undo()
	session.Redo()
	session.Undo()

	// After undoing the edit once, exactly one redo step exists. Applying
	// undo/redo must not have pushed extra history.
	if !session.Redo() {
		t.Fatal("one redo step expected")
	}
	if session.Redo() {
		t.Fatal("no further redo steps expected")
	}
}

func TestSessionUndoClearsLiveCache(t *testing.T) {
	session := NewSession()
	layer := session.AddLayer(Layer{Component: "shader"}, shaderConfig())
	session.UpdateValue(layer.ID, []string{"opacity"}, 0.25)
	session.Live.Set("lfo-1", "out", 0.9)

	session.Undo()

	if session.Live.Len() != 0 {
		t.Fatal("undo must clear node live values")
	}
}

func TestSessionRemoveLayerCascades(t *testing.T) {
	backend := persist.NewMemory()
	store := persist.New(backend, persist.Config{Namespace: "session"})
	session := NewSession(WithStore(store))

	layer := session.AddLayer(Layer{Component: "shader"}, shaderConfig())
	waitFor(t, func() bool {
		_, ok, _ := backend.Get(context.Background(), "session/"+layer.ID)
		return ok
	})

	if !session.RemoveLayer(layer.ID) {
		t.Fatal("remove should succeed")
	}
	if session.RemoveLayer(layer.ID) {
		t.Fatal("second remove should fail")
	}

	if _, ok := session.Values.Bag(layer.ID); ok {
		t.Fatal("values should be removed")
	}
	if _, ok := session.Resolver.Config(layer.ID); ok {
		t.Fatal("schema should be unregistered")
	}
	waitFor(t, func() bool {
		_, ok, _ := backend.Get(context.Background(), "session/"+layer.ID)
		return !ok
	})
}

func TestSessionApplyReplacesStateWithoutUndoStep(t *testing.T) {
	session := NewSession()

	state := HistoryState{
		Layers: []Layer{{ID: "layer-1", Component: "shader"}},
		Values: map[string]layering.Bag{"layer-1": {"opacity": 0.75}},
	}
	session.Apply(state)

	if session.Layers.Len() != 1 {
		t.Fatalf("layers = %d", session.Layers.Len())
	}
	if got, _ := session.Values.Lookup("layer-1", []string{"opacity"}); got != 0.75 {
		t.Fatalf("opacity = %v", got)
	}
	if session.History.CanUndo() {
		t.Fatal("apply must not record an undo step")
	}
}

func TestSessionRehydrate(t *testing.T) {
	backend := persist.NewMemory()
	if err := backend.Put(context.Background(), "session/layer-1", `{"opacity":0.1}`); err != nil {
		t.Fatal(err)
	}
	store := persist.New(backend, persist.Config{Namespace: "session"})
	session := NewSession(WithStore(store))
	session.Layers.Add(Layer{ID: "layer-1", Component: "shader"})

	if err := session.Rehydrate(context.Background()); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}

	if got, _ := session.Values.Lookup("layer-1", []string{"opacity"}); got != 0.1 {
		t.Fatalf("opacity = %v", got)
	}
}

func TestSessionReset(t *testing.T) {
	session := NewSession()
	layer := session.AddLayer(Layer{Component: "shader"}, shaderConfig())
	session.UpdateValue(layer.ID, []string{"opacity"}, 0.25)
	session.Live.Set("lfo-1", "out", 1)

	session.Reset()

	if session.Layers.Len() != 0 || session.Live.Len() != 0 {
		t.Fatal("reset must clear layers and live values")
	}
	if session.History.CanUndo() || session.History.CanRedo() {
		t.Fatal("reset must clear history")
	}
	if len(session.Values.Snapshot()) != 0 {
		t.Fatal("reset must clear values")
	}
}
