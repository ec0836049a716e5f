package composer

import (
	"context"
	"testing"

	"github.com/goliatone/go-composer/pkg/activity"
)

func TestNewLayerDefaults(t *testing.T) {
	layer := NewLayer("shader")
	if !layer.Settings.Visible || layer.Settings.Opacity != 1 || layer.Settings.BlendMode != BlendNormal {
		t.Fatalf("defaults = %+v", layer.Settings)
	}

	custom := NewLayer("particles",
		WithLayerID("layer-2"),
		WithOpacity(0.5),
		WithVisible(false),
		WithBlendMode(BlendScreen),
	)
	if custom.ID != "layer-2" || custom.Settings.Opacity != 0.5 || custom.Settings.Visible {
		t.Fatalf("options not applied: %+v", custom)
	}
	if custom.Settings.BlendMode != BlendScreen {
		t.Fatalf("blend mode = %q", custom.Settings.BlendMode)
	}
}

func TestLayerStoreAddKeepsSettingsVerbatim(t *testing.T) {
	store := NewLayerStore(nil)

	added := store.Add(Layer{Component: "shader"})
	if added.ID == "" {
		t.Fatal("expected a generated id")
	}

	// An explicitly hidden layer and a fully transparent one must survive
	// Add untouched. Only NewLayer applies defaults.
	hidden := store.Add(Layer{ID: "hidden", Settings: LayerSettings{Visible: false}})
	if hidden.Settings.Visible {
		t.Fatalf("hidden layer forced visible: %+v", hidden.Settings)
	}
	transparent := store.Add(NewLayer("wash", WithLayerID("wash"), WithOpacity(0)))
	if transparent.Settings.Opacity != 0 {
		t.Fatalf("zero opacity promoted: %+v", transparent.Settings)
	}
}

func TestLayerStoreRemovePreservesOrder(t *testing.T) {
	store := NewLayerStore(nil)
	store.Add(Layer{ID: "a"})
	store.Add(Layer{ID: "b"})
	store.Add(Layer{ID: "c"})

	if !store.Remove("b") {
		t.Fatal("remove should succeed")
	}
	if store.Remove("b") {
		t.Fatal("second remove should fail")
	}

	snapshot := store.Snapshot()
	if len(snapshot) != 2 || snapshot[0].ID != "a" || snapshot[1].ID != "c" {
		t.Fatalf("order after remove: %+v", snapshot)
	}
}

func TestLayerStoreReorderClampsIndex(t *testing.T) {
	store := NewLayerStore(nil)
	store.Add(Layer{ID: "a"})
	store.Add(Layer{ID: "b"})
	store.Add(Layer{ID: "c"})

	if !store.Reorder("c", 0) {
		t.Fatal("reorder should succeed")
	}
	if got := store.Snapshot(); got[0].ID != "c" || got[1].ID != "a" || got[2].ID != "b" {
		t.Fatalf("order = %+v", got)
	}

	store.Reorder("c", 99)
	if got := store.Snapshot(); got[2].ID != "c" {
		t.Fatalf("clamped order = %+v", got)
	}
	if store.Reorder("ghost", 0) {
		t.Fatal("unknown layer must not reorder")
	}
}

func TestLayerStoreEmitsLifecycleEvents(t *testing.T) {
	var verbs []string
	hooks := activity.Hooks{activity.HookFunc(func(_ context.Context, evt activity.Event) error {
		verbs = append(verbs, evt.Verb)
		return nil
	})}
	store := NewLayerStore(hooks)

	added := store.Add(Layer{Component: "shader"})
	store.Remove(added.ID)

	if len(verbs) != 2 || verbs[0] != "layer.created" || verbs[1] != "layer.removed" {
		t.Fatalf("verbs = %v", verbs)
	}
}

func TestLayerStoreUpdateSettings(t *testing.T) {
	store := NewLayerStore(nil)
	store.Add(Layer{ID: "a"})

	ok := store.UpdateSettings("a", LayerSettings{Opacity: 0.3, Visible: true, BlendMode: BlendAdditive})
	if !ok {
		t.Fatal("update should succeed")
	}
	layer, _ := store.Get("a")
	if layer.Settings.Opacity != 0.3 || layer.Settings.BlendMode != BlendAdditive {
		t.Fatalf("settings = %+v", layer.Settings)
	}

	if store.UpdateSettings("ghost", LayerSettings{}) {
		t.Fatal("unknown layer must not update")
	}
}
