package project

import (
	"bytes"
	"strings"
	"testing"

	composer "github.com/goliatone/go-composer"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	source := composer.NewSession()
	layer := source.AddLayer(composer.Layer{
		ID:       "layer-1",
		Settings: composer.LayerSettings{Visible: true, Opacity: 1},
	}, composer.Group(
		composer.Entry("motion", composer.Group(
			composer.Entry("speed", composer.Number(0.5, 0, 1)),
		)),
	))
	source.UpdateValue(layer.ID, []string{"motion", "speed"}, 0.8)

	var buf bytes.Buffer
	if err := Save(&buf, source); err != nil {
		t.Fatalf("save: %v", err)
	}

	target := composer.NewSession()
	if err := Load(&buf, target); err != nil {
		t.Fatalf("load: %v", err)
	}

	layers := target.Layers.Snapshot()
	if len(layers) != 1 || layers[0].ID != "layer-1" {
		t.Fatalf("layers not restored: %v", layers)
	}
	value, ok := target.Values.Lookup("layer-1", []string{"motion", "speed"})
	if !ok || value != 0.8 {
		t.Fatalf("values not restored, got %v ok=%v", value, ok)
	}
}

func TestLoadIsNotUndoable(t *testing.T) {
	source := composer.NewSession()
	source.AddLayer(composer.Layer{ID: "layer-1"}, nil)
	var buf bytes.Buffer
	if err := Save(&buf, source); err != nil {
		t.Fatalf("save: %v", err)
	}

	target := composer.NewSession()
	if err := Load(&buf, target); err != nil {
		t.Fatalf("load: %v", err)
	}
	if target.History.CanUndo() {
		t.Fatal("loading a project must not create an undo step")
	}
	if target.History.Bypassing() {
		t.Fatal("bypass flag must be cleared after load")
	}
}

func TestUndoAfterLoadRestoresLoadedState(t *testing.T) {
	source := composer.NewSession()
	source.AddLayer(composer.Layer{
		ID:       "loaded-layer",
		Settings: composer.LayerSettings{Visible: true, Opacity: 1},
	}, nil)
	var buf bytes.Buffer
	if err := Save(&buf, source); err != nil {
		t.Fatalf("save: %v", err)
	}

	target := composer.NewSession()
	if err := Load(&buf, target); err != nil {
		t.Fatalf("load: %v", err)
	}

	// The first edit after a load must snapshot the loaded state, so a
	// single undo returns to the document, not to an empty project.
	target.AddLayer(composer.Layer{ID: "added-layer"}, nil)
	if !target.Undo() {
		t.Fatal("undo should be available after the post-load edit")
	}

	layers := target.Layers.Snapshot()
	if len(layers) != 1 || layers[0].ID != "loaded-layer" {
		t.Fatalf("undo lost the loaded state, layers = %v", layers)
	}
}

func TestLoadClearsLiveValues(t *testing.T) {
	target := composer.NewSession()
	target.Live.Set("node-1", "input-1", 0.5)

	source := composer.NewSession()
	var buf bytes.Buffer
	if err := Save(&buf, source); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := Load(&buf, target); err != nil {
		t.Fatalf("load: %v", err)
	}
	if target.Live.Len() != 0 {
		t.Fatal("node live values must be recomputed, not restored")
	}
}

func TestLoadRejectsDuplicateLayerIDs(t *testing.T) {
	doc := `{"version":1,"layers":[{"id":"a"},{"id":"a"}],"layerValues":{}}`
	target := composer.NewSession()
	err := Load(strings.NewReader(doc), target)
	if err == nil || !strings.Contains(err.Error(), "duplicate layer id") {
		t.Fatalf("expected duplicate id error, got %v", err)
	}
	if target.History.Bypassing() {
		t.Fatal("bypass flag must be cleared on the failure path too")
	}
}

func TestLoadMigratesUnversionedDocuments(t *testing.T) {
	doc := `{"layers":[{"id":"a"}],"layerValues":{"a":{"x":1}}}`
	target := composer.NewSession()
	if err := Load(strings.NewReader(doc), target); err != nil {
		t.Fatalf("load unversioned: %v", err)
	}
	if target.Layers.Len() != 1 {
		t.Fatal("unversioned document should hydrate")
	}
}
