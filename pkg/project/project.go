// Package project serializes a session's editable content to and from
// project documents. Loading applies the document under history bypass so a
// project load never becomes an undoable step.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	composer "github.com/goliatone/go-composer"
	"github.com/goliatone/go-composer/internal/hydrate"
	"github.com/goliatone/go-composer/layering"
	"github.com/goliatone/go-composer/pkg/activity"
)

// Version is the current document schema version.
const Version = 1

// Document is the on-disk project shape: schema-level layer metadata plus
// every layer's value bag. Node live values are deliberately absent — they
// are recomputed, never restored.
type Document struct {
	Version int                     `json:"version"`
	Layers  []composer.Layer        `json:"layers"`
	Values  map[string]layering.Bag `json:"layerValues"`
}

// Save writes the session's current content as a document.
func Save(w io.Writer, session *composer.Session) error {
	state := session.Snapshot()
	doc := Document{
		Version: Version,
		Layers:  state.Layers,
		Values:  state.Values,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("project: save: %w", err)
	}
	return nil
}

// Load reads a document and applies it to the session: all value bags and
// the layer collection are replaced, history is reset, and the node live
// cache is cleared. The whole apply runs under history bypass, which is
// released on every exit path.
func Load(r io.Reader, session *composer.Session) error {
	var payload map[string]any
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return fmt.Errorf("project: read: %w", err)
	}

	decoder := hydrate.NewDecoder[Document](
		hydrate.WithPreHook[Document](migrateUnversioned),
		hydrate.WithPostHook[Document](validate),
	)
	doc, err := decoder.Decode(hydrate.Context{Source: "project"}, payload)
	if err != nil {
		return fmt.Errorf("project: load: %w", err)
	}

	session.History.SetBypass(true)
	defer session.History.SetBypass(false)

	// Reset before applying so the history present mirrors the loaded
	// state. The first edit after a load then snapshots the document, not
	// an empty project.
	session.History.Reset()
	session.Apply(composer.HistoryState{
		Layers: doc.Layers,
		Values: doc.Values,
	})

	_ = session.Hooks().Notify(context.Background(), activity.BuildProjectLoadedEvent(activity.SessionEventInput{
		ObjectID: "project",
		Metadata: map[string]any{"layers": len(doc.Layers)},
	}))
	return nil
}

func migrateUnversioned(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
	if _, ok := payload["version"]; !ok {
		payload["version"] = Version
	}
	return payload, nil
}

func validate(_ hydrate.Context, doc *Document) error {
	if doc.Version > Version {
		return fmt.Errorf("document version %d is newer than supported version %d", doc.Version, Version)
	}
	seen := make(map[string]struct{}, len(doc.Layers))
	for _, layer := range doc.Layers {
		if layer.ID == "" {
			return fmt.Errorf("document contains a layer without an id")
		}
		if _, dup := seen[layer.ID]; dup {
			return fmt.Errorf("document contains duplicate layer id %q", layer.ID)
		}
		seen[layer.ID] = struct{}{}
	}
	return nil
}
