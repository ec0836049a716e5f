package activity

import (
	"strings"
	"time"
)

// SessionEventInput describes the common fields for session lifecycle events.
type SessionEventInput struct {
	LayerID    string
	ObjectID   string
	Path       string
	OldValue   any
	NewValue   any
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildLayerCreatedEvent constructs a normalized event for layer creation.
func BuildLayerCreatedEvent(input SessionEventInput) Event {
	return buildSessionEvent("layer.created", "layer", input)
}

// BuildLayerRemovedEvent constructs a normalized event for layer removal.
// Cleanup listeners (mirror surfaces, node bindings) key off this verb.
func BuildLayerRemovedEvent(input SessionEventInput) Event {
	return buildSessionEvent("layer.removed", "layer", input)
}

// BuildValueUpdatedEvent constructs a normalized event for a parameter edit.
func BuildValueUpdatedEvent(input SessionEventInput) Event {
	return buildSessionEvent("values.updated", "layer.values", input)
}

// BuildValuesReplacedEvent constructs a normalized event for wholesale value
// replacement (undo/redo apply, project load).
func BuildValuesReplacedEvent(input SessionEventInput) Event {
	return buildSessionEvent("values.replaced", "layer.values", input)
}

// BuildHistoryUndoneEvent constructs a normalized event for an undo step.
func BuildHistoryUndoneEvent(input SessionEventInput) Event {
	return buildSessionEvent("history.undone", "history", input)
}

// BuildHistoryRedoneEvent constructs a normalized event for a redo step.
func BuildHistoryRedoneEvent(input SessionEventInput) Event {
	return buildSessionEvent("history.redone", "history", input)
}

// BuildProjectLoadedEvent constructs a normalized event for a project load.
func BuildProjectLoadedEvent(input SessionEventInput) Event {
	return buildSessionEvent("project.loaded", "project", input)
}

// BuildPersistFailedEvent constructs a normalized event for a persistence
// failure. In-memory state stays authoritative; this is the surface through
// which the failure becomes user visible.
func BuildPersistFailedEvent(input SessionEventInput) Event {
	return buildSessionEvent("persist.failed", "record", input)
}

func buildSessionEvent(verb, objectType string, input SessionEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}
	if input.Err != nil {
		metadata = ensureMetadata(metadata)
		metadata["error"] = input.Err.Error()
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.LayerID)
	}
	if objectID == "" {
		objectID = strings.TrimSpace(input.Path)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ObjectType: objectType,
		ObjectID:   objectID,
		LayerID:    strings.TrimSpace(input.LayerID),
		Path:       strings.TrimSpace(input.Path),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
