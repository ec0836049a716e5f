// Package activity fans session lifecycle events out to registered hooks:
// layer add/remove, value edits, history moves, project loads, and
// persistence failures. Hooks are the only notification surface the stores
// expose; editor chrome, audit logs, and cleanup listeners all attach here.
package activity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Event describes one session occurrence. IDs are stringly-typed so call
// sites stay decoupled from the session's identifier scheme.
type Event struct {
	Verb       string
	ObjectType string
	ObjectID   string
	LayerID    string
	Path       string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Hook receives normalized session events.
type Hook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Hooks fans out events to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify forwards the event to all hooks, returning a joined error if any
// fail. It normalizes the event and short-circuits when required fields are
// missing.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}

	normalized := NormalizeEvent(event)
	if normalized.Verb == "" || normalized.ObjectType == "" || normalized.ObjectID == "" {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// NormalizeEvent trims whitespace, clones metadata, and ensures a timestamp
// is present.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.TrimSpace(event.Verb)
	normalized.ObjectType = strings.TrimSpace(event.ObjectType)
	normalized.ObjectID = strings.TrimSpace(event.ObjectID)
	normalized.LayerID = strings.TrimSpace(event.LayerID)
	normalized.Path = strings.TrimSpace(event.Path)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
