package composer

import (
	"sync"

	"github.com/goliatone/go-composer/layering"
)

// HistoryState is one undoable snapshot of the session's editable content:
// the layer collection plus every layer's value bag.
type HistoryState struct {
	Layers []Layer                 `json:"layers"`
	Values map[string]layering.Bag `json:"layerValues"`
}

// History keeps the undo/redo stacks. Snapshots are cheap: bags follow the
// copy-on-write discipline, so past states share structure with the present.
type History struct {
	mu      sync.RWMutex
	past    []HistoryState
	present HistoryState
	future  []HistoryState
	bypass  bool
}

// NewHistory constructs an empty history.
func NewHistory() *History {
	return &History{}
}

// Push records the current present on the past stack and promotes state.
// A push clears the redo stack. While bypass is active the present is
// replaced without recording, so batched mutations such as a project load do
// not become undoable steps.
func (h *History) Push(state HistoryState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.bypass {
		h.present = state
		return
	}
	h.past = append(h.past, h.present)
	h.present = state
	h.future = nil
}

// Undo pops the last past entry, pushes the present onto the future stack,
// and promotes the popped entry. Reports false (and changes nothing) when
// the past is empty.
func (h *History) Undo() (HistoryState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.past) == 0 {
		return HistoryState{}, false
	}
	promoted := h.past[len(h.past)-1]
	h.past = h.past[:len(h.past)-1]
	h.future = append(h.future, h.present)
	h.present = promoted
	return promoted, true
}

// Redo mirrors Undo using the future stack.
func (h *History) Redo() (HistoryState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.future) == 0 {
		return HistoryState{}, false
	}
	promoted := h.future[len(h.future)-1]
	h.future = h.future[:len(h.future)-1]
	h.past = append(h.past, h.present)
	h.present = promoted
	return promoted, true
}

// Set replaces the entire history, recomputing CanUndo/CanRedo implicitly.
func (h *History) Set(past []HistoryState, present HistoryState, future []HistoryState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = append([]HistoryState(nil), past...)
	h.present = present
	h.future = append([]HistoryState(nil), future...)
}

// Reset clears all history to an empty present state.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = nil
	h.present = HistoryState{}
	h.future = nil
}

// SetBypass toggles history recording. Callers must clear the flag on every
// exit path of the bypassed operation, including failure.
func (h *History) SetBypass(bypass bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bypass = bypass
}

// Bypassing reports whether pushes are currently suppressed.
func (h *History) Bypassing() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bypass
}

// Present returns the current present state.
func (h *History) Present() HistoryState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.present
}

// CanUndo reports whether the past stack is non-empty.
func (h *History) CanUndo() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.past) > 0
}

// CanRedo reports whether the future stack is non-empty.
func (h *History) CanRedo() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.future) > 0
}
