package composer

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-composer/pkg/activity"
)

// BlendMode names the compositing operation a layer paints with.
type BlendMode string

const (
	BlendNormal   BlendMode = "normal"
	BlendAdditive BlendMode = "additive"
	BlendMultiply BlendMode = "multiply"
	BlendScreen   BlendMode = "screen"
)

// LayerSettings are the per-layer compositing controls.
type LayerSettings struct {
	Opacity    float64   `json:"opacity"`
	Background string    `json:"background"`
	Visible    bool      `json:"visible"`
	BlendMode  BlendMode `json:"blendMode"`
}

// Layer is one independently configured visual element. Order within the
// collection is paint order, back to front.
type Layer struct {
	ID        string        `json:"id"`
	Component string        `json:"component"`
	Settings  LayerSettings `json:"settings"`
	Expanded  bool          `json:"expanded"`
	Debug     bool          `json:"debug"`
}

// LayerOption tweaks a layer built by NewLayer.
type LayerOption func(*Layer)

// WithLayerID fixes the layer id instead of generating one on Add.
func WithLayerID(id string) LayerOption {
	return func(l *Layer) { l.ID = id }
}

// WithOpacity sets the layer opacity. Zero is a valid, fully transparent
// setting.
func WithOpacity(opacity float64) LayerOption {
	return func(l *Layer) { l.Settings.Opacity = opacity }
}

// WithVisible sets the layer visibility.
func WithVisible(visible bool) LayerOption {
	return func(l *Layer) { l.Settings.Visible = visible }
}

// WithBlendMode sets the compositing operation.
func WithBlendMode(mode BlendMode) LayerOption {
	return func(l *Layer) { l.Settings.BlendMode = mode }
}

// WithBackground sets the layer background color.
func WithBackground(background string) LayerOption {
	return func(l *Layer) { l.Settings.Background = background }
}

// NewLayer builds a layer with the stock settings: visible, full opacity,
// normal blend. Options override them before the layer is added to a
// store.
func NewLayer(component string, opts ...LayerOption) Layer {
	layer := Layer{
		Component: component,
		Settings: LayerSettings{
			Opacity:   1,
			Visible:   true,
			BlendMode: BlendNormal,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&layer)
		}
	}
	return layer
}

// LayerStore owns the ordered layer collection. Structural mutation goes
// through these operations so history snapshots and cascade cleanup stay
// consistent; callers never mutate returned slices.
type LayerStore struct {
	mu     sync.RWMutex
	layers []Layer
	hooks  activity.Hooks
}

// NewLayerStore constructs an empty collection notifying hooks on mutation.
func NewLayerStore(hooks activity.Hooks) *LayerStore {
	return &LayerStore{hooks: hooks}
}

// Add appends layer to the front of the paint order (end of the slice),
// assigning a fresh id when the caller did not provide one. Settings are
// stored verbatim; an invisible or fully transparent layer stays that
// way. NewLayer supplies the stock defaults.
func (s *LayerStore) Add(layer Layer) Layer {
	if layer.ID == "" {
		layer.ID = uuid.NewString()
	}
	s.mu.Lock()
	s.layers = append(s.layers, layer)
	s.mu.Unlock()

	_ = s.hooks.Notify(context.Background(), activity.BuildLayerCreatedEvent(activity.SessionEventInput{
		LayerID: layer.ID,
	}))
	return layer
}

// Remove deletes the layer with id, preserving the order of the rest.
// Cleanup of dependent state (values, mirrors, node bindings) is driven by
// the emitted layer.removed event.
func (s *LayerStore) Remove(id string) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.layers = append(s.layers[:idx], s.layers[idx+1:]...)
	s.mu.Unlock()

	_ = s.hooks.Notify(context.Background(), activity.BuildLayerRemovedEvent(activity.SessionEventInput{
		LayerID: id,
	}))
	return true
}

// Reorder moves the layer with id to position index in paint order.
// Out-of-range indexes clamp to the collection bounds.
func (s *LayerStore) Reorder(id string, index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.indexLocked(id)
	if from < 0 {
		return false
	}
	if index < 0 {
		index = 0
	}
	if index >= len(s.layers) {
		index = len(s.layers) - 1
	}
	layer := s.layers[from]
	s.layers = append(s.layers[:from], s.layers[from+1:]...)
	s.layers = append(s.layers[:index], append([]Layer{layer}, s.layers[index:]...)...)
	return true
}

// UpdateSettings replaces the settings of the layer with id.
func (s *LayerStore) UpdateSettings(id string, settings LayerSettings) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	s.layers[idx].Settings = settings
	return true
}

// SetExpanded toggles the editor expansion flag.
func (s *LayerStore) SetExpanded(id string, expanded bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return false
	}
	s.layers[idx].Expanded = expanded
	return true
}

// Get returns the layer with id.
func (s *LayerStore) Get(id string) (Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return Layer{}, false
	}
	return s.layers[idx], true
}

// Snapshot returns the layers in paint order. The slice is a copy; the
// elements are values, so callers cannot corrupt store state.
func (s *LayerStore) Snapshot() []Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

// SetAll wholesale-replaces the collection, used on undo/redo and project
// load.
func (s *LayerStore) SetAll(layers []Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = make([]Layer, len(layers))
	copy(s.layers, layers)
}

// Len reports the number of layers.
func (s *LayerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.layers)
}

func (s *LayerStore) indexLocked(id string) int {
	for i, layer := range s.layers {
		if layer.ID == id {
			return i
		}
	}
	return -1
}
