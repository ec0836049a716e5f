// Package render drives per-layer draw calls with the tick's shared audio
// frame and resolved parameter values, then propagates each layer's pixels
// to its registered mirror surfaces.
package render

import (
	"context"
	"fmt"
	"image"
	stddraw "image/draw"
	"sync"

	xdraw "golang.org/x/image/draw"

	composer "github.com/goliatone/go-composer"
	"github.com/goliatone/go-composer/audio"
	"github.com/goliatone/go-composer/pkg/activity"
)

// Renderer is the draw contract a layer component implements. Draw runs once
// per tick per visible layer and must not block; panics are contained by the
// compositor so one failing layer cannot abort the tick for the others.
type Renderer interface {
	Draw(dst *image.RGBA, frame audio.Frame, values map[string]any) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(dst *image.RGBA, frame audio.Frame, values map[string]any) error

// Draw implements Renderer.
func (f RendererFunc) Draw(dst *image.RGBA, frame audio.Frame, values map[string]any) error {
	if f == nil {
		return nil
	}
	return f(dst, frame, values)
}

// DrawErrorFunc receives contained per-layer draw failures.
type DrawErrorFunc func(layerID string, err error)

// CompositorOption configures a Compositor.
type CompositorOption func(*Compositor)

// WithAnalyzer attaches the external audio analyzer.
func WithAnalyzer(an audio.Analyzer) CompositorOption {
	return func(c *Compositor) {
		c.analyzer = an
	}
}

// WithSurfaceSize sets the dimensions of newly created primary surfaces.
func WithSurfaceSize(width, height int) CompositorOption {
	return func(c *Compositor) {
		c.width = width
		c.height = height
	}
}

// WithDrawErrorFunc registers the sink for contained draw failures.
func WithDrawErrorFunc(fn DrawErrorFunc) CompositorOption {
	return func(c *Compositor) {
		c.onDrawError = fn
	}
}

// WithScaler overrides the mirror scaling kernel.
func WithScaler(scaler xdraw.Scaler) CompositorOption {
	return func(c *Compositor) {
		c.scaler = scaler
	}
}

// Compositor iterates the session's layers once per render tick: capture
// one audio frame, run the node network against it, then draw each visible
// layer back to front and mirror its output.
type Compositor struct {
	session  *composer.Session
	source   *audio.Source
	analyzer audio.Analyzer

	mu        sync.RWMutex
	frozen    bool
	width     int
	height    int
	renderers map[string]Renderer
	surfaces  map[string]*image.RGBA
	mirrors   map[string][]*image.RGBA

	scaler      xdraw.Scaler
	onDrawError DrawErrorFunc
}

// NewCompositor constructs a compositor over session.
func NewCompositor(session *composer.Session, opts ...CompositorOption) *Compositor {
	c := &Compositor{
		session:   session,
		source:    audio.NewSource(),
		width:     640,
		height:    360,
		renderers: make(map[string]Renderer),
		surfaces:  make(map[string]*image.RGBA),
		mirrors:   make(map[string][]*image.RGBA),
		scaler:    xdraw.ApproxBiLinear,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Prime pulls the first audio frame so the initial tick never renders from
// empty buffers. Call once the analyzer reports ready.
func (c *Compositor) Prime() {
	c.source.Prime(c.analyzer)
}

// SetFrozen toggles freeze mode: while frozen and paused, ticks reuse the
// last captured frame instead of advancing.
func (c *Compositor) SetFrozen(frozen bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = frozen
}

// SetRenderer attaches the draw routine for a layer.
func (c *Compositor) SetRenderer(layerID string, renderer Renderer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renderers[layerID] = renderer
}

// Surface returns the layer's primary surface, creating it on first use.
func (c *Compositor) Surface(layerID string) *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	if surface, ok := c.surfaces[layerID]; ok {
		return surface
	}
	surface := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	c.surfaces[layerID] = surface
	return surface
}

// RegisterMirror attaches a mirror surface to a layer. Mirrors attach and
// detach freely; the primary surface is never recreated for it.
func (c *Compositor) RegisterMirror(layerID string, target *image.RGBA) {
	if target == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mirrors[layerID] = append(c.mirrors[layerID], target)
}

// UnregisterMirror detaches a previously registered mirror surface.
func (c *Compositor) UnregisterMirror(layerID string, target *image.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	targets := c.mirrors[layerID]
	for i, existing := range targets {
		if existing == target {
			c.mirrors[layerID] = append(targets[:i], targets[i+1:]...)
			return
		}
	}
}

// RemoveLayer drops the layer's surface, renderer, and mirror registrations.
func (c *Compositor) RemoveLayer(layerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.renderers, layerID)
	delete(c.surfaces, layerID)
	delete(c.mirrors, layerID)
}

// CleanupHook returns an activity hook that removes a layer's render state
// when the session emits layer.removed.
func (c *Compositor) CleanupHook() activity.Hook {
	return activity.HookFunc(func(_ context.Context, event activity.Event) error {
		if event.Verb == "layer.removed" && event.LayerID != "" {
			c.RemoveLayer(event.LayerID)
		}
		return nil
	})
}

// RenderTick runs one tick: one audio snapshot shared unmodified by every
// layer drawn in this tick, one node-network pass, then per-layer draw and
// mirror in paint order. The tick itself never suspends; persistence runs
// on its own coalescing path.
func (c *Compositor) RenderTick() audio.Frame {
	c.mu.RLock()
	frozen := c.frozen
	c.mu.RUnlock()

	frame := c.source.Capture(c.analyzer, frozen)
	if c.session.Network.Len() > 0 {
		c.session.Network.Tick(composer.SignalContext{Frame: frame.Binding()})
	}

	for _, layer := range c.session.Layers.Snapshot() {
		if !layer.Settings.Visible {
			continue
		}
		c.mu.RLock()
		renderer := c.renderers[layer.ID]
		c.mu.RUnlock()
		if renderer == nil {
			continue
		}
		surface := c.Surface(layer.ID)
		values := c.session.Resolver.Resolve(layer.ID)
		if err := c.drawLayer(layer.ID, renderer, surface, frame, values); err != nil {
			c.reportDrawError(layer.ID, err)
			continue
		}
		c.mu.RLock()
		targets := append([]*image.RGBA(nil), c.mirrors[layer.ID]...)
		c.mu.RUnlock()
		c.Mirror(surface, targets)
	}
	return frame
}

// drawLayer isolates a single layer's draw: an error return or a panic is
// contained so the remaining layers still render this tick.
func (c *Compositor) drawLayer(layerID string, renderer Renderer, dst *image.RGBA, frame audio.Frame, values map[string]any) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("render: layer %s draw panicked: %v", layerID, recovered)
		}
	}()
	return renderer.Draw(dst, frame, values)
}

// Mirror copies src to every non-nil target, clearing the target first and
// scaling the full source content to the target's own dimensions. A nil or
// zero-sized source is a no-op and leaves every target untouched.
func (c *Compositor) Mirror(src *image.RGBA, targets []*image.RGBA) {
	if src == nil {
		return
	}
	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return
	}
	for _, target := range targets {
		if target == nil {
			continue
		}
		stddraw.Draw(target, target.Bounds(), image.Transparent, image.Point{}, stddraw.Src)
		c.scaler.Scale(target, target.Bounds(), src, bounds, xdraw.Src, nil)
	}
}

func (c *Compositor) reportDrawError(layerID string, err error) {
	c.mu.RLock()
	sink := c.onDrawError
	c.mu.RUnlock()
	if sink != nil {
		sink(layerID, err)
	}
}
