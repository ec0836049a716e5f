package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	composer "github.com/goliatone/go-composer"
	"github.com/goliatone/go-composer/audio"
	"github.com/goliatone/go-composer/pkg/activity"
)

type tickAnalyzer struct {
	fill    byte
	playing bool
}

func (a *tickAnalyzer) FrequencyBinCount() int { return 4 }
func (a *tickAnalyzer) SampleRate() float64    { return 44100 }
func (a *tickAnalyzer) FFTSize() int           { return 2048 }
func (a *tickAnalyzer) Playing() bool          { return a.playing }

func (a *tickAnalyzer) ByteFrequencyData(dst []byte) {
	for i := range dst {
		dst[i] = a.fill
	}
	a.fill++
}

func (a *tickAnalyzer) ByteTimeDomainData(dst []byte) {
	for i := range dst {
		dst[i] = a.fill
	}
}

func newTestSession() *composer.Session {
	return composer.NewSession()
}

func addVisibleLayer(s *composer.Session, id string) composer.Layer {
	return s.AddLayer(composer.Layer{
		ID:       id,
		Settings: composer.LayerSettings{Visible: true, Opacity: 1},
	}, composer.Group(
		composer.Entry("fill", composer.Number(0.5, 0, 1)),
	))
}

func TestRenderTickSharesOneFrameAcrossLayers(t *testing.T) {
	session := newTestSession()
	addVisibleLayer(session, "a")
	addVisibleLayer(session, "b")

	an := &tickAnalyzer{playing: true}
	c := NewCompositor(session, WithAnalyzer(an), WithSurfaceSize(8, 8))

	var frames []audio.Frame
	capture := RendererFunc(func(_ *image.RGBA, frame audio.Frame, _ map[string]any) error {
		frames = append(frames, frame)
		return nil
	})
	c.SetRenderer("a", capture)
	c.SetRenderer("b", capture)

	c.RenderTick()

	if len(frames) != 2 {
		t.Fatalf("expected both layers drawn, got %d", len(frames))
	}
	if &frames[0].Frequency[0] != &frames[1].Frequency[0] {
		t.Fatal("layers in one tick must observe the same frame buffers")
	}
}

func TestRenderTickResolvesValuesForRenderer(t *testing.T) {
	session := newTestSession()
	layer := addVisibleLayer(session, "a")
	session.UpdateValue(layer.ID, []string{"fill"}, 0.9)

	c := NewCompositor(session, WithSurfaceSize(4, 4))
	var got map[string]any
	c.SetRenderer("a", RendererFunc(func(_ *image.RGBA, _ audio.Frame, values map[string]any) error {
		got = values
		return nil
	}))

	c.RenderTick()

	if got == nil {
		t.Fatal("renderer not invoked")
	}
	if got["a:fill"] != 0.9 {
		t.Fatalf("expected stored value to win over default, got %v", got["a:fill"])
	}
}

func TestRenderTickSkipsInvisibleLayers(t *testing.T) {
	session := newTestSession()
	layer := session.AddLayer(composer.Layer{
		ID:       "hidden",
		Settings: composer.LayerSettings{Visible: false},
	}, nil)

	c := NewCompositor(session)
	drawn := false
	c.SetRenderer(layer.ID, RendererFunc(func(_ *image.RGBA, _ audio.Frame, _ map[string]any) error {
		drawn = true
		return nil
	}))

	c.RenderTick()
	if drawn {
		t.Fatal("invisible layer must not draw")
	}
}

func TestDrawPanicIsContainedPerLayer(t *testing.T) {
	session := newTestSession()
	addVisibleLayer(session, "bad")
	addVisibleLayer(session, "good")

	var failures []string
	c := NewCompositor(session, WithSurfaceSize(4, 4), WithDrawErrorFunc(func(layerID string, _ error) {
		failures = append(failures, layerID)
	}))

	c.SetRenderer("bad", RendererFunc(func(_ *image.RGBA, _ audio.Frame, _ map[string]any) error {
		panic("shader exploded")
	}))
	goodDrawn := false
	c.SetRenderer("good", RendererFunc(func(_ *image.RGBA, _ audio.Frame, _ map[string]any) error {
		goodDrawn = true
		return nil
	}))

	c.RenderTick()

	if !goodDrawn {
		t.Fatal("a panicking layer must not abort the tick for others")
	}
	if len(failures) != 1 || failures[0] != "bad" {
		t.Fatalf("expected one contained failure for layer bad, got %v", failures)
	}
}

func TestDrawErrorReported(t *testing.T) {
	session := newTestSession()
	addVisibleLayer(session, "a")

	var gotErr error
	c := NewCompositor(session, WithDrawErrorFunc(func(_ string, err error) {
		gotErr = err
	}))
	errDraw := errors.New("draw failed")
	c.SetRenderer("a", RendererFunc(func(_ *image.RGBA, _ audio.Frame, _ map[string]any) error {
		return errDraw
	}))

	c.RenderTick()
	if !errors.Is(gotErr, errDraw) {
		t.Fatalf("expected contained draw error, got %v", gotErr)
	}
}

func TestMirrorZeroSizedSourceIsNoOp(t *testing.T) {
	c := NewCompositor(newTestSession())
	target := image.NewRGBA(image.Rect(0, 0, 4, 4))
	target.Set(1, 1, color.RGBA{R: 200, A: 255})

	c.Mirror(image.NewRGBA(image.Rect(0, 0, 0, 0)), []*image.RGBA{target})

	if got := target.RGBAAt(1, 1); got.R != 200 {
		t.Fatalf("zero-sized source must leave target untouched, got %v", got)
	}
	c.Mirror(nil, []*image.RGBA{target})
	if got := target.RGBAAt(1, 1); got.R != 200 {
		t.Fatalf("nil source must leave target untouched, got %v", got)
	}
}

func TestMirrorScalesToTargetDimensions(t *testing.T) {
	c := NewCompositor(newTestSession())
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	target := image.NewRGBA(image.Rect(0, 0, 8, 8))

	c.Mirror(src, []*image.RGBA{target, nil})

	if got := target.RGBAAt(4, 4); got.R != 255 || got.A != 255 {
		t.Fatalf("expected scaled source pixels in target, got %v", got)
	}
	if got := target.RGBAAt(7, 7); got.A == 0 {
		t.Fatalf("full target should be covered by the scaled source, got %v", got)
	}
}

func TestCleanupHookRemovesLayerState(t *testing.T) {
	// The hook is late-bound because the compositor needs the session first.
	var c *Compositor
	forward := activity.HookFunc(func(ctx context.Context, event activity.Event) error {
		if c == nil {
			return nil
		}
		return c.CleanupHook().Notify(ctx, event)
	})
	session := composer.NewSession(composer.WithHooks(forward))
	c = NewCompositor(session)

	layer := session.AddLayer(composer.Layer{Settings: composer.LayerSettings{Visible: true}}, nil)
	c.SetRenderer(layer.ID, RendererFunc(nil))
	c.RegisterMirror(layer.ID, image.NewRGBA(image.Rect(0, 0, 2, 2)))

	session.RemoveLayer(layer.ID)

	c.mu.RLock()
	_, hasRenderer := c.renderers[layer.ID]
	_, hasMirrors := c.mirrors[layer.ID]
	c.mu.RUnlock()
	if hasRenderer || hasMirrors {
		t.Fatal("layer.removed event should cascade into compositor cleanup")
	}
}
