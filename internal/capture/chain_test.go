package capture

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/bryanchriswhite/snapmaster/internal/window"
)

func filledImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

type fakeStrategy struct {
	name  string
	img   *image.RGBA
	err   error
	calls int
}

func (f *fakeStrategy) Name() string { return f.name }
func (f *fakeStrategy) Capture(*window.Info) (*image.RGBA, error) {
	f.calls++
	return f.img, f.err
}

type fakeScreen struct {
	full    *image.RGBA
	fullErr error
	region  *image.RGBA
	bounds  window.Rect

	lastRegion window.Rect
}

func (f *fakeScreen) FullScreen() (*image.RGBA, error) { return f.full, f.fullErr }
func (f *fakeScreen) Bounds() window.Rect              { return f.bounds }
func (f *fakeScreen) Region(r window.Rect) (*image.RGBA, error) {
	f.lastRegion = r
	return f.region, nil
}

var testWindow = &window.Info{
	Name: "testapp",
	Rect: window.Rect{X: 100, Y: 100, Width: 800, Height: 600},
}

func TestChainPrefersFirstValidStrategy(t *testing.T) {
	good := filledImage(200, 200, color.RGBA{120, 120, 120, 255})
	first := &fakeStrategy{name: "first", img: good}
	second := &fakeStrategy{name: "second", img: good}

	chain := NewChain(&fakeScreen{}, first, second)
	img, method, err := chain.CaptureWindow(testWindow)
	if err != nil {
		t.Fatalf("CaptureWindow: %v", err)
	}
	if img != good {
		t.Error("expected the first strategy's image")
	}
	if method != "first" {
		t.Errorf("method = %q, want first", method)
	}
	if second.calls != 0 {
		t.Error("second strategy should not run when the first succeeds")
	}
}

func TestChainSkipsFailingAndBlankStrategies(t *testing.T) {
	blank := image.NewRGBA(image.Rect(0, 0, 200, 200))
	good := filledImage(200, 200, color.RGBA{200, 180, 160, 255})

	failing := &fakeStrategy{name: "failing", err: errors.New("no window")}
	blanked := &fakeStrategy{name: "blank", img: blank}
	working := &fakeStrategy{name: "working", img: good}

	chain := NewChain(&fakeScreen{}, failing, blanked, working)
	img, method, err := chain.CaptureWindow(testWindow)
	if err != nil {
		t.Fatalf("CaptureWindow: %v", err)
	}
	if img != good || method != "working" {
		t.Errorf("method = %q, want working", method)
	}
}

func TestChainFullscreenFallback(t *testing.T) {
	full := filledImage(300, 200, color.RGBA{90, 90, 90, 255})
	failing := &fakeStrategy{name: "failing", err: errors.New("nope")}

	chain := NewChain(&fakeScreen{full: full}, failing)
	img, method, err := chain.CaptureWindow(testWindow)
	if err != nil {
		t.Fatalf("CaptureWindow: %v", err)
	}
	if img != full {
		t.Error("expected the fullscreen image")
	}
	if method != "fullscreen-fallback" {
		t.Errorf("method = %q, want fullscreen-fallback", method)
	}
}

func TestChainAllStrategiesFailed(t *testing.T) {
	failing := &fakeStrategy{name: "failing", err: errors.New("nope")}
	screen := &fakeScreen{fullErr: errors.New("no display")}

	chain := NewChain(screen, failing)
	if _, _, err := chain.CaptureWindow(testWindow); !errors.Is(err, ErrAllStrategiesFailed) {
		t.Fatalf("err = %v, want ErrAllStrategiesFailed", err)
	}
}

func TestRegionStrategyCorrectsFrameRects(t *testing.T) {
	screen := &fakeScreen{
		bounds: window.Rect{Width: 1920, Height: 1080},
		region: filledImage(100, 100, color.RGBA{50, 50, 50, 255}),
	}
	s := NewRegionStrategy(screen)

	info := &window.Info{
		Name:      "editor",
		Rect:      window.Rect{X: 100, Y: 100, Width: 800, Height: 600},
		FrameRect: true,
	}
	if _, err := s.Capture(info); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	want := window.Rect{
		X:      100 + regionBorder,
		Y:      100 + regionTitleBar,
		Width:  800 - 2*regionBorder,
		Height: 600 - regionTitleBar - regionBorder,
	}
	if screen.lastRegion != want {
		t.Errorf("region = %+v, want %+v", screen.lastRegion, want)
	}
}

func TestRegionStrategyTrustsClientRects(t *testing.T) {
	screen := &fakeScreen{
		bounds: window.Rect{Width: 1920, Height: 1080},
		region: filledImage(100, 100, color.RGBA{50, 50, 50, 255}),
	}
	s := NewRegionStrategy(screen)

	// a resolved client rectangle already excludes decorations and
	// must pass through untouched
	info := &window.Info{
		Name: "editor",
		Rect: window.Rect{X: 108, Y: 130, Width: 784, Height: 562},
	}
	if _, err := s.Capture(info); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if screen.lastRegion != info.Rect {
		t.Errorf("region = %+v, want uncorrected %+v", screen.lastRegion, info.Rect)
	}
}

func TestRegionStrategyLeavesFullscreenAlone(t *testing.T) {
	screen := &fakeScreen{
		bounds: window.Rect{Width: 1920, Height: 1080},
		region: filledImage(100, 100, color.RGBA{50, 50, 50, 255}),
	}
	s := NewRegionStrategy(screen)

	info := &window.Info{
		Name:       "game",
		Fullscreen: true,
		Rect:       window.Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
	}
	if _, err := s.Capture(info); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if screen.lastRegion != info.Rect {
		t.Errorf("region = %+v, want uncorrected %+v", screen.lastRegion, info.Rect)
	}
}

func TestRegionStrategyRejectsBogusRects(t *testing.T) {
	screen := &fakeScreen{bounds: window.Rect{Width: 1920, Height: 1080}}
	s := NewRegionStrategy(screen)

	tests := []struct {
		name string
		rect window.Rect
	}{
		{"far off-screen", window.Rect{X: -5000, Y: 0, Width: 800, Height: 600}},
		{"too small", window.Rect{X: 10, Y: 10, Width: 20, Height: 20}},
		{"absurdly large", window.Rect{X: 0, Y: 0, Width: 10000, Height: 600}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Capture(&window.Info{Rect: tt.rect}); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
