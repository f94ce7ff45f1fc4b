package screenshot

import (
	"errors"
	"image"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bryanchriswhite/snapmaster/internal/config"
	"github.com/bryanchriswhite/snapmaster/internal/selector"
	"github.com/bryanchriswhite/snapmaster/internal/window"
)

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 180
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

type fakeDetector struct {
	current *window.Info
	err     error
	history []*window.Info
}

func (f *fakeDetector) CurrentApp(bool) (*window.Info, error) { return f.current, f.err }
func (f *fakeDetector) History() []*window.Info               { return f.history }

type fakeCapturer struct {
	img *image.RGBA
	err error
}

func (f *fakeCapturer) CaptureWindow(*window.Info) (*image.RGBA, string, error) {
	return f.img, "fake", f.err
}

type fakeScreen struct {
	img *image.RGBA
	err error
}

func (f *fakeScreen) FullScreen() (*image.RGBA, error)        { return f.img, f.err }
func (f *fakeScreen) Region(window.Rect) (*image.RGBA, error) { return f.img, f.err }
func (f *fakeScreen) Bounds() window.Rect                     { return window.Rect{Width: 1920, Height: 1080} }

type fakeSelector struct {
	sel *selector.Selection
	err error
}

func (f *fakeSelector) Select() (*selector.Selection, error) { return f.sel, f.err }

type fakeSettings struct {
	capture config.CaptureConfig
	folder  string
	appDirs map[string]string
}

func (f *fakeSettings) GetCaptureSettings() config.CaptureConfig { return f.capture }
func (f *fakeSettings) GetDefaultFolder() string                 { return f.folder }
func (f *fakeSettings) GetAppFolder(app string) string           { return f.appDirs[app] }

type fakeOptimizer struct {
	calls []string
}

func (f *fakeOptimizer) OptimizeForScreenshots() { f.calls = append(f.calls, "optimize") }
func (f *fakeOptimizer) ForceCleanup()           { f.calls = append(f.calls, "cleanup") }

func newTestManager(t *testing.T, det *fakeDetector, cap *fakeCapturer, scr *fakeScreen, sel *fakeSelector) (*Manager, *fakeSettings) {
	t.Helper()
	cfg := &fakeSettings{
		capture: config.CaptureConfig{
			ImageFormat:     "PNG",
			ImageQuality:    95,
			AutoFilename:    true,
			FilenamePattern: "Screenshot_%Y%m%d_%H%M%S",
		},
		folder:  t.TempDir(),
		appDirs: map[string]string{},
	}

	m := NewManager(det, cap, scr, sel, cfg, nil)
	m.clock = func() time.Time { return time.Date(2025, 3, 7, 14, 30, 9, 0, time.UTC) }
	m.sleep = func(time.Duration) {}
	return m, cfg
}

func TestCaptureFullscreen(t *testing.T) {
	m, _ := newTestManager(t, &fakeDetector{}, &fakeCapturer{}, &fakeScreen{img: solidImage(64, 48)}, &fakeSelector{})

	type done struct {
		captureType, path string
		info              *window.Info
	}
	var completed []done
	var failed []error
	m.SetCompletionCallback(func(ct, p string, info *window.Info) {
		completed = append(completed, done{ct, p, info})
	})
	m.SetErrorCallback(func(_ string, err error) { failed = append(failed, err) })

	path, err := m.CaptureFullscreen(Options{})
	if err != nil {
		t.Fatalf("CaptureFullscreen: %v", err)
	}
	if !strings.HasSuffix(path, "fullscreen_Screenshot_20250307_143009.png") {
		t.Errorf("path = %q", path)
	}

	if len(completed) != 1 || completed[0].path != path {
		t.Fatalf("completion callbacks = %v, want exactly one with %q", completed, path)
	}
	if completed[0].captureType != TypeFullscreen {
		t.Errorf("capture type = %q, want %q", completed[0].captureType, TypeFullscreen)
	}
	if completed[0].info != nil {
		t.Errorf("info = %v, want nil for fullscreen", completed[0].info)
	}
	if len(failed) != 0 {
		t.Errorf("error callbacks = %v, want none", failed)
	}

	stats := m.Stats()
	if stats.Fullscreen != 1 || stats.Errors != 0 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestCaptureFullscreenFailure(t *testing.T) {
	boom := errors.New("no display")
	m, _ := newTestManager(t, &fakeDetector{}, &fakeCapturer{}, &fakeScreen{err: boom}, &fakeSelector{})

	var completed, failed int
	var failedType string
	m.SetCompletionCallback(func(string, string, *window.Info) { completed++ })
	m.SetErrorCallback(func(ct string, _ error) { failed++; failedType = ct })

	if _, err := m.CaptureFullscreen(Options{}); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if completed != 0 || failed != 1 {
		t.Errorf("callbacks completed=%d failed=%d, want 0/1", completed, failed)
	}
	if failedType != TypeFullscreen {
		t.Errorf("failed type = %q, want %q", failedType, TypeFullscreen)
	}
	if m.Stats().Errors != 1 {
		t.Errorf("error count = %d, want 1", m.Stats().Errors)
	}
}

func TestCaptureActiveWindowNamesFile(t *testing.T) {
	det := &fakeDetector{current: &window.Info{Name: "firefox", Title: "My Page"}}
	m, _ := newTestManager(t, det, &fakeCapturer{img: solidImage(64, 48)}, &fakeScreen{}, &fakeSelector{})

	var gotInfo *window.Info
	m.SetCompletionCallback(func(_, _ string, info *window.Info) { gotInfo = info })

	path, err := m.CaptureActiveWindow(Options{})
	if err != nil {
		t.Fatalf("CaptureActiveWindow: %v", err)
	}
	if !strings.Contains(path, "firefox_My_Page_") {
		t.Errorf("path = %q, want app prefix", path)
	}
	if gotInfo == nil || gotInfo.Name != "firefox" {
		t.Errorf("callback info = %v, want the captured window", gotInfo)
	}
	if m.Stats().Window != 1 {
		t.Errorf("window count = %d, want 1", m.Stats().Window)
	}
}

func TestCaptureActiveWindowUsesAppFolder(t *testing.T) {
	det := &fakeDetector{current: &window.Info{Name: "firefox"}}
	m, cfg := newTestManager(t, det, &fakeCapturer{img: solidImage(64, 48)}, &fakeScreen{}, &fakeSelector{})

	appDir := t.TempDir()
	cfg.appDirs["firefox"] = appDir

	path, err := m.CaptureActiveWindow(Options{})
	if err != nil {
		t.Fatalf("CaptureActiveWindow: %v", err)
	}
	if !strings.HasPrefix(path, appDir) {
		t.Errorf("path = %q, want under %q", path, appDir)
	}
}

func TestCaptureActiveWindowNoWindow(t *testing.T) {
	det := &fakeDetector{err: window.ErrNoActiveWindow}
	m, _ := newTestManager(t, det, &fakeCapturer{}, &fakeScreen{}, &fakeSelector{})

	var failed int
	m.SetErrorCallback(func(string, error) { failed++ })

	if _, err := m.CaptureActiveWindow(Options{}); !errors.Is(err, window.ErrNoActiveWindow) {
		t.Fatalf("err = %v, want ErrNoActiveWindow", err)
	}
	if failed != 1 {
		t.Errorf("error callbacks = %d, want 1", failed)
	}
}

func TestCaptureArea(t *testing.T) {
	snapshot := solidImage(640, 480)
	sel := &fakeSelector{sel: &selector.Selection{
		Rect:     window.Rect{X: 10, Y: 10, Width: 100, Height: 80},
		Snapshot: snapshot,
	}}
	m, _ := newTestManager(t, &fakeDetector{}, &fakeCapturer{}, &fakeScreen{}, sel)

	path, err := m.CaptureArea(Options{})
	if err != nil {
		t.Fatalf("CaptureArea: %v", err)
	}
	if !strings.Contains(path, "area_selection_") {
		t.Errorf("path = %q, want area_selection prefix", path)
	}
	if m.Stats().Area != 1 {
		t.Errorf("area count = %d, want 1", m.Stats().Area)
	}
}

func TestCaptureAreaCanceled(t *testing.T) {
	sel := &fakeSelector{err: selector.ErrCanceled}
	m, _ := newTestManager(t, &fakeDetector{}, &fakeCapturer{}, &fakeScreen{}, sel)

	var completed, failed int
	m.SetCompletionCallback(func(string, string, *window.Info) { completed++ })
	m.SetErrorCallback(func(string, error) { failed++ })

	if _, err := m.CaptureArea(Options{}); !errors.Is(err, selector.ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
	// a canceled selection is a user decision, not a failure
	if completed != 0 || failed != 0 {
		t.Errorf("callbacks completed=%d failed=%d, want none", completed, failed)
	}
	if m.Stats().Errors != 0 {
		t.Errorf("error count = %d, want 0", m.Stats().Errors)
	}
}

func TestCaptureAppFromHistory(t *testing.T) {
	det := &fakeDetector{
		current: &window.Info{Name: "terminal"},
		history: []*window.Info{
			{Name: "firefox", Title: "Old"},
			{Name: "code", Title: "Editor"},
			{Name: "firefox", Title: "New"},
		},
	}
	m, _ := newTestManager(t, det, &fakeCapturer{img: solidImage(64, 48)}, &fakeScreen{}, &fakeSelector{})

	path, err := m.CaptureApp("firefox", Options{})
	if err != nil {
		t.Fatalf("CaptureApp: %v", err)
	}
	// newest matching history entry wins
	if !strings.Contains(path, "firefox_New_") {
		t.Errorf("path = %q, want newest firefox entry", path)
	}
}

func TestCaptureAppNotFound(t *testing.T) {
	det := &fakeDetector{current: &window.Info{Name: "terminal"}}
	m, _ := newTestManager(t, det, &fakeCapturer{}, &fakeScreen{}, &fakeSelector{})

	if _, err := m.CaptureApp("gimp", Options{}); err == nil {
		t.Fatal("expected error for unknown application")
	}
}

func TestCaptureExplicitSavePath(t *testing.T) {
	m, _ := newTestManager(t, &fakeDetector{}, &fakeCapturer{}, &fakeScreen{img: solidImage(64, 48)}, &fakeSelector{})

	want := filepath.Join(t.TempDir(), "shots", "exact.png")
	path, err := m.CaptureFullscreen(Options{SavePath: want})
	if err != nil {
		t.Fatalf("CaptureFullscreen: %v", err)
	}
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
}

func TestCaptureFolderOverride(t *testing.T) {
	det := &fakeDetector{current: &window.Info{Name: "firefox"}}
	m, cfg := newTestManager(t, det, &fakeCapturer{img: solidImage(64, 48)}, &fakeScreen{}, &fakeSelector{})
	cfg.appDirs["firefox"] = t.TempDir()

	// an explicit folder beats the app-linked folder
	override := t.TempDir()
	path, err := m.CaptureActiveWindow(Options{Folder: override})
	if err != nil {
		t.Fatalf("CaptureActiveWindow: %v", err)
	}
	if !strings.HasPrefix(path, override) {
		t.Errorf("path = %q, want under %q", path, override)
	}
}

func TestAutoFilenameDisabledRequiresSavePath(t *testing.T) {
	m, cfg := newTestManager(t, &fakeDetector{}, &fakeCapturer{}, &fakeScreen{img: solidImage(64, 48)}, &fakeSelector{})
	cfg.capture.AutoFilename = false

	var failed int
	m.SetErrorCallback(func(string, error) { failed++ })

	if _, err := m.CaptureFullscreen(Options{}); err == nil {
		t.Fatal("expected error with auto filenames disabled and no save path")
	}
	if failed != 1 {
		t.Errorf("error callbacks = %d, want 1", failed)
	}

	if _, err := m.CaptureFullscreen(Options{SavePath: filepath.Join(t.TempDir(), "out.png")}); err != nil {
		t.Fatalf("explicit save path should still work: %v", err)
	}
}

func TestCaptureDelayAndMemoryOrdering(t *testing.T) {
	m, cfg := newTestManager(t, &fakeDetector{}, &fakeCapturer{}, &fakeScreen{img: solidImage(64, 48)}, &fakeSelector{})
	cfg.capture.DelaySeconds = 3

	var slept time.Duration
	m.sleep = func(d time.Duration) { slept += d }
	opt := &fakeOptimizer{}
	m.mem = opt

	if _, err := m.CaptureFullscreen(Options{}); err != nil {
		t.Fatalf("CaptureFullscreen: %v", err)
	}
	if slept != 3*time.Second {
		t.Errorf("slept = %v, want 3s", slept)
	}
	// memory hint before the grab, cleanup after the save
	if len(opt.calls) != 2 || opt.calls[0] != "optimize" || opt.calls[1] != "cleanup" {
		t.Errorf("optimizer calls = %v, want [optimize cleanup]", opt.calls)
	}
}

func TestNoCleanupOnFailedCapture(t *testing.T) {
	m, _ := newTestManager(t, &fakeDetector{}, &fakeCapturer{}, &fakeScreen{err: errors.New("no display")}, &fakeSelector{})
	opt := &fakeOptimizer{}
	m.mem = opt

	if _, err := m.CaptureFullscreen(Options{}); err == nil {
		t.Fatal("expected capture error")
	}
	if len(opt.calls) != 1 || opt.calls[0] != "optimize" {
		t.Errorf("optimizer calls = %v, want [optimize]", opt.calls)
	}
}

func TestConsecutiveCapturesGetDistinctPaths(t *testing.T) {
	m, _ := newTestManager(t, &fakeDetector{}, &fakeCapturer{}, &fakeScreen{img: solidImage(64, 48)}, &fakeSelector{})

	first, err := m.CaptureFullscreen(Options{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := m.CaptureFullscreen(Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Errorf("paths collide: %q", first)
	}
	if !strings.HasSuffix(second, "_1.png") {
		t.Errorf("second = %q, want _1 suffix", second)
	}
}
