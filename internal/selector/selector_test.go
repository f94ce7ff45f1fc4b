package selector

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/bryanchriswhite/snapmaster/internal/window"
)

type scriptedSurface struct {
	width, height int
	events        []inputEvent
	next          int
	presented     int
	closed        bool
}

func (s *scriptedSurface) Size() (int, int) { return s.width, s.height }
func (s *scriptedSurface) Present(*image.RGBA) error {
	s.presented++
	return nil
}
func (s *scriptedSurface) NextEvent() (inputEvent, error) {
	if s.next >= len(s.events) {
		return inputEvent{}, errors.New("event script exhausted")
	}
	ev := s.events[s.next]
	s.next++
	return ev, nil
}
func (s *scriptedSurface) Close() error {
	s.closed = true
	return nil
}

type stubScreen struct {
	img *image.RGBA
}

func (s *stubScreen) FullScreen() (*image.RGBA, error) { return s.img, nil }
func (s *stubScreen) Region(window.Rect) (*image.RGBA, error) {
	return nil, errors.New("not used")
}
func (s *stubScreen) Bounds() window.Rect {
	b := s.img.Bounds()
	return window.Rect{Width: b.Dx(), Height: b.Dy()}
}

func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 99, 255})
		}
	}
	return img
}

func newTestSelector(surf *scriptedSurface, screenImg *image.RGBA) *Selector {
	s := NewSelector(&stubScreen{img: screenImg})
	s.newSurface = func(w, h int) (surface, error) {
		surf.width, surf.height = w, h
		return surf, nil
	}
	return s
}

func TestSelectConfirmedDrag(t *testing.T) {
	surf := &scriptedSurface{events: []inputEvent{
		{kind: evPress, x: 40, y: 50},
		{kind: evMove, x: 120, y: 90},
		{kind: evMove, x: 200, y: 150},
		{kind: evRelease, x: 200, y: 150},
		{kind: evKey, key: keyConfirm},
	}}
	s := newTestSelector(surf, gradientImage(640, 480))

	sel, err := s.Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	want := window.Rect{X: 40, Y: 50, Width: 160, Height: 100}
	if sel.Rect != want {
		t.Errorf("rect = %+v, want %+v", sel.Rect, want)
	}
	if sel.Snapshot == nil {
		t.Fatal("expected the frozen snapshot on the selection")
	}
	if !surf.closed {
		t.Error("surface should be closed after the session")
	}
}

func TestSelectReverseDragNormalizes(t *testing.T) {
	surf := &scriptedSurface{events: []inputEvent{
		{kind: evPress, x: 200, y: 150},
		{kind: evMove, x: 40, y: 50},
		{kind: evRelease, x: 40, y: 50},
		{kind: evKey, key: keyConfirm},
	}}
	s := newTestSelector(surf, gradientImage(640, 480))

	sel, err := s.Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := window.Rect{X: 40, Y: 50, Width: 160, Height: 100}
	if sel.Rect != want {
		t.Errorf("rect = %+v, want %+v", sel.Rect, want)
	}
}

func TestSelectRevealNeedsBothDimensions(t *testing.T) {
	surf := &scriptedSurface{events: []inputEvent{
		{kind: evPress, x: 10, y: 10},
		// wide but flat: one dimension under the threshold
		{kind: evMove, x: 200, y: 12},
		{kind: evKey, key: keyCancel},
	}}
	s := newTestSelector(surf, gradientImage(640, 480))

	if _, err := s.Select(); !errors.Is(err, ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
	// only the initial dimmed backdrop, never a reveal frame
	if surf.presented != 1 {
		t.Errorf("presented = %d, want 1", surf.presented)
	}
}

func TestSelectEscapeCancels(t *testing.T) {
	surf := &scriptedSurface{events: []inputEvent{
		{kind: evPress, x: 10, y: 10},
		{kind: evMove, x: 100, y: 100},
		{kind: evKey, key: keyCancel},
	}}
	s := newTestSelector(surf, gradientImage(640, 480))

	if _, err := s.Select(); !errors.Is(err, ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
	if !surf.closed {
		t.Error("surface should be closed after cancel")
	}
}

func TestSelectMisclickResetsDrag(t *testing.T) {
	surf := &scriptedSurface{events: []inputEvent{
		// first drag is below the minimum size
		{kind: evPress, x: 10, y: 10},
		{kind: evRelease, x: 15, y: 14},
		// confirm does nothing without a pending selection
		{kind: evKey, key: keyConfirm},
		// second drag commits
		{kind: evPress, x: 20, y: 20},
		{kind: evMove, x: 100, y: 120},
		{kind: evRelease, x: 100, y: 120},
		{kind: evKey, key: keyConfirm},
	}}
	s := newTestSelector(surf, gradientImage(640, 480))

	sel, err := s.Select()
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	want := window.Rect{X: 20, Y: 20, Width: 80, Height: 100}
	if sel.Rect != want {
		t.Errorf("rect = %+v, want %+v", sel.Rect, want)
	}
}

func TestSelectGuardRejectsConcurrentSession(t *testing.T) {
	if !inProgress.CompareAndSwap(false, true) {
		t.Fatal("guard unexpectedly held")
	}
	defer inProgress.Store(false)

	s := NewSelector(&stubScreen{img: gradientImage(64, 64)})
	if _, err := s.Select(); !errors.Is(err, ErrSelectionInProgress) {
		t.Fatalf("err = %v, want ErrSelectionInProgress", err)
	}
}

func TestSelectionCropStaysInBounds(t *testing.T) {
	snapshot := gradientImage(200, 100)
	sel := &Selection{
		Rect:     window.Rect{X: 150, Y: 60, Width: 100, Height: 100},
		Snapshot: snapshot,
	}

	cropped := sel.Crop()
	if cropped.Bounds().Dx() != 50 || cropped.Bounds().Dy() != 40 {
		t.Errorf("crop = %dx%d, want 50x40", cropped.Bounds().Dx(), cropped.Bounds().Dy())
	}

	// pixels come from the frozen snapshot
	got := cropped.RGBAAt(0, 0)
	want := snapshot.RGBAAt(150, 60)
	if got != want {
		t.Errorf("pixel = %+v, want %+v", got, want)
	}
}

func TestSelectionCropExact(t *testing.T) {
	snapshot := gradientImage(300, 300)
	sel := &Selection{
		Rect:     window.Rect{X: 10, Y: 20, Width: 30, Height: 40},
		Snapshot: snapshot,
	}

	cropped := sel.Crop()
	if cropped.Bounds().Dx() != 30 || cropped.Bounds().Dy() != 40 {
		t.Fatalf("crop = %dx%d, want 30x40", cropped.Bounds().Dx(), cropped.Bounds().Dy())
	}
	if cropped.RGBAAt(29, 39) != snapshot.RGBAAt(39, 59) {
		t.Error("bottom-right pixel does not match the snapshot")
	}
}
