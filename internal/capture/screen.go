package capture

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"github.com/bryanchriswhite/snapmaster/internal/window"
)

// DisplayScreen implements Screen over the local displays
type DisplayScreen struct{}

// NewDisplayScreen creates a screen grabber, verifying a display is
// reachable.
func NewDisplayScreen() (*DisplayScreen, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, fmt.Errorf("no active displays")
	}
	return &DisplayScreen{}, nil
}

// Bounds returns the union of all display rectangles
func (s *DisplayScreen) Bounds() window.Rect {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return window.Rect{}
	}

	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}

	return window.Rect{
		X:      union.Min.X,
		Y:      union.Min.Y,
		Width:  union.Dx(),
		Height: union.Dy(),
	}
}

// FullScreen captures the whole virtual screen, spanning every
// display.
func (s *DisplayScreen) FullScreen() (*image.RGBA, error) {
	b := s.Bounds()
	img, err := screenshot.CaptureRect(image.Rect(
		b.X, b.Y, b.X+b.Width, b.Y+b.Height,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen: %w", err)
	}
	return img, nil
}

// Region captures the given screen rectangle
func (s *DisplayScreen) Region(rect window.Rect) (*image.RGBA, error) {
	if rect.Width <= 0 || rect.Height <= 0 {
		return nil, fmt.Errorf("invalid capture region %dx%d", rect.Width, rect.Height)
	}

	img, err := screenshot.CaptureRect(image.Rect(
		rect.X, rect.Y, rect.X+rect.Width, rect.Y+rect.Height,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to capture region: %w", err)
	}
	return img, nil
}
