package capture

import (
	"fmt"

	"github.com/bryanchriswhite/snapmaster/internal/window"
)

const (
	// Border estimates applied when grabbing a decorated window as a
	// screen region. Resolved client rectangles already exclude the
	// frame; these only matter when the rectangle still includes it.
	regionBorder   = 8
	regionTitleBar = 30

	// Validation limits for resolved window rectangles
	originTolerance = 50 // windows may hang slightly off-screen
	minWindowSide   = 50 // anything smaller is a stub, not a window
	maxScreenFactor = 2  // reject rects larger than twice the screen
)

// correctedRegion derives the screen rectangle to grab for a window,
// compensating for decorations and clamping to the screen.
func correctedRegion(info *window.Info, screen window.Rect) window.Rect {
	r := info.Rect

	// The X11 backend resolves client rectangles, which already
	// exclude the frame. Only frame-inclusive rectangles from the
	// degraded backend need the estimate stripped.
	if info.FrameRect && !info.Fullscreen {
		r = window.Rect{
			X:      r.X + regionBorder,
			Y:      r.Y + regionTitleBar,
			Width:  r.Width - 2*regionBorder,
			Height: r.Height - regionTitleBar - regionBorder,
		}
	}

	return clampToScreen(r, screen)
}

// clampToScreen intersects r with the screen rectangle
func clampToScreen(r, screen window.Rect) window.Rect {
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.Width, r.Y+r.Height

	if x0 < screen.X {
		x0 = screen.X
	}
	if y0 < screen.Y {
		y0 = screen.Y
	}
	if x1 > screen.X+screen.Width {
		x1 = screen.X + screen.Width
	}
	if y1 > screen.Y+screen.Height {
		y1 = screen.Y + screen.Height
	}

	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}

	return window.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// validateRect rejects window rectangles that cannot be real: far
// off-screen origins, sub-window sizes, or dimensions wildly larger
// than the screen. Such rectangles come from windows mid-animation or
// from stale geometry, and grabbing them produces garbage.
func validateRect(r, screen window.Rect) error {
	if r.X < screen.X-originTolerance || r.Y < screen.Y-originTolerance {
		return fmt.Errorf("window origin (%d,%d) is off-screen", r.X, r.Y)
	}
	if r.Width < minWindowSide || r.Height < minWindowSide {
		return fmt.Errorf("window size %dx%d is too small to capture", r.Width, r.Height)
	}
	if r.Width > screen.Width*maxScreenFactor || r.Height > screen.Height*maxScreenFactor {
		return fmt.Errorf("window size %dx%d exceeds screen bounds", r.Width, r.Height)
	}
	return nil
}
