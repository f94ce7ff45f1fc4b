// Package selector implements interactive region selection: the
// screen is frozen into a snapshot, a darkened overlay is shown, and
// dragging reveals the underlying pixels inside the selection
// rectangle. The confirmed rectangle is cut from the frozen snapshot,
// so the result is immune to anything moving on screen mid-selection.
package selector

import (
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/snapmaster/internal/capture"
	"github.com/bryanchriswhite/snapmaster/internal/logger"
	"github.com/bryanchriswhite/snapmaster/internal/window"
)

const (
	// revealThreshold is the drag distance both dimensions must reach
	// before the reveal renders, filtering pointer jitter on click.
	revealThreshold = 5

	// commitMin is the minimum selection side length. Releases below
	// it count as misclicks and reset the drag.
	commitMin = 10
)

var (
	// ErrSelectionInProgress reports that another selection session is
	// already running. Sessions grab the pointer and keyboard, so only
	// one can exist per process.
	ErrSelectionInProgress = errors.New("selection already in progress")

	// ErrCanceled reports that the user dismissed the selection
	ErrCanceled = errors.New("selection canceled")
)

// inProgress is the process-wide session guard
var inProgress atomic.Bool

// Selection is a confirmed region: the rectangle and the frozen
// snapshot it refers to.
type Selection struct {
	Rect     window.Rect
	Snapshot *image.RGBA
}

// Crop cuts the selected rectangle out of the frozen snapshot,
// clamped to the snapshot bounds.
func (s *Selection) Crop() *image.RGBA {
	r := image.Rect(s.Rect.X, s.Rect.Y, s.Rect.X+s.Rect.Width, s.Rect.Y+s.Rect.Height)
	r = r.Intersect(s.Snapshot.Bounds())

	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		srcOff := s.Snapshot.PixOffset(r.Min.X, r.Min.Y+y)
		dstOff := out.PixOffset(0, y)
		copy(out.Pix[dstOff:dstOff+r.Dx()*4], s.Snapshot.Pix[srcOff:srcOff+r.Dx()*4])
	}
	return out
}

// Selector runs interactive region-selection sessions
type Selector struct {
	screen     capture.Screen
	newSurface func(width, height int) (surface, error)
	log        *zerolog.Logger
}

// NewSelector creates a selector that grabs the screen and presents
// the overlay on an X11 surface.
func NewSelector(screen capture.Screen) *Selector {
	return &Selector{
		screen:     screen,
		newSurface: newX11Surface,
		log:        logger.WithComponent("region-selector"),
	}
}

// Select runs one selection session: freeze the screen, show the
// overlay, track the drag, and return the confirmed selection. It
// returns ErrCanceled when the user dismisses the overlay and
// ErrSelectionInProgress when a session is already running.
func (s *Selector) Select() (*Selection, error) {
	if !inProgress.CompareAndSwap(false, true) {
		return nil, ErrSelectionInProgress
	}
	defer inProgress.Store(false)

	snapshot, err := s.screen.FullScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to freeze screen: %w", err)
	}

	surf, err := s.newSurface(snapshot.Bounds().Dx(), snapshot.Bounds().Dy())
	if err != nil {
		return nil, fmt.Errorf("failed to create selection overlay: %w", err)
	}
	defer surf.Close()

	rect, err := s.runSession(surf, snapshot)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("x", rect.Min.X).
		Int("y", rect.Min.Y).
		Int("width", rect.Dx()).
		Int("height", rect.Dy()).
		Msg("Region selected")

	return &Selection{
		Rect: window.Rect{
			X:      rect.Min.X,
			Y:      rect.Min.Y,
			Width:  rect.Dx(),
			Height: rect.Dy(),
		},
		Snapshot: snapshot,
	}, nil
}

// runSession drives the overlay state machine until the user confirms
// a rectangle or cancels.
func (s *Selector) runSession(surf surface, snapshot *image.RGBA) (image.Rectangle, error) {
	dark := darken(snapshot)
	frame := image.NewRGBA(snapshot.Bounds())

	if err := surf.Present(dark); err != nil {
		return image.Rectangle{}, fmt.Errorf("failed to present overlay: %w", err)
	}

	var (
		dragging bool
		anchorX  int
		anchorY  int
		sel      image.Rectangle
		pending  bool
	)

	for {
		ev, err := surf.NextEvent()
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("overlay event stream failed: %w", err)
		}

		switch ev.kind {
		case evPress:
			dragging = true
			pending = false
			anchorX, anchorY = ev.x, ev.y
			sel = image.Rectangle{}

		case evMove:
			if !dragging {
				continue
			}
			r := normalizeRect(anchorX, anchorY, ev.x, ev.y)
			if r.Dx() < revealThreshold || r.Dy() < revealThreshold {
				continue
			}
			sel = r
			renderFrame(frame, dark, snapshot, sel)
			if err := surf.Present(frame); err != nil {
				return image.Rectangle{}, fmt.Errorf("failed to present overlay: %w", err)
			}

		case evRelease:
			if !dragging {
				continue
			}
			dragging = false
			sel = normalizeRect(anchorX, anchorY, ev.x, ev.y)
			if sel.Dx() < commitMin || sel.Dy() < commitMin {
				// misclick: back to the dimmed backdrop
				pending = false
				sel = image.Rectangle{}
				if err := surf.Present(dark); err != nil {
					return image.Rectangle{}, fmt.Errorf("failed to present overlay: %w", err)
				}
				continue
			}
			pending = true
			renderFrame(frame, dark, snapshot, sel)
			if err := surf.Present(frame); err != nil {
				return image.Rectangle{}, fmt.Errorf("failed to present overlay: %w", err)
			}

		case evKey:
			switch ev.key {
			case keyCancel:
				return image.Rectangle{}, ErrCanceled
			case keyConfirm:
				if pending {
					return sel.Intersect(snapshot.Bounds()), nil
				}
			}
		}
	}
}
