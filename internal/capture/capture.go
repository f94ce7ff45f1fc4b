// Package capture grabs pixels from the screen and from individual
// windows. Window capture runs through an ordered chain of strategies,
// from the most faithful (compositor-backed pixmap copies that survive
// occlusion) down to a plain screen-region grab, with a fullscreen
// grab as the last resort.
package capture

import (
	"errors"
	"image"

	"github.com/bryanchriswhite/snapmaster/internal/window"
)

// ErrAllStrategiesFailed reports that no capture strategy produced a
// valid image for the requested window.
var ErrAllStrategiesFailed = errors.New("all capture strategies failed")

// Strategy captures a single window's pixels
type Strategy interface {
	// Name identifies the strategy in logs and stats
	Name() string

	// Capture grabs the window's current contents. Implementations
	// return an error rather than a blank or truncated image when
	// they cannot produce faithful pixels.
	Capture(info *window.Info) (*image.RGBA, error)
}

// Screen grabs raw screen pixels
type Screen interface {
	// FullScreen captures the entire virtual screen
	FullScreen() (*image.RGBA, error)

	// Region captures the given screen rectangle
	Region(rect window.Rect) (*image.RGBA, error)

	// Bounds reports the virtual screen rectangle
	Bounds() window.Rect
}
