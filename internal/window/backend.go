package window

import "errors"

// ErrNoActiveWindow indicates no window currently has focus. This is a
// normal, expected state (e.g. the desktop is focused), not a failure.
var ErrNoActiveWindow = errors.New("no active window")

// Backend defines the interface for foreground-window discovery
// backends (X11, xdotool subprocess, etc.)
type Backend interface {
	// ActiveWindow returns a snapshot of the current foreground
	// window. Returns ErrNoActiveWindow when nothing has focus.
	ActiveWindow() (*Info, error)

	// ScreenBounds returns the full screen rectangle, or a zero rect
	// when it cannot be determined.
	ScreenBounds() Rect

	// Capabilities reports which detection features this backend
	// provides on the current platform.
	Capabilities() Capabilities

	// Close releases the backend's connection to the display server
	Close() error

	// Name returns the backend name (e.g. "x11", "xdotool")
	Name() string
}

// NewBackend selects the richest available backend: the native X11
// backend when a display connection can be established, otherwise the
// xdotool subprocess backend with reduced capabilities.
func NewBackend() (Backend, error) {
	if b, err := NewX11Backend(); err == nil {
		return b, nil
	}
	return NewToolBackend()
}
