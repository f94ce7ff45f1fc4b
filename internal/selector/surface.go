package selector

import "image"

// eventKind distinguishes the pointer and key events a surface emits
type eventKind int

const (
	evPress eventKind = iota
	evMove
	evRelease
	evKey
)

// keyAction is the interpreted meaning of a key press
type keyAction int

const (
	keyNone keyAction = iota
	keyConfirm
	keyCancel
)

// inputEvent is one pointer or key event from the overlay surface
type inputEvent struct {
	kind eventKind
	x, y int
	key  keyAction
}

// surface is the overlay the selection runs on. The production
// implementation is an X11 override-redirect window with input grabs;
// tests substitute a scripted fake.
type surface interface {
	// Size reports the overlay dimensions
	Size() (width, height int)

	// Present shows the given frame
	Present(frame *image.RGBA) error

	// NextEvent blocks for the next input event
	NextEvent() (inputEvent, error)

	// Close tears the overlay down and releases grabs
	Close() error
}
