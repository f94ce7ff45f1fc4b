package selector

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// Keysyms recognized by the overlay
const (
	keysymEscape  = 0xff1b
	keysymReturn  = 0xff0d
	keysymKPEnter = 0xff8d
	keysymSpace   = 0x0020
)

// putImageStripRows bounds each PutImage request so a full-screen
// frame never exceeds the server's maximum request size.
const putImageStripRows = 64

// x11Surface is a fullscreen override-redirect window with pointer
// and keyboard grabs. Override-redirect keeps the window manager from
// decorating or restacking the overlay.
type x11Surface struct {
	conn   *xgb.Conn
	win    xproto.Window
	gc     xproto.Gcontext
	depth  byte
	width  int
	height int

	keysyms    []xproto.Keysym
	minKeycode xproto.Keycode
	perKeycode byte

	buf []byte // BGRX staging buffer for PutImage
}

func newX11Surface(width, height int) (surface, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	s := &x11Surface{
		conn:   conn,
		width:  width,
		height: height,
		buf:    make([]byte, width*height*4),
	}

	if err := s.setup(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *x11Surface) setup() error {
	setup := xproto.Setup(s.conn)
	screen := setup.DefaultScreen(s.conn)
	s.depth = screen.RootDepth

	win, err := xproto.NewWindowId(s.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate window id: %w", err)
	}
	s.win = win

	// Value list order follows ascending mask bits:
	// CwBackPixel, CwOverrideRedirect, CwEventMask.
	mask := uint32(xproto.CwBackPixel | xproto.CwOverrideRedirect | xproto.CwEventMask)
	values := []uint32{
		screen.BlackPixel,
		1,
		xproto.EventMaskButtonPress |
			xproto.EventMaskButtonRelease |
			xproto.EventMaskPointerMotion |
			xproto.EventMaskKeyPress |
			xproto.EventMaskExposure,
	}

	err = xproto.CreateWindowChecked(
		s.conn, screen.RootDepth, win, screen.Root,
		0, 0, uint16(s.width), uint16(s.height), 0,
		xproto.WindowClassInputOutput, screen.RootVisual,
		mask, values,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create overlay window: %w", err)
	}

	if err := xproto.MapWindowChecked(s.conn, win).Check(); err != nil {
		return fmt.Errorf("failed to map overlay window: %w", err)
	}

	gc, err := xproto.NewGcontextId(s.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate graphics context: %w", err)
	}
	s.gc = gc
	if err := xproto.CreateGCChecked(s.conn, gc, xproto.Drawable(win), 0, nil).Check(); err != nil {
		return fmt.Errorf("failed to create graphics context: %w", err)
	}

	if err := s.grabInput(); err != nil {
		return err
	}

	return s.loadKeymap(setup)
}

func (s *x11Surface) grabInput() error {
	pointer, err := xproto.GrabPointer(
		s.conn, true, s.win,
		xproto.EventMaskButtonPress|xproto.EventMaskButtonRelease|xproto.EventMaskPointerMotion,
		xproto.GrabModeAsync, xproto.GrabModeAsync,
		s.win, xproto.CursorNone, xproto.TimeCurrentTime,
	).Reply()
	if err != nil {
		return fmt.Errorf("failed to grab pointer: %w", err)
	}
	if pointer.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("pointer grab refused (status %d)", pointer.Status)
	}

	keyboard, err := xproto.GrabKeyboard(
		s.conn, true, s.win, xproto.TimeCurrentTime,
		xproto.GrabModeAsync, xproto.GrabModeAsync,
	).Reply()
	if err != nil {
		return fmt.Errorf("failed to grab keyboard: %w", err)
	}
	if keyboard.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("keyboard grab refused (status %d)", keyboard.Status)
	}

	return nil
}

func (s *x11Surface) loadKeymap(setup *xproto.SetupInfo) error {
	s.minKeycode = setup.MinKeycode
	count := byte(setup.MaxKeycode - setup.MinKeycode + 1)

	reply, err := xproto.GetKeyboardMapping(s.conn, setup.MinKeycode, count).Reply()
	if err != nil {
		return fmt.Errorf("failed to load keyboard mapping: %w", err)
	}

	s.keysyms = reply.Keysyms
	s.perKeycode = reply.KeysymsPerKeycode
	return nil
}

// keysym resolves a keycode to its unshifted keysym
func (s *x11Surface) keysym(code xproto.Keycode) uint32 {
	idx := int(code-s.minKeycode) * int(s.perKeycode)
	if idx < 0 || idx >= len(s.keysyms) {
		return 0
	}
	return uint32(s.keysyms[idx])
}

// Size reports the overlay dimensions
func (s *x11Surface) Size() (int, int) {
	return s.width, s.height
}

// Present pushes a frame to the overlay window in strips
func (s *x11Surface) Present(frame *image.RGBA) error {
	// RGBA to the server's BGRX ZPixmap layout
	for i := 0; i+4 <= len(frame.Pix) && i+4 <= len(s.buf); i += 4 {
		s.buf[i+0] = frame.Pix[i+2]
		s.buf[i+1] = frame.Pix[i+1]
		s.buf[i+2] = frame.Pix[i+0]
		s.buf[i+3] = 0
	}

	rowBytes := s.width * 4
	for y := 0; y < s.height; y += putImageStripRows {
		rows := putImageStripRows
		if y+rows > s.height {
			rows = s.height - y
		}
		data := s.buf[y*rowBytes : (y+rows)*rowBytes]

		err := xproto.PutImageChecked(
			s.conn, xproto.ImageFormatZPixmap, xproto.Drawable(s.win), s.gc,
			uint16(s.width), uint16(rows), 0, int16(y),
			0, s.depth, data,
		).Check()
		if err != nil {
			return fmt.Errorf("failed to draw overlay frame: %w", err)
		}
	}
	return nil
}

// NextEvent blocks for the next pointer or key event, skipping events
// the selection does not care about.
func (s *x11Surface) NextEvent() (inputEvent, error) {
	for {
		ev, err := s.conn.WaitForEvent()
		if err != nil {
			return inputEvent{}, err
		}
		if ev == nil {
			return inputEvent{}, fmt.Errorf("X connection closed")
		}

		switch e := ev.(type) {
		case xproto.ButtonPressEvent:
			if e.Detail == 1 {
				return inputEvent{kind: evPress, x: int(e.EventX), y: int(e.EventY)}, nil
			}
		case xproto.ButtonReleaseEvent:
			if e.Detail == 1 {
				return inputEvent{kind: evRelease, x: int(e.EventX), y: int(e.EventY)}, nil
			}
		case xproto.MotionNotifyEvent:
			return inputEvent{kind: evMove, x: int(e.EventX), y: int(e.EventY)}, nil
		case xproto.KeyPressEvent:
			switch s.keysym(e.Detail) {
			case keysymEscape:
				return inputEvent{kind: evKey, key: keyCancel}, nil
			case keysymReturn, keysymKPEnter, keysymSpace:
				return inputEvent{kind: evKey, key: keyConfirm}, nil
			}
		}
	}
}

// Close releases grabs and destroys the overlay window
func (s *x11Surface) Close() error {
	xproto.UngrabPointer(s.conn, xproto.TimeCurrentTime)
	xproto.UngrabKeyboard(s.conn, xproto.TimeCurrentTime)
	xproto.DestroyWindow(s.conn, s.win)
	s.conn.Close()
	return nil
}
