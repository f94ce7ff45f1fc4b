package capture

import (
	"fmt"
	"image"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/bryanchriswhite/snapmaster/internal/logger"
	"github.com/bryanchriswhite/snapmaster/internal/window"
)

// X11Grabber owns the X connection shared by the window strategies.
// It keeps its own connection, separate from detection, so slow
// GetImage round-trips never stall the window poll loop.
type X11Grabber struct {
	conn *xgb.Conn
	root xproto.Window

	compositeOK bool

	mu         sync.Mutex
	redirected map[xproto.Window]bool
}

// NewX11Grabber connects to the X server and initializes the
// Composite extension when present.
func NewX11Grabber() (*X11Grabber, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	g := &X11Grabber{
		conn:       conn,
		root:       xproto.Setup(conn).DefaultScreen(conn).Root,
		redirected: make(map[xproto.Window]bool),
	}

	if err := composite.Init(conn); err != nil {
		logger.WithComponent("x11-grabber").Warn().
			Err(err).
			Msg("Composite extension unavailable, occluded windows cannot be captured")
	} else {
		g.compositeOK = true
	}

	return g, nil
}

// Close releases the X connection
func (g *X11Grabber) Close() error {
	g.conn.Close()
	return nil
}

// targetWindow picks the X window to capture for info. The detector's
// window ID is used when set; otherwise the largest viewable titled
// top-level window belonging to the process is located.
func (g *X11Grabber) targetWindow(info *window.Info) (xproto.Window, error) {
	if info.WindowID != 0 {
		return xproto.Window(info.WindowID), nil
	}
	if info.PID > 0 {
		if win := g.findWindowForPID(info.PID); win != 0 {
			return win, nil
		}
	}
	return 0, fmt.Errorf("no window found for %s", info.Name)
}

// findWindowForPID scans top-level windows for the largest viewable
// one owned by pid. Windows below 100x100 are skipped as utility
// popups rather than application windows.
func (g *X11Grabber) findWindowForPID(pid int) xproto.Window {
	tree, err := xproto.QueryTree(g.conn, g.root).Reply()
	if err != nil {
		return 0
	}

	var best xproto.Window
	bestArea := 0
	for _, child := range tree.Children {
		if g.windowPID(child) != pid {
			continue
		}
		attrs, err := xproto.GetWindowAttributes(g.conn, child).Reply()
		if err != nil || attrs.MapState != xproto.MapStateViewable {
			continue
		}
		geom, err := xproto.GetGeometry(g.conn, xproto.Drawable(child)).Reply()
		if err != nil || geom.Width < 100 || geom.Height < 100 {
			continue
		}
		area := int(geom.Width) * int(geom.Height)
		if area > bestArea {
			best, bestArea = child, area
		}
	}
	return best
}

func (g *X11Grabber) windowPID(win xproto.Window) int {
	atomReply, err := xproto.InternAtom(g.conn, true, uint16(len("_NET_WM_PID")), "_NET_WM_PID").Reply()
	if err != nil || atomReply.Atom == 0 {
		return 0
	}
	reply, err := xproto.GetProperty(
		g.conn, false, win, atomReply.Atom,
		xproto.AtomCardinal, 0, 1,
	).Reply()
	if err != nil || len(reply.Value) < 4 {
		return 0
	}
	return int(uint32(reply.Value[0]) |
		uint32(reply.Value[1])<<8 |
		uint32(reply.Value[2])<<16 |
		uint32(reply.Value[3])<<24)
}

// grabDrawable pulls pixels from a drawable and converts them to RGBA
func (g *X11Grabber) grabDrawable(d xproto.Drawable, width, height uint16) (*image.RGBA, error) {
	reply, err := xproto.GetImage(
		g.conn, xproto.ImageFormatZPixmap, d,
		0, 0, width, height, 0xffffffff,
	).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get image data: %w", err)
	}

	return convertZPixmap(reply.Data, int(width), int(height))
}

// convertZPixmap converts X11 ZPixmap data (BGRX byte order at depth
// 24/32) into an RGBA image.
func convertZPixmap(data []byte, width, height int) (*image.RGBA, error) {
	if len(data) < width*height*4 {
		return nil, fmt.Errorf("short image data: got %d bytes, need %d", len(data), width*height*4)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		src := i * 4
		dst := i * 4
		img.Pix[dst+0] = data[src+2]
		img.Pix[dst+1] = data[src+1]
		img.Pix[dst+2] = data[src+0]
		img.Pix[dst+3] = 0xff
	}
	return img, nil
}

// CompositeStrategy captures a window through the Composite
// extension's off-screen pixmap, which holds correct pixels even when
// the window is partially occluded.
type CompositeStrategy struct {
	grabber *X11Grabber
}

// NewCompositeStrategy wraps the grabber in a composite-backed strategy
func NewCompositeStrategy(g *X11Grabber) *CompositeStrategy {
	return &CompositeStrategy{grabber: g}
}

// Name identifies the strategy
func (s *CompositeStrategy) Name() string {
	return "composite"
}

// Capture grabs the window's redirected pixmap
func (s *CompositeStrategy) Capture(info *window.Info) (*image.RGBA, error) {
	g := s.grabber
	if !g.compositeOK {
		return nil, fmt.Errorf("composite extension not available")
	}

	win, err := g.targetWindow(info)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	if !g.redirected[win] {
		if err := composite.RedirectWindowChecked(g.conn, win, composite.RedirectAutomatic).Check(); err != nil {
			g.mu.Unlock()
			return nil, fmt.Errorf("failed to redirect window: %w", err)
		}
		g.redirected[win] = true
	}
	g.mu.Unlock()

	pixmap, err := xproto.NewPixmapId(g.conn)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate pixmap id: %w", err)
	}
	if err := composite.NameWindowPixmapChecked(g.conn, win, pixmap).Check(); err != nil {
		return nil, fmt.Errorf("failed to name window pixmap: %w", err)
	}
	defer xproto.FreePixmap(g.conn, pixmap)

	geom, err := xproto.GetGeometry(g.conn, xproto.Drawable(pixmap)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get pixmap geometry: %w", err)
	}

	return g.grabDrawable(xproto.Drawable(pixmap), geom.Width, geom.Height)
}

// BackBufferStrategy reads the window drawable directly. Cheaper than
// a composite redirect, but the server only has pixels for the
// visible portion of the window.
type BackBufferStrategy struct {
	grabber *X11Grabber
}

// NewBackBufferStrategy wraps the grabber in a direct-read strategy
func NewBackBufferStrategy(g *X11Grabber) *BackBufferStrategy {
	return &BackBufferStrategy{grabber: g}
}

// Name identifies the strategy
func (s *BackBufferStrategy) Name() string {
	return "backbuffer"
}

// Capture reads the window's drawable contents
func (s *BackBufferStrategy) Capture(info *window.Info) (*image.RGBA, error) {
	g := s.grabber

	win, err := g.targetWindow(info)
	if err != nil {
		return nil, err
	}

	attrs, err := xproto.GetWindowAttributes(g.conn, win).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window attributes: %w", err)
	}
	if attrs.MapState != xproto.MapStateViewable {
		return nil, fmt.Errorf("window is not viewable")
	}

	geom, err := xproto.GetGeometry(g.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get window geometry: %w", err)
	}

	return g.grabDrawable(xproto.Drawable(win), geom.Width, geom.Height)
}
