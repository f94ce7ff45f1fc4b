package window

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xinerama"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/snapmaster/internal/logger"
)

// Geometry correction constants. The maximized inset compensates for
// invisible resize borders some window managers keep around maximized
// frames; the border/title estimates are the fallback when client-area
// coordinate conversion fails.
const (
	maximizedInset    = 8
	estimatedBorder   = 8
	estimatedTitleBar = 30

	fullscreenTolerance = 10
)

// defaultRect is the last-resort geometry when every resolution step
// fails. Detection must stay best-effort and never fail the poll.
var defaultRect = Rect{X: 0, Y: 0, Width: 800, Height: 600}

// X11Backend implements Backend using a native X11 connection
type X11Backend struct {
	conn       *xgb.Conn
	root       xproto.Window
	screen     *xproto.ScreenInfo
	xineramaOK bool

	mu    sync.Mutex
	atoms map[string]xproto.Atom
}

// NewX11Backend creates a new X11 backend
func NewX11Backend() (*X11Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)

	b := &X11Backend{
		conn:   conn,
		root:   screen.Root,
		screen: screen,
		atoms:  make(map[string]xproto.Atom),
	}

	if err := xinerama.Init(conn); err != nil {
		logger.WithComponent("x11-backend").Debug().
			Err(err).
			Msg("Xinerama not available, nearest-monitor checks use the full screen")
	} else {
		b.xineramaOK = true
	}

	return b, nil
}

// Name returns the backend name
func (b *X11Backend) Name() string {
	return "x11"
}

// Close closes the X11 connection
func (b *X11Backend) Close() error {
	b.conn.Close()
	return nil
}

// Capabilities reports full detection support
func (b *X11Backend) Capabilities() Capabilities {
	return Capabilities{
		WindowDetection:     true,
		FullscreenDetection: true,
		WindowGeometry:      true,
		AppClassification:   true,
		PreciseCoordinates:  true,
	}
}

// ScreenBounds returns the root window rectangle
func (b *X11Backend) ScreenBounds() Rect {
	return Rect{
		X:      0,
		Y:      0,
		Width:  int(b.screen.WidthInPixels),
		Height: int(b.screen.HeightInPixels),
	}
}

// ActiveWindow returns a snapshot of the current foreground window
func (b *X11Backend) ActiveWindow() (*Info, error) {
	win := b.activeWindowEWMH()
	if win == 0 {
		focus, err := xproto.GetInputFocus(b.conn).Reply()
		if err != nil {
			return nil, fmt.Errorf("failed to query input focus: %w", err)
		}
		win = focus.Focus
	}

	// Focus value 0 is None, 1 is PointerRoot; neither names a window.
	if win == 0 || win == 1 || win == b.root {
		return nil, ErrNoActiveWindow
	}

	win = b.findClientWindow(win)

	info := &Info{
		WindowID: uint32(win),
	}

	info.Title = b.windowTitle(win)
	info.Class = b.windowClass(win)
	info.PID = b.windowPID(win)
	info.Name, info.ExecPath = processInfo(info.PID)
	info.Rect = b.resolveGeometry(win)
	info.Fullscreen = b.isFullscreen(win, info.Rect)

	return info, nil
}

// activeWindowEWMH reads _NET_ACTIVE_WINDOW from the root window,
// the EWMH way to find the foreground window. Returns 0 on failure.
func (b *X11Backend) activeWindowEWMH() xproto.Window {
	atom, err := b.getAtom("_NET_ACTIVE_WINDOW")
	if err != nil {
		return 0
	}

	reply, err := xproto.GetProperty(
		b.conn, false, b.root, atom,
		xproto.AtomWindow, 0, 1,
	).Reply()
	if err != nil || len(reply.Value) < 4 {
		return 0
	}

	return xproto.Window(uint32(reply.Value[0]) |
		uint32(reply.Value[1])<<8 |
		uint32(reply.Value[2])<<16 |
		uint32(reply.Value[3])<<24)
}

// findClientWindow walks up from a (possibly nested) focus window to
// the client window carrying WM_CLASS or a PID.
func (b *X11Backend) findClientWindow(win xproto.Window) xproto.Window {
	current := win
	for i := 0; i < 10; i++ {
		if b.windowClass(current) != "" || b.windowPID(current) != 0 {
			return current
		}

		tree, err := xproto.QueryTree(b.conn, current).Reply()
		if err != nil || tree.Parent == 0 || tree.Parent == tree.Root {
			break
		}
		current = tree.Parent
	}
	return win
}

// resolveGeometry resolves the window rectangle using the best
// available method, falling back rather than failing:
//  1. borderless/popup windows use the raw rectangle as-is
//  2. maximized windows get a fixed inset subtracted
//  3. decorated windows prefer the client area (excludes title bar),
//     with an estimated decoration offset when the coordinate
//     conversion fails
//  4. anything else falls back to the outer rectangle, then defaultRect
func (b *X11Backend) resolveGeometry(win xproto.Window) Rect {
	if b.isBorderless(win) {
		if r, err := b.outerRect(win); err == nil {
			return r
		}
		return defaultRect
	}

	if b.isMaximized(win) {
		if r, err := b.outerRect(win); err == nil {
			return Rect{
				X:      r.X + maximizedInset,
				Y:      r.Y + maximizedInset,
				Width:  maxInt(0, r.Width-2*maximizedInset),
				Height: maxInt(0, r.Height-2*maximizedInset),
			}
		}
		return defaultRect
	}

	if r, err := b.clientRect(win); err == nil {
		return r
	}

	if r, err := b.outerRect(win); err == nil {
		return Rect{
			X:      r.X + estimatedBorder,
			Y:      r.Y + estimatedTitleBar,
			Width:  maxInt(0, r.Width-2*estimatedBorder),
			Height: maxInt(0, r.Height-estimatedTitleBar-estimatedBorder),
		}
	}

	return defaultRect
}

// clientRect converts the client-area origin to root coordinates. Under
// a reparenting window manager the client window's own geometry is the
// client area, excluding the frame.
func (b *X11Backend) clientRect(win xproto.Window) (Rect, error) {
	geom, err := xproto.GetGeometry(b.conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return Rect{}, fmt.Errorf("failed to get window geometry: %w", err)
	}

	tr, err := xproto.TranslateCoordinates(b.conn, win, b.root, 0, 0).Reply()
	if err != nil {
		return Rect{}, fmt.Errorf("failed to translate coordinates: %w", err)
	}

	return Rect{
		X:      int(tr.DstX),
		Y:      int(tr.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, nil
}

// outerRect is the client rectangle grown by the window manager's frame
// extents, when it advertises them.
func (b *X11Backend) outerRect(win xproto.Window) (Rect, error) {
	r, err := b.clientRect(win)
	if err != nil {
		return Rect{}, err
	}

	left, right, top, bottom, ok := b.frameExtents(win)
	if !ok {
		return r, nil
	}

	return Rect{
		X:      r.X - left,
		Y:      r.Y - top,
		Width:  r.Width + left + right,
		Height: r.Height + top + bottom,
	}, nil
}

// frameExtents reads _NET_FRAME_EXTENTS (left, right, top, bottom)
func (b *X11Backend) frameExtents(win xproto.Window) (left, right, top, bottom int, ok bool) {
	atom, err := b.getAtom("_NET_FRAME_EXTENTS")
	if err != nil {
		return 0, 0, 0, 0, false
	}

	reply, err := xproto.GetProperty(
		b.conn, false, win, atom,
		xproto.AtomCardinal, 0, 4,
	).Reply()
	if err != nil || len(reply.Value) < 16 {
		return 0, 0, 0, 0, false
	}

	vals := make([]int, 4)
	for i := 0; i < 4; i++ {
		vals[i] = int(uint32(reply.Value[i*4]) |
			uint32(reply.Value[i*4+1])<<8 |
			uint32(reply.Value[i*4+2])<<16 |
			uint32(reply.Value[i*4+3])<<24)
	}
	return vals[0], vals[1], vals[2], vals[3], true
}

// borderlessTypes are EWMH window types that never carry decorations,
// typical of fullscreen games and overlays.
var borderlessTypes = []string{
	"_NET_WM_WINDOW_TYPE_DOCK",
	"_NET_WM_WINDOW_TYPE_SPLASH",
	"_NET_WM_WINDOW_TYPE_NOTIFICATION",
	"_NET_WM_WINDOW_TYPE_POPUP_MENU",
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU",
	"_NET_WM_WINDOW_TYPE_TOOLTIP",
	"_NET_WM_WINDOW_TYPE_COMBO",
}

// isBorderless reports whether the window has a popup/no-border style
func (b *X11Backend) isBorderless(win xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(b.conn, win).Reply()
	if err == nil && attrs.OverrideRedirect {
		return true
	}

	types := b.atomListProperty(win, "_NET_WM_WINDOW_TYPE")
	for _, t := range types {
		for _, name := range borderlessTypes {
			if atom, err := b.getAtom(name); err == nil && t == atom {
				return true
			}
		}
	}
	return false
}

// isMaximized reports whether the window is maximized in both axes
func (b *X11Backend) isMaximized(win xproto.Window) bool {
	return b.hasState(win, "_NET_WM_STATE_MAXIMIZED_VERT") &&
		b.hasState(win, "_NET_WM_STATE_MAXIMIZED_HORZ")
}

// hasState checks whether _NET_WM_STATE contains the named state atom
func (b *X11Backend) hasState(win xproto.Window, stateName string) bool {
	state, err := b.getAtom(stateName)
	if err != nil {
		return false
	}
	for _, a := range b.atomListProperty(win, "_NET_WM_STATE") {
		if a == state {
			return true
		}
	}
	return false
}

// isFullscreen classifies the window as fullscreen when its rectangle
// matches the nearest monitor within tolerance, or when the window
// style is borderless/popup. The two-pronged test covers both legacy
// exclusive-fullscreen and modern borderless-fullscreen applications.
func (b *X11Backend) isFullscreen(win xproto.Window, rect Rect) bool {
	if b.hasState(win, "_NET_WM_STATE_FULLSCREEN") {
		return true
	}
	if b.isBorderless(win) {
		return true
	}

	mon := b.nearestMonitor(rect)
	if mon.Width == 0 || mon.Height == 0 {
		return false
	}

	sizeMatch := absInt(rect.Width-mon.Width) <= fullscreenTolerance &&
		absInt(rect.Height-mon.Height) <= fullscreenTolerance
	originMatch := absInt(rect.X-mon.X) <= fullscreenTolerance &&
		absInt(rect.Y-mon.Y) <= fullscreenTolerance

	return sizeMatch && originMatch
}

// nearestMonitor returns the monitor whose center is closest to the
// window's center, falling back to the full screen bounds when
// Xinerama is unavailable.
func (b *X11Backend) nearestMonitor(rect Rect) Rect {
	if !b.xineramaOK {
		return b.ScreenBounds()
	}

	reply, err := xinerama.QueryScreens(b.conn).Reply()
	if err != nil || len(reply.ScreenInfo) == 0 {
		return b.ScreenBounds()
	}

	winCX := rect.X + rect.Width/2
	winCY := rect.Y + rect.Height/2

	best := Rect{}
	bestDist := -1
	for _, s := range reply.ScreenInfo {
		mon := Rect{
			X:      int(s.XOrg),
			Y:      int(s.YOrg),
			Width:  int(s.Width),
			Height: int(s.Height),
		}
		monCX := mon.X + mon.Width/2
		monCY := mon.Y + mon.Height/2
		dx := winCX - monCX
		dy := winCY - monCY
		dist := dx*dx + dy*dy
		if bestDist < 0 || dist < bestDist {
			best = mon
			bestDist = dist
		}
	}
	return best
}

// windowTitle reads _NET_WM_NAME with a WM_NAME fallback
func (b *X11Backend) windowTitle(win xproto.Window) string {
	if title, err := b.stringProperty(win, "_NET_WM_NAME"); err == nil && title != "" {
		return title
	}
	if title, err := b.stringProperty(win, "WM_NAME"); err == nil {
		return title
	}
	return ""
}

// windowClass reads WM_CLASS. Its format is instance\0class\0; the
// class (second string) identifies the application.
func (b *X11Backend) windowClass(win xproto.Window) string {
	raw, err := b.stringProperty(win, "WM_CLASS")
	if err != nil {
		return ""
	}
	parts := strings.Split(raw, "\x00")
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	if len(parts) >= 1 {
		return parts[0]
	}
	return ""
}

// windowPID reads _NET_WM_PID, returning 0 when absent
func (b *X11Backend) windowPID(win xproto.Window) int {
	atom, err := b.getAtom("_NET_WM_PID")
	if err != nil {
		return 0
	}

	reply, err := xproto.GetProperty(
		b.conn, false, win, atom,
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

// processInfo resolves the process name and executable path for a PID.
// When the process has exited or access is denied between the window
// lookup and this call, it reports placeholder values instead of
// failing the detection.
func processInfo(pid int) (name, execPath string) {
	name = "Unknown"
	if pid <= 0 {
		return name, ""
	}

	if comm, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid)); err == nil {
		if trimmed := strings.TrimSpace(string(comm)); trimmed != "" {
			name = trimmed
		}
	}

	if exe, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid)); err == nil {
		execPath = exe
	}

	return name, execPath
}

// getAtom gets an atom ID by name, caching lookups
func (b *X11Backend) getAtom(name string) (xproto.Atom, error) {
	b.mu.Lock()
	if atom, ok := b.atoms[name]; ok {
		b.mu.Unlock()
		return atom, nil
	}
	b.mu.Unlock()

	reply, err := xproto.InternAtom(b.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	b.atoms[name] = reply.Atom
	b.mu.Unlock()
	return reply.Atom, nil
}

// stringProperty gets a property value as a string
func (b *X11Backend) stringProperty(win xproto.Window, name string) (string, error) {
	atom, err := b.getAtom(name)
	if err != nil {
		return "", err
	}

	reply, err := xproto.GetProperty(
		b.conn, false, win, atom,
		xproto.GetPropertyTypeAny, 0, (1<<32)-1,
	).Reply()
	if err != nil {
		return "", err
	}
	if reply.ValueLen == 0 {
		return "", fmt.Errorf("empty property %s", name)
	}

	return string(reply.Value), nil
}

// atomListProperty gets a property value as a list of atoms
func (b *X11Backend) atomListProperty(win xproto.Window, name string) []xproto.Atom {
	atom, err := b.getAtom(name)
	if err != nil {
		return nil
	}

	reply, err := xproto.GetProperty(
		b.conn, false, win, atom,
		xproto.AtomAtom, 0, 32,
	).Reply()
	if err != nil {
		return nil
	}

	atoms := make([]xproto.Atom, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		atoms = append(atoms, xproto.Atom(uint32(reply.Value[i])|
			uint32(reply.Value[i+1])<<8|
			uint32(reply.Value[i+2])<<16|
			uint32(reply.Value[i+3])<<24))
	}
	return atoms
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
