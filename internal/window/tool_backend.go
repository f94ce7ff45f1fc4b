package window

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const toolTimeout = 2 * time.Second

// ToolBackend implements Backend by shelling out to xdotool. It is the
// degraded path for environments where a direct X connection is not
// available; geometry comes from parsed text output, so coordinates
// are not guaranteed frame-accurate.
type ToolBackend struct {
	screen Rect
}

// NewToolBackend creates an xdotool-based backend, probing that the
// tool is installed and responsive.
func NewToolBackend() (*ToolBackend, error) {
	out, err := runTool("getdisplaygeometry")
	if err != nil {
		return nil, fmt.Errorf("xdotool unavailable: %w", err)
	}

	screen := Rect{Width: 1920, Height: 1080}
	if fields := strings.Fields(out); len(fields) == 2 {
		if w, err := strconv.Atoi(fields[0]); err == nil {
			screen.Width = w
		}
		if h, err := strconv.Atoi(fields[1]); err == nil {
			screen.Height = h
		}
	}

	return &ToolBackend{screen: screen}, nil
}

// Name returns the backend name
func (b *ToolBackend) Name() string {
	return "xdotool"
}

// Close is a no-op; every call spawns a fresh process
func (b *ToolBackend) Close() error {
	return nil
}

// Capabilities reports reduced support: windows are detected and
// classified, but coordinates come from parsed text output.
func (b *ToolBackend) Capabilities() Capabilities {
	return Capabilities{
		WindowDetection:     true,
		FullscreenDetection: true,
		WindowGeometry:      true,
		AppClassification:   true,
		PreciseCoordinates:  false,
	}
}

// ScreenBounds returns the display rectangle probed at startup
func (b *ToolBackend) ScreenBounds() Rect {
	return b.screen
}

// ActiveWindow returns a snapshot of the current foreground window
func (b *ToolBackend) ActiveWindow() (*Info, error) {
	idOut, err := runTool("getactivewindow")
	if err != nil {
		return nil, ErrNoActiveWindow
	}
	idStr := strings.TrimSpace(idOut)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return nil, ErrNoActiveWindow
	}

	info := &Info{
		WindowID: uint32(id),
		Rect:     defaultRect,
	}

	if out, err := runTool("getwindowname", idStr); err == nil {
		info.Title = strings.TrimSpace(out)
	}

	if out, err := runTool("getwindowpid", idStr); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(out)); err == nil {
			info.PID = pid
		}
	}
	info.Name, info.ExecPath = processInfo(info.PID)

	if out, err := runTool("getwindowgeometry", idStr); err == nil {
		if rect, ok := parseGeometryOutput(out); ok {
			info.Rect = rect
		}
	}

	info.Fullscreen = b.looksFullscreen(info.Rect)
	// xdotool reports outer geometry, decorations included
	info.FrameRect = true

	return info, nil
}

// looksFullscreen applies a size heuristic: a window covering the
// display within tolerance counts as fullscreen. Without a real X
// connection the window-state hints are not visible here.
func (b *ToolBackend) looksFullscreen(rect Rect) bool {
	return absInt(rect.Width-b.screen.Width) <= fullscreenTolerance &&
		absInt(rect.Height-b.screen.Height) <= fullscreenTolerance &&
		absInt(rect.X) <= fullscreenTolerance &&
		absInt(rect.Y) <= fullscreenTolerance
}

// parseGeometryOutput extracts a rectangle from xdotool's
// getwindowgeometry output, which looks like:
//
//	Window 69206019
//	  Position: 104,84 (screen: 0)
//	  Geometry: 1280x720
func parseGeometryOutput(out string) (Rect, bool) {
	var rect Rect
	havePos, haveSize := false, false

	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Position:"):
			val := strings.TrimSpace(strings.TrimPrefix(line, "Position:"))
			if i := strings.Index(val, " "); i >= 0 {
				val = val[:i]
			}
			parts := strings.Split(val, ",")
			if len(parts) != 2 {
				continue
			}
			x, errX := strconv.Atoi(parts[0])
			y, errY := strconv.Atoi(parts[1])
			if errX == nil && errY == nil {
				rect.X, rect.Y = x, y
				havePos = true
			}
		case strings.HasPrefix(line, "Geometry:"):
			val := strings.TrimSpace(strings.TrimPrefix(line, "Geometry:"))
			parts := strings.Split(val, "x")
			if len(parts) != 2 {
				continue
			}
			w, errW := strconv.Atoi(parts[0])
			h, errH := strconv.Atoi(parts[1])
			if errW == nil && errH == nil {
				rect.Width, rect.Height = w, h
				haveSize = true
			}
		}
	}

	return rect, havePos && haveSize
}

func runTool(args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), toolTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "xdotool", args...).Output()
	if err != nil {
		return "", fmt.Errorf("xdotool %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}
