package window

import "strings"

// Rect is a window rectangle in screen coordinates
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Info is an immutable snapshot of one foreground window. A new Info is
// built on every detection poll; instances are never mutated after
// construction.
type Info struct {
	Name       string `json:"name"`
	PID        int    `json:"pid"`
	Title      string `json:"title"`
	ExecPath   string `json:"executable_path"`
	Rect       Rect   `json:"rect"`
	Fullscreen bool   `json:"is_fullscreen"`
	// FrameRect marks Rect as still including window decorations,
	// which only degraded backends produce.
	FrameRect  bool   `json:"rect_includes_frame"`
	IsGame     bool   `json:"is_game"`
	IsBrowser  bool   `json:"is_browser"`
	WindowID   uint32 `json:"window_id"` // native window handle, 0 when unavailable
	Class      string `json:"class"`     // native window class, "" when unavailable
}

// Capabilities describes which detection features the active backend
// provides, so callers can adapt behavior instead of assuming parity.
type Capabilities struct {
	WindowDetection     bool `json:"window_detection"`
	FullscreenDetection bool `json:"fullscreen_detection"`
	WindowGeometry      bool `json:"window_geometry"`
	AppClassification   bool `json:"app_classification"`
	PreciseCoordinates  bool `json:"precise_coordinates"`
}

var gameIndicators = []string{
	"game", "steam", "unity", "unreal", "gameoverlay",
	"origin", "uplay", "epicgames", "gog", "minecraft",
}

var browserIndicators = []string{
	"chrome", "firefox", "safari", "edge", "opera", "brave",
	"webkit", "browser",
}

// classify fills the IsGame/IsBrowser flags from case-insensitive
// substring matches against process name and executable path.
func classify(info *Info) {
	name := strings.ToLower(info.Name)
	exe := strings.ToLower(info.ExecPath)

	info.IsGame = matchesAny(name, exe, gameIndicators)
	info.IsBrowser = matchesAny(name, exe, browserIndicators)
}

func matchesAny(name, exe string, indicators []string) bool {
	for _, indicator := range indicators {
		if strings.Contains(name, indicator) || strings.Contains(exe, indicator) {
			return true
		}
	}
	return false
}
