// Package screenshot orchestrates captures end to end: delay, memory
// preparation, pixel acquisition, filename resolution, and encoding,
// with completion and error callbacks for the embedding surface (CLI,
// hotkeys, HTTP API).
package screenshot

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bryanchriswhite/snapmaster/internal/capture"
	"github.com/bryanchriswhite/snapmaster/internal/config"
	"github.com/bryanchriswhite/snapmaster/internal/logger"
	"github.com/bryanchriswhite/snapmaster/internal/selector"
	"github.com/bryanchriswhite/snapmaster/internal/window"
)

// Capture type tags, used for callbacks and default filename prefixes.
const (
	TypeFullscreen = "fullscreen"
	TypeWindow     = "window"
	TypeArea       = "area_selection"
	TypeApp        = "app"
)

// appDetector is the slice of the window detector the manager needs
type appDetector interface {
	CurrentApp(useCache bool) (*window.Info, error)
	History() []*window.Info
}

// windowCapturer captures a single window's pixels
type windowCapturer interface {
	CaptureWindow(info *window.Info) (*image.RGBA, string, error)
}

// regionSelector runs an interactive region selection
type regionSelector interface {
	Select() (*selector.Selection, error)
}

// settings is the slice of configuration the manager reads
type settings interface {
	GetCaptureSettings() config.CaptureConfig
	GetDefaultFolder() string
	GetAppFolder(appName string) string
}

// optimizer prepares the process for an imminent large allocation and
// releases memory once the capture is done
type optimizer interface {
	OptimizeForScreenshots()
	ForceCleanup()
}

// Options carries per-capture overrides. SavePath names the exact
// output file and bypasses filename resolution entirely; Folder
// redirects the output to a specific directory. Both default to the
// configured behavior when empty.
type Options struct {
	SavePath string
	Folder   string
}

// CompletionCallback receives the capture type, the saved file path,
// and the captured window (nil for fullscreen and area captures).
type CompletionCallback func(captureType, path string, info *window.Info)

// ErrorCallback receives the capture type and the failure when a
// capture cannot complete.
type ErrorCallback func(captureType string, err error)

// Stats counts capture outcomes
type Stats struct {
	Fullscreen int       `json:"fullscreen"`
	Window     int       `json:"window"`
	Area       int       `json:"area"`
	App        int       `json:"app"`
	Errors     int       `json:"errors"`
	LastPath   string    `json:"last_path,omitempty"`
	LastTime   time.Time `json:"last_time,omitempty"`
}

// Manager coordinates screenshot captures
type Manager struct {
	detector appDetector
	windows  windowCapturer
	screen   capture.Screen
	selector regionSelector
	cfg      settings
	mem      optimizer
	log      *zerolog.Logger

	// replaceable for tests
	clock func() time.Time
	sleep func(time.Duration)

	mu         sync.Mutex
	onComplete CompletionCallback
	onError    ErrorCallback
	stats      Stats
}

// NewManager wires a capture manager over its collaborators. mem may
// be nil when memory management is disabled.
func NewManager(detector appDetector, windows windowCapturer, screen capture.Screen, sel regionSelector, cfg settings, mem optimizer) *Manager {
	return &Manager{
		detector: detector,
		windows:  windows,
		screen:   screen,
		selector: sel,
		cfg:      cfg,
		mem:      mem,
		log:      logger.WithComponent("screenshot-manager"),
		clock:    time.Now,
		sleep:    time.Sleep,
	}
}

// SetCompletionCallback registers the callback invoked after each
// successful capture.
func (m *Manager) SetCompletionCallback(cb CompletionCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onComplete = cb
}

// SetErrorCallback registers the callback invoked when a capture fails
func (m *Manager) SetErrorCallback(cb ErrorCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onError = cb
}

// Stats returns a copy of the capture counters
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// CaptureFullscreen captures the whole virtual screen
func (m *Manager) CaptureFullscreen(opts Options) (string, error) {
	return m.run(&m.stats.Fullscreen, TypeFullscreen, TypeFullscreen, nil, opts, func() (image.Image, error) {
		return m.screen.FullScreen()
	})
}

// CaptureActiveWindow captures the current foreground window. The
// output name carries the application and window title, and a folder
// linked to the application overrides the default output folder.
func (m *Manager) CaptureActiveWindow(opts Options) (string, error) {
	info, err := m.detector.CurrentApp(true)
	if err != nil {
		m.fail(TypeWindow, err)
		return "", err
	}
	return m.captureWindow(&m.stats.Window, TypeWindow, info, opts)
}

// CaptureArea runs interactive region selection and saves the chosen
// rectangle from the frozen snapshot. A canceled selection is not a
// failure: no callback fires and no error is counted.
func (m *Manager) CaptureArea(opts Options) (string, error) {
	return m.run(&m.stats.Area, TypeArea, TypeArea, nil, opts, func() (image.Image, error) {
		sel, err := m.selector.Select()
		if err != nil {
			return nil, err
		}
		return sel.Crop(), nil
	})
}

// CaptureApp captures a window belonging to the named application,
// matched case-insensitively against the current foreground window
// and the detection history, newest first.
func (m *Manager) CaptureApp(appName string, opts Options) (string, error) {
	info, err := m.findApp(appName)
	if err != nil {
		m.fail(TypeApp, err)
		return "", err
	}
	return m.captureWindow(&m.stats.App, TypeApp, info, opts)
}

func (m *Manager) findApp(appName string) (*window.Info, error) {
	needle := strings.ToLower(appName)

	if info, err := m.detector.CurrentApp(true); err == nil {
		if strings.Contains(strings.ToLower(info.Name), needle) {
			return info, nil
		}
	}

	history := m.detector.History()
	for i := len(history) - 1; i >= 0; i-- {
		if strings.Contains(strings.ToLower(history[i].Name), needle) {
			return history[i], nil
		}
	}

	return nil, fmt.Errorf("no window found for application %q", appName)
}

func (m *Manager) captureWindow(counter *int, captureType string, info *window.Info, opts Options) (string, error) {
	prefix := info.Name
	if info.Title != "" {
		prefix += "_" + info.Title
	}
	if opts.Folder == "" {
		opts.Folder = m.cfg.GetAppFolder(info.Name)
	}

	return m.run(counter, captureType, prefix, info, opts, func() (image.Image, error) {
		img, method, err := m.windows.CaptureWindow(info)
		if err != nil {
			return nil, err
		}
		m.log.Debug().
			Str("app", info.Name).
			Str("method", method).
			Msg("Window captured")
		return img, nil
	})
}

// run executes one capture: delay, memory hint, acquisition, save,
// cleanup. Exactly one of the completion and error callbacks fires
// per call.
func (m *Manager) run(counter *int, captureType, prefix string, info *window.Info, opts Options, grab func() (image.Image, error)) (string, error) {
	cs := m.cfg.GetCaptureSettings()

	if cs.DelaySeconds > 0 {
		m.sleep(time.Duration(cs.DelaySeconds) * time.Second)
	}

	if m.mem != nil {
		m.mem.OptimizeForScreenshots()
	}

	img, err := grab()
	if errors.Is(err, selector.ErrCanceled) {
		m.log.Info().Str("type", captureType).Msg("Selection canceled")
		return "", err
	}
	if err != nil {
		m.fail(captureType, err)
		return "", err
	}

	path, err := m.save(img, prefix, opts, cs)
	if err != nil {
		m.fail(captureType, err)
		return "", err
	}

	if m.mem != nil {
		m.mem.ForceCleanup()
	}

	m.mu.Lock()
	*counter++
	m.stats.LastPath = path
	m.stats.LastTime = m.clock()
	cb := m.onComplete
	m.mu.Unlock()

	m.log.Info().Str("type", captureType).Str("path", path).Msg("Screenshot saved")
	if cb != nil {
		cb(captureType, path, info)
	}
	return path, nil
}

func (m *Manager) save(img image.Image, prefix string, opts Options, cs config.CaptureConfig) (string, error) {
	format := ParseFormat(cs.ImageFormat)

	var path string
	switch {
	case opts.SavePath != "":
		path = opts.SavePath
	case !cs.AutoFilename:
		return "", fmt.Errorf("automatic filenames are disabled and no save path was given")
	default:
		dir := opts.Folder
		if dir == "" {
			dir = m.cfg.GetDefaultFolder()
		}
		path = resolvePath(dir, prefix, cs.FilenamePattern, format, m.clock())
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %w", err)
	}
	return saveImage(path, img, format, cs.ImageQuality)
}

// fail records the error and fires the error callback
func (m *Manager) fail(captureType string, err error) {
	m.mu.Lock()
	m.stats.Errors++
	cb := m.onError
	m.mu.Unlock()

	m.log.Error().Str("type", captureType).Err(err).Msg("Capture failed")
	if cb != nil {
		cb(captureType, err)
	}
}
