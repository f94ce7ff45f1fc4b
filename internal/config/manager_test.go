package config

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, path
}

func TestNewManagerCreatesDefaults(t *testing.T) {
	m, path := newTestManager(t)

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	cfg := m.Get()
	if cfg.Capture.ImageFormat != "PNG" || cfg.Capture.ImageQuality != 95 {
		t.Errorf("capture defaults = %+v", cfg.Capture)
	}
	if got := m.GetHotkey(ActionFullscreenCapture); got != "ctrl+shift+f" {
		t.Errorf("fullscreen hotkey = %q", got)
	}
	if !cfg.Memory.AutoCleanup || cfg.Memory.ThresholdMB != 500 {
		t.Errorf("memory defaults = %+v", cfg.Memory)
	}
}

func TestLoadMergesDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "capture_settings:\n  image_format: JPEG\n"
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	cs := m.GetCaptureSettings()
	if cs.ImageFormat != "JPEG" {
		t.Errorf("image format = %q, want JPEG from file", cs.ImageFormat)
	}
	if cs.FilenamePattern != "Screenshot_%Y%m%d_%H%M%S" {
		t.Errorf("filename pattern = %q, want default", cs.FilenamePattern)
	}
}

func TestHotkeyRoundTrip(t *testing.T) {
	m, path := newTestManager(t)

	if err := m.SetHotkey(ActionAreaCapture, "ctrl+alt+s"); err != nil {
		t.Fatalf("SetHotkey: %v", err)
	}

	reloaded, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if got := reloaded.GetHotkey(ActionAreaCapture); got != "ctrl+alt+s" {
		t.Errorf("hotkey after reload = %q, want ctrl+alt+s", got)
	}
}

func TestAppFolderResolution(t *testing.T) {
	m, _ := newTestManager(t)

	if got := m.GetAppFolder("firefox"); got != "" {
		t.Errorf("unmapped app folder = %q, want empty", got)
	}

	if err := m.AddCustomFolder("web", "/data/shots/web"); err != nil {
		t.Fatalf("AddCustomFolder: %v", err)
	}
	if err := m.LinkAppToFolder("firefox", "web"); err != nil {
		t.Fatalf("LinkAppToFolder: %v", err)
	}

	if got := m.GetAppFolder("firefox"); got != "/data/shots/web" {
		t.Errorf("app folder = %q, want /data/shots/web", got)
	}
}

func TestLinkAppRejectsUnknownFolder(t *testing.T) {
	m, _ := newTestManager(t)

	if err := m.LinkAppToFolder("firefox", "nope"); err == nil {
		t.Error("expected error for unknown folder name")
	}
}

func TestSaveWritesBackup(t *testing.T) {
	m, path := newTestManager(t)

	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	backupDir := filepath.Join(filepath.Dir(path), "backups")
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		t.Fatalf("backups dir: %v", err)
	}
	if len(entries) == 0 {
		t.Error("expected at least one backup copy")
	}
}
