package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bryanchriswhite/snapmaster/internal/logger"
	"gopkg.in/yaml.v3"
)

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "snapmaster")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	}

	if err := os.MkdirAll(filepath.Dir(actualConfigPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
	}

	if err := m.load(); err != nil {
		if os.IsNotExist(err) {
			logger.WithComponent("config").Info().
				Str("path", m.configPath).
				Msg("Config file not found, creating new config")
			m.config = m.getDefaults()
			if err := m.Save(); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	logger.WithComponent("config").Info().
		Str("path", m.configPath).
		Str("default_folder", m.config.Folders.DefaultScreenshots).
		Msg("Config loaded")

	return m, nil
}

// getDefaults returns default configuration
func (m *Manager) getDefaults() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Version:    "1.0.0",
		ServerPort: 8080,
		LogLevel:   "info",
		Folders: FoldersConfig{
			DefaultScreenshots: filepath.Join(homeDir, "Pictures", "SnapMaster"),
			CustomFolders:      map[string]string{},
		},
		Applications: ApplicationsConfig{
			AppFolderMapping: map[string]string{},
			MonitoredApps:    []string{},
		},
		Hotkeys: map[string]string{
			ActionFullscreenCapture: "ctrl+shift+f",
			ActionWindowCapture:     "ctrl+shift+w",
			ActionAreaCapture:       "ctrl+shift+a",
			ActionQuickCapture:      "ctrl+shift+q",
		},
		Capture: CaptureConfig{
			ImageFormat:     "PNG",
			ImageQuality:    95,
			IncludeCursor:   false,
			AutoFilename:    true,
			FilenamePattern: "Screenshot_%Y%m%d_%H%M%S",
			DelaySeconds:    0,
		},
		Memory: MemoryConfig{
			AutoCleanup:          true,
			ThresholdMB:          500,
			CheckIntervalSeconds: 30,
		},
		Advanced: AdvancedConfig{
			BackupSettings: true,
			MaxBackups:     10,
		},
	}
}

// load reads the configuration from disk, merging defaults for missing keys
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := m.getDefaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Save writes the configuration to disk, rotating a backup copy first
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := *m.config
	m.mu.RUnlock()

	if cfg.Advanced.BackupSettings {
		if err := m.backup(cfg.Advanced.MaxBackups); err != nil {
			logger.WithComponent("config").Warn().Err(err).Msg("Config backup failed")
		}
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// backup copies the current config file into a backups directory,
// keeping at most maxBackups timestamped copies.
func (m *Manager) backup(maxBackups int) error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	backupDir := filepath.Join(filepath.Dir(m.configPath), "backups")
	if err := os.MkdirAll(backupDir, 0755); err != nil {
		return err
	}

	name := fmt.Sprintf("config_%s.yaml", time.Now().Format("20060102_150405"))
	if err := os.WriteFile(filepath.Join(backupDir, name), data, 0644); err != nil {
		return err
	}

	if maxBackups <= 0 {
		maxBackups = 10
	}
	entries, err := os.ReadDir(backupDir)
	if err != nil {
		return err
	}
	var backups []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".yaml" {
			backups = append(backups, e.Name())
		}
	}
	sort.Strings(backups)
	for len(backups) > maxBackups {
		os.Remove(filepath.Join(backupDir, backups[0]))
		backups = backups[1:]
	}

	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.config
	return &cfg
}

// Update replaces the configuration and persists it
func (m *Manager) Update(cfg *Config) error {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return m.Save()
}

// GetConfigPath returns the path of the active config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// GetHotkey returns the key combination configured for an action
func (m *Manager) GetHotkey(action string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Hotkeys[action]
}

// SetHotkey updates the key combination for an action
func (m *Manager) SetHotkey(action, hotkey string) error {
	m.mu.Lock()
	if m.config.Hotkeys == nil {
		m.config.Hotkeys = map[string]string{}
	}
	m.config.Hotkeys[action] = hotkey
	m.mu.Unlock()
	return m.Save()
}

// GetDefaultFolder returns the default screenshot destination
func (m *Manager) GetDefaultFolder() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Folders.DefaultScreenshots
}

// GetAppFolder resolves the destination folder configured for an
// application, or "" when the app has no folder association.
func (m *Manager) GetAppFolder(appName string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	folderName, ok := m.config.Applications.AppFolderMapping[appName]
	if !ok {
		return ""
	}
	path, ok := m.config.Folders.CustomFolders[folderName]
	if !ok {
		return ""
	}
	return path
}

// AddCustomFolder registers a named destination folder
func (m *Manager) AddCustomFolder(name, path string) error {
	m.mu.Lock()
	if m.config.Folders.CustomFolders == nil {
		m.config.Folders.CustomFolders = map[string]string{}
	}
	m.config.Folders.CustomFolders[name] = path
	m.mu.Unlock()
	return m.Save()
}

// LinkAppToFolder associates an application with a named folder
func (m *Manager) LinkAppToFolder(appName, folderName string) error {
	m.mu.Lock()
	if _, ok := m.config.Folders.CustomFolders[folderName]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("unknown folder %q", folderName)
	}
	if m.config.Applications.AppFolderMapping == nil {
		m.config.Applications.AppFolderMapping = map[string]string{}
	}
	m.config.Applications.AppFolderMapping[appName] = folderName
	m.mu.Unlock()
	return m.Save()
}

// GetCaptureSettings returns the capture settings
func (m *Manager) GetCaptureSettings() CaptureConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Capture
}

// GetMemorySettings returns the memory manager settings
func (m *Manager) GetMemorySettings() MemoryConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.Memory
}

// SetPort overrides the API server port
func (m *Manager) SetPort(port int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.ServerPort = port
}

// SetLogLevel overrides the log level
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.LogLevel = level
}
