package config

// CaptureConfig holds the image capture settings
type CaptureConfig struct {
	ImageFormat     string `json:"image_format" yaml:"image_format"`
	ImageQuality    int    `json:"image_quality" yaml:"image_quality"`
	IncludeCursor   bool   `json:"include_cursor" yaml:"include_cursor"`
	AutoFilename    bool   `json:"auto_filename" yaml:"auto_filename"`
	FilenamePattern string `json:"filename_pattern" yaml:"filename_pattern"`
	DelaySeconds    int    `json:"delay_seconds" yaml:"delay_seconds"`
}

// FoldersConfig holds the destination folder settings
type FoldersConfig struct {
	DefaultScreenshots string            `json:"default_screenshots" yaml:"default_screenshots"`
	CustomFolders      map[string]string `json:"custom_folders" yaml:"custom_folders"`
}

// ApplicationsConfig maps application names to named custom folders
type ApplicationsConfig struct {
	AppFolderMapping map[string]string `json:"app_folder_mapping" yaml:"app_folder_mapping"`
	MonitoredApps    []string          `json:"monitored_apps" yaml:"monitored_apps"`
}

// MemoryConfig holds the memory manager settings
type MemoryConfig struct {
	AutoCleanup          bool `json:"auto_cleanup" yaml:"auto_cleanup"`
	ThresholdMB          int  `json:"memory_threshold_mb" yaml:"memory_threshold_mb"`
	CheckIntervalSeconds int  `json:"cleanup_interval_seconds" yaml:"cleanup_interval_seconds"`
}

// AdvancedConfig holds settings that rarely change
type AdvancedConfig struct {
	BackupSettings bool `json:"backup_settings" yaml:"backup_settings"`
	MaxBackups     int  `json:"max_backups" yaml:"max_backups"`
}

// Config represents the application configuration
type Config struct {
	Version      string             `json:"version" yaml:"version"`
	ServerPort   int                `json:"server_port" yaml:"server_port"`
	LogLevel     string             `json:"log_level" yaml:"log_level"`
	Folders      FoldersConfig      `json:"folders" yaml:"folders"`
	Applications ApplicationsConfig `json:"applications" yaml:"applications"`
	Hotkeys      map[string]string  `json:"hotkeys" yaml:"hotkeys"`
	Capture      CaptureConfig      `json:"capture_settings" yaml:"capture_settings"`
	Memory       MemoryConfig       `json:"memory_settings" yaml:"memory_settings"`
	Advanced     AdvancedConfig     `json:"advanced" yaml:"advanced"`
}

// Hotkey action names understood by the hotkey manager.
const (
	ActionFullscreenCapture = "fullscreen_capture"
	ActionWindowCapture     = "window_capture"
	ActionAreaCapture       = "area_capture"
	ActionQuickCapture      = "quick_capture"
)
