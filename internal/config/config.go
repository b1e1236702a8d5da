// Package config handles viewer configuration loading and management.
package config

import (
	"path/filepath"
	"time"
)

// Config holds all runtime settings.
type Config struct {
	Models    ModelsConfig    `yaml:"models"`
	Instances InstancesConfig `yaml:"instances"`
	Viewer    ViewerConfig    `yaml:"viewer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ModelsConfig holds model directory settings.
type ModelsConfig struct {
	Dir          string `yaml:"dir"`
	AnimationDir string `yaml:"animation_dir"` // empty means <dir>/animations
	Default      string `yaml:"default"`       // model shown for the local viewer
	Watch        bool   `yaml:"watch"`
	// VerifyResources fails loads that leave decoded resources unused.
	VerifyResources bool `yaml:"verify_resources"`
}

// InstancesConfig holds model instance cache settings.
type InstancesConfig struct {
	TTL          time.Duration `yaml:"ttl"`
	KeepSelfWarm bool          `yaml:"keep_self_warm"`
	ShowSelf     bool          `yaml:"show_self"`
}

// ViewerConfig holds window settings.
type ViewerConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	VSync  bool   `yaml:"vsync"`
	Title  string `yaml:"title"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Models: ModelsConfig{
			Dir:   "models",
			Watch: true,
		},
		Instances: InstancesConfig{
			TTL:          30 * time.Second,
			KeepSelfWarm: true,
			ShowSelf:     true,
		},
		Viewer: ViewerConfig{
			Width:  1280,
			Height: 720,
			VSync:  true,
			Title:  "armorstand",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// SharedAnimations returns the shared animation directory.
func (m ModelsConfig) SharedAnimations() string {
	if m.AnimationDir != "" {
		return m.AnimationDir
	}
	return filepath.Join(m.Dir, "animations")
}
