package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Models.Dir != "models" {
		t.Errorf("expected models dir 'models', got %s", cfg.Models.Dir)
	}
	if !cfg.Models.Watch {
		t.Error("expected watch to be true by default")
	}
	if cfg.Models.VerifyResources {
		t.Error("expected verify_resources to be false by default")
	}

	if cfg.Instances.TTL != 30*time.Second {
		t.Errorf("expected ttl 30s, got %v", cfg.Instances.TTL)
	}
	if !cfg.Instances.KeepSelfWarm {
		t.Error("expected keep_self_warm to be true by default")
	}
	if !cfg.Instances.ShowSelf {
		t.Error("expected show_self to be true by default")
	}

	if cfg.Viewer.Width != 1280 {
		t.Errorf("expected width 1280, got %d", cfg.Viewer.Width)
	}
	if cfg.Viewer.Height != 720 {
		t.Errorf("expected height 720, got %d", cfg.Viewer.Height)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestSharedAnimations(t *testing.T) {
	m := ModelsConfig{Dir: "assets"}
	if got := m.SharedAnimations(); got != filepath.Join("assets", "animations") {
		t.Errorf("expected derived animation dir, got %s", got)
	}
	m.AnimationDir = "/srv/anim"
	if got := m.SharedAnimations(); got != "/srv/anim" {
		t.Errorf("expected explicit animation dir, got %s", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
models:
  dir: "/srv/models"
  animation_dir: "/srv/clips"
  default: "self.vrm"
  watch: false
  verify_resources: true

instances:
  ttl: 90s
  keep_self_warm: false
  show_self: false

viewer:
  width: 1920
  height: 1080
  vsync: false

logging:
  level: "debug"
  log_file: "viewer.log"
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Models.Dir != "/srv/models" {
		t.Errorf("expected models dir /srv/models, got %s", cfg.Models.Dir)
	}
	if cfg.Models.SharedAnimations() != "/srv/clips" {
		t.Errorf("expected animation dir /srv/clips, got %s", cfg.Models.SharedAnimations())
	}
	if cfg.Models.Default != "self.vrm" {
		t.Errorf("expected default model self.vrm, got %s", cfg.Models.Default)
	}
	if cfg.Models.Watch {
		t.Error("expected watch to be false")
	}
	if !cfg.Models.VerifyResources {
		t.Error("expected verify_resources to be true")
	}

	if cfg.Instances.TTL != 90*time.Second {
		t.Errorf("expected ttl 90s, got %v", cfg.Instances.TTL)
	}
	if cfg.Instances.KeepSelfWarm || cfg.Instances.ShowSelf {
		t.Error("expected self flags to be false")
	}

	if cfg.Viewer.Width != 1920 || cfg.Viewer.Height != 1080 {
		t.Errorf("expected 1920x1080, got %dx%d", cfg.Viewer.Width, cfg.Viewer.Height)
	}
	if cfg.Viewer.VSync {
		t.Error("expected vsync to be false")
	}
	if cfg.Viewer.Title != "armorstand" {
		t.Errorf("expected title to keep its default, got %s", cfg.Viewer.Title)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.LogFile != "viewer.log" {
		t.Errorf("expected log file 'viewer.log', got %s", cfg.Logging.LogFile)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
viewer:
  width: not a number
  invalid syntax here
`

	if err := os.WriteFile(configPath, []byte(invalidYAML), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg := Default()
	if err := loadFromFile(cfg, configPath); err == nil {
		t.Error("expected error loading invalid YAML, got nil")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFromFile(cfg, "/nonexistent/path/config.yaml"); err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"empty model dir", func(c *Config) { c.Models.Dir = "" }},
		{"zero ttl", func(c *Config) { c.Instances.TTL = 0 }},
		{"negative width", func(c *Config) { c.Viewer.Width = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestSaveTo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Models.Dir = "/tmp/models"
	cfg.Instances.TTL = 5 * time.Second
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded := Default()
	if err := loadFromFile(loaded, path); err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if loaded.Models.Dir != "/tmp/models" {
		t.Errorf("expected models dir /tmp/models, got %s", loaded.Models.Dir)
	}
	if loaded.Instances.TTL != 5*time.Second {
		t.Errorf("expected ttl 5s, got %v", loaded.Instances.TTL)
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	origDir, _ := os.Getwd()
	defer os.Chdir(origDir)

	tmpDir := t.TempDir()
	os.Chdir(tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("HOME", tmpDir)

	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	configPath := filepath.Join(tmpDir, "armorstand.yaml")
	if err := os.WriteFile(configPath, []byte("viewer:\n  width: 800\n"), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}

	if path := findConfigFile(); path == "" {
		t.Error("expected to find armorstand.yaml in current directory")
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name: "model flags",
			setup: func() {
				*flagModelDir = "/data/avatars"
				*flagModel = "me.vrm"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Models.Dir != "/data/avatars" {
					t.Errorf("expected models dir /data/avatars, got %s", cfg.Models.Dir)
				}
				if cfg.Models.Default != "me.vrm" {
					t.Errorf("expected default model me.vrm, got %s", cfg.Models.Default)
				}
			},
			teardown: func() {
				*flagModelDir = ""
				*flagModel = ""
			},
		},
		{
			name: "watch and verify flags",
			setup: func() {
				*flagNoWatch = true
				*flagVerify = true
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Models.Watch {
					t.Error("expected watch to be disabled")
				}
				if !cfg.Models.VerifyResources {
					t.Error("expected verify_resources to be enabled")
				}
			},
			teardown: func() {
				*flagNoWatch = false
				*flagVerify = false
			},
		},
		{
			name: "width and height flags",
			setup: func() {
				*flagWidth = 2560
				*flagHeight = 1440
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Viewer.Width != 2560 {
					t.Errorf("expected width 2560, got %d", cfg.Viewer.Width)
				}
				if cfg.Viewer.Height != 1440 {
					t.Errorf("expected height 1440, got %d", cfg.Viewer.Height)
				}
			},
			teardown: func() {
				*flagWidth = 0
				*flagHeight = 0
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)

			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
viewer:
  width: 1600
  height: 900
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	*flagConfig = configPath
	*flagWidth = 1920
	defer func() {
		*flagConfig = ""
		*flagWidth = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Width from flag, height from file.
	if cfg.Viewer.Width != 1920 {
		t.Errorf("expected width 1920 from flag, got %d", cfg.Viewer.Width)
	}
	if cfg.Viewer.Height != 900 {
		t.Errorf("expected height 900 from file, got %d", cfg.Viewer.Height)
	}
}
