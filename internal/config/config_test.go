package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hochfrequenz/se-arch/internal/domain"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := Default()
	cfg.Settings.SourceDirs = []string{t.TempDir()}
	cfg.Settings.TargetDir = t.TempDir()
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Settings.IntervalMinutes != DefaultIntervalMinutes {
		t.Errorf("IntervalMinutes = %v, want %v", cfg.Settings.IntervalMinutes, DefaultIntervalMinutes)
	}
	if cfg.Settings.Mode != domain.ModeCopy || cfg.Settings.Action != domain.ActionCopy {
		t.Errorf("Mode/Action = %q/%q, want copy/copy", cfg.Settings.Mode, cfg.Settings.Action)
	}
	if cfg.Settings.LogDir != dir {
		t.Errorf("LogDir = %q, want config dir %q", cfg.Settings.LogDir, dir)
	}
	if cfg.Settings.DatabasePath != filepath.Join(dir, DefaultDatabaseName) {
		t.Errorf("DatabasePath = %q", cfg.Settings.DatabasePath)
	}
	if cfg.Web.Port != 8090 {
		t.Errorf("Web.Port = %d, want 8090", cfg.Web.Port)
	}
}

func TestLoad_FromTOML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "se-arch.toml")

	content := `
[settings]
source_dirs = ["/data/in1", "/data/in2"]
target_dir = "/data/out"
interval_minutes = 0.5
file_patterns = ["*.log;*.csv", "*.txt"]
mode = "archive"
action = "move"
delete_files_older_than_days = 45
log_dir = "logs"
log_prefix = "custom_"

[web]
port = 9000
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}

	if len(cfg.Sources()) != 2 {
		t.Errorf("Sources = %v, want 2 entries", cfg.Sources())
	}
	if cfg.Settings.Mode != domain.ModeArchive || cfg.Settings.Action != domain.ActionMove {
		t.Errorf("Mode/Action = %q/%q", cfg.Settings.Mode, cfg.Settings.Action)
	}
	if got := cfg.Patterns(); len(got) != 3 || got[1] != "*.csv" {
		t.Errorf("Patterns = %v", got)
	}
	if cfg.Interval() != 30*time.Second {
		t.Errorf("Interval = %v, want 30s", cfg.Interval())
	}
	if cfg.DeleteAge() != 45*24*time.Hour {
		t.Errorf("DeleteAge = %v", cfg.DeleteAge())
	}
	if cfg.Settings.LogDir != filepath.Join(dir, "logs") {
		t.Errorf("LogDir = %q, want relative to config dir", cfg.Settings.LogDir)
	}
	if cfg.Settings.LogPrefix != "custom_" {
		t.Errorf("LogPrefix = %q", cfg.Settings.LogPrefix)
	}
	if cfg.Web.Port != 9000 {
		t.Errorf("Web.Port = %d, want 9000", cfg.Web.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_FromYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "se-arch.yaml")

	content := `
settings:
  source_dirs: [/data/in]
  target_dir: /data/out
  mode: archive
  file_patterns: ["*.csv"]
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Settings.Mode != domain.ModeArchive {
		t.Errorf("Mode = %q, want archive", cfg.Settings.Mode)
	}
	if cfg.Settings.IntervalMinutes != DefaultIntervalMinutes {
		t.Errorf("IntervalMinutes = %v, default should survive partial YAML", cfg.Settings.IntervalMinutes)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.toml")
	os.WriteFile(configPath, []byte("[settings\nmode = "), 0644)

	if _, err := Load(configPath); err == nil {
		t.Error("Load should fail on malformed TOML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"no sources", func(c *Config) { c.Settings.SourceDirs = []string{" ", ""} }},
		{"no target", func(c *Config) { c.Settings.TargetDir = "" }},
		{"interval too short", func(c *Config) { c.Settings.IntervalMinutes = 0.25 }},
		{"interval too long", func(c *Config) { c.Settings.IntervalMinutes = 61 }},
		{"delete age too low", func(c *Config) { c.Settings.DeleteFilesOlderThanDays = 29 }},
		{"bad mode", func(c *Config) { c.Settings.Mode = "zip" }},
		{"bad action", func(c *Config) { c.Settings.Action = "delete" }},
		{"bad pattern", func(c *Config) { c.Settings.FilePatterns = []string{"[a-"} }},
		{"no patterns", func(c *Config) { c.Settings.FilePatterns = []string{";"} }},
		{"bad cron", func(c *Config) { c.Settings.Cron = "every now and then" }},
		{"duplicate root name", func(c *Config) { c.Settings.SourceDirs = []string{"/plant/a/logs", "/plant/b/logs/"} }},
	}

	if err := validConfig(t).Validate(); err != nil {
		t.Fatalf("valid config should not error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestValidate_SameRootListedTwice(t *testing.T) {
	cfg := validConfig(t)
	cfg.Settings.SourceDirs = []string{"/plant/logs", "/plant/logs/", "/plant/csv"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil for a repeated identical root", err)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()

	if err := cfg.ApplyOverrides("archive", ""); err != nil {
		t.Fatal(err)
	}
	if cfg.Settings.Mode != domain.ModeArchive || cfg.Settings.Action != domain.ActionCopy {
		t.Errorf("Mode/Action = %q/%q", cfg.Settings.Mode, cfg.Settings.Action)
	}

	if err := cfg.ApplyOverrides("", "move"); err != nil {
		t.Fatal(err)
	}
	if cfg.Settings.Action != domain.ActionMove {
		t.Errorf("Action = %q, want move", cfg.Settings.Action)
	}

	if err := cfg.ApplyOverrides("tarball", ""); err == nil {
		t.Error("unknown mode should error")
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"se-arch.toml", "se-arch.yml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			cfg := validConfig(t)
			cfg.Settings.Mode = domain.ModeArchive
			cfg.Settings.Cron = "*/5 * * * *"

			if err := cfg.Save(path); err != nil {
				t.Fatal(err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatal(err)
			}
			if loaded.Settings.Mode != domain.ModeArchive || loaded.Settings.Cron != "*/5 * * * *" {
				t.Errorf("reloaded settings = %+v", loaded.Settings)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		input string
		want  string
	}{
		{"~/test", filepath.Join(home, "test")},
		{"/absolute/path", "/absolute/path"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		got := ExpandPath(tt.input)
		if got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
