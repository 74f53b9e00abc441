package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hochfrequenz/se-arch/internal/batch"
	"github.com/hochfrequenz/se-arch/internal/domain"
	"github.com/hochfrequenz/se-arch/internal/runlog"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Bounds enforced by Validate
const (
	MinIntervalMinutes     = 0.5
	DefaultIntervalMinutes = 5.0
	MaxIntervalMinutes     = 60.0

	MinDeleteAgeDays     = 30
	DefaultDeleteAgeDays = 30

	DefaultDatabaseName = "se-arch.db"
)

// ErrInvalid wraps every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration
type Config struct {
	Settings      Settings            `toml:"settings" yaml:"settings"`
	Notifications NotificationsConfig `toml:"notifications" yaml:"notifications"`
	Web           WebConfig           `toml:"web" yaml:"web"`
}

// Settings holds the batch processing settings
type Settings struct {
	SourceDirs               []string      `toml:"source_dirs" yaml:"source_dirs"`
	TargetDir                string        `toml:"target_dir" yaml:"target_dir"`
	IntervalMinutes          float64       `toml:"interval_minutes" yaml:"interval_minutes"`
	Cron                     string        `toml:"cron" yaml:"cron"`
	FilePatterns             []string      `toml:"file_patterns" yaml:"file_patterns"`
	Mode                     domain.Mode   `toml:"mode" yaml:"mode"`
	Action                   domain.Action `toml:"action" yaml:"action"`
	DeleteFilesOlderThanDays int           `toml:"delete_files_older_than_days" yaml:"delete_files_older_than_days"`
	LogDir                   string        `toml:"log_dir" yaml:"log_dir"`
	LogPrefix                string        `toml:"log_prefix" yaml:"log_prefix"`
	DatabasePath             string        `toml:"database_path" yaml:"database_path"`
	Watch                    bool          `toml:"watch" yaml:"watch"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop            bool    `toml:"desktop" yaml:"desktop"`
	SlackWebhook       string  `toml:"slack_webhook" yaml:"slack_webhook"`
	MinIntervalMinutes float64 `toml:"min_interval_minutes" yaml:"min_interval_minutes"`
}

// WebConfig holds status API settings
type WebConfig struct {
	Port int    `toml:"port" yaml:"port"`
	Host string `toml:"host" yaml:"host"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Settings: Settings{
			IntervalMinutes:          DefaultIntervalMinutes,
			FilePatterns:             []string{"*.*"},
			Mode:                     domain.ModeCopy,
			Action:                   domain.ActionCopy,
			DeleteFilesOlderThanDays: DefaultDeleteAgeDays,
			LogPrefix:                runlog.DefaultPrefix,
		},
		Notifications: NotificationsConfig{
			MinIntervalMinutes: 15,
		},
		Web: WebConfig{
			Port: 8090,
			Host: "127.0.0.1",
		},
	}
}

// Load reads configuration from a TOML or YAML file, falling back to
// defaults when the file does not exist. Relative log and database paths
// are resolved against the directory of the config file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if err := unmarshal(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	cfg.resolvePaths(path)
	return cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return toml.Unmarshal(data, cfg)
	}
}

func (c *Config) resolvePaths(configPath string) {
	configDir := filepath.Dir(configPath)
	if abs, err := filepath.Abs(configDir); err == nil {
		configDir = abs
	}

	s := &c.Settings
	for i, dir := range s.SourceDirs {
		s.SourceDirs[i] = ExpandPath(strings.TrimSpace(dir))
	}
	s.TargetDir = ExpandPath(s.TargetDir)

	s.LogDir = ExpandPath(s.LogDir)
	if s.LogDir == "" || !filepath.IsAbs(s.LogDir) {
		s.LogDir = filepath.Join(configDir, s.LogDir)
	}
	if s.LogPrefix == "" {
		s.LogPrefix = runlog.DefaultPrefix
	}

	s.DatabasePath = ExpandPath(s.DatabasePath)
	if s.DatabasePath == "" {
		s.DatabasePath = filepath.Join(s.LogDir, DefaultDatabaseName)
	} else if !filepath.IsAbs(s.DatabasePath) {
		s.DatabasePath = filepath.Join(configDir, s.DatabasePath)
	}
}

// Validate checks the settings that must hold before any run starts
func (c *Config) Validate() error {
	s := c.Settings

	if len(c.Sources()) == 0 {
		return fmt.Errorf("%w: source_dirs is empty", ErrInvalid)
	}
	if s.TargetDir == "" {
		return fmt.Errorf("%w: target_dir is required", ErrInvalid)
	}
	if err := checkRootNames(c.Sources()); err != nil {
		return err
	}
	if _, err := domain.ParseMode(string(s.Mode)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := domain.ParseAction(string(s.Action)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if s.IntervalMinutes < MinIntervalMinutes || s.IntervalMinutes > MaxIntervalMinutes {
		return fmt.Errorf("%w: interval_minutes %v outside [%v, %v]",
			ErrInvalid, s.IntervalMinutes, MinIntervalMinutes, MaxIntervalMinutes)
	}
	if s.Cron != "" {
		if _, err := batch.ParseCron(s.Cron); err != nil {
			return fmt.Errorf("%w: invalid cron expression: %v", ErrInvalid, err)
		}
	}
	if s.DeleteFilesOlderThanDays < MinDeleteAgeDays {
		return fmt.Errorf("%w: delete_files_older_than_days must be at least %d, got %d",
			ErrInvalid, MinDeleteAgeDays, s.DeleteFilesOlderThanDays)
	}
	if len(c.Patterns()) == 0 {
		return fmt.Errorf("%w: file_patterns is empty", ErrInvalid)
	}
	for _, p := range c.Patterns() {
		if _, err := filepath.Match(p, ""); err != nil {
			return fmt.Errorf("%w: file pattern %q: %v", ErrInvalid, p, err)
		}
	}
	return nil
}

// checkRootNames rejects distinct source dirs sharing a directory name. Both
// would land in the same target/<name> tree and overwrite or shadow each
// other's files.
func checkRootNames(sources []string) error {
	byName := make(map[string]string, len(sources))
	for _, dir := range sources {
		dir = filepath.Clean(dir)
		name := filepath.Base(dir)
		if prev, ok := byName[name]; ok && prev != dir {
			return fmt.Errorf("%w: source_dirs %s and %s share the target folder name %q",
				ErrInvalid, prev, dir, name)
		}
		byName[name] = dir
	}
	return nil
}

// ApplyOverrides replaces mode and action with command line values.
// Empty values leave the configured setting untouched.
func (c *Config) ApplyOverrides(mode, action string) error {
	if mode != "" {
		m, err := domain.ParseMode(mode)
		if err != nil {
			return err
		}
		c.Settings.Mode = m
	}
	if action != "" {
		a, err := domain.ParseAction(action)
		if err != nil {
			return err
		}
		c.Settings.Action = a
	}
	return nil
}

// Patterns returns the trimmed, non-empty file patterns. Entries may also
// hold several patterns separated by ';'.
func (c *Config) Patterns() []string {
	return SplitList(c.Settings.FilePatterns...)
}

// Sources returns the configured, non-empty source directories
func (c *Config) Sources() []string {
	return SplitList(c.Settings.SourceDirs...)
}

// Interval returns the fixed run interval
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Settings.IntervalMinutes * float64(time.Minute))
}

// DeleteAge returns the minimum source age for deletion in archive+move mode
func (c *Config) DeleteAge() time.Duration {
	return time.Duration(c.Settings.DeleteFilesOlderThanDays) * 24 * time.Hour
}

// Schedule returns the scheduler configuration
func (c *Config) Schedule() batch.ScheduleConfig {
	return batch.ScheduleConfig{
		Interval: c.Interval(),
		Cron:     c.Settings.Cron,
	}
}

// Save writes the configuration to path as TOML or YAML depending on the extension
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = toml.Marshal(c)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SplitList splits ';'-separated items and drops empty ones
func SplitList(items ...string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ";") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// DefaultConfigPath returns the default config file location
func DefaultConfigPath() string {
	return filepath.Join("config", "se-arch.toml")
}
