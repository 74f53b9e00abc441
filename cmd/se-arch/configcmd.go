package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hochfrequenz/se-arch/internal/config"
)

var (
	configForce bool
	configYAML  bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Create, show and validate the configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default settings",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration for errors",
	RunE:  runConfigValidate,
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configShowCmd.Flags().BoolVar(&configYAML, "yaml", false, "print as YAML instead of TOML")
	configCmd.AddCommand(configInitCmd, configShowCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func currentConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := currentConfigPath()
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	home, _ := os.UserHomeDir()
	cfg.Settings.SourceDirs = []string{filepath.Join(home, "se-arch", "source")}
	cfg.Settings.TargetDir = filepath.Join(home, "se-arch", "archive")
	cfg.Settings.LogDir = "logs"

	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	fmt.Println("Edit source_dirs and target_dir, then run: se-arch config validate")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var data []byte
	if configYAML {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = toml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	fmt.Printf("# %s\n%s", currentConfigPath(), data)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrInvalid) {
			return fmt.Errorf("%s: %w", currentConfigPath(), err)
		}
		return err
	}

	var missing []string
	for _, src := range cfg.Sources() {
		if info, err := os.Stat(src); err != nil || !info.IsDir() {
			missing = append(missing, src)
		}
	}

	fmt.Printf("Configuration OK: %s\n", currentConfigPath())
	fmt.Printf("  mode=%s action=%s schedule=%s\n", cfg.Settings.Mode, cfg.Settings.Action, cfg.Schedule())
	fmt.Printf("  patterns=%s\n", strings.Join(cfg.Patterns(), ";"))
	fmt.Printf("  log_dir=%s database=%s\n", cfg.Settings.LogDir, cfg.Settings.DatabasePath)
	if len(missing) > 0 {
		fmt.Printf("  warning: source folder(s) not found: %s\n", strings.Join(missing, ", "))
	}
	return nil
}
