package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:   "se-arch",
		Short: "SEArch - scheduled file copy and archive",
		Long: `SEArch periodically collects files from one or more source folders,
groups them by modification time and either copies them into a dated
folder tree or appends them to per-day tar archives. Every file-level
outcome is written to a daily CSV log.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (TOML or YAML)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
