package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/hochfrequenz/se-arch/internal/config"
)

const (
	serviceName     = "se-arch"
	systemdUnitPath = "/etc/systemd/system/se-arch.service"
)

// systemd unit template
const systemdUnitTemplate = `[Unit]
Description=SEArch scheduled file copy and archive
After=local-fs.target network-online.target
Wants=network-online.target

[Service]
Type=simple
ExecStart={{.ExecStart}}
Restart=on-failure
RestartSec=10
# First SIGTERM lets the current run finish
TimeoutStopSec=15min

{{if .User}}User={{.User}}{{end}}
{{if .Group}}Group={{.Group}}{{end}}

# Security hardening
NoNewPrivileges=true
ProtectSystem=strict
PrivateTmp=true
ReadWritePaths={{.WritePaths}}

StandardOutput=journal
StandardError=journal
SyslogIdentifier=se-arch

[Install]
WantedBy=multi-user.target
`

type unitConfig struct {
	ExecStart  string
	User       string
	Group      string
	WritePaths string
}

var (
	serviceUser  string
	serviceGroup string
	serviceServe bool
)

func init() {
	rootCmd.AddCommand(newServiceCmd())
}

func newServiceCmd() *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the se-arch systemd service",
		Long:  "Install, start, stop, and inspect se-arch running as a systemd service.",
	}

	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install se-arch as a systemd service",
		Long: `Creates a systemd unit running "se-arch start" with the current config
file and enables it. Source, target and log folders are the only writable
paths.

Requires root privileges.`,
		RunE: runServiceInstall,
	}
	installCmd.Flags().StringVar(&serviceUser, "user", "", "User to run the service as")
	installCmd.Flags().StringVar(&serviceGroup, "group", "", "Group to run the service as")
	installCmd.Flags().BoolVar(&serviceServe, "serve", false, "Also serve the status API")

	uninstallCmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the se-arch systemd service",
		RunE:  runServiceUninstall,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show se-arch service status",
		RunE:  runServiceStatus,
	}

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show se-arch service logs via journalctl",
		RunE:  runServiceLogs,
	}
	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 50, "Number of lines to show")

	serviceCmd.AddCommand(installCmd, uninstallCmd, statusCmd, logsCmd)
	return serviceCmd
}

// renderUnit builds the unit file for the given binary and configuration
func renderUnit(execPath, cfgPath string, cfg *config.Config) (string, error) {
	execStart := fmt.Sprintf("%s start --config %s", execPath, cfgPath)
	if serviceServe {
		execStart += " --serve"
	}

	paths := append([]string{cfg.Settings.TargetDir, cfg.Settings.LogDir, filepath.Dir(cfg.Settings.DatabasePath)}, cfg.Sources()...)
	seen := make(map[string]bool)
	var unique []string
	for _, p := range paths {
		if p != "" && !seen[p] {
			seen[p] = true
			unique = append(unique, p)
		}
	}

	tmpl, err := template.New("unit").Parse(systemdUnitTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing unit template: %w", err)
	}

	var unit strings.Builder
	err = tmpl.Execute(&unit, unitConfig{
		ExecStart:  execStart,
		User:       serviceUser,
		Group:      serviceGroup,
		WritePaths: strings.Join(unique, " "),
	})
	if err != nil {
		return "", fmt.Errorf("executing unit template: %w", err)
	}
	return unit.String(), nil
}

func runServiceInstall(cmd *cobra.Command, args []string) error {
	if runtime.GOOS != "linux" {
		return fmt.Errorf("systemd service management is only supported on Linux")
	}

	if !isRoot() {
		return fmt.Errorf("root privileges required to install service. Try: sudo %s service install", os.Args[0])
	}

	cfgPath, err := filepath.Abs(currentConfigPath())
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating se-arch binary: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}

	for _, dir := range []string{cfg.Settings.TargetDir, cfg.Settings.LogDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
		if serviceUser != "" {
			if err := runCmd("chown", "-R", serviceUser+":"+serviceGroup, dir); err != nil {
				fmt.Printf("Warning: could not set ownership on %s: %v\n", dir, err)
			}
		}
	}

	unit, err := renderUnit(execPath, cfgPath, cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(systemdUnitPath, []byte(unit), 0644); err != nil {
		return fmt.Errorf("writing unit file: %w", err)
	}
	fmt.Printf("Created systemd unit: %s\n", systemdUnitPath)

	if err := runCmd("systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("reloading systemd: %w", err)
	}
	if err := runCmd("systemctl", "enable", "--now", serviceName); err != nil {
		return fmt.Errorf("enabling service: %w", err)
	}

	fmt.Printf("\nService installed and started.\n")
	fmt.Printf("  Check status: se-arch service status\n")
	fmt.Printf("  View logs:    se-arch service logs -f\n")
	return nil
}

func runServiceUninstall(cmd *cobra.Command, args []string) error {
	if runtime.GOOS != "linux" {
		return fmt.Errorf("systemd service management is only supported on Linux")
	}

	if !isRoot() {
		return fmt.Errorf("root privileges required. Try: sudo %s service uninstall", os.Args[0])
	}

	_ = runCmd("systemctl", "stop", serviceName)
	_ = runCmd("systemctl", "disable", serviceName)

	if err := os.Remove(systemdUnitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing unit file: %w", err)
	}

	if err := runCmd("systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("reloading systemd: %w", err)
	}

	fmt.Printf("Service uninstalled. Config, logs and archives were not removed.\n")
	return nil
}

func runServiceStatus(cmd *cobra.Command, args []string) error {
	if runtime.GOOS != "linux" {
		return fmt.Errorf("systemd service management is only supported on Linux")
	}

	if !serviceInstalled() {
		fmt.Printf("Service not installed.\n")
		fmt.Printf("Install with: sudo se-arch service install\n")
		return nil
	}

	return runCmdInteractive("systemctl", "status", serviceName, "--no-pager")
}

func runServiceLogs(cmd *cobra.Command, args []string) error {
	if runtime.GOOS != "linux" {
		return fmt.Errorf("systemd service management is only supported on Linux")
	}

	follow, _ := cmd.Flags().GetBool("follow")
	lines, _ := cmd.Flags().GetInt("lines")

	jArgs := []string{"-u", serviceName, "-n", fmt.Sprintf("%d", lines), "--no-pager"}
	if follow {
		jArgs = append(jArgs, "-f")
	}

	return runCmdInteractive("journalctl", jArgs...)
}

func isRoot() bool {
	return os.Geteuid() == 0
}

func serviceInstalled() bool {
	_, err := os.Stat(systemdUnitPath)
	return err == nil
}

func runCmd(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func runCmdInteractive(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
