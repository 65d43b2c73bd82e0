/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ssargent/folio/pkg/config"
)

const (
	serviceName = "folio.service"
	unitPath    = "/etc/systemd/system/" + serviceName
)

func newServiceCmd() *cobra.Command {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage folio as a systemd service",
		Long: `Manage folio as a systemd service. The unit runs "folio up" with
restricted write paths and restarts on failure.`,
	}

	serviceCmd.AddCommand(
		newServiceInstallCmd(),
		newSystemctlCmd("start", "Start the folio service", "✅ folio service started"),
		newSystemctlCmd("stop", "Stop the folio service", "✅ folio service stopped"),
		newSystemctlCmd("restart", "Restart the folio service", "✅ folio service restarted"),
		newSystemctlCmd("status", "Show folio service status", ""),
		newServiceLogsCmd(),
		newServiceUninstallCmd(),
	)
	return serviceCmd
}

func newServiceInstallCmd() *cobra.Command {
	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install folio as a systemd service",
		Long: `Install folio as a systemd service.

This will:
- Create the configuration if it does not exist
- Write the systemd unit file
- Enable and optionally start the service

Examples:
  sudo folio service install
  sudo folio service install --data-dir /var/lib/folio --user folio`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			user, _ := cmd.Flags().GetString("user")
			startNow, _ := cmd.Flags().GetBool("start")
			unitOnly, _ := cmd.Flags().GetBool("print")

			if cmd.Flags().Changed("port") {
				a.config.Port, _ = cmd.Flags().GetInt("port")
			}
			configPath, err := filepath.Abs(a.configPath)
			if err != nil {
				return err
			}
			unit := renderSystemdUnit(a.config, configPath, user)
			if unitOnly {
				cmd.Print(unit)
				return nil
			}

			if os.Geteuid() != 0 {
				return errors.New("service install requires root privileges (run with: sudo folio service install)")
			}

			cmd.Printf("🔧 Installing folio systemd service...\n")
			if !config.ConfigExists(configPath) {
				if _, err := bootstrap(configPath, a.config); err != nil {
					return err
				}
				cmd.Printf("✅ Created new configuration at %s\n", configPath)
			} else if err := config.SaveConfig(a.config, configPath); err != nil {
				return err
			}

			if err := os.WriteFile(unitPath, []byte(unit), 0600); err != nil {
				return fmt.Errorf("failed to write unit file: %w", err)
			}
			if err := runSystemctlCommand("daemon-reload"); err != nil {
				return fmt.Errorf("failed to reload systemd: %w", err)
			}
			if err := runSystemctlCommand("enable", serviceName); err != nil {
				return fmt.Errorf("failed to enable service: %w", err)
			}
			cmd.Printf("✅ Service enabled successfully\n")

			if startNow {
				if err := runSystemctlCommand("start", serviceName); err != nil {
					return fmt.Errorf("failed to start service: %w", err)
				}
				cmd.Printf("✅ Service started successfully\n")
			}

			cmd.Printf("\n🎉 folio service installed!\n")
			cmd.Printf("Config: %s\n", configPath)
			cmd.Printf("Data: %s\n", a.config.DataDir)
			cmd.Printf("Port: %d\n", a.config.Port)
			cmd.Printf("To view logs: sudo journalctl -u %s -f\n", serviceName)
			return nil
		},
	}

	installCmd.Flags().String("user", "folio", "User to run the service as")
	installCmd.Flags().Int("port", 8080, "Port for the service")
	installCmd.Flags().Bool("start", true, "Start the service after installation")
	installCmd.Flags().Bool("print", false, "Print the unit file instead of installing it")
	return installCmd
}

func newSystemctlCmd(action, short, done string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runSystemctlCommand(action, serviceName); err != nil {
				return fmt.Errorf("systemctl %s: %w", action, err)
			}
			if done != "" {
				cmd.Println(done)
			}
			return nil
		},
	}
}

func newServiceLogsCmd() *cobra.Command {
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show folio service logs",
		Long: `Show folio service logs using journalctl.

Examples:
  folio service logs
  folio service logs -f  # Follow logs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			follow, _ := cmd.Flags().GetBool("follow")
			lines, _ := cmd.Flags().GetInt("lines")
			return runCommand("journalctl", journalArgs(follow, lines)...)
		},
	}
	logsCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsCmd.Flags().IntP("lines", "n", 0, "Number of lines to show")
	return logsCmd
}

func newServiceUninstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Uninstall the folio service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if os.Geteuid() != 0 {
				return errors.New("service uninstall requires root privileges (run with: sudo folio service uninstall)")
			}

			cmd.Printf("🗑️  Uninstalling folio service...\n")
			_ = runSystemctlCommand("stop", serviceName) // already stopped is fine
			if err := runSystemctlCommand("disable", serviceName); err != nil {
				cmd.Printf("Warning: could not disable service: %v\n", err)
			}
			if err := os.Remove(unitPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove unit file: %w", err)
			}
			if err := runSystemctlCommand("daemon-reload"); err != nil {
				return fmt.Errorf("failed to reload systemd: %w", err)
			}

			cmd.Printf("✅ folio service uninstalled\n")
			cmd.Printf("Note: Configuration and data files were not removed\n")
			return nil
		},
	}
}

// renderSystemdUnit returns the unit file for running folio as user.
func renderSystemdUnit(cfg *config.Config, configPath, user string) string {
	return fmt.Sprintf(`[Unit]
Description=folio paragraph server
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=/usr/local/bin/folio up --config %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadWritePaths=%s

[Install]
WantedBy=multi-user.target
`, user, user, configPath, cfg.DataDir, filepath.Dir(configPath))
}

func journalArgs(follow bool, lines int) []string {
	args := []string{"-u", serviceName}
	if follow {
		args = append(args, "-f")
	}
	if lines > 0 {
		args = append(args, fmt.Sprintf("-n%d", lines))
	}
	return args
}

func runSystemctlCommand(args ...string) error {
	return runCommand("systemctl", args...)
}

func runCommand(command string, args ...string) error {
	c := exec.Command(command, args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	return c.Run()
}
