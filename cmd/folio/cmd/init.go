/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/folio/pkg/config"
)

func newInitCmd() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with a generated API key",
		Long: `Create the folio configuration file and data directory.

This command will:
- Generate a random API key for the REST API
- Write the configuration file with owner-only permissions
- Create the data directory

Examples:
  folio init
  folio init --config ./folio.yaml --data-dir ./data --backend pebble`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			force, _ := cmd.Flags().GetBool("force")
			backend, _ := cmd.Flags().GetString("backend")
			encoding, _ := cmd.Flags().GetString("encoding")

			cfg, err := initializeConfig(a.configPath, a.config.DataDir, backend, encoding, force)
			if err != nil {
				return err
			}

			cmd.Printf("✅ folio initialized\n")
			cmd.Printf("Config: %s\n", a.configPath)
			cmd.Printf("Data directory: %s\n", cfg.DataDir)
			cmd.Printf("API key: %s\n", cfg.Security.APIKey)
			cmd.Printf("\nStart the server with:\n  folio serve --config %s\n", a.configPath)
			return nil
		},
	}

	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration file")
	initCmd.Flags().String("backend", config.BackendLog, "Storage backend (log or pebble)")
	initCmd.Flags().String("encoding", "positional", "Snapshot encoding (positional or tagged)")
	return initCmd
}

// initializeConfig writes a fresh configuration to configPath and creates
// its data directory.
func initializeConfig(configPath, dataDir, backend, encoding string, force bool) (*config.Config, error) {
	if config.ConfigExists(configPath) && !force {
		return nil, fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
	}

	cfg := config.DefaultConfig()
	cfg.DataDir = dataDir
	cfg.Storage.Backend = backend
	cfg.Storage.SnapshotEncoding = encoding
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg, err := bootstrap(configPath, cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return cfg, nil
}

// bootstrap saves template with a newly generated API key.
func bootstrap(configPath string, template *config.Config) (*config.Config, error) {
	cfg, err := config.BootstrapConfig(configPath, template.DataDir)
	if err != nil {
		return nil, err
	}
	cfg.Storage = template.Storage
	cfg.Logging = template.Logging
	if err := config.SaveConfig(cfg, configPath); err != nil {
		return nil, err
	}
	return cfg, nil
}
