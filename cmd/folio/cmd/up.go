/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ssargent/folio/pkg/config"
)

func newUpCmd() *cobra.Command {
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Bootstrap and start the folio server",
		Long: `Bootstrap folio by creating a configuration with an API key if none
exists, then start the REST API server. This is the recommended way to get
folio running.

Examples:
  folio up
  folio up --data-dir ./mydata --port 9000
  folio up --config ./custom-config.yaml --print-keys`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			printKeys, _ := cmd.Flags().GetBool("print-keys")

			if config.ConfigExists(a.configPath) {
				cmd.Printf("✅ Loaded existing configuration from %s\n", a.configPath)
			} else {
				cmd.Printf("🔧 First run detected. Bootstrapping folio...\n")
				cfg, err := bootstrap(a.configPath, a.config)
				if err != nil {
					return err
				}
				a.config.Security.APIKey = cfg.Security.APIKey
				cmd.Printf("✅ Configuration created at %s\n", a.configPath)
				if printKeys {
					cmd.Printf("\n🔑 API key: %s\n", cfg.Security.APIKey)
					cmd.Printf("⚠️  Store this key securely! It is also saved in %s\n", a.configPath)
				}
			}

			applyServeFlags(cmd, a.config)
			return runServer(cmd, a)
		},
	}

	addServeFlags(upCmd)
	upCmd.Flags().Bool("print-keys", false, "Print the generated API key to console")
	upCmd.Flags().Bool("watch", true, "Reload logging settings when the config file changes")
	return upCmd
}
