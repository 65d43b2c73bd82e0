/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ssargent/folio/pkg/api"
	"github.com/ssargent/folio/pkg/config"
)

// autoAPIKey asks serve to generate a key for the lifetime of the process.
const autoAPIKey = "auto"

func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the folio REST API server.

Paragraphs are served under /api/v1 and Prometheus metrics under /metrics.
When security.api_key is "auto" a key is generated at startup and printed.
Changes to logging.level in the config file are applied without a restart.

Examples:
  folio serve
  folio serve --port 9000 --bind 0.0.0.0
  folio serve --config ./folio.yaml --data-dir ./data`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			applyServeFlags(cmd, a.config)
			return runServer(cmd, a)
		},
	}

	addServeFlags(serveCmd)
	serveCmd.Flags().Bool("watch", true, "Reload logging settings when the config file changes")
	return serveCmd
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
}

// applyServeFlags overrides cfg with the listen flags the user actually set.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		cfg.Bind, _ = cmd.Flags().GetString("bind")
	}
}

// resolveAPIKey returns the key the server should require.
func resolveAPIKey(cfg *config.Config) (key string, generated bool, err error) {
	if cfg.Security.APIKey != autoAPIKey {
		return cfg.Security.APIKey, false, nil
	}
	key, err = config.GenerateSecureKey(32)
	if err != nil {
		return "", false, fmt.Errorf("failed to generate API key: %w", err)
	}
	return key, true, nil
}

// runServer opens the notebook and serves it until SIGINT or SIGTERM.
func runServer(cmd *cobra.Command, a *app) error {
	cfg := a.config
	logger := a.logger.Logger

	apiKey, generated, err := resolveAPIKey(cfg)
	if err != nil {
		return err
	}
	if generated {
		cmd.Printf("🔑 Generated API key for this run: %s\n", apiKey)
	}

	nb, err := a.openNotebook()
	if err != nil {
		return fmt.Errorf("failed to open notebook: %w", err)
	}
	defer nb.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watch, _ := cmd.Flags().GetBool("watch")
	if watch && config.ConfigExists(a.configPath) {
		if err := watchLogLevel(ctx, a); err != nil {
			logger.Warn("config reload disabled", "error", err)
		}
	}

	cmd.Printf("🚀 Starting folio server on %s:%d\n", cfg.Bind, cfg.Port)
	cmd.Printf("📁 Data directory: %s (%s backend)\n", cfg.DataDir, cfg.Storage.Backend)

	starter := a.container.GetServerFactory().CreateServerStarter()
	return starter.StartServer(ctx, nb.Service, api.ServerConfig{
		Bind:   cfg.Bind,
		Port:   cfg.Port,
		APIKey: apiKey,
		Limits: cfg.Limits(),
		Strict: cfg.Codec.Strict,
	}, logger)
}

func watchLogLevel(ctx context.Context, a *app) error {
	return config.Watch(ctx, a.configPath, a.logger.Logger, func(cfg *config.Config) {
		if err := a.logger.SetLevel(cfg.Logging.Level); err != nil {
			a.logger.Warn("ignoring log level from config", "level", cfg.Logging.Level, "error", err)
			return
		}
		a.logger.Info("log level reloaded", "level", a.logger.Level().String())
	})
}
