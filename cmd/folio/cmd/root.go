/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ssargent/folio/internal/logging"
	"github.com/ssargent/folio/pkg/config"
	"github.com/ssargent/folio/pkg/di"
)

type appKey struct{}

// app is the state every subcommand shares, built once before it runs.
type app struct {
	container  *di.Container
	config     *config.Config
	configPath string
	logger     *logging.Logger
}

func appFrom(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New("application not initialized")
	}
	a, ok := ctx.Value(appKey{}).(*app)
	if !ok {
		return nil, errors.New("application not initialized")
	}
	return a, nil
}

// openNotebook opens the repository named by the loaded configuration.
func (a *app) openNotebook() (*di.Notebook, error) {
	return a.container.GetNotebookFactory().OpenNotebook(a.config, a.logger.Logger)
}

// NewRootCmd builds the folio command tree around container.
func NewRootCmd(container *di.Container) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "folio",
		Short: "folio - notebook paragraph store",
		Long: `folio stores notebook paragraphs as compact binary records and serves
them over a REST API. Paragraphs can be read and written as JSON or in the
field-tagged and positional binary encodings.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, container)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory (overrides the config file)")

	rootCmd.AddCommand(
		newInitCmd(),
		newServeCmd(),
		newUpCmd(),
		newPutCmd(),
		newGetCmd(),
		newDeleteCmd(),
		newListCmd(),
		newHistoryCmd(),
		newEncodeCmd(),
		newDecodeCmd(),
		newStatsCmd(),
		newCompactCmd(),
		newServiceCmd(),
	)
	return rootCmd
}

// loadApp reads the config file when there is one, then applies the
// environment and command line on top and validates the result.
func loadApp(cmd *cobra.Command, container *di.Container) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir, _ = cmd.Flags().GetString("data-dir")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Logging)
	if err != nil {
		return nil, err
	}

	return &app{
		container:  container,
		config:     cfg,
		configPath: configPath,
		logger:     logger,
	}, nil
}

// Execute runs the root command. This is called by main.main().
func Execute(container *di.Container) {
	if err := NewRootCmd(container).Execute(); err != nil {
		os.Exit(1)
	}
}
