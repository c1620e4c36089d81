/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/bencodec/pkg/config"
)

func newInitCmd(a *app) *cobra.Command {
	var (
		force     bool
		printKeys bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with a generated API key",
		Long: `Create a bencodec configuration file with default codec policies and a
freshly generated API key, and create the data directory.

Examples:
  bencodec init
  bencodec init --config ./bencodec.yaml --data-dir ./data --print-keys`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := a.configPath
			if configPath == "" {
				configPath = config.GetDefaultConfigPath()
			}

			out := cmd.OutOrStdout()
			if config.ConfigExists(configPath) && !force {
				fmt.Fprintf(out, "Configuration already exists at %s. Use --force to overwrite.\n", configPath)
				return nil
			}

			cfg, err := config.BootstrapConfig(configPath, a.cfg.DataDir)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}

			a.logger.Info().Str("config", configPath).Str("data_dir", cfg.DataDir).Msg("configuration created")
			fmt.Fprintf(out, "Configuration created at %s\n", configPath)
			fmt.Fprintf(out, "Data directory: %s\n", cfg.DataDir)
			if printKeys {
				fmt.Fprintf(out, "API Key: %s\n", cfg.Security.APIKey)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")
	cmd.Flags().BoolVar(&printKeys, "print-keys", false, "Print the generated API key")
	return cmd
}
