/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/bencodec/pkg/api"
	"github.com/ssargent/bencodec/pkg/config"
	"github.com/ssargent/bencodec/pkg/di"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		port   int
		bind   string
		apiKey string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start the bencodec REST API server.

Every /api/v1 route requires the X-API-Key header. Prometheus metrics are
served at /metrics and API documentation at /swagger/index.html.

If no API key is configured (or it is "auto"), a key is generated for this
run and printed to stderr. Run 'bencodec init' to persist one.

Examples:
  bencodec serve
  bencodec serve --port 9000 --api-key mysecretkey --data-dir ./data`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("bind") {
				cfg.Bind = bind
			}
			if cmd.Flags().Changed("api-key") {
				cfg.Security.APIKey = apiKey
			}

			if cfg.Security.APIKey == "" || cfg.Security.APIKey == "auto" {
				key, err := config.GenerateSecureKey(32)
				if err != nil {
					return err
				}
				cfg.Security.APIKey = key
				fmt.Fprintf(cmd.ErrOrStderr(), "Generated API key for this run: %s\n", key)
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			c := container
			if c == nil {
				c = di.NewContainer()
			}
			starter := c.GetServerFactory().CreateServerStarter()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.logger.Info().
				Str("bind", cfg.Bind).
				Int("port", cfg.Port).
				Str("data_dir", cfg.DataDir).
				Msg("starting server")

			return starter.StartServer(ctx, store, api.ServerConfig{
				Bind:           cfg.Bind,
				Port:           cfg.Port,
				APIKey:         cfg.Security.APIKey,
				MaxBodyBytes:   cfg.Server.MaxBodyBytes,
				DecoderOptions: a.decoderOptions(),
			}, a.logger)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	cmd.Flags().StringVar(&bind, "bind", "127.0.0.1", "Address to bind to")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "API key required in the X-API-Key header")
	return cmd
}
