/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ssargent/bencodec/pkg/bencode"
	"github.com/ssargent/bencodec/pkg/config"
	"github.com/ssargent/bencodec/pkg/di"
	"github.com/ssargent/bencodec/pkg/logging"
	"github.com/ssargent/bencodec/pkg/storage"
)

// skipConfigAnnotation marks commands that run before a config file exists
const skipConfigAnnotation = "bencodec/skip-config"

var container *di.Container

// SetContainer injects the dependency container used by store and server commands
func SetContainer(c *di.Container) {
	container = c
}

// app carries the settings resolved by the root command for its subcommands
type app struct {
	configPath string
	logLevel   string
	dataDir    string
	intBits    int
	strict     bool

	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCmd builds the bencodec command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "bencodec",
		Short: "bencodec - bencode codec, validator and document store",
		Long: `bencodec decodes, encodes, validates and canonicalizes bencode, the
serialization format used by BitTorrent metainfo files and tracker responses.

It can also keep bencoded documents in a local store and serve all of this
over a REST API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file (default ~/.config/bencodec/config.yaml when present)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (trace, debug, info, warn, error, off)")
	flags.StringVarP(&a.dataDir, "data-dir", "d", "", "Data directory for the document store")
	flags.IntVar(&a.intBits, "int-bits", 0, "Integer width accepted by the decoder (8, 16, 32 or 64)")
	flags.BoolVar(&a.strict, "strict", false, "Reject any input that is not canonical bencode")

	rootCmd.AddCommand(
		newDecodeCmd(a),
		newEncodeCmd(a),
		newValidateCmd(a),
		newFmtCmd(a),
		newPutCmd(a),
		newGetCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
		newServeCmd(a),
		newInitCmd(a),
	)

	return rootCmd
}

// Execute runs the root command. This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.DefaultConfig()

	if cmd.Annotations[skipConfigAnnotation] == "" {
		path := a.configPath
		if path == "" {
			if p := config.GetDefaultConfigPath(); config.ConfigExists(p) {
				path = p
			}
		}
		if path != "" {
			loaded, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			cfg = loaded
		}
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("data-dir") {
		cfg.DataDir = a.dataDir
	}
	if flags.Changed("int-bits") {
		cfg.Codec.IntBits = a.intBits
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.New("bencodec", cfg.Logging, cmd.ErrOrStderr())
	a.logger.Debug().
		Str("command", cmd.Name()).
		Str("data_dir", cfg.DataDir).
		Int("int_bits", cfg.Codec.IntBits).
		Bool("strict", a.strict).
		Msg("configuration resolved")
	return nil
}

func (a *app) decoderOptions() []bencode.Option {
	opts := a.cfg.DecoderOptions()
	if a.strict {
		opts = append(opts, bencode.WithStrict())
	}
	return opts
}

// openStore opens the document store in the configured data directory
func (a *app) openStore() (*storage.DocumentStore, error) {
	if err := os.MkdirAll(a.cfg.DataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	c := container
	if c == nil {
		c = di.NewContainer()
	}

	store, err := c.GetStoreFactory().OpenStore(a.cfg.DataDir,
		storage.WithDecoderOptions(a.decoderOptions()...),
		storage.WithLogger(a.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}
