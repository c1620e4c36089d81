package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put [file|-]",
		Short: "Store a bencoded document",
		Long: `Validate a bencoded document, store its canonical form and print the new
document id.

Example:
  bencodec put ubuntu.torrent`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			info, v, err := store.CreateRaw(data)
			if err != nil {
				return err
			}

			a.logger.Info().Str("id", info.ID.String()).Str("kind", v.Kind().String()).Int("bytes", info.Size).Msg("document stored")
			fmt.Fprintln(cmd.OutOrStdout(), info.ID.String())
			return nil
		},
	}
}
