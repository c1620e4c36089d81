package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/bencodec/pkg/bencode"
)

func newFmtCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fmt [file|-]",
		Short: "Rewrite bencode in canonical form",
		Long: `Parse bencode and write it back in canonical form: dictionary keys
sorted, no leading zeros, no negative zero.

Example:
  bencodec fmt messy.torrent -o clean.torrent`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			v, err := bencode.Unmarshal(data, a.decoderOptions()...)
			if err != nil {
				return err
			}

			out, err := bencode.Marshal(v)
			if err != nil {
				return err
			}
			a.logger.Debug().Int("in", len(data)).Int("out", len(out)).Msg("canonicalized")
			return writeOutput(cmd, output, out)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}
