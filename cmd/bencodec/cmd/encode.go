package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/bencodec/pkg/bencode"
	"github.com/ssargent/bencodec/pkg/bjson"
)

func newEncodeCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "encode [file|-]",
		Short: "Encode JSON as canonical bencode",
		Long: `Encode a JSON document as canonical bencode.

Numbers must be integers. Objects of the form {"$base64": "..."} become raw
byte strings. Booleans and null have no bencode form and are rejected.

Example:
  echo '{"announce": "http://tracker", "info": {"length": 42}}' | bencodec encode -o out.torrent`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			v, err := bjson.FromJSON(data)
			if err != nil {
				return err
			}

			out, err := bencode.Marshal(v)
			if err != nil {
				return err
			}
			a.logger.Debug().Str("kind", v.Kind().String()).Int("bytes", len(out)).Msg("encoded")
			return writeOutput(cmd, output, out)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}
