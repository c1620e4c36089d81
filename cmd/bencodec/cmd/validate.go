package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/bencodec/pkg/bencode"
)

var errNotCanonical = errors.New("input is valid but not canonical")

func newValidateCmd(a *app) *cobra.Command {
	var requireCanonical bool

	cmd := &cobra.Command{
		Use:   "validate [file|-]",
		Short: "Check that input is well-formed bencode",
		Long: `Check that the input holds exactly one well-formed bencoded value.

The command exits non-zero on invalid input and reports the byte offset of
the first error. With --canonical, valid but non-canonical input (unsorted
keys, leading zeros, negative zero) also fails.

Example:
  bencodec validate ubuntu.torrent --canonical`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			v, err := bencode.Unmarshal(data, a.decoderOptions()...)
			if err != nil {
				var syntaxErr *bencode.SyntaxError
				if errors.As(err, &syntaxErr) {
					fmt.Fprintf(cmd.OutOrStdout(), "invalid: %s (offset %d)\n", syntaxErr.Reason, syntaxErr.Offset)
				}
				return err
			}

			canonical := bencode.IsCanonical(data)
			fmt.Fprintf(cmd.OutOrStdout(), "valid: %s, %d bytes, canonical=%t\n", v.Kind(), len(data), canonical)
			if requireCanonical && !canonical {
				return errNotCanonical
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&requireCanonical, "canonical", false, "Fail unless the input is canonical")
	return cmd
}
