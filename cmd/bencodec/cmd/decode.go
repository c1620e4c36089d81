package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/bencodec/pkg/bencode"
	"github.com/ssargent/bencodec/pkg/bjson"
)

func newDecodeCmd(a *app) *cobra.Command {
	format := newFormatFlag("json", "json", "tree")
	var stream bool

	cmd := &cobra.Command{
		Use:   "decode [file|-]",
		Short: "Decode bencode into JSON or a tree view",
		Long: `Decode a bencoded value and print it as JSON or as an indented tree.

Byte strings that are not valid UTF-8 appear in JSON as {"$base64": "..."}.
With --stream the input may hold several concatenated values; each one is
printed as a single JSON line.

Examples:
  bencodec decode ubuntu.torrent --format tree
  cat response.bin | bencodec decode --strict`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if stream {
				return decodeStream(cmd, a, args)
			}

			data, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			v, err := bencode.Unmarshal(data, a.decoderOptions()...)
			if err != nil {
				return err
			}
			a.logger.Debug().Str("kind", v.Kind().String()).Int("bytes", len(data)).Msg("decoded")

			out, err := renderValue(v, format.String())
			if err != nil {
				return err
			}
			return writeOutput(cmd, "", out)
		},
	}

	cmd.Flags().VarP(format, "format", "f", "Output format (json, tree)")
	cmd.Flags().BoolVar(&stream, "stream", false, "Decode a sequence of concatenated values")
	return cmd
}

func decodeStream(cmd *cobra.Command, a *app, args []string) error {
	in, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer in.Close()

	dec := bencode.NewDecoder(bufio.NewReader(in), a.decoderOptions()...)
	out := cmd.OutOrStdout()
	count := 0
	for {
		v, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("value %d: %w", count, err)
		}

		line, err := bjson.Marshal(v)
		if err != nil {
			return fmt.Errorf("value %d: %w", count, err)
		}
		if _, err := fmt.Fprintf(out, "%s\n", line); err != nil {
			return err
		}
		count++
	}

	a.logger.Debug().Int("values", count).Int64("bytes", dec.InputOffset()).Msg("stream decoded")
	return nil
}
