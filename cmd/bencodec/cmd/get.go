package cmd

import (
	"fmt"

	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	format := newFormatFlag("json", "json", "tree", "raw")

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a stored document",
		Long: `Print a stored document as JSON, as a tree, or as its raw canonical bytes.

Example:
  bencodec get 2Dq8pJZ7cFGkPZ8T9tq1dRQ3c1A --format tree`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ksuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid document id %q: %w", args[0], err)
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if format.String() == "raw" {
				data, err := store.ReadRaw(id)
				if err != nil {
					return err
				}
				return writeOutput(cmd, "", data)
			}

			v, err := store.Read(id)
			if err != nil {
				return err
			}
			out, err := renderValue(v, format.String())
			if err != nil {
				return err
			}
			return writeOutput(cmd, "", out)
		},
	}

	cmd.Flags().VarP(format, "format", "f", "Output format (json, tree, raw)")
	return cmd
}
