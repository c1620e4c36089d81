package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var limit int
	var stats bool
	var long bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored document ids",
		Long: `List stored document ids in creation order.

With --long each line also shows the canonical size in bytes and the
creation and last-modified times.

Examples:
  bencodec list --limit 10
  bencodec list --long
  bencodec list --stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if stats {
				st, err := store.Stats()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "documents: %d\nbytes: %d\n", st.Documents, st.Bytes)
				if st.Corrupt > 0 {
					fmt.Fprintf(out, "corrupt: %d\n", st.Corrupt)
				}
				return nil
			}

			ids, err := store.List(limit)
			if err != nil {
				return err
			}
			for _, id := range ids {
				if !long {
					fmt.Fprintln(out, id.String())
					continue
				}
				info, err := store.Info(id)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%d\t%s\t%s\n", id, info.Size,
					info.Created.Format(time.RFC3339), info.Modified.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of ids to print (0 for all)")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print document count and total size instead")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show size and timestamps")
	return cmd
}
