package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the dataset cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Drop the cached dataset and reload it from the sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.service(cmd)
			if err != nil {
				return err
			}
			if err := svc.ClearCache(cmd.Context()); err != nil {
				return err
			}

			st := svc.Status(cmd.Context())
			if wantJSON(cmd) {
				return printJSON(cmd, st)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cache cleared, reloaded %d vehicles from %s\n", st.Vehicles, st.Source)
			return nil
		},
	})
	return cmd
}
