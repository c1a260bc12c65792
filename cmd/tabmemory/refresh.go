package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRefreshCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Probe every open video tab and update the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out(cmd), res)
			}
			if _, err := fmt.Fprintf(out(cmd), "Updated %d of %d tabs.\n", res.Updated, res.Total); err != nil {
				return err
			}
			return printTabs(out(cmd), res.Tabs)
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
