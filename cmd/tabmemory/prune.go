package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPruneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop cache entries whose tabs are closed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.Prune(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out(cmd), "Removed %d entries, %d remaining.\n", res.Removed, res.Remaining)
			return err
		},
	}
}
