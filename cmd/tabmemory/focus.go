package main

import (
	"github.com/spf13/cobra"
)

func newFocusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "focus <tab-id>",
		Short:   "Bring a tab to the front of its window",
		Args:    cobra.ExactArgs(1),
		Example: `  tabmemory list            # find the TAB column
  tabmemory focus 6F1C0A...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.svc.FocusTab(cmd.Context(), args[0])
		},
	}
}
