package main

import (
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	var (
		filter     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Short:   "List open video tabs with remembered durations",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		Long: `List every open video tab. Tabs that were never probed show
"unknown" as their duration. Cache entries of closed tabs are dropped.`,
		Example: `  tabmemory list
  tabmemory list --filter lofi
  tabmemory list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.svc.ListTabs(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(out(cmd), res)
			}
			return printTabs(out(cmd), res.Tabs)
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "fuzzy filter on titles")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
