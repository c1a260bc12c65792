package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dgnsrekt/tabmemory/internal/controller"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printTabs writes one row per tab: duration, title, tab id.
func printTabs(w io.Writer, tabs []controller.TabView) error {
	if len(tabs) == 0 {
		_, err := fmt.Fprintln(w, "No video tabs open.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DURATION\tTITLE\tTAB")
	for _, t := range tabs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Duration, t.Title, t.TabID)
	}
	return tw.Flush()
}
