package main

import (
	"github.com/dgnsrekt/tabmemory/internal/browser"
	"github.com/spf13/cobra"
)

func newLaunchCmd() *cobra.Command {
	var (
		browserPath string
		detach      bool
	)

	cmd := &cobra.Command{
		Use:   "launch",
		Short: "Start Chromium with remote debugging enabled",
		Long: `Start Chromium on the configured CDP address and port with a
dedicated profile. Does nothing when something already listens there.
Without --detach the command waits and stops the browser on Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := browser.NewLauncher(browser.Config{
				CDPAddress:  cfg.CDPAddress,
				CDPPort:     cfg.CDPPort,
				StartURL:    cfg.StartURL,
				ProfileDir:  cfg.ProfileDir,
				BrowserPath: browserPath,
			})
			if err := l.Launch(cmd.Context()); err != nil {
				return err
			}
			if detach || !l.Running() {
				return nil
			}
			l.Wait(cmd.Context())
			return nil
		},
	}
	cmd.Flags().StringVar(&browserPath, "browser", "", "browser binary (default: detect chromium)")
	cmd.Flags().BoolVar(&detach, "detach", false, "return once the CDP endpoint is ready")
	return cmd
}
