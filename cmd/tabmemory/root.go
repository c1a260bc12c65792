package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dgnsrekt/tabmemory/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	// Flag overrides; empty or zero keeps the environment value.
	flagLogLevel    string
	flagCDPAddress  string
	flagCDPPort     int
	flagStore       string
	flagStorePath   string
	flagTabFilter   string
	flagConcurrency int
)

var rootCmd = &cobra.Command{
	Use:   "tabmemory",
	Short: "Remember durations and titles of the videos open in your browser",
	Long: `tabmemory connects to a Chromium started with remote debugging, probes
every open YouTube tab for its video duration and title, and keeps the
results in a small local cache that forgets tabs once they are closed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		applyFlagOverrides(cmd)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return setupLogger(cfg.LogLevel, cfg.LogFile)
	},
}

// Execute loads configuration and runs the root command.
func Execute() {
	loaded, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tabmemory: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	rootCmd.SetContext(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
}

func applyFlagOverrides(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("cdp-address") {
		cfg.CDPAddress = flagCDPAddress
	}
	if flags.Changed("cdp-port") {
		cfg.CDPPort = flagCDPPort
	}
	if flags.Changed("store") {
		cfg.StoreBackend = strings.ToLower(flagStore)
		if !flags.Changed("store-path") && os.Getenv("TABMEMORY_STORE_PATH") == "" {
			cfg.StorePath = config.DefaultStorePath(cfg.StoreBackend)
		}
	}
	if flags.Changed("store-path") {
		cfg.StorePath = flagStorePath
	}
	if flags.Changed("tab-filter") {
		cfg.TabURLFilter = flagTabFilter
	}
	if flags.Changed("concurrency") {
		cfg.ProbeConcurrency = flagConcurrency
	}
}

func out(cmd *cobra.Command) io.Writer { return cmd.OutOrStdout() }

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flagCDPAddress, "cdp-address", "", "Chromium remote debugging address")
	pf.IntVar(&flagCDPPort, "cdp-port", 0, "Chromium remote debugging port")
	pf.StringVar(&flagStore, "store", "", "cache store backend: json or bolt")
	pf.StringVar(&flagStorePath, "store-path", "", "cache store file")
	pf.StringVar(&flagTabFilter, "tab-filter", "", "domain a tab URL host must match (subdomains included)")
	pf.IntVar(&flagConcurrency, "concurrency", 0, "max probes in flight (0 = one per tab)")

	rootCmd.Version = versionString()
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newRefreshCmd())
	rootCmd.AddCommand(newPruneCmd())
	rootCmd.AddCommand(newFocusCmd())
	rootCmd.AddCommand(newLaunchCmd())
}
