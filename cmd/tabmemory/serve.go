package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgnsrekt/tabmemory/internal/api"
	"github.com/dgnsrekt/tabmemory/internal/netutil"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control API",
		Long: `Serve the control API with OpenAPI docs at /docs and Prometheus
metrics at /metrics. When the bind address is taken the configured
candidates are tried in order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if bind != "" {
				cfg.BindAddr = bind
			}

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ln, err := netutil.Listen(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
			if err != nil {
				slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
				return err
			}
			addr := ln.Addr().String()

			srv := &http.Server{
				Handler:           api.NewServer(a.svc, a.metrics),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				slog.Info("tabmemory listening", "addr", addr, "docs", "http://"+addr+"/docs")
				errCh <- srv.Serve(ln)
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					slog.Error("tabmemory server failed", "error", err)
					return err
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("tabmemory shutdown failed", "error", err)
				return err
			}
			slog.Info("tabmemory stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address (default from TABMEMORY_BIND_ADDR)")
	return cmd
}
