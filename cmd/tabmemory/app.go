package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/dgnsrekt/tabmemory/internal/cdpcontrol"
	"github.com/dgnsrekt/tabmemory/internal/config"
	"github.com/dgnsrekt/tabmemory/internal/controller"
	"github.com/dgnsrekt/tabmemory/internal/store"
	"github.com/dgnsrekt/tabmemory/internal/telemetry"
	"github.com/dgnsrekt/tabmemory/internal/videomem"
)

// app bundles the wired service with what must be closed on exit.
type app struct {
	svc     *controller.Service
	metrics *telemetry.Metrics
	cdp     *cdpcontrol.Client
	kv      store.KV
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	kv, err := store.Open(cfg.StoreBackend, cfg.StorePath)
	if err != nil {
		return nil, err
	}

	evalTimeout := time.Duration(cfg.EvalTimeoutMS) * time.Millisecond
	cdp := cdpcontrol.NewClient(cfg.CDPURL(), cfg.TabURLFilter, evalTimeout)
	if err := cdp.Connect(ctx); err != nil {
		if closeErr := kv.Close(); closeErr != nil {
			slog.Debug("store close failed", "error", closeErr)
		}
		return nil, err
	}

	metrics := telemetry.New()
	svc := controller.NewService(cdp, videomem.NewRepository(kv),
		controller.WithMetrics(metrics),
		// Each probe gets a little longer than one evaluation so a retry fits.
		controller.WithProbeTimeout(2*evalTimeout+time.Second),
		controller.WithProbeConcurrency(cfg.ProbeConcurrency),
	)

	slog.Info("tabmemory ready",
		"cdp_url", cfg.CDPURL(),
		"tab_url_filter", cfg.TabURLFilter,
		"store", cfg.StoreBackend,
		"store_path", cfg.StorePath,
	)
	return &app{svc: svc, metrics: metrics, cdp: cdp, kv: kv}, nil
}

func (a *app) Close() {
	if err := a.cdp.Close(); err != nil {
		slog.Debug("CDP client close failed", "error", err)
	}
	if err := a.kv.Close(); err != nil {
		slog.Debug("store close failed", "error", err)
	}
}
