package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dgnsrekt/tabmemory/internal/cdpcontrol"
	"github.com/dgnsrekt/tabmemory/internal/controller"
	"github.com/dgnsrekt/tabmemory/internal/telemetry"
	"github.com/dgnsrekt/tabmemory/internal/videomem"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Service interface {
	ListTabs(ctx context.Context, query string) (controller.ListResult, error)
	Refresh(ctx context.Context) (controller.RefreshResult, error)
	Prune(ctx context.Context) (controller.PruneResult, error)
	FocusTab(ctx context.Context, tabID string) error
	Cache(ctx context.Context) (videomem.Cache, error)
}

// NewServer mounts the control API, /docs and /metrics on a chi router.
// metrics may be nil.
func NewServer(svc Service, metrics *telemetry.Metrics) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger(metrics))
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("tabmemory API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})
	router.Handle("/metrics", metrics.Handler())

	registerTabHandlers(api, svc)
	registerMiscHandlers(api)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *cdpcontrol.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case cdpcontrol.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case cdpcontrol.CodeTabNotFound:
			return huma.Error404NotFound(coded.Message)
		case cdpcontrol.CodeBusy:
			return huma.Error409Conflict(coded.Message)
		case cdpcontrol.CodeEvalTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case cdpcontrol.CodeCDPUnavailable:
			return huma.Error502BadGateway(coded.Message)
		case cdpcontrol.CodeStoreFailure:
			return huma.Error500InternalServerError(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
