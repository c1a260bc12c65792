package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/tabmemory/internal/controller"
	"github.com/dgnsrekt/tabmemory/internal/videomem"
)

type tabIDInput struct {
	TabID string `path:"tab_id" doc:"CDP target id of the tab"`
}

func registerTabHandlers(api huma.API, svc Service) {
	type listTabsOutput struct {
		Body controller.ListResult
	}
	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "List open video tabs with remembered metadata", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct {
			Query string `query:"q" doc:"Fuzzy title filter"`
		}) (*listTabsOutput, error) {
			res, err := svc.ListTabs(ctx, input.Query)
			if err != nil {
				return nil, mapErr(err)
			}
			return &listTabsOutput{Body: res}, nil
		})

	type refreshOutput struct {
		Body controller.RefreshResult
	}
	huma.Register(api, huma.Operation{OperationID: "refresh", Method: http.MethodPost, Path: "/api/v1/refresh", Summary: "Probe every open video tab and update the cache", Tags: []string{"Cache"}},
		func(ctx context.Context, input *struct{}) (*refreshOutput, error) {
			res, err := svc.Refresh(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &refreshOutput{Body: res}, nil
		})

	type pruneOutput struct {
		Body controller.PruneResult
	}
	huma.Register(api, huma.Operation{OperationID: "prune", Method: http.MethodPost, Path: "/api/v1/prune", Summary: "Drop cache entries of closed tabs", Tags: []string{"Cache"}},
		func(ctx context.Context, input *struct{}) (*pruneOutput, error) {
			res, err := svc.Prune(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &pruneOutput{Body: res}, nil
		})

	type cacheOutput struct {
		Body struct {
			Entries videomem.Cache `json:"entries"`
			Count   int            `json:"count"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-cache", Method: http.MethodGet, Path: "/api/v1/cache", Summary: "Dump the stored video cache", Tags: []string{"Cache"}},
		func(ctx context.Context, input *struct{}) (*cacheOutput, error) {
			cache, err := svc.Cache(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &cacheOutput{}
			out.Body.Entries = cache
			out.Body.Count = len(cache)
			return out, nil
		})

	type focusOutput struct {
		Body struct {
			TabID  string `json:"tab_id"`
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "focus-tab", Method: http.MethodPost, Path: "/api/v1/tabs/{tab_id}/focus", Summary: "Bring a tab to the front of its window", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabIDInput) (*focusOutput, error) {
			if err := svc.FocusTab(ctx, input.TabID); err != nil {
				return nil, mapErr(err)
			}
			out := &focusOutput{}
			out.Body.TabID = input.TabID
			out.Body.Status = "focused"
			return out, nil
		})
}
