package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dgnsrekt/tabmemory/internal/controller"
	"github.com/dgnsrekt/tabmemory/internal/videomem"
)

type stubService struct {
	list    controller.ListResult
	refresh controller.RefreshResult
	prune   controller.PruneResult
	cache   videomem.Cache
	err     error

	gotQuery string
	gotTabID string
}

func (s *stubService) ListTabs(ctx context.Context, query string) (controller.ListResult, error) {
	s.gotQuery = query
	return s.list, s.err
}

func (s *stubService) Refresh(ctx context.Context) (controller.RefreshResult, error) {
	return s.refresh, s.err
}

func (s *stubService) Prune(ctx context.Context) (controller.PruneResult, error) {
	return s.prune, s.err
}

func (s *stubService) FocusTab(ctx context.Context, tabID string) error {
	s.gotTabID = tabID
	return s.err
}

func (s *stubService) Cache(ctx context.Context) (videomem.Cache, error) {
	return s.cache, s.err
}

func TestDocsDarkMode(t *testing.T) {
	h := NewServer(&stubService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/docs", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, `data-theme="dark"`) {
		t.Fatalf("docs missing dark theme marker")
	}
	if !strings.Contains(body, "/openapi.json") {
		t.Fatalf("docs missing openapi reference")
	}
}

func TestOpenAPIServed(t *testing.T) {
	h := NewServer(&stubService{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/openapi.json", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "/api/v1/refresh") {
		t.Fatalf("openapi document missing refresh operation")
	}
}
