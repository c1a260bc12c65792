package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgnsrekt/tabmemory/internal/cdpcontrol"
	"github.com/dgnsrekt/tabmemory/internal/probe"
	"github.com/dgnsrekt/tabmemory/internal/tabkey"
	"github.com/dgnsrekt/tabmemory/internal/telemetry"
	"github.com/dgnsrekt/tabmemory/internal/videomem"
	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
)

const (
	// DurationUnknown is shown for tabs that were never probed successfully.
	DurationUnknown = "unknown"

	titleSuffix = " - YouTube"
)

// TabSource enumerates, probes and focuses browser tabs.
type TabSource interface {
	ListTabs(ctx context.Context) ([]cdpcontrol.TabInfo, error)
	ProbeVideo(ctx context.Context, tab probe.Tab) (probe.Metadata, error)
	FocusTab(ctx context.Context, tabID string) error
}

// Service runs reconciliation passes over the open tabs and the stored
// video cache. Only one pass runs at a time.
type Service struct {
	tabs    TabSource
	repo    *videomem.Repository
	metrics *telemetry.Metrics
	now     func() time.Time

	probeTimeout time.Duration
	concurrency  int

	pass sync.Mutex
}

type Option func(*Service)

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source used for LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithProbeTimeout(d time.Duration) Option {
	return func(s *Service) { s.probeTimeout = d }
}

// WithProbeConcurrency caps in-flight probes; 0 means one goroutine per tab.
func WithProbeConcurrency(n int) Option {
	return func(s *Service) { s.concurrency = n }
}

func NewService(tabs TabSource, repo *videomem.Repository, opts ...Option) *Service {
	s := &Service{tabs: tabs, repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TabView is one open tab as shown to the user.
type TabView struct {
	TabID       string     `json:"tab_id"`
	URL         string     `json:"url"`
	Key         string     `json:"key"`
	Title       string     `json:"title"`
	Duration    string     `json:"duration"`
	Known       bool       `json:"known"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

type ListResult struct {
	PassID string    `json:"pass_id"`
	Tabs   []TabView `json:"tabs"`
	Pruned int       `json:"pruned"`
}

type RefreshResult struct {
	PassID  string    `json:"pass_id"`
	Updated int       `json:"updated"`
	Total   int       `json:"total"`
	Pruned  int       `json:"pruned"`
	Tabs    []TabView `json:"tabs"`
}

type PruneResult struct {
	PassID    string `json:"pass_id"`
	Removed   int    `json:"removed"`
	Remaining int    `json:"remaining"`
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &cdpcontrol.CodedError{Code: cdpcontrol.CodeValidation, Message: fieldName + " is required"}
	}
	return nil
}

// beginPass claims the pass lock or fails fast with CodeBusy.
func (s *Service) beginPass(kind string) (string, func(err error), error) {
	if !s.pass.TryLock() {
		s.metrics.RecordPass(kind, "busy", 0)
		return "", nil, cdpcontrol.NewError(cdpcontrol.CodeBusy, kind+" rejected: another pass is running", nil)
	}
	passID := uuid.NewString()
	start := time.Now()
	slog.Debug("controller pass start", "kind", kind, "pass_id", passID)
	return passID, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			slog.Warn("controller pass failed", "kind", kind, "pass_id", passID, "error", err)
		}
		s.metrics.RecordPass(kind, outcome, time.Since(start))
		s.pass.Unlock()
	}, nil
}

// ListTabs prunes entries for closed tabs and returns every open tab with its
// remembered metadata. A non-empty query keeps only tabs whose title fuzzily
// matches it, best match first.
func (s *Service) ListTabs(ctx context.Context, query string) (res ListResult, err error) {
	passID, done, err := s.beginPass("list")
	if err != nil {
		return ListResult{}, err
	}
	defer func() { done(err) }()

	tabs, err := s.listTabs(ctx)
	if err != nil {
		return ListResult{}, err
	}
	cache, err := s.load(ctx)
	if err != nil {
		return ListResult{}, err
	}
	cache, pruned, err := s.pruneAndSave(ctx, cache, tabs, false)
	if err != nil {
		return ListResult{}, err
	}

	views := filterViews(buildViews(tabs, cache), query)
	slog.Info("controller tabs listed", "pass_id", passID, "tabs", len(tabs), "shown", len(views), "pruned", pruned)
	return ListResult{PassID: passID, Tabs: views, Pruned: pruned}, nil
}

// Refresh probes every open tab concurrently and merges the successes into
// the cache. Stale entries are pruned in memory and the cache is written at
// most once, only when a probe succeeded or an entry was pruned.
func (s *Service) Refresh(ctx context.Context) (res RefreshResult, err error) {
	passID, done, err := s.beginPass("refresh")
	if err != nil {
		return RefreshResult{}, err
	}
	defer func() { done(err) }()

	tabs, err := s.listTabs(ctx)
	if err != nil {
		return RefreshResult{}, err
	}

	logger := slog.Default().With("pass_id", passID)
	opts := []probe.Option{probe.WithLogger(logger)}
	if s.probeTimeout > 0 {
		opts = append(opts, probe.WithTimeout(s.probeTimeout))
	}
	if s.concurrency > 0 {
		opts = append(opts, probe.WithConcurrency(s.concurrency))
	}
	results := probe.DispatchAll(ctx, tabs, s.tabs.ProbeVideo, opts...)
	for _, r := range results {
		s.metrics.RecordProbe(probeOutcome(r.Err))
	}

	cache, err := s.load(ctx)
	if err != nil {
		return RefreshResult{}, err
	}
	merged, updated := videomem.MergeResults(cache, results, s.now())
	merged, pruned, err := s.pruneAndSave(ctx, merged, tabs, updated > 0)
	if err != nil {
		return RefreshResult{}, err
	}

	succeeded, total := probe.Summary(results)
	logger.Info("controller refresh done", "updated", succeeded, "total", total, "pruned", pruned)
	return RefreshResult{
		PassID:  passID,
		Updated: updated,
		Total:   total,
		Pruned:  pruned,
		Tabs:    buildViews(tabs, merged),
	}, nil
}

// Prune removes cache entries whose tabs are no longer open.
func (s *Service) Prune(ctx context.Context) (res PruneResult, err error) {
	passID, done, err := s.beginPass("prune")
	if err != nil {
		return PruneResult{}, err
	}
	defer func() { done(err) }()

	tabs, err := s.listTabs(ctx)
	if err != nil {
		return PruneResult{}, err
	}
	cache, err := s.load(ctx)
	if err != nil {
		return PruneResult{}, err
	}
	cache, removed, err := s.pruneAndSave(ctx, cache, tabs, false)
	if err != nil {
		return PruneResult{}, err
	}
	slog.Info("controller prune done", "pass_id", passID, "removed", removed, "remaining", len(cache))
	return PruneResult{PassID: passID, Removed: removed, Remaining: len(cache)}, nil
}

// FocusTab brings the tab to the front of its window.
func (s *Service) FocusTab(ctx context.Context, tabID string) error {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return err
	}
	return s.tabs.FocusTab(ctx, strings.TrimSpace(tabID))
}

// Cache returns the stored cache as is.
func (s *Service) Cache(ctx context.Context) (videomem.Cache, error) {
	return s.load(ctx)
}

func (s *Service) listTabs(ctx context.Context) ([]probe.Tab, error) {
	infos, err := s.tabs.ListTabs(ctx)
	if err != nil {
		return nil, err
	}
	tabs := make([]probe.Tab, 0, len(infos))
	for _, info := range infos {
		tabs = append(tabs, probe.Tab{ID: info.TargetID, URL: info.URL, Title: info.Title})
	}
	return tabs, nil
}

// pruneAndSave drops entries for closed tabs and writes the result in a
// single save when dirty is set or something was pruned.
func (s *Service) pruneAndSave(ctx context.Context, cache videomem.Cache, tabs []probe.Tab, dirty bool) (videomem.Cache, int, error) {
	urls := make([]string, len(tabs))
	for i, t := range tabs {
		urls[i] = t.URL
	}
	pruned, changed := videomem.PruneStale(cache, tabkey.LiveKeys(urls))
	removed := len(cache) - len(pruned)
	if dirty || changed {
		if err := s.save(ctx, pruned); err != nil {
			return nil, 0, err
		}
	}
	if changed {
		s.metrics.RecordPruned(removed)
	}
	s.metrics.SetCacheEntries(len(pruned))
	return pruned, removed, nil
}

func (s *Service) load(ctx context.Context) (videomem.Cache, error) {
	cache, err := s.repo.Load(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}
	return cache, nil
}

func (s *Service) save(ctx context.Context, cache videomem.Cache) error {
	if err := s.repo.Save(ctx, cache); err != nil {
		return storeFailure(err)
	}
	return nil
}

func storeFailure(err error) error {
	return cdpcontrol.NewError(cdpcontrol.CodeStoreFailure, "video cache unavailable", err)
}

func buildViews(tabs []probe.Tab, cache videomem.Cache) []TabView {
	views := make([]TabView, 0, len(tabs))
	for _, t := range tabs {
		key := t.Key()
		v := TabView{TabID: t.ID, URL: t.URL, Key: key.String()}
		if meta, ok := cache[key]; ok {
			updated := meta.LastUpdated
			v.Title = meta.Title
			v.Duration = meta.Duration
			v.Known = true
			v.LastUpdated = &updated
		} else {
			v.Title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t.Title), titleSuffix))
			v.Duration = DurationUnknown
		}
		views = append(views, v)
	}
	return views
}

type viewSource []TabView

func (s viewSource) String(i int) string { return s[i].Title }
func (s viewSource) Len() int            { return len(s) }

func filterViews(views []TabView, query string) []TabView {
	query = strings.TrimSpace(query)
	if query == "" {
		return views
	}
	matches := fuzzy.FindFrom(query, viewSource(views))
	out := make([]TabView, 0, len(matches))
	for _, m := range matches {
		out = append(out, views[m.Index])
	}
	return out
}

func probeOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, probe.ErrNotVideoPage):
		return "not_video_page"
	case errors.Is(err, probe.ErrNoMedia):
		return "no_media"
	case errors.Is(err, probe.ErrInvalidDuration):
		return "invalid_duration"
	default:
		return "failed"
	}
}
