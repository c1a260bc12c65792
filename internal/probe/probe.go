// Package probe runs one metadata probe per open tab, concurrently, and
// collects a tagged result for each of them.
package probe

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/dgnsrekt/tabmemory/internal/tabkey"
)

// Probe failures. They are recovered per tab and never fail a batch.
var (
	ErrNotVideoPage    = errors.New("page is not a video page")
	ErrNoMedia         = errors.New("no media element found")
	ErrInvalidDuration = errors.New("media duration is unset or invalid")
	ErrProbeFailed     = errors.New("probe execution failed")
)

// Tab is an open browser tab as reported by the tab enumeration.
type Tab struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Key returns the canonical cache key of the tab.
func (t Tab) Key() tabkey.Key { return tabkey.Normalize(t.URL) }

// Metadata is what a successful probe extracts from a tab.
type Metadata struct {
	Duration string `json:"duration"`
	Title    string `json:"title"`
}

// Func probes a single tab.
type Func func(ctx context.Context, tab Tab) (Metadata, error)

// Result is the outcome of probing one tab. Index is the dispatch position.
type Result struct {
	Index    int
	Key      tabkey.Key
	Tab      Tab
	Metadata Metadata
	Err      error
}

// OK reports whether the probe succeeded.
func (r Result) OK() bool { return r.Err == nil }

// IsProbeError reports whether err is one of the recoverable probe failures.
func IsProbeError(err error) bool {
	return errors.Is(err, ErrNotVideoPage) ||
		errors.Is(err, ErrNoMedia) ||
		errors.Is(err, ErrInvalidDuration) ||
		errors.Is(err, ErrProbeFailed)
}

// asProbeError tags unknown failures (tab vanished, eval error, timeout) as
// ErrProbeFailed so callers can treat every failure the same way.
func asProbeError(err error) error {
	if err == nil || IsProbeError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrProbeFailed, err)
}

// FormatDuration renders whole seconds as HH:MM:SS from one hour up and as
// MM:SS below that.
func FormatDuration(seconds float64) (string, error) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds <= 0 {
		return "", fmt.Errorf("%w: %v", ErrInvalidDuration, seconds)
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if total >= 3600 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s), nil
	}
	return fmt.Sprintf("%02d:%02d", m, s), nil
}
