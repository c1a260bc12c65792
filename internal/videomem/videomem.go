// Package videomem holds the remembered video metadata cache and the pure
// reconciliation steps that keep it in line with the open tabs.
package videomem

import (
	"maps"
	"time"

	"github.com/dgnsrekt/tabmemory/internal/probe"
	"github.com/dgnsrekt/tabmemory/internal/tabkey"
)

// VideoMetadata is the last successful probe result for a video session.
type VideoMetadata struct {
	Duration    string    `json:"duration"`
	Title       string    `json:"title"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Cache maps canonical keys to remembered metadata.
type Cache map[tabkey.Key]VideoMetadata

// Clone returns a shallow copy; VideoMetadata holds no references.
func (c Cache) Clone() Cache {
	out := make(Cache, len(c))
	maps.Copy(out, c)
	return out
}

// PruneStale keeps only entries whose key is live. changed is true when at
// least one entry was dropped, so callers can skip a redundant write.
func PruneStale(cache Cache, live map[tabkey.Key]struct{}) (Cache, bool) {
	out := make(Cache, len(cache))
	changed := false
	for key, md := range cache {
		if _, ok := live[key]; !ok {
			changed = true
			continue
		}
		out[key] = md
	}
	return out, changed
}

// MergeResults writes every successful probe result into a copy of cache,
// stamped with now. Results are applied in slice order, which is dispatch
// order, so when two tabs share a key the later-dispatched one wins no matter
// which probe finished first. Failed results never touch existing entries.
// It returns the number of successful results merged.
func MergeResults(cache Cache, results []probe.Result, now time.Time) (Cache, int) {
	out := cache.Clone()
	updated := 0
	for _, r := range results {
		if !r.OK() {
			continue
		}
		out[r.Key] = VideoMetadata{
			Duration:    r.Metadata.Duration,
			Title:       r.Metadata.Title,
			LastUpdated: now,
		}
		updated++
	}
	return out, updated
}
