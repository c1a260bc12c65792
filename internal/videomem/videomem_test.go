package videomem

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/dgnsrekt/tabmemory/internal/probe"
	"github.com/dgnsrekt/tabmemory/internal/tabkey"
)

var (
	t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	t1 = t0.Add(time.Hour)
)

func TestPruneStaleNoLiveTabs(t *testing.T) {
	cache := Cache{"https://youtube.com/watch?v=abc": {Duration: "4:30", Title: "X", LastUpdated: t0}}

	got, changed := PruneStale(cache, tabkey.LiveKeys(nil))
	if len(got) != 0 {
		t.Fatalf("PruneStale() = %v; want empty", got)
	}
	if !changed {
		t.Fatal("PruneStale() changed = false; want true")
	}
	if len(cache) != 1 {
		t.Fatalf("PruneStale() mutated input: %v", cache)
	}
}

func TestPruneStaleKeepsLiveEntriesUnchanged(t *testing.T) {
	cache := Cache{
		"k1": {Duration: "01:00", Title: "one", LastUpdated: t0},
		"k2": {Duration: "02:00", Title: "two", LastUpdated: t0},
		"k3": {Duration: "03:00", Title: "three", LastUpdated: t0},
	}
	live := map[tabkey.Key]struct{}{"k1": {}, "k3": {}, "k9": {}}

	got, changed := PruneStale(cache, live)
	if !changed {
		t.Fatal("PruneStale() changed = false; want true")
	}
	for key := range got {
		if _, ok := live[key]; !ok {
			t.Fatalf("PruneStale() kept non-live key %q", key)
		}
	}
	for _, key := range []tabkey.Key{"k1", "k3"} {
		if got[key] != cache[key] {
			t.Fatalf("PruneStale()[%q] = %+v; want %+v", key, got[key], cache[key])
		}
	}
	if _, ok := got["k9"]; ok {
		t.Fatal("PruneStale() invented an entry for a live key without data")
	}
}

func TestPruneStaleNothingToRemove(t *testing.T) {
	cache := Cache{"k1": {Title: "one"}}
	got, changed := PruneStale(cache, map[tabkey.Key]struct{}{"k1": {}})
	if changed {
		t.Fatal("PruneStale() changed = true; want false")
	}
	if !reflect.DeepEqual(got, cache) {
		t.Fatalf("PruneStale() = %v; want %v", got, cache)
	}
}

func TestMergeResultsSuccessAndFailure(t *testing.T) {
	results := []probe.Result{
		{Index: 0, Key: "k1", Metadata: probe.Metadata{Duration: "10:00", Title: "ten"}},
		{Index: 1, Key: "k2", Err: probe.ErrNoMedia},
	}

	got, n := MergeResults(Cache{}, results, t0)
	if n != 1 {
		t.Fatalf("MergeResults() count = %d; want 1", n)
	}
	want := Cache{"k1": {Duration: "10:00", Title: "ten", LastUpdated: t0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MergeResults() = %v; want %v", got, want)
	}
}

func TestMergeResultsFailuresLeaveCacheUnchanged(t *testing.T) {
	cache := Cache{
		"k1": {Duration: "01:00", Title: "one", LastUpdated: t0},
		"k2": {Duration: "02:00", Title: "two", LastUpdated: t0},
	}
	results := []probe.Result{
		{Key: "k1", Err: probe.ErrInvalidDuration},
		{Key: "k2", Err: errors.Join(probe.ErrProbeFailed, errors.New("target closed"))},
	}

	got, n := MergeResults(cache, results, t1)
	if n != 0 {
		t.Fatalf("MergeResults() count = %d; want 0", n)
	}
	if !reflect.DeepEqual(got, cache) {
		t.Fatalf("MergeResults() = %v; want %v", got, cache)
	}
}

func TestMergeResultsOverwritesExisting(t *testing.T) {
	cache := Cache{"k1": {Duration: "01:00", Title: "old", LastUpdated: t0}}
	results := []probe.Result{{Key: "k1", Metadata: probe.Metadata{Duration: "01:30", Title: "new"}}}

	got, n := MergeResults(cache, results, t1)
	if n != 1 {
		t.Fatalf("MergeResults() count = %d; want 1", n)
	}
	if want := (VideoMetadata{Duration: "01:30", Title: "new", LastUpdated: t1}); got["k1"] != want {
		t.Fatalf("MergeResults()[k1] = %+v; want %+v", got["k1"], want)
	}
	if cache["k1"].Title != "old" {
		t.Fatalf("MergeResults() mutated input: %+v", cache["k1"])
	}
}

func TestMergeResultsLastDispatchedWins(t *testing.T) {
	key := tabkey.Normalize("https://youtube.com/watch?v=abc&list=1")
	if other := tabkey.Normalize("https://youtube.com/watch?v=abc&list=2"); other != key {
		t.Fatalf("keys differ: %q vs %q", key, other)
	}
	results := []probe.Result{
		{Index: 0, Key: key, Metadata: probe.Metadata{Duration: "01:00", Title: "first"}},
		{Index: 1, Key: key, Metadata: probe.Metadata{Duration: "02:00", Title: "second"}},
	}

	got, _ := MergeResults(Cache{}, results, t0)
	if got[key].Title != "second" {
		t.Fatalf("MergeResults()[%q].Title = %q; want %q", key, got[key].Title, "second")
	}
}
