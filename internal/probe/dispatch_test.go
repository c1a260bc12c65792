package probe

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"
)

func tabs(urls ...string) []Tab {
	out := make([]Tab, len(urls))
	for i, u := range urls {
		out[i] = Tab{ID: fmt.Sprintf("T%d", i), URL: u}
	}
	return out
}

func TestDispatchAllPartialFailure(t *testing.T) {
	in := tabs(
		"https://youtube.com/watch?v=a",
		"https://youtube.com/watch?v=b",
		"https://youtube.com/watch?v=c",
		"https://youtube.com/watch?v=d",
	)
	fn := func(ctx context.Context, tab Tab) (Metadata, error) {
		switch tab.ID {
		case "T1":
			return Metadata{}, ErrNoMedia
		case "T3":
			return Metadata{}, errors.New("target closed")
		}
		return Metadata{Duration: "01:00", Title: tab.ID}, nil
	}

	results := DispatchAll(context.Background(), in, fn)
	if len(results) != len(in) {
		t.Fatalf("len(results) = %d; want %d", len(results), len(in))
	}
	for i, r := range results {
		if r.Index != i || r.Tab.ID != in[i].ID {
			t.Fatalf("results[%d] belongs to %s (index %d)", i, r.Tab.ID, r.Index)
		}
		if r.Key != in[i].Key() {
			t.Fatalf("results[%d].Key = %q; want %q", i, r.Key, in[i].Key())
		}
	}
	if !errors.Is(results[1].Err, ErrNoMedia) {
		t.Fatalf("results[1].Err = %v; want ErrNoMedia", results[1].Err)
	}
	if !errors.Is(results[3].Err, ErrProbeFailed) {
		t.Fatalf("results[3].Err = %v; want ErrProbeFailed", results[3].Err)
	}
	if got, total := Summary(results); got != 2 || total != 4 {
		t.Fatalf("Summary() = %d/%d; want 2/4", got, total)
	}
}

func TestDispatchAllKeepsDispatchOrder(t *testing.T) {
	in := tabs("https://youtube.com/watch?v=abc&list=1", "https://youtube.com/watch?v=abc&list=2")
	fn := func(ctx context.Context, tab Tab) (Metadata, error) {
		// First-dispatched finishes last.
		if tab.ID == "T0" {
			time.Sleep(30 * time.Millisecond)
		}
		return Metadata{Title: tab.ID}, nil
	}

	results := DispatchAll(context.Background(), in, fn)
	if results[0].Metadata.Title != "T0" || results[1].Metadata.Title != "T1" {
		t.Fatalf("results out of dispatch order: %q, %q", results[0].Metadata.Title, results[1].Metadata.Title)
	}
	if results[0].Key != results[1].Key {
		t.Fatalf("keys differ: %q vs %q", results[0].Key, results[1].Key)
	}
}

func TestDispatchAllTimeoutIsolatesHungProbe(t *testing.T) {
	in := tabs("https://youtube.com/watch?v=slow", "https://youtube.com/watch?v=fast")
	release := make(chan struct{})
	defer close(release)
	fn := func(ctx context.Context, tab Tab) (Metadata, error) {
		if tab.ID == "T0" {
			<-release // ignores ctx on purpose
			return Metadata{}, nil
		}
		return Metadata{Duration: "00:10"}, nil
	}

	start := time.Now()
	results := DispatchAll(context.Background(), in, fn, WithTimeout(50*time.Millisecond))
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("DispatchAll took %v; hung probe was not bounded", elapsed)
	}
	if !errors.Is(results[0].Err, ErrProbeFailed) || !errors.Is(results[0].Err, context.DeadlineExceeded) {
		t.Fatalf("results[0].Err = %v; want ErrProbeFailed wrapping DeadlineExceeded", results[0].Err)
	}
	if !results[1].OK() {
		t.Fatalf("results[1].Err = %v; want success", results[1].Err)
	}
}

func TestDispatchAllRecoversPanics(t *testing.T) {
	in := tabs("https://youtube.com/watch?v=a", "https://youtube.com/watch?v=b")
	fn := func(ctx context.Context, tab Tab) (Metadata, error) {
		if tab.ID == "T0" {
			panic("boom")
		}
		return Metadata{Duration: "00:01"}, nil
	}

	results := DispatchAll(context.Background(), in, fn)
	if !errors.Is(results[0].Err, ErrProbeFailed) {
		t.Fatalf("results[0].Err = %v; want ErrProbeFailed", results[0].Err)
	}
	if !results[1].OK() {
		t.Fatalf("results[1].Err = %v; want success", results[1].Err)
	}
}

func TestDispatchAllConcurrencyCap(t *testing.T) {
	in := tabs("a", "b", "c", "d", "e", "f")
	var inFlight, peak atomic.Int32
	fn := func(ctx context.Context, tab Tab) (Metadata, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return Metadata{}, nil
	}

	DispatchAll(context.Background(), in, fn, WithConcurrency(2))
	if p := peak.Load(); p > 2 {
		t.Fatalf("peak in-flight probes = %d; want <= 2", p)
	}
}

func TestDispatchAllEmpty(t *testing.T) {
	called := false
	results := DispatchAll(context.Background(), nil, func(ctx context.Context, tab Tab) (Metadata, error) {
		called = true
		return Metadata{}, nil
	})
	if len(results) != 0 || called {
		t.Fatalf("DispatchAll(nil) = %v, called=%v; want empty, not called", results, called)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{270, "04:30"},
		{59.9, "00:59"},
		{600, "10:00"},
		{3599, "59:59"},
		{3600, "01:00:00"},
		{3725.4, "01:02:05"},
		{90061, "25:01:01"},
	}
	for _, tt := range tests {
		got, err := FormatDuration(tt.seconds)
		if err != nil {
			t.Fatalf("FormatDuration(%v) error = %v", tt.seconds, err)
		}
		if got != tt.want {
			t.Fatalf("FormatDuration(%v) = %q; want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFormatDurationRejectsInvalid(t *testing.T) {
	for _, s := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := FormatDuration(s); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("FormatDuration(%v) error = %v; want ErrInvalidDuration", s, err)
		}
	}
}
