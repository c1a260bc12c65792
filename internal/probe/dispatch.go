package probe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type dispatcher struct {
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

// Option configures DispatchAll.
type Option func(*dispatcher)

// WithTimeout bounds each probe. A probe that exceeds it fails with
// ErrProbeFailed; its siblings are unaffected. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(d *dispatcher) { d.timeout = timeout }
}

// WithConcurrency caps the number of probes in flight. Zero or less means
// one goroutine per tab with no cap.
func WithConcurrency(n int) Option {
	return func(d *dispatcher) { d.concurrency = n }
}

// WithLogger sets the logger used for per-probe failures.
func WithLogger(logger *slog.Logger) Option {
	return func(d *dispatcher) { d.logger = logger }
}

// DispatchAll probes every tab concurrently and waits for all of them.
// The returned slice has one entry per tab, in the order of tabs, so
// results[i] always belongs to tabs[i] no matter which probe finished first.
func DispatchAll(ctx context.Context, tabs []Tab, fn Func, opts ...Option) []Result {
	d := &dispatcher{logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}

	results := make([]Result, len(tabs))
	if len(tabs) == 0 {
		return results
	}

	var sem chan struct{}
	if d.concurrency > 0 {
		sem = make(chan struct{}, d.concurrency)
	}

	var wg sync.WaitGroup
	for i, tab := range tabs {
		results[i] = Result{Index: i, Key: tab.Key(), Tab: tab}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					results[i].Err = asProbeError(ctx.Err())
					return
				}
			}
			md, err := d.run(ctx, tab, fn)
			if err != nil {
				d.logger.Debug("probe failed", "tab_id", tab.ID, "key", results[i].Key, "error", err)
				results[i].Err = err
				return
			}
			results[i].Metadata = md
		}()
	}
	wg.Wait()

	ok, total := Summary(results)
	d.logger.Debug("probe dispatch complete", "succeeded", ok, "total", total)
	return results
}

func (d *dispatcher) run(ctx context.Context, tab Tab, fn Func) (Metadata, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	type outcome struct {
		md  Metadata
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: panic: %v", ErrProbeFailed, r)}
			}
		}()
		md, err := fn(ctx, tab)
		done <- outcome{md: md, err: err}
	}()

	// A probe that ignores its context must not hold up the join.
	select {
	case out := <-done:
		if out.err != nil {
			return Metadata{}, asProbeError(out.err)
		}
		return out.md, nil
	case <-ctx.Done():
		return Metadata{}, asProbeError(ctx.Err())
	}
}

// Summary counts successful results against the total dispatched.
func Summary(results []Result) (succeeded, total int) {
	for _, r := range results {
		if r.OK() {
			succeeded++
		}
	}
	return succeeded, len(results)
}
