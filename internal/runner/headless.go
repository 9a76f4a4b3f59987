// internal/runner/headless.go
package runner

import (
	"context"
	"slices"
	"time"

	"github.com/julianshen/repowiki/internal/wiki"
)

// GenerateFunc matches the signature of wiki.Generator.Generate.
type GenerateFunc func(ctx context.Context, in wiki.GenerateInput) (*wiki.Result, error)

// ProgressSource reports the state of the current run. *wiki.State
// implements it.
type ProgressSource interface {
	Progress(maxTitles int) wiki.Progress
}

// Summary is the collected outcome of a headless run.
type Summary struct {
	Result   *wiki.Result
	Total    int
	Failed   int
	Duration time.Duration
}

// HeadlessRunner executes one generation run and reports progress while it
// is underway.
type HeadlessRunner struct {
	generate  GenerateFunc
	source    ProgressSource
	interval  time.Duration
	maxTitles int
	onUpdate  func(wiki.Progress)
}

// NewHeadlessRunner creates a new HeadlessRunner. source may be nil when no
// progress reporting is wanted.
func NewHeadlessRunner(generate GenerateFunc, source ProgressSource) *HeadlessRunner {
	return &HeadlessRunner{
		generate:  generate,
		source:    source,
		interval:  500 * time.Millisecond,
		maxTitles: 3,
	}
}

// WithProgress sets the polling interval and the callback receiving
// progress snapshots. The callback only sees snapshots that changed.
func (r *HeadlessRunner) WithProgress(interval time.Duration, maxTitles int, fn func(wiki.Progress)) *HeadlessRunner {
	if interval > 0 {
		r.interval = interval
	}
	if maxTitles > 0 {
		r.maxTitles = maxTitles
	}
	r.onUpdate = fn
	return r
}

// Run executes the generation and blocks until it returns.
func (r *HeadlessRunner) Run(ctx context.Context, in wiki.GenerateInput) (*Summary, error) {
	start := time.Now()

	type outcome struct {
		res *wiki.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := r.generate(ctx, in)
		done <- outcome{res, err}
	}()

	var ticks <-chan time.Time
	if r.source != nil && r.onUpdate != nil {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		ticks = ticker.C
	}

	var last *wiki.Progress
	report := func() {
		p := r.source.Progress(r.maxTitles)
		if last != nil && sameProgress(*last, p) {
			return
		}
		last = &p
		r.onUpdate(p)
	}

	for {
		select {
		case <-ticks:
			report()
		case o := <-done:
			if ticks != nil {
				report()
			}
			if o.err != nil {
				return nil, o.err
			}
			s := &Summary{Result: o.res, Duration: time.Since(start)}
			if o.res != nil {
				s.Failed = len(o.res.Failed)
				if o.res.Structure != nil {
					s.Total = len(o.res.Structure.Pages)
				}
			}
			return s, nil
		}
	}
}

func sameProgress(a, b wiki.Progress) bool {
	return a.RunID == b.RunID && a.Completed == b.Completed && a.Total == b.Total &&
		a.Overflow == b.Overflow && slices.Equal(a.Processing, b.Processing)
}
