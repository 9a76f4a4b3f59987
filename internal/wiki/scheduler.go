package wiki

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"
)

// Task generates one page. The returned error is informational: the task
// has already recorded its outcome and the run continues either way.
type Task func(ctx context.Context, page Page) error

// SchedulerConfig controls page admission.
type SchedulerConfig struct {
	MaxConcurrent int           // pages in flight at once, >= 1
	TaskTimeout   time.Duration // per-page limit, 0 disables
	Logger        *log.Logger   // nil uses log.Default()
}

// DefaultSchedulerConfig returns a fully serialized scheduler with a
// ten-minute page timeout.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrent: 1,
		TaskTimeout:   10 * time.Minute,
	}
}

// RunStats summarizes a finished scheduler run.
type RunStats struct {
	Launched   int
	Failed     int
	PeakActive int
}

// Scheduler drives a FIFO queue of pages through a bounded number of
// concurrently running tasks.
type Scheduler struct {
	cfg    SchedulerConfig
	logger *log.Logger
}

// NewScheduler validates cfg and returns a Scheduler.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.MaxConcurrent < 1 {
		return nil, errors.New("scheduler: MaxConcurrent must be >= 1")
	}
	if cfg.TaskTimeout < 0 {
		return nil, errors.New("scheduler: TaskTimeout must not be negative")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{cfg: cfg, logger: logger}, nil
}

// MaxConcurrent returns the configured concurrency limit.
func (s *Scheduler) MaxConcurrent() int { return s.cfg.MaxConcurrent }

// Run enqueues pages in order and blocks until every admitted task has
// finished. onDone, if non-nil, is called after each task with the task's
// error; a panicking task is reported as an error. Cancelling ctx does not
// stop the run early, it is passed to every task so they fail fast.
func (s *Scheduler) Run(ctx context.Context, pages []Page, task Task, onDone func(Page, error)) RunStats {
	r := &schedRun{
		s:      s,
		ctx:    ctx,
		task:   task,
		onDone: onDone,
		queue:  append([]Page(nil), pages...),
		done:   make(chan struct{}),
	}
	r.admit()
	<-r.done

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// schedRun is the bookkeeping of one Run call.
type schedRun struct {
	s      *Scheduler
	ctx    context.Context
	task   Task
	onDone func(Page, error)

	mu     sync.Mutex
	queue  []Page
	active int
	stats  RunStats

	done     chan struct{}
	doneOnce sync.Once
}

// admit launches queued pages from the head while below the limit, then
// checks for completion.
func (r *schedRun) admit() {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 || r.active >= r.s.cfg.MaxConcurrent {
			r.mu.Unlock()
			break
		}
		page := r.queue[0]
		r.queue = r.queue[1:]
		r.active++
		r.stats.Launched++
		if r.active > r.stats.PeakActive {
			r.stats.PeakActive = r.active
		}
		active, remaining := r.active, len(r.queue)
		r.mu.Unlock()

		r.s.logger.Printf("wiki: starting page %q (%d active, %d remaining)", page.Title, active, remaining)
		go r.execute(page)
	}
	r.maybeComplete()
}

// execute runs one task and, once it returns, frees its slot and admits
// the next page.
func (r *schedRun) execute(page Page) {
	ctx := r.ctx
	if r.s.cfg.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.s.cfg.TaskTimeout)
		defer cancel()
	}

	var err error
	var pc panics.Catcher
	pc.Try(func() { err = r.task(ctx, page) })
	if rec := pc.Recovered(); rec != nil {
		err = rec.AsError()
		r.s.logger.Printf("WARNING: page %q task panicked: %v", page.ID, err)
	}
	if r.onDone != nil {
		r.onDone(page, err)
	}

	r.mu.Lock()
	r.active--
	if err != nil {
		r.stats.Failed++
	}
	active, remaining := r.active, len(r.queue)
	r.mu.Unlock()

	r.s.logger.Printf("wiki: finished page %q (%d active, %d remaining)", page.Title, active, remaining)
	r.admit()
}

// maybeComplete is the single owner of the completion decision: the run
// is complete when the queue is empty and nothing is active. It is called
// from the admission loop and after every task, and signals exactly once.
func (r *schedRun) maybeComplete() {
	r.mu.Lock()
	complete := len(r.queue) == 0 && r.active == 0
	r.mu.Unlock()
	if !complete {
		return
	}
	r.doneOnce.Do(func() {
		r.s.logger.Printf("wiki: all page generation tasks completed")
		close(r.done)
	})
}
