// Package scheduler implements the TaskScheduler of spec.md §4.9: one
// logical periodic task per Configuration, fired immediately on
// registration and then every repeatIntervalMillis, bounded by a worker
// pool shared across all scheduled tasks.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pyplyn/pyplyn/internal/clock"
	"github.com/pyplyn/pyplyn/internal/model"
	"github.com/pyplyn/pyplyn/internal/status"
)

// MeterName is the metering name this scheduler exposes.
const MeterName = "scheduler"

// Runner executes one Configuration end to end. internal/pipeline.Engine
// satisfies this.
type Runner interface {
	Run(ctx context.Context, c model.Configuration) error
}

// Scheduler owns one goroutine per scheduled Configuration plus a bounded
// worker pool that actually executes ticks (spec.md §5 "preemptive parallel
// with a bounded worker pool").
type Scheduler struct {
	runner   Runner
	shutdown *clock.ShutdownSignal
	status   *status.Status
	pool     chan struct{}

	mu    sync.Mutex
	tasks map[string]*task
}

type task struct {
	cfg       model.Configuration
	cancel    context.CancelFunc
	cancelled atomic.Bool
	running   atomic.Bool
	done      chan struct{}
}

// New constructs a Scheduler with a worker pool of the given size.
func New(runner Runner, shutdown *clock.ShutdownSignal, st *status.Status, poolSize int) *Scheduler {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &Scheduler{
		runner:   runner,
		shutdown: shutdown,
		status:   st,
		pool:     make(chan struct{}, poolSize),
		tasks:    make(map[string]*task),
	}
}

// Schedule registers a periodic task for c, keyed by its structural
// identity. A Configuration that is not Runnable (disabled or
// repeatIntervalMillis <= 0) never fires, per spec.md §4.9. Scheduling a
// Configuration already scheduled under the same identity is a no-op.
func (s *Scheduler) Schedule(c model.Configuration) {
	if !c.Runnable() {
		return
	}

	id := c.ID()
	s.mu.Lock()
	if _, exists := s.tasks[id]; exists {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cfg: c, cancel: cancel, done: make(chan struct{})}
	s.tasks[id] = t
	s.mu.Unlock()

	go s.run(ctx, t)
}

// Cancel stops the task registered under id. The next tick does not fire;
// an in-flight run is observed via ctx/ShutdownSignal and stops at its next
// checkpoint, best effort (spec.md §4.9, §5).
func (s *Scheduler) Cancel(id string) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if ok {
		delete(s.tasks, id)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	t.cancelled.Store(true)
	t.cancel()
}

// Scheduled reports the identities currently registered.
func (s *Scheduler) Scheduled() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	return ids
}

func (s *Scheduler) run(ctx context.Context, t *task) {
	defer close(t.done)

	s.fire(ctx, t)

	interval := time.Duration(t.cfg.RepeatIntervalMillis) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown.Done():
			return
		case <-ticker.C:
			s.fire(ctx, t)
		}
	}
}

// fire applies the overlap and backpressure policies of spec.md §4.9: an
// in-flight run of the same task skips this tick; a saturated pool drops
// the tick rather than queueing it.
func (s *Scheduler) fire(ctx context.Context, t *task) {
	if t.cancelled.Load() || s.shutdown.Draining() {
		return
	}
	if !t.running.CompareAndSwap(false, true) {
		return
	}
	defer t.running.Store(false)

	select {
	case s.pool <- struct{}{}:
	default:
		return
	}
	defer func() { <-s.pool }()

	if err := s.runner.Run(ctx, t.cfg); err != nil {
		s.status.LogError("scheduler_run_failed", err)
	}
}
