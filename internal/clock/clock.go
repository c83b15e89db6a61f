// Package clock provides the monotonic time source and the process-wide
// draining signal observed at every stage boundary (spec.md §2.1, §5).
package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock is the monotonic time source used throughout pyplyn so tests can
// substitute a fake implementation.
type Clock interface {
	Now() time.Time
}

// System is the production Clock backed by time.Now.
type System struct{}

// Now returns the current wall-clock time.
func (System) Now() time.Time { return time.Now() }

// ShutdownSignal is a broadcast "draining" flag observable by any in-flight
// task. It has exactly one state transition, running -> draining, and that
// transition is monotonic: once draining, it never reverts.
type ShutdownSignal struct {
	draining atomic.Bool
	ch       chan struct{}
	once     sync.Once
}

// NewShutdownSignal returns a ShutdownSignal in the running state.
func NewShutdownSignal() *ShutdownSignal {
	return &ShutdownSignal{ch: make(chan struct{})}
}

// Drain transitions the signal to draining. Safe to call more than once or
// concurrently; only the first call has any effect.
func (s *ShutdownSignal) Drain() {
	s.once.Do(func() {
		s.draining.Store(true)
		close(s.ch)
	})
}

// Draining reports whether the signal has transitioned to draining.
func (s *ShutdownSignal) Draining() bool {
	return s.draining.Load()
}

// Done returns a channel that closes once Drain is called, for use in
// select statements at blocking points (remote calls, scheduler ticks).
func (s *ShutdownSignal) Done() <-chan struct{} {
	return s.ch
}
