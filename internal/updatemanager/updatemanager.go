// Package updatemanager implements the ConfigurationUpdateManager of
// spec.md §4.8: periodically reloads the active Configuration set, diffs it
// against what is currently scheduled, and drives the TaskScheduler.
package updatemanager

import (
	"context"
	"sync"
	"time"

	"github.com/pyplyn/pyplyn/internal/cluster"
	"github.com/pyplyn/pyplyn/internal/config"
	"github.com/pyplyn/pyplyn/internal/clock"
	"github.com/pyplyn/pyplyn/internal/model"
	"github.com/pyplyn/pyplyn/internal/status"
)

// MeterName is the metering name this manager exposes.
const MeterName = "updatemanager"

// replicatedSetName is the Cluster-replicated set UpdateManager publishes
// the active Configuration set under, so slaves can observe it via their
// own read path (spec.md §4.8 step 3).
const replicatedSetName = "configurations"

// Scheduler is the subset of scheduler.Scheduler the UpdateManager drives.
type Scheduler interface {
	Schedule(c model.Configuration)
	Cancel(id string)
}

// UpdateManager is the periodic reload-and-diff task of spec.md §4.8.
type UpdateManager struct {
	loader    config.Loader
	cluster   cluster.Cluster
	scheduler Scheduler
	shutdown  *clock.ShutdownSignal
	status    *status.Status
	interval  time.Duration

	mu     sync.Mutex
	active model.Set
}

// New constructs an UpdateManager. interval is
// global.updateConfigurationIntervalMillis, already converted to a
// time.Duration by the caller.
func New(loader config.Loader, cl cluster.Cluster, sched Scheduler, shutdown *clock.ShutdownSignal, st *status.Status, interval time.Duration) *UpdateManager {
	return &UpdateManager{
		loader:    loader,
		cluster:   cl,
		scheduler: sched,
		shutdown:  shutdown,
		status:    st,
		interval:  interval,
		active:    model.Set{},
	}
}

// Run blocks, ticking at interval until ctx is cancelled or shutdown
// drains, per spec.md §4.8.
func (m *UpdateManager) Run(ctx context.Context) {
	m.tick(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.shutdown.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *UpdateManager) tick(ctx context.Context) {
	stop := m.status.Timer(MeterName, "tick")
	defer stop()

	// On a slave, never call loader.Load(): only the master reloads from
	// source. The slave still observes what the master published and
	// schedules/cancels against it, so a failover promotes a slave that
	// already holds the master's last-known Configuration set rather than
	// starting from zero (spec.md §4.8 step 3, §8 scenario 6).
	if m.cluster != nil && !m.cluster.IsMaster() {
		next := m.cluster.ReplicatedSet(replicatedSetName).Get()
		m.reconcile(next)
		return
	}

	next, err := m.loader.Load()
	if err != nil {
		m.status.LogError("updatemanager_load_failed", err)
		return
	}

	if m.cluster != nil {
		m.cluster.ReplicatedSet(replicatedSetName).Put(next)
	}

	m.reconcile(next)
}

// reconcile diffs next against the currently scheduled set and drives the
// scheduler accordingly. Shared by the master's loaded set and the slave's
// replicated-set read so both paths stay in lockstep with what is actually
// scheduled.
func (m *UpdateManager) reconcile(next model.Set) {
	m.mu.Lock()
	current := m.active
	added, removed := current.Diff(next)
	m.active = next
	m.mu.Unlock()

	for _, c := range removed {
		m.scheduler.Cancel(c.ID())
	}
	for _, c := range added {
		m.scheduler.Schedule(c)
	}
}
