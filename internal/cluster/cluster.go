// Package cluster implements the Cluster collaborator of spec.md §6: master
// election and a named replicated set, with a degenerate single-node
// implementation as the default when hazelcast.enabled = false. A real
// cluster membership provider (Hazelcast or otherwise) plugs in behind the
// same interface without one being vendored here.
package cluster

import (
	"sync"

	"github.com/pyplyn/pyplyn/internal/model"
)

// Cluster reports master/slave status and exposes named replicated sets the
// ConfigurationUpdateManager uses to propagate the active Configuration set
// from master to slaves.
type Cluster interface {
	IsMaster() bool
	ReplicatedSet(name string) ReplicatedSet
}

// ReplicatedSet holds one named model.Set, shared across cluster members.
type ReplicatedSet interface {
	Put(all model.Set)
	Get() model.Set
}

// Standalone is the degenerate implementation selected when
// hazelcast.enabled = false: every node is master, and each named set is
// process-local (put/get round-trip within the same process only).
type Standalone struct {
	mu   sync.Mutex
	sets map[string]model.Set
}

// NewStandalone constructs a single-node Cluster.
func NewStandalone() *Standalone {
	return &Standalone{sets: make(map[string]model.Set)}
}

// IsMaster always returns true: there is no peer to lose an election to.
func (s *Standalone) IsMaster() bool { return true }

// ReplicatedSet returns a handle to the process-local set registered under
// name. Nothing is stored until the first Put; before that, Get returns an
// empty (nil) set.
func (s *Standalone) ReplicatedSet(name string) ReplicatedSet {
	return &standaloneSet{cluster: s, name: name}
}

type standaloneSet struct {
	cluster *Standalone
	name    string
}

func (r *standaloneSet) Put(all model.Set) {
	r.cluster.mu.Lock()
	defer r.cluster.mu.Unlock()
	r.cluster.sets[r.name] = all
}

func (r *standaloneSet) Get() model.Set {
	r.cluster.mu.Lock()
	defer r.cluster.mu.Unlock()
	return r.cluster.sets[r.name]
}

var _ Cluster = (*Standalone)(nil)
